package validator

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/campusdocs/proof-archive/internal/models"
)

// BusinessValidator handles rules that depend on stored state
type BusinessValidator struct {
	validate *validator.Validate
}

func newBusinessValidator(v *validator.Validate) *BusinessValidator {
	bv := &BusinessValidator{validate: v}
	bv.registerBusinessRules()
	return bv
}

// ValidateStatusTransition checks a review against the proof status table
func (bv *BusinessValidator) ValidateStatusTransition(current, next models.ProofStatus) ValidationErrors {
	var errs ValidationErrors

	if !next.IsValid() {
		errs = append(errs, ValidationError{
			Field:   "status",
			Message: "must be one of pending, approved, rejected",
			Value:   next,
			Rule:    "proof_status",
		})
		return errs
	}

	if !current.CanTransitionTo(next) {
		errs = append(errs, ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", current, next),
			Value:   next,
			Rule:    "status_transition",
		})
	}

	return errs
}

// MaxRejectionReasonLen bounds a stored rejection reason, in characters
const MaxRejectionReasonLen = 1000

// ValidateRejectionReason checks the reason length of a rejection.
// Reasons sent with any other status are discarded, so they are not checked.
func (bv *BusinessValidator) ValidateRejectionReason(next models.ProofStatus, reason *string) ValidationErrors {
	normalized := bv.NormalizeRejectionReason(next, reason)
	if normalized == nil || utf8.RuneCountInString(*normalized) <= MaxRejectionReasonLen {
		return nil
	}
	return ValidationErrors{{
		Field:   "rejection_reason",
		Message: fmt.Sprintf("must be at most %d characters", MaxRejectionReasonLen),
		Rule:    "max",
	}}
}

// NormalizeRejectionReason returns the reason to store for a review.
// Only a rejection keeps a non-blank reason.
func (bv *BusinessValidator) NormalizeRejectionReason(next models.ProofStatus, reason *string) *string {
	if next != models.ProofRejected || reason == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ValidateRole checks a role value supplied by an admin
func (bv *BusinessValidator) ValidateRole(role models.UserRole) ValidationErrors {
	if role.IsValid() {
		return nil
	}
	return ValidationErrors{{
		Field:   "role",
		Message: "must be one of admin, staff, student",
		Value:   role,
		Rule:    "user_role",
	}}
}

func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("proof_status", func(fl validator.FieldLevel) bool {
		return models.ProofStatus(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("printable", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
				return false
			}
		}
		return true
	})
}
