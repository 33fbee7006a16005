package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProofStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to ProofStatus
		want     bool
	}{
		{ProofPending, ProofApproved, true},
		{ProofPending, ProofRejected, true},
		{ProofPending, ProofPending, false},
		{ProofApproved, ProofRejected, false},
		{ProofApproved, ProofPending, false},
		{ProofRejected, ProofApproved, false},
		{ProofRejected, ProofPending, false},
		{ProofStatus("archived"), ProofApproved, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestProofStatus_IsValid(t *testing.T) {
	for _, s := range []ProofStatus{ProofPending, ProofApproved, ProofRejected} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, ProofStatus("").IsValid())
	assert.False(t, ProofStatus("Approved").IsValid())
}

func TestUserRole(t *testing.T) {
	tests := []struct {
		role     UserRole
		valid    bool
		reviewer bool
	}{
		{RoleStudent, true, false},
		{RoleStaff, true, true},
		{RoleAdmin, true, true},
		{UserRole("teacher"), false, false},
		{UserRole(""), false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.IsValid())
			assert.Equal(t, tt.reviewer, tt.role.IsReviewer())
		})
	}
}

func TestUser_Public(t *testing.T) {
	u := &User{ID: 3, Name: "Ravi", Email: "ravi@college.edu", Role: RoleStudent, Password: "$2a$10$hash"}
	assert.Equal(t, PublicUser{ID: 3, Name: "Ravi", Email: "ravi@college.edu", Role: RoleStudent}, u.Public())
}
