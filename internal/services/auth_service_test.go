package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/testutil"
)

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	svc := f.manager.Auth()

	tests := []struct {
		name    string
		req     LoginRequest
		wantErr error
	}{
		{name: "valid credentials", req: LoginRequest{Email: "staff@college.edu", Password: testutil.TestPassword}},
		{name: "wrong password", req: LoginRequest{Email: "staff@college.edu", Password: "nope"}, wantErr: ErrInvalidCredentials},
		{name: "unknown email", req: LoginRequest{Email: "ghost@college.edu", Password: testutil.TestPassword}, wantErr: ErrInvalidCredentials},
		{name: "missing password", req: LoginRequest{Email: "staff@college.edu"}, wantErr: ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(context.Background(), &tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Login successful", resp.Message)
			assert.Equal(t, f.staff.ID, resp.User.ID)
			assert.Equal(t, models.RoleStaff, resp.User.Role)
			assert.NotEmpty(t, resp.Token)
			assert.True(t, resp.ExpiresAt.After(time.Now()))
		})
	}
}

func TestAuthService_AuthenticateAndLogout(t *testing.T) {
	f := newFixture(t)
	svc := f.manager.Auth()
	ctx := context.Background()

	resp, err := svc.Login(ctx, &LoginRequest{Email: f.student.Email, Password: testutil.TestPassword})
	require.NoError(t, err)

	user, session, err := svc.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, f.student.ID, user.ID)
	assert.Equal(t, f.student.ID, session.UserID)

	// Role changes apply to live sessions
	require.NoError(t, f.repo.User().UpdateRole(ctx, f.student.ID, models.RoleStaff))
	user, _, err = svc.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, user.Role)

	require.NoError(t, svc.Logout(ctx, session))
	require.NoError(t, svc.Logout(ctx, session), "logging out twice is harmless")

	_, _, err = svc.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_Authenticate_Rejects(t *testing.T) {
	f := newFixture(t)
	svc := f.manager.Auth()

	ghost := &models.User{ID: 9999, Role: models.RoleAdmin}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "deleted account", token: testutil.Token(t, f.tokens, ghost)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Authenticate(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestAuthService_CheckLegacyIdentity(t *testing.T) {
	f := newFixture(t)
	svc := f.manager.Auth()
	user := &models.User{ID: 7, Role: models.RoleStudent}

	tests := []struct {
		name    string
		legacy  LegacyIdentity
		wantErr bool
	}{
		{name: "absent", legacy: LegacyIdentity{}},
		{name: "matching", legacy: LegacyIdentity{UserID: "7", UserRole: "student"}},
		{name: "role case-insensitive", legacy: LegacyIdentity{UserRole: "Student"}},
		{name: "other user", legacy: LegacyIdentity{UserID: "8"}, wantErr: true},
		{name: "escalated role", legacy: LegacyIdentity{UserID: "7", UserRole: "admin"}, wantErr: true},
		{name: "non-numeric id", legacy: LegacyIdentity{UserID: "seven"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckLegacyIdentity(user, tt.legacy)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIdentityMismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthService_CreateUser(t *testing.T) {
	f := newFixture(t)
	svc := f.manager.Auth()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, &CreateUserRequest{
		Name:     " New Student ",
		Email:    "1ms21cs099@college.edu",
		Password: "long enough password",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "New Student", user.Name)
	assert.NotEqual(t, "long enough password", user.Password)

	_, err = svc.Login(ctx, &LoginRequest{Email: "1ms21cs099@college.edu", Password: "long enough password"})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, &CreateUserRequest{Name: "Dup", Email: "1ms21cs099@college.edu", Password: "another password", Role: models.RoleStudent})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreateUser(ctx, &CreateUserRequest{Name: "Bad", Email: "x@college.edu", Password: "short", Role: "teacher"})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
}

func TestAuthService_PurgeRevokedTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&models.RevokedToken{TokenID: "old", UserID: f.student.ID, ExpiresAt: time.Now().UTC().Add(-time.Hour)}).Error)
	require.NoError(t, f.db.Create(&models.RevokedToken{TokenID: "live", UserID: f.student.ID, ExpiresAt: time.Now().UTC().Add(time.Hour)}).Error)

	n, err := f.manager.Auth().PurgeRevokedTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), f.count(t, &models.RevokedToken{}))
}
