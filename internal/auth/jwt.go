package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/campusdocs/proof-archive/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

const issuer = "proof-archive"

// Claims is the payload of a session token
type Claims struct {
	Role models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Session is a verified token
type Session struct {
	TokenID   string
	UserID    uint
	Role      models.UserRole
	ExpiresAt time.Time
}

// TokenManager issues and verifies HS256 session tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new token for user
func (m *TokenManager) Issue(user *models.User) (string, *Session, error) {
	now := m.now().UTC()
	session := &Session{
		TokenID:   uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: now.Add(m.ttl).Truncate(time.Second),
	}

	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.TokenID,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, session, nil
}

// Parse verifies signature, algorithm, issuer and expiry of tokenStr
func (m *TokenManager) Parse(tokenStr string) (*Session, error) {
	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := tok.Claims.(*Claims)
	if !ok || c.ID == "" {
		return nil, fmt.Errorf("%w: missing token id", ErrInvalidToken)
	}
	userID, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || userID == 0 {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return &Session{
		TokenID:   c.ID,
		UserID:    uint(userID),
		Role:      c.Role,
		ExpiresAt: c.ExpiresAt.Time.UTC(),
	}, nil
}
