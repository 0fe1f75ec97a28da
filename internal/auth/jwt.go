package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Service validates tokens issued by the external auth provider. The
// provider owns login and sessions; this service only checks signatures
// and extracts the caller identity.
type Service struct {
	secret []byte
}

// NewService constructs a Service around the shared signing secret.
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

type claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateToken issues a token for a user. Used by tests and local
// tooling; production tokens come from the auth provider.
func (s *Service) GenerateToken(userID int, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(s.secret)
}

// ValidateToken verifies the signature and expiry and returns the user id.
func (s *Service) ValidateToken(tokenString string) (int, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	tokenClaims, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || tokenClaims.UserID == 0 {
		return 0, ErrInvalidToken
	}
	return tokenClaims.UserID, nil
}
