// Package auth validates session tokens issued by the account service.
// The relay never issues tokens itself; it only checks the signature
// and expiry and extracts the user identity.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pairline/pairline/internal/domain"
)

var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims is the data the account service puts inside a session
// token. Subject carries the user id, Name the profile display name.
type SessionClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type Validator struct {
	secret []byte
}

func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// ValidateSession checks the token signature and expiry and returns
// the user id plus the display name claim (may be empty).
func (v *Validator) ValidateSession(token string) (domain.UserID, string, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return v.secret, nil
	})
	if err != nil {
		return "", "", errors.Join(ErrInvalidSession, err)
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", "", ErrInvalidSession
	}
	return domain.UserID(claims.Subject), claims.Name, nil
}

// IssueToken signs a session token. Used by tests and the local dev
// token endpoint; production tokens come from the account service.
func IssueToken(secret string, userID domain.UserID, name string, ttl time.Duration) (string, error) {
	claims := &SessionClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "pairline",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
