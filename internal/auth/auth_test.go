package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pairline/pairline/internal/domain"
)

const testSecret = "unit-test-secret"

func TestValidator_Round_Trip(t *testing.T) {
	req := require.New(t)
	validator := NewValidator(testSecret)

	token, err := IssueToken(testSecret, "user-42", "Alice", time.Minute)
	req.NoError(err)

	userID, name, err := validator.ValidateSession(token)
	req.NoError(err)
	req.Equal(domain.UserID("user-42"), userID)
	req.Equal("Alice", name)
}

func TestValidator_Rejects_Expired(t *testing.T) {
	req := require.New(t)
	validator := NewValidator(testSecret)

	token, err := IssueToken(testSecret, "user-42", "Alice", -time.Minute)
	req.NoError(err)

	_, _, err = validator.ValidateSession(token)
	req.ErrorIs(err, ErrInvalidSession)
}

func TestValidator_Rejects_Wrong_Secret(t *testing.T) {
	req := require.New(t)
	validator := NewValidator(testSecret)

	token, err := IssueToken("some-other-secret", "user-42", "", time.Minute)
	req.NoError(err)

	_, _, err = validator.ValidateSession(token)
	req.ErrorIs(err, ErrInvalidSession)
}

func TestValidator_Rejects_Garbage(t *testing.T) {
	req := require.New(t)
	validator := NewValidator(testSecret)

	_, _, err := validator.ValidateSession("not-a-token")
	req.ErrorIs(err, ErrInvalidSession)
}

func TestValidator_Rejects_Missing_Subject(t *testing.T) {
	req := require.New(t)
	validator := NewValidator(testSecret)

	token, err := IssueToken(testSecret, "", "Alice", time.Minute)
	req.NoError(err)

	_, _, err = validator.ValidateSession(token)
	req.ErrorIs(err, ErrInvalidSession)
}
