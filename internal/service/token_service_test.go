package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key-for-unit-tests"

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 12*time.Hour, "degen-arena-referee")

	tokenStr, expiresAt, err := svc.Generate("referee")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "referee", claims.Subject)
	assert.Equal(t, OperatorRole, claims.Role)
}

func TestJWTTokenService_ExpiredToken(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, -1*time.Hour, "degen-arena-referee")

	tokenStr, _, err := svc.Generate("referee")
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err, "expired token should fail validation")
}

func TestJWTTokenService_WrongSecret(t *testing.T) {
	issuer := NewJWTTokenService(testJWTSecret, time.Hour, "degen-arena-referee")
	verifier := NewJWTTokenService("another-secret", time.Hour, "degen-arena-referee")

	tokenStr, _, err := issuer.Generate("referee")
	require.NoError(t, err)

	_, err = verifier.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_WrongIssuer(t *testing.T) {
	issuer := NewJWTTokenService(testJWTSecret, time.Hour, "someone-else")
	verifier := NewJWTTokenService(testJWTSecret, time.Hour, "degen-arena-referee")

	tokenStr, _, err := issuer.Generate("referee")
	require.NoError(t, err)

	_, err = verifier.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsOtherAlgorithms(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "degen-arena-referee")

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, operatorClaims{
		Role: OperatorRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "referee",
			Issuer:    "degen-arena-referee",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tokenStr, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsWrongRole(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "degen-arena-referee")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, operatorClaims{
		Role: "bettor",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "referee",
			Issuer:    "degen-arena-referee",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tokenStr, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_EmptySecret(t *testing.T) {
	svc := NewJWTTokenService("", time.Hour, "degen-arena-referee")
	_, _, err := svc.Generate("referee")
	assert.Error(t, err)
}

func TestJWTTokenService_Garbage(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "degen-arena-referee")
	_, err := svc.Validate("not.a.jwt")
	assert.Error(t, err)
}
