package util

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIssueAndParseBearerToken(t *testing.T) {
	SetJWTSecret("unit-test-secret")

	token, err := IssueBearerToken(42, time.Hour)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ParseBearerToken("Bearer " + token)
	assert.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestParseBearerToken_MissingPrefix(t *testing.T) {
	SetJWTSecret("unit-test-secret")

	token, err := IssueBearerToken(7, time.Hour)
	assert.NoError(t, err)

	_, err = ParseBearerToken(token)
	assert.Error(t, err)
}

func TestParseBearerToken_EmptyHeader(t *testing.T) {
	_, err := ParseBearerToken("")
	assert.Error(t, err)
}

func TestParseBearerToken_Expired(t *testing.T) {
	SetJWTSecret("unit-test-secret")

	token, err := IssueBearerToken(7, -time.Minute)
	assert.NoError(t, err)

	_, err = ParseBearerToken("Bearer " + token)
	assert.Error(t, err)
}

func TestParseBearerToken_WrongSecret(t *testing.T) {
	SetJWTSecret("secret-one")
	token, err := IssueBearerToken(7, time.Hour)
	assert.NoError(t, err)

	SetJWTSecret("secret-two")
	_, err = ParseBearerToken("Bearer " + token)
	assert.Error(t, err)
}

func TestParseBearerToken_TamperedToken(t *testing.T) {
	SetJWTSecret("unit-test-secret")

	token, err := IssueBearerToken(7, time.Hour)
	assert.NoError(t, err)

	tampered := strings.TrimSuffix(token, token[len(token)-2:]) + "xx"
	_, err = ParseBearerToken("Bearer " + tampered)
	assert.Error(t, err)
}

func TestGetJWTSecretByte_ReturnsCopy(t *testing.T) {
	SetJWTSecret("copy-secret")

	b := GetJWTSecretByte()
	b[0] = 'X'

	assert.Equal(t, []byte("copy-secret"), GetJWTSecretByte())
}
