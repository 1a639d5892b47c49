package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestClientFingerprint_BeforeCreateAssignsUUID(t *testing.T) {
	db := setupTestDB(t, "fingerprint", &ClientFingerprint{})

	fp := ClientFingerprint{IPAddress: "203.0.113.9", Host: "api.example.com"}
	assert.NoError(t, db.Create(&fp).Error)
	assert.Len(t, fp.ID, 36)
}

func TestClientFingerprint_CookieDataRoundTrip(t *testing.T) {
	db := setupTestDB(t, "fingerprint", &ClientFingerprint{})

	fp := ClientFingerprint{
		IPAddress:  "203.0.113.9",
		CookieData: datatypes.JSON([]byte(`{"theme":"dark","lang":"en"}`)),
	}
	assert.NoError(t, db.Create(&fp).Error)

	var found ClientFingerprint
	assert.NoError(t, db.First(&found, "id = ?", fp.ID).Error)
	assert.JSONEq(t, `{"theme":"dark","lang":"en"}`, string(found.CookieData))
}

func TestClientFingerprint_AnonymousUser(t *testing.T) {
	db := setupTestDB(t, "fingerprint", &ClientFingerprint{})

	fp := ClientFingerprint{IPAddress: "198.51.100.4", UserAgent: "curl/8.0"}
	assert.NoError(t, db.Create(&fp).Error)

	var found ClientFingerprint
	assert.NoError(t, db.First(&found, "id = ?", fp.ID).Error)
	assert.Nil(t, found.UserID)
}

func TestClientFingerprint_AttributedUser(t *testing.T) {
	db := setupTestDB(t, "fingerprint", &ClientFingerprint{}, &User{})

	user := User{Name: "U", Email: "u@example.com", Password: "x", RoleID: 1}
	assert.NoError(t, db.Create(&user).Error)

	fp := ClientFingerprint{UserID: &user.ID, IPAddress: "198.51.100.4", SessionID: "tok"}
	assert.NoError(t, db.Create(&fp).Error)

	var found ClientFingerprint
	assert.NoError(t, db.First(&found, "id = ?", fp.ID).Error)
	if assert.NotNil(t, found.UserID) {
		assert.Equal(t, user.ID, *found.UserID)
	}
}
