package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClientFingerprint is an identity/session snapshot taken once per request at
// entry. It is created unconditionally, even for requests that error out, and
// is never mutated afterwards.
type ClientFingerprint struct {
	ID         string         `json:"id" gorm:"column:id;type:varchar(36);primaryKey"`
	UserID     *uint          `json:"user_id" gorm:"column:user_id;index"`
	Token      string         `json:"token" gorm:"column:token;type:text;index:idx_fingerprint_token,length:191"`
	IPAddress  string         `json:"ip_address" gorm:"column:ip_address;type:varchar(45);index"`
	Host       string         `json:"host" gorm:"column:host;type:varchar(255)"`
	UserAgent  string         `json:"user_agent" gorm:"column:user_agent;type:varchar(512)"`
	Country    string         `json:"country" gorm:"column:country;type:varchar(100)"`
	SessionID  string         `json:"session_id" gorm:"column:session_id;type:varchar(255)"`
	CookieData datatypes.JSON `json:"cookie_data" gorm:"column:cookie_data;type:json"`
	CreatedAt  time.Time      `json:"created_at" gorm:"column:created_at;index"`
}

func (ClientFingerprint) TableName() string {
	return "client_fingerprints"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (f *ClientFingerprint) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
