package model

import (
	"time"

	"gorm.io/gorm"
)

// Session is a server-side login session. The monitor consults it both to
// resolve the authenticated user and for the session-duplication heuristic.
type Session struct {
	gorm.Model
	SessionToken string    `json:"session_token" gorm:"column:session_token;type:varchar(255);index"`
	UserID       uint      `json:"user_id" gorm:"column:user_id;index"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"column:expires_at;index"`
	ClientIP     string    `json:"client_ip" gorm:"column:client_ip;type:varchar(45)"`
	Browser      string    `json:"browser" gorm:"column:browser;type:varchar(512)"`
}
