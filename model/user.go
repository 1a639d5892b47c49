package model

import "gorm.io/gorm"

// User is the minimal account record the monitor needs to attribute requests.
type User struct {
	gorm.Model
	Name     string `json:"name" gorm:"column:name;type:varchar(255)"`
	Email    string `json:"email" gorm:"column:email;type:varchar(191);uniqueIndex"`
	Password string `json:"-" gorm:"column:password;type:varchar(255)"`
	RoleID   uint32 `json:"role_id" gorm:"column:role_id"`
}
