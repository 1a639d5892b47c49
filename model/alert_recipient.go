package model

import "gorm.io/gorm"

// Recipient designations used for role-based alert routing.
const (
	DesignationOwner     = "owner"
	DesignationAdmin     = "admin"
	DesignationDeveloper = "developer"
	DesignationAnalyst   = "analyst"
	DesignationSupport   = "support"
	DesignationOther     = "other"
)

// ValidDesignations lists every accepted recipient designation.
var ValidDesignations = []string{
	DesignationOwner,
	DesignationAdmin,
	DesignationDeveloper,
	DesignationAnalyst,
	DesignationSupport,
	DesignationOther,
}

// AlertRecipient is a subscriber for severity-based alert emails. Recipients
// are managed through the admin endpoints and read-only to the pipeline.
type AlertRecipient struct {
	gorm.Model
	Email       string `json:"email" gorm:"column:email;type:varchar(191);uniqueIndex" example:"oncall@example.com"`
	Designation string `json:"designation" gorm:"column:designation;type:varchar(32);index" example:"developer"`
	Description string `json:"description" gorm:"column:description;type:text" example:"Backend on-call rotation"`
	CreatedBy   *uint  `json:"created_by" gorm:"column:created_by"`
	UpdatedBy   *uint  `json:"updated_by" gorm:"column:updated_by"`
}

func (AlertRecipient) TableName() string {
	return "alert_recipients"
}
