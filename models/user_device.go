package models

import "time"

type UserDevice struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PersonID    string    `gorm:"size:64;index" json:"person_id"`
	Platform    string    `gorm:"size:16" json:"platform"` // "android" | "ios"
	TokenHash   string    `gorm:"size:64" json:"-"`
	EndpointARN string    `gorm:"size:256" json:"-"`
	Enabled     bool      `gorm:"default:true" json:"enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedAt   time.Time `json:"created_at"`
}
