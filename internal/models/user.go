package models

import "time"

// User represents an end-user account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:varchar(50);not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:varchar(255);not null"`            // Hashed password.

	IsAdmin bool `gorm:"not null;default:false"` // First registered user becomes admin.

	Apps  []App  `gorm:"foreignKey:UserID"` // Owned apps.
	Codes []Code `gorm:"foreignKey:UserID"` // Owned code slots.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
