package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting stores a JSON configuration value under a unique key.
type Setting struct {
	Key   string         `gorm:"primaryKey;type:varchar(100)"` // Setting key.
	Value datatypes.JSON `gorm:"type:jsonb;not null"`          // JSON value.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
