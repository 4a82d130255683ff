package models

import "time"

// File represents uploaded file metadata; bytes live in the blob store
// under Key.
type File struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Key  string  `gorm:"type:varchar(255);not null;uniqueIndex"` // Opaque blob key (UUID).
	Name *string `gorm:"type:varchar(255)"`                      // Original filename, if any.
	Type string  `gorm:"type:varchar(100);not null"`             // MIME type.
	Size int64   `gorm:"not null;default:0"`                     // Size in bytes.
	Ext  *string `gorm:"type:varchar(20)"`                       // Lowercased extension, if any.

	Private bool `gorm:"not null;default:false"` // Private files require an owning token.

	UserID *uint64 `gorm:"index"`                                          // Owning user ID; survives owner deletion.
	User   *User   `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"` // Owning user.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Upload timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
