package models

import "time"

// Code slot types.
const (
	// CodeTypeTemplate is the HTML template slot.
	CodeTypeTemplate = "template"
	// CodeTypeScript is the script slot.
	CodeTypeScript = "script"
	// CodeTypeStyle is the style slot.
	CodeTypeStyle = "style"
)

// ValidCodeType reports whether t names a known code slot.
func ValidCodeType(t string) bool {
	switch t {
	case CodeTypeTemplate, CodeTypeScript, CodeTypeStyle:
		return true
	}
	return false
}

// Code represents one typed content blob, optionally attached to an app.
//
// At most one row exists per (user, app, type) triple, including the
// unattached case where AppID is NULL; db.Migrate applies the two
// partial unique indexes backing this.
type Code struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"` // Owning user.

	Type    string `gorm:"type:varchar(20);not null"` // One of template, script, style.
	Content string `gorm:"type:text;not null;default:''"` // Slot content.

	AppID *uint64 `gorm:"index"`                                     // Attached app ID, NULL for standalone code.
	App   *App    `gorm:"foreignKey:AppID;constraint:OnDelete:SET NULL"` // Attached app.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
