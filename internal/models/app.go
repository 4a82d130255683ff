package models

import "time"

// App represents a user-owned named container for three code slots.
//
// Name uniqueness only covers rows where DeletedAt is NULL; the partial
// unique index is applied in db.Migrate because gorm struct tags cannot
// express a predicate.
type App struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name  string `gorm:"type:varchar(50);not null"`  // Unique identifier among active apps.
	Title string `gorm:"type:varchar(100);not null"` // Display title.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"` // Owning user.

	TemplateCodeID *uint64 `gorm:""` // Denormalized pointer to the template code row.
	StyleCodeID    *uint64 `gorm:""` // Denormalized pointer to the style code row.
	ScriptCodeID   *uint64 `gorm:""` // Denormalized pointer to the script code row.

	DeletedAt *time.Time `gorm:"index"` // Soft-delete marker; rows are never removed by the API.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Deleted reports whether the app is soft-deleted.
func (a *App) Deleted() bool {
	return a.DeletedAt != nil
}
