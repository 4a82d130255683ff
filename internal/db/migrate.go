package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appslab-dev/miniapps/internal/config"
	"github.com/appslab-dev/miniapps/internal/models"
	"gorm.io/gorm"
)

// Migrate applies the schema, constraint indexes, and setting seeds.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.App{},
		&models.Code{},
		&models.File{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			// App names are unique only among non-deleted rows; a
			// soft-deleted app frees its name for reuse.
			name: "idx_apps_name_active",
			sql: `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_apps_name_active
				ON apps (name)
				WHERE deleted_at IS NULL
			`,
		},
		{
			// One code row per (user, app, type) triple. NULLs compare
			// distinct in unique indexes, so the unattached case needs
			// its own predicate.
			name: "idx_codes_user_app_type",
			sql: `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_codes_user_app_type
				ON codes (user_id, app_id, type)
				WHERE app_id IS NOT NULL
			`,
		},
		{
			name: "idx_codes_user_type_unattached",
			sql: `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_codes_user_type_unattached
				ON codes (user_id, type)
				WHERE app_id IS NULL
			`,
		},
		{
			name: "idx_apps_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_apps_user_id_created_at
				ON apps (user_id, created_at DESC)
			`,
		},
		{
			name: "idx_files_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_files_user_id_created_at
				ON files (user_id, created_at DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	if errSeed := ensureUploadPolicySetting(conn); errSeed != nil {
		return errSeed
	}

	return nil
}

// UploadPolicySettingKey names the seeded upload-policy setting row.
const UploadPolicySettingKey = "UPLOAD_POLICY"

// ensureUploadPolicySetting ensures the upload policy setting exists
// and backfills it when empty.
func ensureUploadPolicySetting(conn *gorm.DB) error {
	payload, errMarshal := json.Marshal(config.DefaultUploadPolicy())
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", UploadPolicySettingKey, errMarshal)
	}
	rawValue := json.RawMessage(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", UploadPolicySettingKey).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", UploadPolicySettingKey, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", UploadPolicySettingKey, errFind)
	}

	setting := models.Setting{
		Key:       UploadPolicySettingKey,
		Value:     payload,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", UploadPolicySettingKey, errCreate)
	}
	return nil
}

// LoadUploadPolicy reads the stored upload policy, falling back to
// defaults when the row is absent or malformed.
func LoadUploadPolicy(conn *gorm.DB) config.UploadPolicy {
	policy := config.DefaultUploadPolicy()
	var row models.Setting
	if errFind := conn.Where("key = ?", UploadPolicySettingKey).First(&row).Error; errFind != nil {
		return policy
	}
	if errUnmarshal := json.Unmarshal(row.Value, &policy); errUnmarshal != nil {
		return config.DefaultUploadPolicy()
	}
	return policy
}
