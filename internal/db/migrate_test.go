package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/appslab-dev/miniapps/internal/models"
	"gorm.io/gorm"
)

func openMigrated(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := Open("file:" + filepath.Join(t.TempDir(), "migrate-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestMigrate_AppNameUniqueAmongActive(t *testing.T) {
	conn := openMigrated(t)

	user := models.User{Username: "alice", Password: "x"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	first := models.App{Name: "site", Title: "Site", UserID: user.ID}
	if err := conn.Create(&first).Error; err != nil {
		t.Fatalf("create app: %v", err)
	}

	duplicate := models.App{Name: "site", Title: "Other", UserID: user.ID}
	if err := conn.Create(&duplicate).Error; err == nil {
		t.Fatal("expected duplicate active app name to be rejected")
	}

	// A soft-deleted app frees its name for reuse.
	now := time.Now()
	if err := conn.Model(&first).Update("deleted_at", &now).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	reused := models.App{Name: "site", Title: "Again", UserID: user.ID}
	if err := conn.Create(&reused).Error; err != nil {
		t.Fatalf("expected name reuse after soft delete, got %v", err)
	}
}

func TestMigrate_CodeTripleUnique(t *testing.T) {
	conn := openMigrated(t)

	user := models.User{Username: "alice", Password: "x"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	app := models.App{Name: "site", Title: "Site", UserID: user.ID}
	if err := conn.Create(&app).Error; err != nil {
		t.Fatalf("create app: %v", err)
	}

	attached := models.Code{UserID: user.ID, AppID: &app.ID, Type: models.CodeTypeTemplate, Content: "a"}
	if err := conn.Create(&attached).Error; err != nil {
		t.Fatalf("create code: %v", err)
	}
	clash := models.Code{UserID: user.ID, AppID: &app.ID, Type: models.CodeTypeTemplate, Content: "b"}
	if err := conn.Create(&clash).Error; err == nil {
		t.Fatal("expected duplicate (user, app, type) to be rejected")
	}

	// The standalone slot is unique per (user, type) as well.
	standalone := models.Code{UserID: user.ID, Type: models.CodeTypeTemplate, Content: "a"}
	if err := conn.Create(&standalone).Error; err != nil {
		t.Fatalf("create standalone code: %v", err)
	}
	standaloneClash := models.Code{UserID: user.ID, Type: models.CodeTypeTemplate, Content: "b"}
	if err := conn.Create(&standaloneClash).Error; err == nil {
		t.Fatal("expected duplicate standalone (user, type) to be rejected")
	}
}

func TestMigrate_SeedsUploadPolicy(t *testing.T) {
	conn := openMigrated(t)

	var setting models.Setting
	if err := conn.Where("key = ?", UploadPolicySettingKey).First(&setting).Error; err != nil {
		t.Fatalf("expected seeded %s setting, got %v", UploadPolicySettingKey, err)
	}

	policy := LoadUploadPolicy(conn)
	if policy.MaxSize != 10*1024*1024 {
		t.Fatalf("expected default 10MB max size, got %d", policy.MaxSize)
	}
	if len(policy.MimeWhitelist) != 0 || len(policy.ExtBlacklist) != 0 {
		t.Fatal("expected unrestricted default lists")
	}
}

func TestDialectHelpers(t *testing.T) {
	conn := openMigrated(t)

	if !IsSQLite(conn) {
		t.Fatalf("expected sqlite dialect, got %q", DialectName(conn))
	}
	if expr := CaseInsensitiveLikeExpr(conn, "title"); expr != "LOWER(title) LIKE ?" {
		t.Fatalf("unexpected sqlite like expr %q", expr)
	}
	if pattern := NormalizeLikePattern(conn, "%ABC%"); pattern != "%abc%" {
		t.Fatalf("unexpected sqlite pattern %q", pattern)
	}
}
