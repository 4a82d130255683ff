package linker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/appslab-dev/miniapps/internal/db"
	"github.com/appslab-dev/miniapps/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "linker-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedUserAndApp(t *testing.T, conn *gorm.DB, username, appName string) (uint64, *models.App) {
	t.Helper()
	user := models.User{Username: username, Password: "x"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	app := models.App{Name: appName, Title: appName, UserID: user.ID}
	if err := conn.Create(&app).Error; err != nil {
		t.Fatalf("create app: %v", err)
	}
	return user.ID, &app
}

func reloadApp(t *testing.T, conn *gorm.DB, id uint64) *models.App {
	t.Helper()
	var app models.App
	if err := conn.First(&app, id).Error; err != nil {
		t.Fatalf("reload app: %v", err)
	}
	return &app
}

func TestUpsert_CreateSetsPointer(t *testing.T) {
	conn := openTestDB(t)
	userID, app := seedUserAndApp(t, conn, "alice", "site")
	ctx := context.Background()

	code, created, err := Upsert(ctx, conn, userID, UpsertParams{
		AppID:   &app.ID,
		Type:    models.CodeTypeTemplate,
		Content: "<div/>",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !created {
		t.Fatal("expected a new code row")
	}

	app = reloadApp(t, conn, app.ID)
	if app.TemplateCodeID == nil || *app.TemplateCodeID != code.ID {
		t.Fatalf("expected template pointer %d, got %v", code.ID, app.TemplateCodeID)
	}
	if app.StyleCodeID != nil || app.ScriptCodeID != nil {
		t.Fatal("expected other pointers to stay nil")
	}
}

func TestUpsert_SecondSaveUpdatesInPlace(t *testing.T) {
	conn := openTestDB(t)
	userID, app := seedUserAndApp(t, conn, "alice", "site")
	ctx := context.Background()

	first, _, err := Upsert(ctx, conn, userID, UpsertParams{
		AppID: &app.ID, Type: models.CodeTypeStyle, Content: "a{}",
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second, created, errSecond := Upsert(ctx, conn, userID, UpsertParams{
		AppID: &app.ID, Type: models.CodeTypeStyle, Content: "b{}",
	})
	if errSecond != nil {
		t.Fatalf("second upsert: %v", errSecond)
	}
	if created {
		t.Fatal("expected an update, not a second row")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same row id %d, got %d", first.ID, second.ID)
	}
	if second.Content != "b{}" {
		t.Fatalf("expected updated content, got %q", second.Content)
	}

	var total int64
	if errCount := conn.Model(&models.Code{}).Count(&total).Error; errCount != nil {
		t.Fatalf("count codes: %v", errCount)
	}
	if total != 1 {
		t.Fatalf("expected one code row, got %d", total)
	}
}

func TestUpsert_ByIDUpdatesContent(t *testing.T) {
	conn := openTestDB(t)
	userID, app := seedUserAndApp(t, conn, "alice", "site")
	ctx := context.Background()

	code, _, err := Upsert(ctx, conn, userID, UpsertParams{
		AppID: &app.ID, Type: models.CodeTypeScript, Content: "v1",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	updated, created, errUpdate := Upsert(ctx, conn, userID, UpsertParams{
		ID: &code.ID, Type: models.CodeTypeScript, Content: "v2",
	})
	if errUpdate != nil {
		t.Fatalf("update by id: %v", errUpdate)
	}
	if created || updated.Content != "v2" {
		t.Fatalf("expected in-place update to v2, created=%v content=%q", created, updated.Content)
	}
}

func TestUpsert_StandaloneRow(t *testing.T) {
	conn := openTestDB(t)
	userID, _ := seedUserAndApp(t, conn, "alice", "site")
	ctx := context.Background()

	first, created, err := Upsert(ctx, conn, userID, UpsertParams{
		Type: models.CodeTypeTemplate, Content: "draft",
	})
	if err != nil || !created {
		t.Fatalf("expected standalone create, err=%v created=%v", err, created)
	}
	if first.AppID != nil {
		t.Fatal("expected nil app id on standalone row")
	}

	second, createdAgain, errAgain := Upsert(ctx, conn, userID, UpsertParams{
		Type: models.CodeTypeTemplate, Content: "draft2",
	})
	if errAgain != nil {
		t.Fatalf("second standalone upsert: %v", errAgain)
	}
	if createdAgain || second.ID != first.ID {
		t.Fatal("expected the standalone slot to be reused")
	}
}

func TestUpsert_RejectsForeignOrDeletedApp(t *testing.T) {
	conn := openTestDB(t)
	userID, _ := seedUserAndApp(t, conn, "alice", "site")
	otherID, otherApp := seedUserAndApp(t, conn, "bob", "other")
	ctx := context.Background()

	_, _, err := Upsert(ctx, conn, userID, UpsertParams{
		AppID: &otherApp.ID, Type: models.CodeTypeTemplate, Content: "x",
	})
	if !errors.Is(err, ErrAppNotFound) {
		t.Fatalf("expected ErrAppNotFound for foreign app, got %v", err)
	}

	now := time.Now()
	if errDelete := conn.Model(otherApp).Update("deleted_at", &now).Error; errDelete != nil {
		t.Fatalf("soft delete app: %v", errDelete)
	}
	_, _, errDeleted := Upsert(ctx, conn, otherID, UpsertParams{
		AppID: &otherApp.ID, Type: models.CodeTypeTemplate, Content: "x",
	})
	if !errors.Is(errDeleted, ErrAppNotFound) {
		t.Fatalf("expected ErrAppNotFound for deleted app, got %v", errDeleted)
	}
}

func TestUpsert_InvalidType(t *testing.T) {
	conn := openTestDB(t)
	userID, _ := seedUserAndApp(t, conn, "alice", "site")

	if _, _, err := Upsert(context.Background(), conn, userID, UpsertParams{
		Type: "markup", Content: "x",
	}); err == nil {
		t.Fatal("expected error for unknown code type")
	}
}

func TestDelete_ClearsOnlyMatchingPointer(t *testing.T) {
	conn := openTestDB(t)
	userID, app := seedUserAndApp(t, conn, "alice", "site")
	ctx := context.Background()

	tpl, _, errTpl := Upsert(ctx, conn, userID, UpsertParams{AppID: &app.ID, Type: models.CodeTypeTemplate, Content: "t"})
	if errTpl != nil {
		t.Fatalf("upsert template: %v", errTpl)
	}
	style, _, errStyle := Upsert(ctx, conn, userID, UpsertParams{AppID: &app.ID, Type: models.CodeTypeStyle, Content: "s"})
	if errStyle != nil {
		t.Fatalf("upsert style: %v", errStyle)
	}

	if errDelete := Delete(ctx, conn, userID, style.ID); errDelete != nil {
		t.Fatalf("delete style: %v", errDelete)
	}

	app = reloadApp(t, conn, app.ID)
	if app.StyleCodeID != nil {
		t.Fatal("expected style pointer cleared")
	}
	if app.TemplateCodeID == nil || *app.TemplateCodeID != tpl.ID {
		t.Fatal("expected template pointer untouched")
	}

	var gone models.Code
	if errFind := conn.First(&gone, style.ID).Error; !errors.Is(errFind, gorm.ErrRecordNotFound) {
		t.Fatalf("expected style row removed, got %v", errFind)
	}
}

func TestDelete_NotFoundForForeignRow(t *testing.T) {
	conn := openTestDB(t)
	userID, app := seedUserAndApp(t, conn, "alice", "site")
	otherID, _ := seedUserAndApp(t, conn, "bob", "other")
	ctx := context.Background()

	code, _, err := Upsert(ctx, conn, userID, UpsertParams{AppID: &app.ID, Type: models.CodeTypeTemplate, Content: "t"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if errDelete := Delete(ctx, conn, otherID, code.ID); !errors.Is(errDelete, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", errDelete)
	}
	if errDelete := Delete(ctx, conn, userID, 99999); !errors.Is(errDelete, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound for unknown id, got %v", errDelete)
	}
}

func TestResolve_LoadsAttachedCodes(t *testing.T) {
	conn := openTestDB(t)
	userID, app := seedUserAndApp(t, conn, "alice", "site")
	ctx := context.Background()

	tpl, _, errTpl := Upsert(ctx, conn, userID, UpsertParams{AppID: &app.ID, Type: models.CodeTypeTemplate, Content: "t"})
	if errTpl != nil {
		t.Fatalf("upsert template: %v", errTpl)
	}
	script, _, errScript := Upsert(ctx, conn, userID, UpsertParams{AppID: &app.ID, Type: models.CodeTypeScript, Content: "j"})
	if errScript != nil {
		t.Fatalf("upsert script: %v", errScript)
	}

	app = reloadApp(t, conn, app.ID)
	attached, errResolve := Resolve(ctx, conn, app)
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if attached.Template == nil || attached.Template.ID != tpl.ID {
		t.Fatal("expected template code resolved")
	}
	if attached.Script == nil || attached.Script.ID != script.ID {
		t.Fatal("expected script code resolved")
	}
	if attached.Style != nil {
		t.Fatal("expected no style code")
	}
}
