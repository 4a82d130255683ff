// Package linker keeps the denormalized App code pointers
// (template_code_id, style_code_id, script_code_id) consistent with
// the Code rows they reference.
package linker

import (
	"context"
	"errors"
	"fmt"

	"github.com/appslab-dev/miniapps/internal/models"
	"gorm.io/gorm"
)

// Lookup failures reported to handlers. Both map to 404: a resource
// owned by someone else is indistinguishable from an absent one.
var (
	// ErrCodeNotFound indicates the code row is absent or not owned.
	ErrCodeNotFound = errors.New("linker: code not found")
	// ErrAppNotFound indicates the app is absent, deleted, or not owned.
	ErrAppNotFound = errors.New("linker: app not found")
)

// PointerColumn maps a code type to the app column holding its pointer.
func PointerColumn(codeType string) (string, error) {
	switch codeType {
	case models.CodeTypeTemplate:
		return "template_code_id", nil
	case models.CodeTypeStyle:
		return "style_code_id", nil
	case models.CodeTypeScript:
		return "script_code_id", nil
	}
	return "", fmt.Errorf("linker: unknown code type %q", codeType)
}

// UpsertParams describes a code save request.
type UpsertParams struct {
	ID      *uint64 // Update this row when set.
	AppID   *uint64 // Attach to this app, NULL for standalone code.
	Type    string  // One of template, script, style.
	Content string  // New slot content.
}

// Upsert saves a code slot for userID and reports whether a new row was
// created. When an explicit ID is given the row is updated in place.
// Otherwise the row is located by the (user, app, type) triple and
// updated, or created; only a creation with an app attached writes the
// new id into the app's matching pointer column, inside the same
// transaction.
func Upsert(ctx context.Context, conn *gorm.DB, userID uint64, params UpsertParams) (*models.Code, bool, error) {
	if _, errType := PointerColumn(params.Type); errType != nil {
		return nil, false, errType
	}

	// The target app must be the caller's and not soft-deleted.
	if params.AppID != nil {
		var app models.App
		errFind := conn.WithContext(ctx).
			Where("id = ? AND user_id = ? AND deleted_at IS NULL", *params.AppID, userID).
			First(&app).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return nil, false, ErrAppNotFound
			}
			return nil, false, fmt.Errorf("linker: query app: %w", errFind)
		}
	}

	var code models.Code
	created := false

	errTx := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if params.ID != nil {
			errFind := tx.Where("id = ? AND user_id = ?", *params.ID, userID).First(&code).Error
			if errFind != nil {
				if errors.Is(errFind, gorm.ErrRecordNotFound) {
					return ErrCodeNotFound
				}
				return fmt.Errorf("linker: query code: %w", errFind)
			}
			if errUpdate := tx.Model(&code).Update("content", params.Content).Error; errUpdate != nil {
				return fmt.Errorf("linker: update code: %w", errUpdate)
			}
			return nil
		}

		q := tx.Where("user_id = ? AND type = ?", userID, params.Type)
		if params.AppID != nil {
			q = q.Where("app_id = ?", *params.AppID)
		} else {
			q = q.Where("app_id IS NULL")
		}
		errFind := q.First(&code).Error
		switch {
		case errFind == nil:
			if errUpdate := tx.Model(&code).Update("content", params.Content).Error; errUpdate != nil {
				return fmt.Errorf("linker: update code: %w", errUpdate)
			}
			return nil
		case errors.Is(errFind, gorm.ErrRecordNotFound):
			// Fall through to create.
		default:
			return fmt.Errorf("linker: query code: %w", errFind)
		}

		code = models.Code{
			UserID:  userID,
			Type:    params.Type,
			Content: params.Content,
			AppID:   params.AppID,
		}
		if errCreate := tx.Create(&code).Error; errCreate != nil {
			return fmt.Errorf("linker: create code: %w", errCreate)
		}
		created = true

		if params.AppID != nil {
			column, _ := PointerColumn(params.Type)
			if errPoint := tx.Model(&models.App{}).
				Where("id = ? AND user_id = ?", *params.AppID, userID).
				Update(column, code.ID).Error; errPoint != nil {
				return fmt.Errorf("linker: set app pointer: %w", errPoint)
			}
		}
		return nil
	})
	if errTx != nil {
		return nil, false, errTx
	}
	return &code, created, nil
}

// Delete removes a code row owned by userID. When the row is attached
// to an app, the app's matching pointer column is cleared in the same
// transaction before the row is deleted; the other pointers are left
// untouched.
func Delete(ctx context.Context, conn *gorm.DB, userID, codeID uint64) error {
	var code models.Code
	errFind := conn.WithContext(ctx).
		Where("id = ? AND user_id = ?", codeID, userID).
		First(&code).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("linker: query code: %w", errFind)
	}

	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if code.AppID != nil {
			column, errType := PointerColumn(code.Type)
			if errType != nil {
				return errType
			}
			if errClear := tx.Model(&models.App{}).
				Where("id = ? AND user_id = ?", *code.AppID, userID).
				Update(column, nil).Error; errClear != nil {
				return fmt.Errorf("linker: clear app pointer: %w", errClear)
			}
		}
		if errDelete := tx.Delete(&models.Code{}, code.ID).Error; errDelete != nil {
			return fmt.Errorf("linker: delete code: %w", errDelete)
		}
		return nil
	})
}

// AttachedCodes resolves an app's pointer columns to Code rows,
// dropping any pointer whose row is missing or owned by someone else.
type AttachedCodes struct {
	Template *models.Code
	Style    *models.Code
	Script   *models.Code
}

// Resolve loads the up-to-three Code rows referenced by app's pointer
// columns, filtered by owner match.
func Resolve(ctx context.Context, conn *gorm.DB, app *models.App) (AttachedCodes, error) {
	var result AttachedCodes
	ids := make([]uint64, 0, 3)
	for _, id := range []*uint64{app.TemplateCodeID, app.StyleCodeID, app.ScriptCodeID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	if len(ids) == 0 {
		return result, nil
	}

	var rows []models.Code
	if errFind := conn.WithContext(ctx).
		Where("id IN ? AND user_id = ?", ids, app.UserID).
		Find(&rows).Error; errFind != nil {
		return result, fmt.Errorf("linker: resolve codes: %w", errFind)
	}

	for i := range rows {
		row := &rows[i]
		switch {
		case app.TemplateCodeID != nil && row.ID == *app.TemplateCodeID:
			result.Template = row
		case app.StyleCodeID != nil && row.ID == *app.StyleCodeID:
			result.Style = row
		case app.ScriptCodeID != nil && row.ID == *app.ScriptCodeID:
			result.Script = row
		}
	}
	return result, nil
}
