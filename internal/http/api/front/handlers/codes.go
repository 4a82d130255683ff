package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/appslab-dev/miniapps/internal/linker"
	"github.com/appslab-dev/miniapps/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CodeHandler manages the per-user code slot endpoints.
type CodeHandler struct {
	db *gorm.DB
}

// NewCodeHandler constructs a CodeHandler.
func NewCodeHandler(db *gorm.DB) *CodeHandler {
	return &CodeHandler{db: db}
}

// List returns the caller's code rows, most recently updated first,
// with optional appId and type filters. appId=0 selects standalone
// rows with no app attached.
func (h *CodeHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	params := parsePageParams(c)

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.Code{}).
		Where("user_id = ?", identity.ID)
	if raw := c.Query("appId"); raw != "" {
		if raw == "0" {
			query = query.Where("app_id IS NULL")
		} else if appID, okApp := parseUintQuery(c, "appId"); okApp {
			query = query.Where("app_id = ?", appID)
		} else {
			respondError(c, http.StatusBadRequest, "invalid appId")
			return
		}
	}
	if codeType := strings.TrimSpace(c.Query("type")); codeType != "" {
		if !models.ValidCodeType(codeType) {
			respondError(c, http.StatusBadRequest, "invalid code type")
			return
		}
		query = query.Where("type = ?", codeType)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		respondError(c, http.StatusInternalServerError, "query codes failed")
		return
	}

	var codes []models.Code
	errFind := query.
		Order("updated_at DESC").
		Limit(params.PageSize).
		Offset(params.Offset()).
		Find(&codes).Error
	if errFind != nil {
		respondError(c, http.StatusInternalServerError, "query codes failed")
		return
	}

	list := make([]gin.H, 0, len(codes))
	for i := range codes {
		list = append(list, codeJSON(&codes[i]))
	}
	respondOK(c, http.StatusOK, "ok", gin.H{
		"list":     list,
		"total":    total,
		"page":     params.Page,
		"pageSize": params.PageSize,
	})
}

// codeUpsertRequest defines the request body for code saves.
type codeUpsertRequest struct {
	ID      *uint64 `json:"id"`
	AppID   *uint64 `json:"appId"`
	Type    string  `json:"type"`
	Content *string `json:"content"`
}

// Upsert saves a code slot. Without an id the row is located by the
// (app, type) pair and updated, or created; a creation attached to an
// app also sets the app's matching pointer column.
func (h *CodeHandler) Upsert(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	var body codeUpsertRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !models.ValidCodeType(body.Type) {
		respondError(c, http.StatusBadRequest, "invalid code type")
		return
	}
	if body.Content == nil {
		respondError(c, http.StatusBadRequest, "content is required")
		return
	}

	code, created, errUpsert := linker.Upsert(c.Request.Context(), h.db, identity.ID, linker.UpsertParams{
		ID:      body.ID,
		AppID:   body.AppID,
		Type:    body.Type,
		Content: *body.Content,
	})
	if errUpsert != nil {
		switch {
		case errors.Is(errUpsert, linker.ErrAppNotFound):
			respondError(c, http.StatusNotFound, "app not found")
		case errors.Is(errUpsert, linker.ErrCodeNotFound):
			respondError(c, http.StatusNotFound, "code not found")
		case errors.Is(errUpsert, gorm.ErrDuplicatedKey):
			respondError(c, http.StatusBadRequest, "code slot already exists")
		default:
			respondError(c, http.StatusInternalServerError, "save code failed")
		}
		return
	}

	message := "updated"
	if created {
		message = "created"
	}
	respondOK(c, http.StatusOK, message, codeJSON(code))
}

// Delete removes a code row and clears the owning app's matching
// pointer column when one references it.
func (h *CodeHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	id, okID := parseIDParam(c, "id")
	if !okID {
		respondError(c, http.StatusBadRequest, "invalid code id")
		return
	}

	if errDelete := linker.Delete(c.Request.Context(), h.db, identity.ID, id); errDelete != nil {
		if errors.Is(errDelete, linker.ErrCodeNotFound) {
			respondError(c, http.StatusNotFound, "code not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "delete code failed")
		return
	}

	respondOK(c, http.StatusOK, "deleted", nil)
}
