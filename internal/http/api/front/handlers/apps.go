package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/appslab-dev/miniapps/internal/db"
	"github.com/appslab-dev/miniapps/internal/linker"
	"github.com/appslab-dev/miniapps/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// appNamePattern restricts app names to 3-50 word characters.
var appNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

// AppHandler manages the per-user app CRUD endpoints.
type AppHandler struct {
	db *gorm.DB
}

// NewAppHandler constructs an AppHandler.
func NewAppHandler(db *gorm.DB) *AppHandler {
	return &AppHandler{db: db}
}

// List returns the caller's active apps, newest first, with optional
// id, title, and creation-time filters.
func (h *AppHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	params := parsePageParams(c)

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.App{}).
		Where("user_id = ? AND deleted_at IS NULL", identity.ID)
	if id, okID := parseUintQuery(c, "id"); okID {
		query = query.Where("id = ?", id)
	}
	// Names are identifiers, so the filter is exact rather than fuzzy.
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		query = query.Where("name = ?", name)
	}
	if title := strings.TrimSpace(c.Query("title")); title != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+title+"%")
		query = query.Where(db.CaseInsensitiveLikeExpr(h.db, "title"), pattern)
	}
	if from, okFrom := parseTimeQuery(c, "startTime"); okFrom {
		query = query.Where("created_at >= ?", from)
	}
	if to, okTo := parseTimeQuery(c, "endTime"); okTo {
		query = query.Where("created_at <= ?", to)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		respondError(c, http.StatusInternalServerError, "query apps failed")
		return
	}

	var apps []models.App
	errFind := query.
		Order("created_at DESC").
		Limit(params.PageSize).
		Offset(params.Offset()).
		Find(&apps).Error
	if errFind != nil {
		respondError(c, http.StatusInternalServerError, "query apps failed")
		return
	}

	list := make([]gin.H, 0, len(apps))
	for i := range apps {
		list = append(list, appJSON(&apps[i]))
	}
	respondOK(c, http.StatusOK, "ok", gin.H{
		"list":     list,
		"total":    total,
		"page":     params.Page,
		"pageSize": params.PageSize,
	})
}

// appCreateRequest defines the request body for app creation.
type appCreateRequest struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Create makes a new app. The name must be unique among active apps
// across all users; soft-deleted rows release their name.
func (h *AppHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	var body appCreateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}
	name := strings.TrimSpace(body.Name)
	title := strings.TrimSpace(body.Title)
	if name == "" || title == "" {
		respondError(c, http.StatusBadRequest, "name and title are required")
		return
	}
	if !appNamePattern.MatchString(name) {
		respondError(c, http.StatusBadRequest, "name must be 3-50 letters, digits or underscores")
		return
	}
	if len(title) > 100 {
		respondError(c, http.StatusBadRequest, "title must be at most 100 characters")
		return
	}

	ctx := c.Request.Context()

	var taken int64
	errCheck := h.db.WithContext(ctx).Model(&models.App{}).
		Where("name = ? AND deleted_at IS NULL", name).
		Count(&taken).Error
	if errCheck != nil {
		respondError(c, http.StatusInternalServerError, "query apps failed")
		return
	}
	if taken > 0 {
		respondError(c, http.StatusBadRequest, "app name already exists")
		return
	}

	app := models.App{Name: name, Title: title, UserID: identity.ID}
	if errCreate := h.db.WithContext(ctx).Create(&app).Error; errCreate != nil {
		// The partial unique index catches concurrent creates.
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			respondError(c, http.StatusBadRequest, "app name already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "create app failed")
		return
	}

	respondOK(c, http.StatusOK, "created", appJSON(&app))
}

// appUpdateRequest defines the request body for app updates. Only the
// title is mutable; the name is fixed at creation.
type appUpdateRequest struct {
	Title string `json:"title"`
}

// Update changes an app's title.
func (h *AppHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	id, okID := parseIDParam(c, "id")
	if !okID {
		respondError(c, http.StatusBadRequest, "invalid app id")
		return
	}
	var body appUpdateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		respondError(c, http.StatusBadRequest, "title is required")
		return
	}
	if len(title) > 100 {
		respondError(c, http.StatusBadRequest, "title must be at most 100 characters")
		return
	}

	ctx := c.Request.Context()

	var app models.App
	errFind := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND deleted_at IS NULL", id, identity.ID).
		First(&app).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "app not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "query app failed")
		return
	}

	if errUpdate := h.db.WithContext(ctx).Model(&app).Update("title", title).Error; errUpdate != nil {
		respondError(c, http.StatusInternalServerError, "update app failed")
		return
	}

	respondOK(c, http.StatusOK, "updated", appJSON(&app))
}

// Delete soft-deletes an app. Attached code rows and the pointer
// columns stay untouched so the row could be restored intact.
func (h *AppHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	id, okID := parseIDParam(c, "id")
	if !okID {
		respondError(c, http.StatusBadRequest, "invalid app id")
		return
	}

	ctx := c.Request.Context()

	var app models.App
	errFind := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND deleted_at IS NULL", id, identity.ID).
		First(&app).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "app not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "query app failed")
		return
	}

	now := time.Now()
	if errDelete := h.db.WithContext(ctx).Model(&app).Update("deleted_at", &now).Error; errDelete != nil {
		respondError(c, http.StatusInternalServerError, "delete app failed")
		return
	}

	respondOK(c, http.StatusOK, "deleted", nil)
}

// GetByName returns the caller's active app with the given name, with
// the three code slots resolved inline.
func (h *AppHandler) GetByName(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if !appNamePattern.MatchString(name) {
		respondError(c, http.StatusBadRequest, "invalid app name")
		return
	}

	ctx := c.Request.Context()

	var app models.App
	errFind := h.db.WithContext(ctx).
		Where("name = ? AND user_id = ? AND deleted_at IS NULL", name, identity.ID).
		First(&app).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "app not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "query app failed")
		return
	}

	attached, errResolve := linker.Resolve(ctx, h.db, &app)
	if errResolve != nil {
		respondError(c, http.StatusInternalServerError, "resolve codes failed")
		return
	}

	payload := appJSON(&app)
	payload["templateCode"] = nilOrCodeJSON(attached.Template)
	payload["styleCode"] = nilOrCodeJSON(attached.Style)
	payload["scriptCode"] = nilOrCodeJSON(attached.Script)
	respondOK(c, http.StatusOK, "ok", payload)
}

// nilOrCodeJSON renders an optional code row.
func nilOrCodeJSON(code *models.Code) any {
	if code == nil {
		return nil
	}
	return codeJSON(code)
}
