package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/appslab-dev/miniapps/internal/blob"
	"github.com/appslab-dev/miniapps/internal/config"
	"github.com/appslab-dev/miniapps/internal/db"
	"github.com/appslab-dev/miniapps/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// FileHandler manages upload, download, and file metadata endpoints.
type FileHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
	blobs  *blob.Store
	policy config.UploadPolicy
}

// NewFileHandler constructs a FileHandler.
func NewFileHandler(db *gorm.DB, jwtCfg config.JWTConfig, blobs *blob.Store, policy config.UploadPolicy) *FileHandler {
	return &FileHandler{db: db, jwtCfg: jwtCfg, blobs: blobs, policy: policy}
}

// Upload accepts a multipart file, checks it against the upload policy,
// and persists the bytes plus a metadata row. A rejected upload leaves
// nothing behind.
func (h *FileHandler) Upload(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}

	header, errForm := c.FormFile("file")
	if errForm != nil {
		respondError(c, http.StatusBadRequest, "file field is required")
		return
	}

	name := filepath.Base(header.Filename)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	if mediaType, _, errParse := mime.ParseMediaType(mimeType); errParse == nil {
		mimeType = mediaType
	}

	if errPolicy := h.policy.Check(header.Size, mimeType, ext); errPolicy != nil {
		respondError(c, http.StatusBadRequest, errPolicy.Error())
		return
	}

	src, errOpen := header.Open()
	if errOpen != nil {
		respondError(c, http.StatusInternalServerError, "read upload failed")
		return
	}
	defer src.Close()

	key := blob.NewKey()
	if errWrite := h.blobs.Write(key, src); errWrite != nil {
		respondError(c, http.StatusInternalServerError, "store file failed")
		return
	}

	private := c.PostForm("private") == "true"
	file := models.File{
		Key:     key,
		Name:    &name,
		Type:    mimeType,
		Size:    header.Size,
		Private: private,
		UserID:  &identity.ID,
	}
	if ext != "" {
		file.Ext = &ext
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&file).Error; errCreate != nil {
		// Keep the row and the blob in step.
		_ = h.blobs.Remove(key)
		respondError(c, http.StatusInternalServerError, "create file failed")
		return
	}

	payload := fileJSON(&file)
	payload["url"] = fmt.Sprintf("/api/file/%s", file.Key)
	respondOK(c, http.StatusOK, "uploaded", payload)
}

// List returns the caller's files, newest first, with optional name,
// privacy, and creation-time filters.
func (h *FileHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	params := parsePageParams(c)

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.File{}).
		Where("user_id = ?", identity.ID)
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+name+"%")
		query = query.Where(db.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}
	switch c.Query("private") {
	case "true":
		query = query.Where("private = ?", true)
	case "false":
		query = query.Where("private = ?", false)
	}
	if from, okFrom := parseTimeQuery(c, "startTime"); okFrom {
		query = query.Where("created_at >= ?", from)
	}
	if to, okTo := parseTimeQuery(c, "endTime"); okTo {
		query = query.Where("created_at <= ?", to)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		respondError(c, http.StatusInternalServerError, "query files failed")
		return
	}

	var files []models.File
	errFind := query.
		Order("created_at DESC").
		Limit(params.PageSize).
		Offset(params.Offset()).
		Find(&files).Error
	if errFind != nil {
		respondError(c, http.StatusInternalServerError, "query files failed")
		return
	}

	list := make([]gin.H, 0, len(files))
	for i := range files {
		item := fileJSON(&files[i])
		item["url"] = fmt.Sprintf("/api/file/%s", files[i].Key)
		list = append(list, item)
	}
	respondOK(c, http.StatusOK, "ok", gin.H{
		"list":     list,
		"total":    total,
		"page":     params.Page,
		"pageSize": params.PageSize,
	})
}

// fileUpdateRequest defines the request body for metadata updates.
// Absent fields stay unchanged.
type fileUpdateRequest struct {
	Name    *string `json:"name"`
	Private *bool   `json:"private"`
}

// Update renames a file or flips its privacy flag. A file owned by
// another user answers 403 rather than 404 so the owner can tell the
// difference from a stale id.
func (h *FileHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	id, okID := parseIDParam(c, "id")
	if !okID {
		respondError(c, http.StatusBadRequest, "invalid file id")
		return
	}
	var body fileUpdateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Name == nil && body.Private == nil {
		respondError(c, http.StatusBadRequest, "nothing to update")
		return
	}
	if body.Name != nil && strings.TrimSpace(*body.Name) == "" {
		respondError(c, http.StatusBadRequest, "name must not be empty")
		return
	}

	ctx := c.Request.Context()

	var file models.File
	errFind := h.db.WithContext(ctx).First(&file, id).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "file not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "query file failed")
		return
	}
	if file.UserID == nil || *file.UserID != identity.ID {
		respondError(c, http.StatusForbidden, "no permission")
		return
	}

	updates := map[string]any{}
	if body.Name != nil {
		trimmed := strings.TrimSpace(*body.Name)
		updates["name"] = trimmed
		file.Name = &trimmed
	}
	if body.Private != nil {
		updates["private"] = *body.Private
		file.Private = *body.Private
	}
	if errUpdate := h.db.WithContext(ctx).Model(&file).Updates(updates).Error; errUpdate != nil {
		respondError(c, http.StatusInternalServerError, "update file failed")
		return
	}

	respondOK(c, http.StatusOK, "updated", fileJSON(&file))
}

// batchDeleteRequest defines the request body for batch file deletion.
type batchDeleteRequest struct {
	IDs []uint64 `json:"ids"`
}

// BatchDelete removes the caller's files by id. Deletion is per-item:
// ids that do not exist or belong to someone else are reported in the
// errors list while the rest are removed.
func (h *FileHandler) BatchDelete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	var body batchDeleteRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(body.IDs) == 0 {
		respondError(c, http.StatusBadRequest, "ids are required")
		return
	}

	ctx := c.Request.Context()

	var files []models.File
	errFind := h.db.WithContext(ctx).
		Where("id IN ? AND user_id = ?", body.IDs, identity.ID).
		Find(&files).Error
	if errFind != nil {
		respondError(c, http.StatusInternalServerError, "query files failed")
		return
	}

	owned := make(map[uint64]*models.File, len(files))
	for i := range files {
		owned[files[i].ID] = &files[i]
	}

	deletedIDs := make([]uint64, 0, len(body.IDs))
	itemErrors := make([]gin.H, 0)
	for _, id := range body.IDs {
		file, okOwned := owned[id]
		if !okOwned {
			itemErrors = append(itemErrors, gin.H{"id": id, "error": "file not found"})
			continue
		}
		if errDelete := h.db.WithContext(ctx).Delete(&models.File{}, file.ID).Error; errDelete != nil {
			itemErrors = append(itemErrors, gin.H{"id": id, "error": "delete failed"})
			continue
		}
		// The row is authoritative; a missing blob is not an error.
		_ = h.blobs.Remove(file.Key)
		deletedIDs = append(deletedIDs, id)
	}

	if len(deletedIDs) == 0 {
		status := http.StatusNotFound
		message := "no files matched"
		for _, item := range itemErrors {
			if item["error"] == "delete failed" {
				status = http.StatusInternalServerError
				message = "delete files failed"
				break
			}
		}
		respondError(c, status, message)
		return
	}

	respondOK(c, http.StatusOK, "deleted", gin.H{
		"deletedIds": deletedIDs,
		"errors":     itemErrors,
	})
}

// Fetch streams a file's bytes by key. Public files are anonymous;
// private files require the owner's token cookie. A metadata row whose
// blob is gone answers 404 with a distinct message.
func (h *FileHandler) Fetch(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		respondError(c, http.StatusBadRequest, "invalid file key")
		return
	}

	ctx := c.Request.Context()

	var file models.File
	errFind := h.db.WithContext(ctx).Where("key = ?", key).First(&file).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "file not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "query file failed")
		return
	}

	if file.Private {
		identity, errAuth := identityFromCookie(c, h.db, h.jwtCfg)
		if errAuth != nil {
			respondError(c, http.StatusUnauthorized, errAuth.Error())
			return
		}
		if file.UserID == nil || *file.UserID != identity.ID {
			respondError(c, http.StatusForbidden, "no permission")
			return
		}
	}

	reader, size, errOpen := h.blobs.Open(file.Key)
	if errOpen != nil {
		if errors.Is(errOpen, blob.ErrNotFound) {
			respondError(c, http.StatusNotFound, "file content missing")
			return
		}
		respondError(c, http.StatusInternalServerError, "open file failed")
		return
	}
	defer reader.Close()

	contentType := file.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	downloadName := file.Key
	if file.Name != nil && *file.Name != "" {
		downloadName = *file.Name
	}

	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": downloadName}))
	c.DataFromReader(http.StatusOK, size, contentType, reader, nil)
}
