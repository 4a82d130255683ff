package handlers

import (
	"strconv"
	"time"

	"github.com/appslab-dev/miniapps/internal/models"
	"github.com/gin-gonic/gin"
)

// Pagination bounds for list endpoints.
const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// pageParams holds a normalized page request.
type pageParams struct {
	Page     int
	PageSize int
}

// Offset returns the SQL offset for the page.
func (p pageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// parsePageParams reads page and pageSize from the query string,
// clamping out-of-range values to the defaults.
func parsePageParams(c *gin.Context) pageParams {
	params := pageParams{Page: defaultPage, PageSize: defaultPageSize}
	if raw := c.Query("page"); raw != "" {
		if page, errParse := strconv.Atoi(raw); errParse == nil && page > 0 {
			params.Page = page
		}
	}
	if raw := c.Query("pageSize"); raw != "" {
		if size, errParse := strconv.Atoi(raw); errParse == nil && size > 0 {
			params.PageSize = size
		}
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	return params
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(c.Param(name), 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parseUintQuery reads an optional positive integer query parameter.
// The second result reports whether a valid value was present.
func parseUintQuery(c *gin.Context, name string) (uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	value, errParse := strconv.ParseUint(raw, 10, 64)
	if errParse != nil || value == 0 {
		return 0, false
	}
	return value, true
}

// parseTimeQuery reads an optional unix-second query parameter.
func parseTimeQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, false
	}
	seconds, errParse := strconv.ParseInt(raw, 10, 64)
	if errParse != nil || seconds <= 0 {
		return time.Time{}, false
	}
	return time.Unix(seconds, 0), true
}

// unixOrNil renders an optional timestamp as unix seconds.
func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

// appJSON renders an app row for the response envelope.
func appJSON(app *models.App) gin.H {
	return gin.H{
		"id":             app.ID,
		"name":           app.Name,
		"title":          app.Title,
		"userId":         app.UserID,
		"templateCodeId": app.TemplateCodeID,
		"styleCodeId":    app.StyleCodeID,
		"scriptCodeId":   app.ScriptCodeID,
		"deletedAt":      unixOrNil(app.DeletedAt),
		"createdAt":      app.CreatedAt.Unix(),
		"updatedAt":      app.UpdatedAt.Unix(),
	}
}

// codeJSON renders a code row for the response envelope.
func codeJSON(code *models.Code) gin.H {
	return gin.H{
		"id":        code.ID,
		"userId":    code.UserID,
		"appId":     code.AppID,
		"type":      code.Type,
		"content":   code.Content,
		"createdAt": code.CreatedAt.Unix(),
		"updatedAt": code.UpdatedAt.Unix(),
	}
}

// fileJSON renders a file row for the response envelope.
func fileJSON(file *models.File) gin.H {
	return gin.H{
		"id":        file.ID,
		"key":       file.Key,
		"name":      file.Name,
		"type":      file.Type,
		"size":      file.Size,
		"ext":       file.Ext,
		"private":   file.Private,
		"userId":    file.UserID,
		"createdAt": file.CreatedAt.Unix(),
		"updatedAt": file.UpdatedAt.Unix(),
	}
}
