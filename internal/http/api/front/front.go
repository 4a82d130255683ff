// Package front wires the public HTTP API: auth, apps, codes, files.
package front

import (
	"github.com/appslab-dev/miniapps/internal/blob"
	"github.com/appslab-dev/miniapps/internal/config"
	"github.com/appslab-dev/miniapps/internal/http/api/front/handlers"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterFrontRoutes registers routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, captchaStore handlers.CaptchaProvider, blobs *blob.Store, uploadPolicy config.UploadPolicy) {
	if r == nil || db == nil {
		return
	}

	authHandler := handlers.NewAuthHandler(db, jwtCfg, captchaStore)
	authGroup := r.Group("/api/auth")
	authGroup.GET("/captcha", authHandler.Captcha)
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", authHandler.Me)

	fileHandler := handlers.NewFileHandler(db, jwtCfg, blobs, uploadPolicy)
	// Conditional auth: the handler checks the token itself for
	// private files so public ones stay anonymous.
	r.GET("/api/file/:key", fileHandler.Fetch)

	userGroup := r.Group("/api/user")
	userGroup.Use(handlers.AuthMiddleware(db, jwtCfg))

	appHandler := handlers.NewAppHandler(db)
	userGroup.GET("/apps", appHandler.List)
	userGroup.POST("/apps", appHandler.Create)
	userGroup.PUT("/apps/:id", appHandler.Update)
	userGroup.DELETE("/apps/:id", appHandler.Delete)
	userGroup.GET("/apps/name/:name", appHandler.GetByName)

	codeHandler := handlers.NewCodeHandler(db)
	userGroup.GET("/codes", codeHandler.List)
	userGroup.PUT("/codes", codeHandler.Upsert)
	userGroup.DELETE("/codes/:id", codeHandler.Delete)

	userGroup.GET("/files", fileHandler.List)
	userGroup.POST("/files", fileHandler.Upload)
	userGroup.PUT("/files/:id", fileHandler.Update)
	userGroup.DELETE("/files", fileHandler.BatchDelete)
}
