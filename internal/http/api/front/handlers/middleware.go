package handlers

import (
	"errors"
	"net/http"

	"github.com/appslab-dev/miniapps/internal/config"
	"github.com/appslab-dev/miniapps/internal/models"
	"github.com/appslab-dev/miniapps/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// tokenCookieName is the identity cookie set on login.
const tokenCookieName = "token"

// identityKey is the gin context key holding the verified identity.
const identityKey = "currentUser"

// Identity is the verified caller identity injected by AuthMiddleware.
type Identity struct {
	ID       uint64
	Username string
	IsAdmin  bool
}

// AuthMiddleware validates the token cookie and re-fetches the user so
// a deleted account invalidates its sessions immediately. The verified
// identity lands in the gin context for handlers.
func AuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, errAuth := identityFromCookie(c, db, jwtCfg)
		if errAuth != nil {
			respondError(c, http.StatusUnauthorized, errAuth.Error())
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// currentIdentity returns the identity set by AuthMiddleware.
func currentIdentity(c *gin.Context) (Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	return identity, ok && identity.ID != 0
}

// identityFromCookie verifies the token cookie against the database.
func identityFromCookie(c *gin.Context, db *gorm.DB, jwtCfg config.JWTConfig) (Identity, error) {
	token, errCookie := c.Cookie(tokenCookieName)
	if errCookie != nil || token == "" {
		return Identity{}, errors.New("not logged in")
	}

	claims, errVerify := security.VerifyToken(jwtCfg, token)
	if errVerify != nil {
		return Identity{}, errors.New("token invalid or expired")
	}

	var user models.User
	errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return Identity{}, errors.New("user no longer exists")
		}
		return Identity{}, errors.New("authentication failed")
	}

	return Identity{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}, nil
}
