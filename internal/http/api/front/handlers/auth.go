package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/appslab-dev/miniapps/internal/captcha"
	"github.com/appslab-dev/miniapps/internal/config"
	"github.com/appslab-dev/miniapps/internal/models"
	"github.com/appslab-dev/miniapps/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// usernamePattern restricts usernames to 3-50 word characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

// CaptchaProvider issues challenges and verifies answers. Verify
// consumes the challenge whether or not the answer matches.
// *captcha.Store satisfies it.
type CaptchaProvider interface {
	Issue() (captcha.Challenge, error)
	Verify(id, answer string) bool
}

// AuthHandler manages registration, login, and session endpoints.
type AuthHandler struct {
	db       *gorm.DB
	jwtCfg   config.JWTConfig
	captchas CaptchaProvider
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, captchas CaptchaProvider) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, captchas: captchas}
}

// Captcha issues a challenge image and stores its answer server-side.
func (h *AuthHandler) Captcha(c *gin.Context) {
	challenge, errIssue := h.captchas.Issue()
	if errIssue != nil {
		respondError(c, http.StatusInternalServerError, "generate captcha failed")
		return
	}
	respondOK(c, http.StatusOK, "ok", gin.H{
		"id":    challenge.ID,
		"image": challenge.Image,
	})
}

// registerRequest defines the request body for registration.
type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register creates a user account; the first account becomes admin.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" || body.ConfirmPassword == "" {
		respondError(c, http.StatusBadRequest, "username, password and confirmPassword are required")
		return
	}
	if !usernamePattern.MatchString(username) {
		respondError(c, http.StatusBadRequest, "username must be 3-50 letters, digits or underscores")
		return
	}
	if errStrength := security.ValidatePasswordStrength(body.Password); errStrength != nil {
		respondError(c, http.StatusBadRequest, errStrength.Error())
		return
	}
	if body.Password != body.ConfirmPassword {
		respondError(c, http.StatusBadRequest, "passwords do not match")
		return
	}

	ctx := c.Request.Context()

	var existing models.User
	errFind := h.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if errFind == nil {
		respondError(c, http.StatusBadRequest, "username already exists")
		return
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusInternalServerError, "query user failed")
		return
	}

	var userCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.User{}).Count(&userCount).Error; errCount != nil {
		respondError(c, http.StatusInternalServerError, "query user failed")
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		respondError(c, http.StatusInternalServerError, "hash password failed")
		return
	}

	user := models.User{
		Username: username,
		Password: hash,
		IsAdmin:  userCount == 0,
	}
	if errCreate := h.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		// The unique index wins races the pre-check cannot see.
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			respondError(c, http.StatusBadRequest, "username already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "create user failed")
		return
	}

	respondOK(c, http.StatusOK, "registered", gin.H{
		"id":       user.ID,
		"username": user.Username,
		"isAdmin":  user.IsAdmin,
	})
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	CaptchaID string `json:"captchaId"`
	Captcha   string `json:"captcha"`
}

// Login verifies captcha and credentials, then sets the token cookie.
// The stored captcha answer is consumed on the first attempt whether
// or not it matches.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" || strings.TrimSpace(body.Captcha) == "" {
		respondError(c, http.StatusBadRequest, "username, password and captcha are required")
		return
	}

	if !h.captchas.Verify(body.CaptchaID, body.Captcha) {
		respondError(c, http.StatusBadRequest, "captcha is wrong or expired")
		return
	}

	// A missing user and a wrong password are indistinguishable.
	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusUnauthorized, "wrong username or password")
			return
		}
		respondError(c, http.StatusInternalServerError, "query user failed")
		return
	}
	if !security.CheckPassword(user.Password, body.Password) {
		respondError(c, http.StatusUnauthorized, "wrong username or password")
		return
	}

	token, errToken := security.IssueToken(h.jwtCfg, user.ID, user.Username, user.IsAdmin)
	if errToken != nil {
		respondError(c, http.StatusInternalServerError, "issue token failed")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookieName, token, int(h.jwtCfg.Expiry.Seconds()), "/", "", true, true)
	respondOK(c, http.StatusOK, "logged in", nil)
}

// Logout clears the token cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookieName, "", -1, "/", "", true, true)
	respondOK(c, http.StatusOK, "logged out", nil)
}

// Me returns the authenticated user's public profile.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, errAuth := identityFromCookie(c, h.db, h.jwtCfg)
	if errAuth != nil {
		respondError(c, http.StatusUnauthorized, errAuth.Error())
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, identity.ID).Error; errFind != nil {
		respondError(c, http.StatusUnauthorized, "user no longer exists")
		return
	}

	respondOK(c, http.StatusOK, "ok", gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"isAdmin":   user.IsAdmin,
		"createdAt": user.CreatedAt.Unix(),
		"updatedAt": user.UpdatedAt.Unix(),
	})
}
