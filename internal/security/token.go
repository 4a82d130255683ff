package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/appslab-dev/miniapps/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the JWT payload carried by the identity cookie.
type TokenClaims struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// IssueToken mints a signed HS256 token for the given user identity.
func IssueToken(cfg config.JWTConfig, userID uint64, username string, isAdmin bool) (string, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return "", fmt.Errorf("security: jwt secret is empty")
	}
	now := time.Now().UTC()
	claims := TokenClaims{
		UserID:   userID,
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiry)),
		},
	}
	signed, errSign := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, nil
}

// VerifyToken validates a signed token and returns its claims.
func VerifyToken(cfg config.JWTConfig, token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parsed, errParse := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if errParse != nil {
		return nil, fmt.Errorf("security: verify token: %w", errParse)
	}
	if !parsed.Valid || claims.UserID == 0 {
		return nil, fmt.Errorf("security: invalid token claims")
	}
	return claims, nil
}
