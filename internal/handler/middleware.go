package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"spielebasar/internal/config"
	"spielebasar/internal/opslog"
)

// Claims is what an operator token carries.
type Claims struct {
	Role string `json:"role,omitempty"`

	jwt.RegisteredClaims
}

const claimsKey = "auth.claims"

// RequireBearer protects /api/ and the swagger UI. Infra endpoints stay open.
// Without a secret any bearer token passes, matching a deployment behind a
// gateway that already verified it.
func RequireBearer(cfg config.AuthConfig) gin.HandlerFunc {
	secret := []byte(strings.TrimSpace(cfg.JWTSecret))
	return func(c *gin.Context) {
		if cfg.Disabled {
			c.Next()
			return
		}
		p := c.Request.URL.Path
		if p == "/healthz" || p == "/readyz" || p == "/metrics" {
			c.Next()
			return
		}
		if !strings.HasPrefix(p, "/api/") && !strings.HasPrefix(p, "/swagger") && p != "/docs" {
			c.Next()
			return
		}
		auth := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiResponse{Code: http.StatusUnauthorized, Message: "missing bearer token"})
			return
		}
		if len(secret) > 0 {
			claims, err := verifyToken(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")), secret)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, apiResponse{Code: http.StatusUnauthorized, Message: "invalid token"})
				return
			}
			c.Set(claimsKey, claims)
		}
		c.Next()
	}
}

func verifyToken(token string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// WriteAudit forwards every write request under /api/ to the ops log.
func WriteAudit(p *opslog.Client, logger *zap.Logger) gin.HandlerFunc {
	if p == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		method := strings.ToUpper(c.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}
		status := c.Writer.Status()
		details := map[string]any{
			"method":   method,
			"path":     path,
			"status":   status,
			"duration": time.Since(start).String(),
		}
		if v, ok := c.Get(claimsKey); ok {
			if claims, ok := v.(*Claims); ok {
				details["subject"] = claims.Subject
				details["role"] = claims.Role
			}
		}
		p.Notify(c.Request.Context(), "spielebasar_http_write", opslog.LevelFromStatus(status), details)
		if logger != nil {
			logger.Debug("write audited", zap.String("path", path), zap.Int("status", status))
		}
	}
}
