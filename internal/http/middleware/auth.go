package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/threadline-hq/threadline-backend/internal/http/response"
	"github.com/threadline-hq/threadline-backend/internal/pkg/ctxutil"
	"github.com/threadline-hq/threadline-backend/internal/platform/envutil"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

// AuthMiddleware validates the bearer token and attaches the tenant identity
// to the request context. Every data route is tenant-scoped through it.
type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger) *AuthMiddleware {
	secret := envutil.GetEnv("JWT_SECRET", "", log)
	if strings.TrimSpace(secret) == "" {
		log.Warn("JWT_SECRET not set; all authenticated routes will reject")
	}
	return &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware"), secret: []byte(secret)}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.Unauthorized(c, "missing or invalid token")
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return am.secret, nil
		})
		if err != nil || !token.Valid {
			response.Unauthorized(c, "invalid token")
			return
		}

		tenantRaw, _ := claims["tenant_id"].(string)
		tenantID, err := uuid.Parse(strings.TrimSpace(tenantRaw))
		if err != nil || tenantID == uuid.Nil {
			response.Unauthorized(c, "token missing tenant")
			return
		}
		subject, _ := claims["sub"].(string)

		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			TenantID: tenantID,
			Subject:  subject,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
