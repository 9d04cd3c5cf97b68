package middleware

import (
	"net/http"
	"strings"

	"lockproxy/internal/dto"
	"lockproxy/internal/handlers"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RoleKey gin context key holding the token role
const RoleKey = "caller_role"

// AuthMiddleware JWT
type AuthMiddleware struct {
	issuer *handlers.TokenIssuer
	logger *logrus.Logger
}

// NewAuthMiddleware create JWT middleware
func NewAuthMiddleware(issuer *handlers.TokenIssuer, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		issuer: issuer,
		logger: logger,
	}
}

// RequireAuth validates the bearer token and stores the caller address.
// Browsers cannot set headers on a websocket upgrade, so a "token" query
// parameter is accepted as well.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, code, message := bearerToken(c)
		if code != "" {
			a.logger.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"code":   code,
			}).Warn("JWT failed")

			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authentication required",
				"message": message,
				"code":    code,
			})
			c.Abort()
			return
		}

		// verify JWT token
		claims, err := a.issuer.Validate(tokenString)
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"error":  err.Error(),
			}).Warn("JWT failed - token verify failed")

			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid or expired token",
				"message": err.Error(),
				"code":    "INVALID_TOKEN",
			})
			c.Abort()
			return
		}

		c.Set(handlers.CallerKey, common.HexToAddress(claims.Address))
		c.Set(RoleKey, claims.Role)

		a.logger.WithFields(logrus.Fields{
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
			"address": claims.Address,
			"role":    claims.Role,
		}).Debug("JWT success")

		c.Next()
	}
}

// RequireRole must run after RequireAuth
func (a *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleKey) != role {
			a.logger.WithFields(logrus.Fields{
				"path":     c.Request.URL.Path,
				"required": role,
				"actual":   c.GetString(RoleKey),
			}).Warn("⛔ Role check failed")

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Insufficient permissions",
				"code":    "ROLE_REQUIRED",
			})
			return
		}
		c.Next()
	}
}

// RequireOperator shorthand for operator-only routes
func (a *AuthMiddleware) RequireOperator() gin.HandlerFunc {
	return a.RequireRole(dto.RoleOperator)
}

func bearerToken(c *gin.Context) (token, code, message string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token = c.Query("token"); token != "" {
			return token, "", ""
		}
		return "", "MISSING_AUTH_HEADER", "Missing Authorization header. Please provide a valid JWT token."
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "INVALID_AUTH_FORMAT", "Authorization header must be in format: Bearer <token>"
	}
	token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "EMPTY_TOKEN", "Token cannot be empty"
	}
	return token, "", ""
}
