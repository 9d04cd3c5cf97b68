package router

import (
	"net/http"
	"strconv"
	"strings"

	"lockproxy/internal/app"
	"lockproxy/internal/config"
	"lockproxy/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware CORS middleware
// Priority: YAML Config (already overridden by CORS_ALLOWED_ORIGINS) > Default (*)
func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 3600
	}
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := false
			for _, allowedOrigin := range allowedOrigins {
				if strings.TrimSpace(allowedOrigin) == origin {
					allowed = true
					break
				}
			}
			if allowed {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				logrus.WithFields(logrus.Fields{
					"request_origin":  origin,
					"allowed_origins": allowedOrigins,
					"path":            c.Request.URL.Path,
					"method":          c.Request.Method,
				}).Warn("🚫 CORS: Request blocked - Origin not in whitelist")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
		if cfg.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		// Handle OPTIONS preflight requests
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		c.Next()
	}
}

// SetupRouter registers every route of the gateway API
func SetupRouter(container *app.ServiceContainer) *gin.Engine {
	cfg := container.Config
	logger := container.Logger

	r := gin.New()
	r.Use(gin.Recovery(), middleware.HTTPMetrics(), corsMiddleware(cfg.CORS))
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.WithError(err).Warn("⚠️ Invalid trusted proxies, falling back to gin defaults")
	}

	localhostOnly := middleware.NewLocalhostOnly(logger, cfg.Server.MetricsAllowedIPs)
	auth := middleware.NewAuthMiddleware(container.TokenIssuer, logger)

	// ============ Health Check ============
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "lockproxy-gateway",
			"chain_id": container.Gateway.ChainID(),
			"mode":     container.Gateway.Mode(),
		})
	})

	// ============ Prometheus Metrics (localhost only) ============
	r.GET("/metrics", localhostOnly.Restrict(), gin.WrapH(promhttp.Handler()))

	gatewayHandler := container.GatewayHandler
	api := r.Group("/api")
	{
		// ============ Auth ============
		authGroup := api.Group("/auth")
		authGroup.GET("/nonce", container.AuthHandler.NonceHandler)
		authGroup.POST("/wallet", container.AuthHandler.WalletLoginHandler)
		authGroup.POST("/login", container.AuthHandler.OperatorLoginHandler)

		// ============ Public reads ============
		api.GET("/gateway", gatewayHandler.GetState)
		api.GET("/censors", gatewayHandler.ListCensors)
		api.GET("/quotas/:asset", gatewayHandler.GetQuota)
		api.GET("/quotas/:asset/refresh-timestamp", gatewayHandler.GetRefreshTimestamp)
		api.GET("/bindings/proxies/:chainId", gatewayHandler.GetProxyBinding)
		api.GET("/bindings/assets/:asset/:chainId", gatewayHandler.GetAssetBinding)
		api.GET("/requests", gatewayHandler.ListRequests)
		api.GET("/requests/:id", gatewayHandler.GetRequest)
		api.GET("/requests/:id/audit", gatewayHandler.GetRequestAudit)

		// ============ Authenticated ============
		authed := api.Group("", auth.RequireAuth())
		authed.POST("/lock", gatewayHandler.Lock)
		authed.GET("/lock-events", gatewayHandler.LockEvents)

		// Censor actions; the gateway checks the caller is a censor
		authed.POST("/requests/:id/approve", gatewayHandler.Approve)
		authed.POST("/requests/:id/ban", gatewayHandler.Ban)
		authed.POST("/requests/:id/unban", gatewayHandler.Unban)

		// Admin actions; the gateway checks the caller is the admin
		admin := authed.Group("/admin")
		admin.POST("/manager-proxy", gatewayHandler.SetManagerProxy)
		admin.POST("/proxy-bindings", gatewayHandler.BindProxyHash)
		admin.POST("/asset-bindings", gatewayHandler.BindAssetHash)
		admin.POST("/quotas", gatewayHandler.SetQuota)
		admin.POST("/limits", gatewayHandler.SetLimitForToken)
		admin.POST("/refresh-periods", gatewayHandler.SetRefreshPeriod)
		admin.POST("/pause", gatewayHandler.Pause)
		admin.POST("/unpause", gatewayHandler.Unpause)
		admin.POST("/censors", gatewayHandler.AddCensor)
		admin.DELETE("/censors/:address", gatewayHandler.RemoveCensor)
		admin.POST("/transfer-admin", gatewayHandler.TransferAdmin)
		admin.POST("/requests/:id/remove", gatewayHandler.RemoveBannedRequest)

		// ============ Review feed (operators) ============
		api.GET("/ws/review-feed", auth.RequireAuth(), auth.RequireOperator(), container.WebSocketHandler.HandleReviewFeed)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "API endpoint not found",
			"code":    "NOT_FOUND",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}
