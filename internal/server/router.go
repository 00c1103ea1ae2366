package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/spinnernet/backend/internal/handlers"
	"github.com/spinnernet/backend/internal/middleware"
	"github.com/spinnernet/backend/internal/observability"
	"github.com/spinnernet/backend/internal/platform/envutil"
)

type RouterConfig struct {
	AuthHandler      *handlers.AuthHandler
	AuthMiddleware   *middleware.AuthMiddleware
	UserHandler      *handlers.UserHandler
	DiscoveryHandler *handlers.DiscoveryHandler
	WSHandler        *handlers.WSHandler
	Metrics          *observability.Metrics
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	router.Use(otelgin.Middleware("spinnernet-backend"))
	if cfg.Metrics != nil {
		router.Use(metricsMiddleware(cfg.Metrics))
	}

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// User
	protected.GET("/user", cfg.UserHandler.GetMe)
	// Discovery
	protected.GET("/ws/discovery", cfg.WSHandler.Connect)
	protected.POST("/discovery/message", cfg.DiscoveryHandler.SendMessage)
	protected.GET("/discovery/conversation", cfg.DiscoveryHandler.GetConversation)
	protected.GET("/discovery/profiles", cfg.DiscoveryHandler.GetProfiles)
	protected.GET("/discovery/profile", cfg.DiscoveryHandler.GetProfileByConversation)

	return router
}

func allowedOrigins() []string {
	raw := envutil.Str("CORS_ALLOW_ORIGINS", "")
	if raw == "" {
		return []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func metricsMiddleware(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		c.Next()
		m.ApiInflightDec()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
