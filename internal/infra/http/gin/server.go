package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"equiprent/internal/infra/config"
	"equiprent/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Check(c *gin.Context)
	Suggestions(c *gin.Context)
}

type AdminHTTP interface {
	CacheStats(c *gin.Context)
	ClearCache(c *gin.Context)
	InvalidateEquipment(c *gin.Context)
}

type Handlers struct {
	Availability AvailabilityHTTP
	Admin        AdminHTTP
	AdminGuard   gin.HandlerFunc
	RateLimit    gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	router := NewRouter(cfg, obsMW, health, h)
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, "equiprent.http"),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// NewRouter builds the gin engine without the tracing wrapper.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", obs.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", obs.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.RateLimit != nil {
		api.Use(h.RateLimit)
	}
	if h.Availability != nil {
		api.GET("/availability", h.Availability.Check)
		api.GET("/availability/suggestions", h.Availability.Suggestions)
	}
	if h.Admin != nil && h.AdminGuard != nil {
		admin := api.Group("/admin/availability", h.AdminGuard)
		admin.GET("/cache", h.Admin.CacheStats)
		admin.DELETE("/cache", h.Admin.ClearCache)
		admin.DELETE("/cache/equipment/:id", h.Admin.InvalidateEquipment)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
