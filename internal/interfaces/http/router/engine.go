package router

import (
	"fmt"

	"github.com/clubdeportivo/backend/internal/infrastructure/config"
	"github.com/clubdeportivo/backend/internal/infrastructure/logger"
	"github.com/clubdeportivo/backend/internal/interfaces/http/handler"
	"github.com/clubdeportivo/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HealthPath is served outside the versioned API and is neither traced nor
// logged per request.
const HealthPath = "/health"

// Options carries everything NewEngine mounts
type Options struct {
	ServiceName string
	Logger      *zap.Logger
	HTTP        config.HTTPConfig
	Auth        middleware.AuthConfig
	// Tracing installs otelgin. Leave it off when no tracer provider is set up.
	Tracing bool
	// Meter enables the HTTP request metrics when non-nil.
	Meter metric.Meter

	Installments *handler.InstallmentHandler
	System       *handler.SystemHandler
}

// NewEngine builds the gin engine with the middleware stack in this order:
//
//  1. Recovery turns panics into 500s
//  2. RequestID generates or propagates X-Request-ID
//  3. Tracing starts the server span
//  4. Access log with a request-scoped logger
//  5. Secure headers, CORS and the body size limit
//  6. HTTP metrics
//
// Authentication and span enrichment run on the /api group only.
func NewEngine(opts Options) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			return nil, fmt.Errorf("set trusted proxies: %w", err)
		}
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	if opts.Tracing {
		engine.Use(middleware.Tracing(opts.ServiceName, HealthPath))
	}
	engine.Use(logger.GinMiddleware(log, HealthPath))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig(opts.HTTP)))
	if opts.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))
	}
	if opts.Meter != nil {
		metrics, err := middleware.HTTPMetrics(opts.Meter)
		if err != nil {
			return nil, fmt.Errorf("http metrics: %w", err)
		}
		engine.Use(metrics)
	}

	if opts.System != nil {
		engine.GET(HealthPath, opts.System.Health)
	}

	authCfg := opts.Auth
	if authCfg.Logger == nil {
		authCfg.Logger = log
	}
	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.Authenticate(authCfg))
	if opts.Tracing {
		r.Use(middleware.SpanEnricher())
	}
	if opts.Installments != nil {
		r.Register(InstallmentRoutes(opts.Installments))
	}
	if opts.System != nil {
		r.Register(SystemRoutes(opts.System))
	}
	r.Setup()

	return engine, nil
}

// corsConfig overlays the configured lists on the defaults
func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.CORSAllowOrigins
	}
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}

// InstallmentRoutes mounts the cuota endpoints. Static segments are
// registered ahead of the :id routes they share a prefix with.
func InstallmentRoutes(h *handler.InstallmentHandler) *DomainGroup {
	g := NewDomainGroup("billing", "/cuotas")
	g.POST("", h.Create)
	g.GET("", h.ListByState)
	g.GET("/periodo/buscar", h.ListByPeriod)
	g.GET("/vencidas/buscar", h.ListOverdue)
	g.POST("/vencidas/procesar", h.ProcessOverdue)
	g.GET("/alumno-categoria/:id", h.ListByEnrollment)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PATCH("/:id/soft-delete", h.SoftDelete)
	g.PATCH("/:id/restore", h.Restore)
	g.PATCH("/:id/pagar", h.MarkAsPaid)
	g.GET("/:id/auditoria", h.ListAudit)
	return g
}

// SystemRoutes mounts /system/info
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo)
}
