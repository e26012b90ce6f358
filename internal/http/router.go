// Package httpapi wires the HTTP transport (Gin) to the handlers, middleware
// and the order bot. It owns the cross-cutting chain: tracing, correlation
// ids, redacted access logs, panic recovery, metrics, idempotency, rate
// limiting, CORS, security headers and gzip.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-order-bot/docs"
	"github.com/tbourn/go-order-bot/internal/config"
	"github.com/tbourn/go-order-bot/internal/http/handlers"
	"github.com/tbourn/go-order-bot/internal/http/middleware"
	"github.com/tbourn/go-order-bot/internal/repo"
)

// maxBodyBytes caps request bodies. Updates are a few hundred bytes.
const maxBodyBytes = 64 << 10

// RegisterRoutes mounts the middleware chain, the operational endpoints
// and the API group under cfg.APIBasePath.
//
// Order: tracing, request id, access log, recovery, body cap, metrics,
// idempotency, rate limit, CORS, security headers. Recovery sits after the
// logger so panics carry request fields; idempotency runs before the
// limiter so replays skip it.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, h *handlers.Handlers, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(
		otelgin.Middleware(cfg.OTEL.ServiceName),
		middleware.RequestID(),
		middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: []string{"X-API-Key"}}),
		middleware.Recovery(),
		limitBody(maxBodyBytes),
		middleware.Metrics(middleware.MetricsOptions{SkipPaths: []string{"/metrics", "/health"}}),
	)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, replayLookup(db)),
		middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByChat()).Handler(),
	)
	r.Use(corsChain(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true, // orders are personal data
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	mountAPI(api, h)
}

func mountAPI(g *gin.RouterGroup, h *handlers.Handlers) {
	chats := g.Group("/chats")
	chats.GET("", h.ListChats)
	chats.POST("/:id/updates", h.PostUpdate)
	chats.GET("/:id/messages", h.ListMessages)

	g.GET("/catalog", h.GetCatalog)
	g.GET("/catalog/search", h.SearchCatalog)

	// Pending orders, for staff.
	g.GET("/orders", h.ListOrders)
	g.GET("/orders/:phone", h.GetOrder)
}

// replayLookup reports whether an idempotency key already has a stored
// response. Lookup failures count as a miss; the handler then runs and
// fails on its own if the database is gone.
func replayLookup(db *gorm.DB) func(ctx context.Context, userID, chatID, key string, now time.Time) (bool, error) {
	return func(ctx context.Context, userID, chatID, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, userID, chatID, key, now)
		return err == nil && rec != nil, nil
	}
}

// corsChain allows any origin when origins is empty; otherwise it echoes
// only listed origins. ACAO is set up front so probes without an Origin
// header still see it.
func corsChain(origins []string) []gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		cc.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) { c.Header("Access-Control-Allow-Origin", "*") },
			cors.New(cc),
		}
	}

	cc.AllowOrigins = origins
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if o := c.GetHeader("Origin"); allowed[o] {
				c.Header("Access-Control-Allow-Origin", o)
				c.Writer.Header().Add("Vary", "Origin")
			}
		},
		cors.New(cc),
	}
}

// limitBody wraps the body in http.MaxBytesReader; the JSON binder reports
// an oversized update as a 400.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix treats "" and "/" as the engine root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "/" {
		prefix = ""
	}
	return r.Group(prefix)
}
