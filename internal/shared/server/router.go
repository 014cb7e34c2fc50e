package server

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"profile-backend/internal/documents"
	"profile-backend/internal/ingest"
	"profile-backend/internal/profiles"
	"profile-backend/internal/shared/auth"
	"profile-backend/internal/shared/config"
	"profile-backend/internal/shared/metrics"
	"profile-backend/internal/shared/server/middleware"
)

// Rate limit groups. Ingest routes call the model and are the most expensive.
const (
	groupDefault = "DEFAULT"
	groupRead    = "READ"
	groupIngest  = "INGEST"
)

// RouterDeps holds handler dependencies for routing.
type RouterDeps struct {
	Config          config.Config
	DB              *sql.DB
	DocumentHandler *documents.Handler
	ProfileHandler  *profiles.Handler
	IngestHandler   *ingest.Handler
	Tokens          *auth.Verifier
	RateLimits      map[string]middleware.RateLimitRule
}

// DefaultRateLimits returns per-principal token bucket rules by group.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		groupDefault: {Rate: 2, Burst: 20},
		groupRead:    {Rate: 10, Burst: 50},
		groupIngest:  {Rate: 0.5, Burst: 5},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	rules := deps.RateLimits
	if rules == nil {
		rules = DefaultRateLimits()
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.IdentityWithTokens(deps.Tokens),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: groupDefault,
			GroupFor:     rateLimitGroup,
			Rules:        rules,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	registerSystemRoutes(api, deps.Config, deps.DB)
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.RegisterRoutes(api)
	}
	if deps.IngestHandler != nil {
		deps.IngestHandler.RegisterRoutes(api)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	path := c.FullPath()
	switch {
	case path == "/metrics", strings.HasSuffix(path, "/health"):
		return "PUBLIC"
	case c.Request.Method == http.MethodGet:
		return groupRead
	case path == "/api/v1/parse-document",
		path == "/api/v1/preview/odt",
		strings.HasSuffix(path, "/biography"),
		strings.HasSuffix(path, "/ingest"),
		path == "/api/v1/profiles/:id/documents":
		return groupIngest
	default:
		return groupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
