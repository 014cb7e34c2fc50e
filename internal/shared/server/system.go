package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"profile-backend/internal/shared/config"
	"profile-backend/internal/shared/server/middleware"
	"profile-backend/internal/shared/server/respond"
	"profile-backend/internal/shared/storage/db"
)

const healthPingTimeout = 2 * time.Second

// registerSystemRoutes attaches /health and /me.
func registerSystemRoutes(rg *gin.RouterGroup, cfg config.Config, sqlDB *sql.DB) {
	rg.GET("/health", healthHandler(cfg, sqlDB))
	rg.GET("/me", meHandler)
}

// healthHandler reports 503 only when a configured database is unreachable.
// Running on in-memory repositories is healthy.
func healthHandler(cfg config.Config, sqlDB *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		database := "memory"
		status := http.StatusOK
		if sqlDB != nil {
			database = "up"
			if err := db.Ping(context.WithoutCancel(c.Request.Context()), sqlDB, healthPingTimeout); err != nil {
				database = "down"
				status = http.StatusServiceUnavailable
			}
		}
		respond.JSON(c, status, gin.H{
			"ok":          status == http.StatusOK,
			"database":    database,
			"llmProvider": cfg.LLMProvider,
			"queue":       cfg.QueueURL != "",
		})
	}
}

func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"userId":  userID,
		"isGuest": middleware.IsGuest(c),
	})
}
