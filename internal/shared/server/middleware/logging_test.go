package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"profile-backend/internal/shared/telemetry"
)

func observeAccessLog(t *testing.T, register func(*gin.Engine), req *http.Request) []observer.LoggedEntry {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	t.Cleanup(telemetry.SetLogger(zap.New(core)))

	router := gin.New()
	router.Use(RequestID(), Identity(), Logging())
	register(router)
	router.ServeHTTP(httptest.NewRecorder(), req)
	return logs.FilterMessage("request.complete").All()
}

func TestLoggingCarriesIngestContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profiles/profile-1/biography", nil)
	req.Header.Set("X-Guest-Id", "guest1")

	entries := observeAccessLog(t, func(r *gin.Engine) {
		r.POST("/api/v1/profiles/:id/biography", func(c *gin.Context) {
			c.Set("profileId", c.Param("id"))
			c.Set("ingestOutcome", "repaired_valid")
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}, req)

	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected info level, got %s", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	want := map[string]any{
		"route":          "/api/v1/profiles/:id/biography",
		"user_id":        "guest:guest1",
		"is_guest":       true,
		"profile_id":     "profile-1",
		"ingest_outcome": "repaired_valid",
	}
	for key, v := range want {
		if fields[key] != v {
			t.Fatalf("%s = %v, want %v", key, fields[key], v)
		}
	}
	for _, key := range []string{"request_id", "duration_ms", "status", "bytes"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing log field %s", key)
		}
	}
	if _, ok := fields["document_id"]; ok {
		t.Fatalf("unset context keys should be omitted")
	}
}

func TestLoggingLevelFollowsStatus(t *testing.T) {
	cases := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusBadGateway, zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		entries := observeAccessLog(t, func(r *gin.Engine) {
			r.GET("/x", func(c *gin.Context) { c.Status(tc.status) })
		}, req)
		if len(entries) != 1 || entries[0].Level != tc.level {
			t.Fatalf("status %d: expected one %s entry, got %+v", tc.status, tc.level, entries)
		}
	}
}

func TestLoggingSkipsPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	entries := observeAccessLog(t, func(r *gin.Engine) {
		r.OPTIONS("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}, req)
	if len(entries) != 0 {
		t.Fatalf("expected no access log for OPTIONS, got %d", len(entries))
	}
}
