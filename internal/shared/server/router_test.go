package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"profile-backend/internal/shared/config"
	"profile-backend/internal/shared/server/middleware"
)

func newTestRouter(rules map[string]middleware.RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterDeps{
		Config:     config.Config{CORSAllowOrigin: []string{"http://localhost:3000"}},
		RateLimits: rules,
	})
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	r := newTestRouter(nil)

	for _, path := range []string{"/api/v1/health", "/metrics"} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s expected 200, got %d", path, resp.Code)
		}
	}
}

func TestHealthReportsMemoryStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterDeps{Config: config.Config{LLMProvider: "gemini"}})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	var body struct {
		OK          bool   `json:"ok"`
		Database    string `json:"database"`
		LLMProvider string `json:"llmProvider"`
		Queue       bool   `json:"queue"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || body.Database != "memory" || body.LLMProvider != "gemini" || body.Queue {
		t.Fatalf("unexpected health %+v", body)
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqlDB.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	r := NewRouter(RouterDeps{DB: sqlDB})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"database":"down"`) {
		t.Fatalf("expected database down, got %s", resp.Body.String())
	}
}

func TestMetricsExposition(t *testing.T) {
	r := newTestRouter(nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(resp.Body.String(), "ingest_documents_total") {
		t.Fatalf("expected ingest counters, got:\n%s", resp.Body.String())
	}
}

func TestMeReportsGuest(t *testing.T) {
	r := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "abc")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		UserID  string `json:"userId"`
		IsGuest bool   `json:"isGuest"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UserID != "guest:abc" || !body.IsGuest {
		t.Fatalf("unexpected identity %+v", body)
	}
}

func TestMeRequiresIdentity(t *testing.T) {
	r := newTestRouter(nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestRateLimitGroups(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var got []string
	r.Use(func(c *gin.Context) {
		got = append(got, rateLimitGroup(c))
	})
	noop := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/v1/health", noop)
	r.GET("/api/v1/profiles/:id", noop)
	r.POST("/api/v1/parse-document", noop)
	r.POST("/api/v1/profiles/:id/documents", noop)
	r.POST("/api/v1/documents/:id/ingest", noop)
	r.POST("/api/v1/profiles", noop)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/health", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/profiles/p1", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/parse-document", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/profiles/p1/documents", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/documents/d1/ingest", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/profiles", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	want := []string{"PUBLIC", groupRead, groupIngest, groupIngest, groupIngest, groupDefault}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("groups = %v, want %v", got, want)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
