package documents_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"profile-backend/internal/bootstrap"
	"profile-backend/internal/documents"
	"profile-backend/internal/shared/config"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app, err := bootstrap.Build(config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
		ObjectStoreType: "local",
	})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app.Router
}

func upload(t *testing.T, router http.Handler, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestDocumentsUploadAndCurrent(t *testing.T) {
	router := newRouter(t)

	resp := upload(t, router, "hello.txt", "hello world")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created documents.DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.DocumentID == "" {
		t.Fatalf("expected documentId, got empty")
	}
	if created.Ingest.Status != documents.StatusUploaded {
		t.Fatalf("expected ingest status uploaded, got %q", created.Ingest.Status)
	}

	respGet := get(router, "/api/v1/documents/current")
	if respGet.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respGet.Code)
	}
	var current documents.DocumentResponse
	if err := json.NewDecoder(respGet.Body).Decode(&current); err != nil {
		t.Fatalf("decode current response: %v", err)
	}
	if current.FileName != "hello.txt" || current.DocumentID != created.DocumentID {
		t.Fatalf("unexpected current document %+v", current)
	}
}

func TestDocumentsListFiltersByStatus(t *testing.T) {
	router := newRouter(t)
	for _, name := range []string{"a.txt", "b.md"} {
		if resp := upload(t, router, name, "x"); resp.Code != http.StatusCreated {
			t.Fatalf("upload %s: %d", name, resp.Code)
		}
	}

	var all []documents.DocumentResponse
	resp := get(router, "/api/v1/documents?status=uploaded&limit=abc")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(all) != 2 || all[0].FileName != "b.md" {
		t.Fatalf("expected newest-first uploaded documents, got %+v", all)
	}

	var queued []documents.DocumentResponse
	resp = get(router, "/api/v1/documents?status=queued")
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(queued) != 0 {
		t.Fatalf("expected no queued documents, got %+v", queued)
	}

	if resp := get(router, "/api/v1/documents?status=done"); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.Code)
	}
}

func TestDocumentsUploadRejectsUnsupportedFormat(t *testing.T) {
	router := newRouter(t)

	resp := upload(t, router, "photo.png", "\x89PNG")
	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp.Code)
	}
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if env.Error.Code != "unsupported_format" {
		t.Fatalf("unexpected error code %q", env.Error.Code)
	}
}

func TestDocumentsGetUnknownIs404(t *testing.T) {
	router := newRouter(t)
	if resp := get(router, "/api/v1/documents/missing"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func addGuestHeader(req *http.Request) {
	req.Header.Set("X-Guest-Id", "test-guest")
}
