package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile-backend/internal/documents"
	"profile-backend/internal/profiles"
	"profile-backend/internal/queue"
	"profile-backend/internal/shared/server/middleware"
	localstore "profile-backend/internal/shared/storage/object/local"
)

type recordingQueue struct {
	sent []queue.Message
}

func (q *recordingQueue) Send(ctx context.Context, msg queue.Message) error {
	q.sent = append(q.sent, msg)
	return nil
}

type harness struct {
	router    *gin.Engine
	profiles  *profiles.Service
	documents *documents.Service
	model     *scriptedModel
}

func newHarness(t *testing.T, q queue.Client) harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	model := &scriptedModel{extract: constant(`{"skills":["Go"]}`), repair: constant(`{}`)}
	profileSvc := newProfiles()
	docSvc := &documents.Service{Store: localstore.New(t.TempDir()), Repo: documents.NewMemoryRepo()}
	pipeline := &Pipeline{Model: model, Profiles: profileSvc}

	h := &Handler{
		Pipeline:  pipeline,
		Batch:     &Batch{Pipeline: pipeline, Concurrency: 2},
		Profiles:  profileSvc,
		Documents: docSvc,
		Queue:     q,
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Identity())
	h.RegisterRoutes(r.Group("/api/v1"))
	return harness{router: r, profiles: profileSvc, documents: docSvc, model: model}
}

func (h harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, field string, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestParseDocumentReturnsFragment(t *testing.T) {
	h := newHarness(t, nil)
	body, ct := multipartBody(t, "file", map[string]string{"type": "document"}, map[string][]byte{"cv.txt": []byte("Jane Doe")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse-document", body)
	req.Header.Set("Content-Type", ct)

	rec := h.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Fragment struct {
			Skills []string `json:"skills"`
		} `json:"fragment"`
		Outcome  string `json:"outcome"`
		MimeType string `json:"mimeType"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Go"}, resp.Fragment.Skills)
	assert.Equal(t, "valid", resp.Outcome)
	assert.Equal(t, "text/plain", resp.MimeType)
}

func TestParseDocumentSchemaFailureIncludesRaw(t *testing.T) {
	h := newHarness(t, nil)
	h.model.extract = constant("nothing useful")
	h.model.repair = constant("still nothing")
	body, ct := multipartBody(t, "file", map[string]string{"type": "document"}, map[string][]byte{"cv.txt": []byte("Jane Doe")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse-document", body)
	req.Header.Set("Content-Type", ct)

	rec := h.do(t, req)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, CodeSchemaValidationFailed, env.Error.Code)
	assert.Equal(t, "still nothing", env.Error.Details["raw"])
}

func TestParseDocumentRequiresKnownType(t *testing.T) {
	h := newHarness(t, nil)
	for name, fields := range map[string]map[string]string{
		"unknown": {"type": "resume"},
		"missing": nil,
		"blank":   {"type": " "},
	} {
		body, ct := multipartBody(t, "file", fields, map[string][]byte{"cv.txt": []byte("x")})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/parse-document", body)
		req.Header.Set("Content-Type", ct)

		rec := h.do(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	assert.Zero(t, h.model.callCount())
}

func TestParseDocumentUnsupportedFormat(t *testing.T) {
	h := newHarness(t, nil)
	body, ct := multipartBody(t, "file", map[string]string{"type": "document"}, map[string][]byte{"photo.png": []byte("\x89PNG")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse-document", body)
	req.Header.Set("Content-Type", ct)

	rec := h.do(t, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Zero(t, h.model.callCount())
}

func TestIngestDocumentsHidesRawUnlessDebug(t *testing.T) {
	h := newHarness(t, nil)
	h.model.extract = constant("nothing useful")
	h.model.repair = constant("still nothing")
	p, err := h.profiles.Create(context.Background(), "user-1", "")
	require.NoError(t, err)

	for _, debug := range []bool{false, true} {
		body, ct := multipartBody(t, "files", nil, map[string][]byte{"cv.txt": []byte("Jane")})
		url := "/api/v1/profiles/" + p.ID + "/documents"
		if debug {
			url += "?debug=true"
		}
		req := httptest.NewRequest(http.MethodPost, url, body)
		req.Header.Set("Content-Type", ct)

		rec := h.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Results []FileResult             `json:"results"`
			Profile profiles.ProfileResponse `json:"profile"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, StatusFailed, resp.Results[0].Status)
		if debug {
			assert.Equal(t, "still nothing", resp.Results[0].Raw)
		} else {
			assert.Empty(t, resp.Results[0].Raw)
		}
	}
}

func TestIngestDocumentsIsolatesOversizedFile(t *testing.T) {
	h := newHarness(t, nil)
	p, err := h.profiles.Create(context.Background(), "user-1", "")
	require.NoError(t, err)

	body, ct := multipartBody(t, "files", nil, map[string][]byte{
		"huge.txt": bytes.Repeat([]byte("a"), maxFileSize+1),
		"cv.txt":   []byte("Jane"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profiles/"+p.ID+"/documents", body)
	req.Header.Set("Content-Type", ct)

	rec := h.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results []FileResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	byName := map[string]FileResult{}
	for _, r := range resp.Results {
		byName[r.FileName] = r
	}
	assert.Equal(t, StatusFailed, byName["huge.txt"].Status)
	assert.Equal(t, CodeInvalidFile, byName["huge.txt"].Code)
	assert.Equal(t, StatusOK, byName["cv.txt"].Status)
	assert.Equal(t, 1, h.model.callCount(), "only the readable file reaches the model")
}

func TestIngestDocumentsUnknownProfile(t *testing.T) {
	h := newHarness(t, nil)
	body, ct := multipartBody(t, "files", nil, map[string][]byte{"cv.txt": []byte("Jane")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profiles/missing/documents", body)
	req.Header.Set("Content-Type", ct)

	rec := h.do(t, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestBiographyMergesProfile(t *testing.T) {
	h := newHarness(t, nil)
	p, err := h.profiles.Create(context.Background(), "user-1", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/profiles/"+p.ID+"/biography", strings.NewReader(`{"text":"I write Go."}`))
	req.Header.Set("Content-Type", "application/json")

	rec := h.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := h.profiles.Get(context.Background(), "user-1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, []string{"Go"}, stored.Data.Skills)
}

func TestIngestBiographyRequiresText(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profiles/any/biography", strings.NewReader(`{"text":"  "}`))
	req.Header.Set("Content-Type", "application/json")

	rec := h.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnqueueWithoutQueue(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/ingest", strings.NewReader(`{"profileId":"p-1"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := h.do(t, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "job_queue_unavailable", env.Error.Code)
}

func TestEnqueueSendsMessage(t *testing.T) {
	q := &recordingQueue{}
	h := newHarness(t, q)
	ctx := context.Background()
	doc, err := h.documents.Upload(ctx, "user-1", "cv.txt", "text/plain", strings.NewReader("Jane"))
	require.NoError(t, err)
	p, err := h.profiles.Create(ctx, "user-1", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.ID+"/ingest", strings.NewReader(`{"profileId":"`+p.ID+`"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := h.do(t, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, q.sent, 1)
	assert.Equal(t, doc.ID, q.sent[0].DocumentID)
	assert.Equal(t, p.ID, q.sent[0].ProfileID)
	assert.Equal(t, "user-1", q.sent[0].UserID)
	assert.Equal(t, queue.MessageVersion, q.sent[0].Version)
	assert.NotEmpty(t, q.sent[0].RequestID)

	queued, err := h.documents.Get(ctx, "user-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusQueued, queued.Status)
	assert.Equal(t, p.ID, queued.ProfileID)
}

func TestPreviewODT(t *testing.T) {
	h := newHarness(t, nil)

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	w, err := zw.Create("content.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">` +
		`<office:body><office:text><text:p>Hello</text:p></office:text></office:body></office:document-content>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	body, ct := multipartBody(t, "file", nil, map[string][]byte{"cv.odt": archive.Bytes()})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/preview/odt", body)
	req.Header.Set("Content-Type", ct)

	rec := h.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"nodes"`)
	assert.Contains(t, rec.Body.String(), "Hello")
}

func TestPreviewODTMalformed(t *testing.T) {
	h := newHarness(t, nil)
	body, ct := multipartBody(t, "file", nil, map[string][]byte{"cv.odt": []byte("not a zip")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/preview/odt", body)
	req.Header.Set("Content-Type", ct)

	rec := h.do(t, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
