package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"profile-backend/internal/documents"
	"profile-backend/internal/llm"
	"profile-backend/internal/odt"
	"profile-backend/internal/profiles"
	"profile-backend/internal/queue"
	"profile-backend/internal/shared/server/middleware"
	"profile-backend/internal/shared/server/respond"
	"profile-backend/internal/shared/telemetry"
)

const (
	maxFileSize  = 10 << 20 // 10MB per file
	maxBatchSize = 50 << 20
	maxBatchLen  = 20
)

// Handler exposes the ingestion pipeline over HTTP.
type Handler struct {
	Pipeline  *Pipeline
	Batch     *Batch
	Profiles  *profiles.Service
	Documents *documents.Service
	Queue     queue.Client
}

// RegisterRoutes attaches ingestion routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/parse-document", h.parseDocument)
	rg.POST("/profiles/:id/documents", h.ingestDocuments)
	rg.POST("/profiles/:id/biography", h.ingestBiography)
	rg.POST("/documents/:id/ingest", h.enqueueDocument)
	rg.POST("/preview/odt", h.previewODT)
}

type parseResponse struct {
	Fragment        any    `json:"fragment"`
	Outcome         string `json:"outcome"`
	MimeType        string `json:"mimeType"`
	RepairAttempted bool   `json:"repairAttempted"`
}

func (h *Handler) parseDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFileSize+1<<20)

	kind, ok := llm.ParseKind(c.PostForm("type"))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "type must be document or biography", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	in, err := readInput(fileHeader, kind, middleware.RequestIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	out, err := h.Pipeline.Parse(c.Request.Context(), in)
	if err != nil {
		writeFailure(c, err)
		return
	}

	c.Set("ingestOutcome", string(out.Outcome))
	respond.JSON(c, http.StatusOK, parseResponse{
		Fragment:        out.Fragment,
		Outcome:         string(out.Outcome),
		MimeType:        out.MimeType,
		RepairAttempted: out.RepairAttempted,
	})
}

func (h *Handler) ingestDocuments(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	profileID := c.Param("id")
	c.Set("profileId", profileID)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBatchSize)

	if _, err := h.Profiles.Get(c.Request.Context(), userID, profileID); err != nil {
		profiles.WriteError(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form is required", nil)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "at least one file is required", nil)
		return
	}
	if len(files) > maxBatchLen {
		respond.Error(c, http.StatusBadRequest, "validation_error", fmt.Sprintf("at most %d files per request", maxBatchLen), nil)
		return
	}

	// Unreadable files fail on their own; the rest of the batch still runs.
	reqID := middleware.RequestIDFromContext(c)
	results := make([]FileResult, len(files))
	inputs := make([]Input, 0, len(files))
	positions := make([]int, 0, len(files))
	for i, fh := range files {
		in, err := readInput(fh, llm.KindDocument, reqID)
		if err != nil {
			results[i] = FileResult{
				FileName: fh.Filename,
				Status:   StatusFailed,
				MimeType: fh.Header.Get("Content-Type"),
				Code:     CodeInvalidFile,
				Message:  err.Error(),
			}
			continue
		}
		inputs = append(inputs, in)
		positions = append(positions, i)
	}

	result := h.Batch.Run(c.Request.Context(), userID, profileID, inputs)
	for j, fr := range result.Files {
		if c.Query("debug") != "true" {
			fr.Raw = ""
		}
		results[positions[j]] = fr
	}

	current := result.Profile
	if current == nil {
		p, err := h.Profiles.Get(c.Request.Context(), userID, profileID)
		if err != nil {
			profiles.WriteError(c, err)
			return
		}
		current = &p
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"results": results,
		"profile": profiles.ToResponse(*current),
	})
}

type biographyRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) ingestBiography(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	profileID := c.Param("id")
	c.Set("profileId", profileID)

	var req biographyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", nil)
		return
	}
	if _, err := h.Profiles.Get(c.Request.Context(), userID, profileID); err != nil {
		profiles.WriteError(c, err)
		return
	}

	out, updated, err := h.Pipeline.Ingest(c.Request.Context(), userID, profileID, Input{
		FileName:  "biography",
		MimeType:  "text/plain",
		Text:      req.Text,
		Kind:      llm.KindBiography,
		RequestID: middleware.RequestIDFromContext(c),
	})
	if err != nil {
		writeFailure(c, err)
		return
	}

	c.Set("ingestOutcome", string(out.Outcome))
	respond.JSON(c, http.StatusOK, gin.H{
		"outcome": out.Outcome,
		"profile": profiles.ToResponse(updated),
	})
}

type enqueueRequest struct {
	ProfileID string `json:"profileId" binding:"required"`
}

func (h *Handler) enqueueDocument(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	docID := c.Param("id")
	c.Set("documentId", docID)

	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "profileId is required", nil)
		return
	}
	c.Set("profileId", req.ProfileID)

	if h.Queue == nil {
		respond.Error(c, http.StatusServiceUnavailable, "job_queue_unavailable", ErrJobQueueNotConfigured.Error(), nil)
		return
	}

	ctx := c.Request.Context()
	doc, err := h.Documents.Get(ctx, userID, docID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		return
	}
	if _, err := h.Profiles.Get(ctx, userID, req.ProfileID); err != nil {
		profiles.WriteError(c, err)
		return
	}

	msg := queue.NewMessage(docID, req.ProfileID, userID, middleware.RequestIDFromContext(c), time.Now())
	if err := h.Queue.Send(ctx, msg); err != nil {
		respond.Error(c, http.StatusBadGateway, "queue_error", "failed to enqueue document", nil)
		return
	}
	if err := h.Documents.MarkQueued(context.WithoutCancel(ctx), doc, req.ProfileID); err != nil {
		telemetry.Warn("ingest.status_write_failed", map[string]any{
			"document_id": docID,
			"profile_id":  req.ProfileID,
			"error":       err,
		})
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"documentId": docID,
		"profileId":  req.ProfileID,
		"status":     "queued",
	})
}

func (h *Handler) previewODT(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFileSize+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	data, err := readFile(fileHeader)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	nodes, err := odt.Render(data)
	if err != nil {
		writeFailure(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"nodes": nodes})
}

func writeFailure(c *gin.Context, err error) {
	f := Classify(err)
	var details any
	if f.Raw != "" {
		details = gin.H{"raw": f.Raw}
	}
	respond.Error(c, f.Status, f.Code, f.Message, details)
}

func readInput(fh *multipart.FileHeader, kind llm.Kind, requestID string) (Input, error) {
	data, err := readFile(fh)
	if err != nil {
		return Input{}, err
	}
	return Input{
		FileName:  fh.Filename,
		MimeType:  fh.Header.Get("Content-Type"),
		Data:      data,
		Kind:      kind,
		RequestID: requestID,
	}, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxFileSize {
		return nil, fmt.Errorf("%s exceeds the %d MB limit", fh.Filename, maxFileSize>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to read %s", fh.Filename)
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(f, maxFileSize+1)); err != nil {
		return nil, fmt.Errorf("unable to read %s", fh.Filename)
	}
	if buf.Len() > maxFileSize {
		return nil, fmt.Errorf("%s exceeds the %d MB limit", fh.Filename, maxFileSize>>20)
	}
	return buf.Bytes(), nil
}
