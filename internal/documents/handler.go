package documents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"profile-backend/internal/extract"
	"profile-backend/internal/shared/server/middleware"
	"profile-backend/internal/shared/server/respond"
)

const (
	maxUploadSize = 10 << 20 // 10MB
	maxPageSize   = 50
)

// Handler serves the document upload and lookup routes.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/current", h.current)
	rg.GET("/documents/:id", h.get)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(
		c.Request.Context(),
		middleware.UserIDFromContext(c),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(c, err, "failed to upload document")
		return
	}

	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusCreated, ToResponse(doc))
}

func (h *Handler) get(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	doc, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch document")
		return
	}
	respond.JSON(c, http.StatusOK, ToResponse(doc))
}

func (h *Handler) current(c *gin.Context) {
	doc, err := h.Svc.Current(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to fetch document")
		return
	}
	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusOK, ToResponse(doc))
}

// list accepts ?status=, ?limit= (capped at 50) and ?offset=. Unparseable
// paging values fall back to the defaults; an unknown status is a 400.
func (h *Handler) list(c *gin.Context) {
	status, ok := ParseStatus(c.Query("status"))
	if !ok {
		writeError(c, ErrInvalidStatus, "")
		return
	}
	filter := ListFilter{
		Status: status,
		Limit:  min(queryInt(c, "limit", defaultListLimit), maxPageSize),
		Offset: queryInt(c, "offset", 0),
	}

	docs, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), filter)
	if err != nil {
		writeError(c, err, "failed to list documents")
		return
	}

	resp := make([]DocumentResponse, len(docs))
	for i, doc := range docs {
		resp[i] = ToResponse(doc)
	}
	respond.JSON(c, http.StatusOK, resp)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeError(c *gin.Context, err error, fallback string) {
	var unsupported *extract.UnsupportedFormatError
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidStatus):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.As(err, &unsupported):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_format",
			"Unsupported file type. Upload a PDF, DOCX, TXT or MD file.",
			map[string]any{"mimeType": unsupported.MimeType, "fileName": unsupported.FileName})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
