package ingest

import (
	"context"
	"errors"
	"net/http"

	"profile-backend/internal/extract"
	"profile-backend/internal/llm"
	"profile-backend/internal/odt"
	"profile-backend/internal/profiles"
	"profile-backend/internal/repair"
)

// Stable error codes reported to callers and counted in metrics.
const (
	CodeUnsupportedFormat      = "unsupported_format"
	CodeExtractionFailed       = "extraction_failed"
	CodeModelUnavailable       = "model_unavailable"
	CodeSchemaValidationFailed = "schema_validation_failed"
	CodeMalformedArchive       = "malformed_archive"
	CodeProfileNotFound        = "not_found"
	CodeCancelled              = "cancelled"
	CodeInvalidFile            = "invalid_file"
	CodeInternal               = "internal_error"
)

// ErrJobQueueNotConfigured is returned when async ingestion is requested
// without a queue.
var ErrJobQueueNotConfigured = errors.New("job queue not configured")

// ErrEmptyText means extraction succeeded but produced no text to send to the model.
var ErrEmptyText = errors.New("document contains no text")

// Failure is the caller-facing description of a pipeline error. Raw carries
// the offending model output for schema failures.
type Failure struct {
	Code    string
	Status  int
	Message string
	Raw     string
}

var cancelledFailure = Failure{Code: CodeCancelled, Status: http.StatusRequestTimeout, Message: "Processing was cancelled."}

// Classify maps pipeline errors to a code, HTTP status and message.
func Classify(err error) Failure {
	var (
		unsupported *extract.UnsupportedFormatError
		extraction  *extract.ExtractionError
		invocation  *llm.InvocationError
		schema      *repair.SchemaValidationError
		archive     *odt.MalformedArchiveError
	)
	switch {
	case err == nil:
		return Failure{}
	case errors.As(err, &unsupported):
		return Failure{Code: CodeUnsupportedFormat, Status: http.StatusUnsupportedMediaType, Message: "Unsupported file type. Upload a PDF, DOCX, TXT or MD file."}
	case errors.As(err, &extraction), errors.Is(err, ErrEmptyText):
		return Failure{Code: CodeExtractionFailed, Status: http.StatusUnprocessableEntity, Message: "Could not read text from the document."}
	case errors.As(err, &schema):
		raw := schema.Repaired
		if raw == "" {
			raw = schema.Raw
		}
		return Failure{Code: CodeSchemaValidationFailed, Status: http.StatusBadGateway, Message: "Could not understand the document.", Raw: raw}
	case errors.Is(err, context.Canceled):
		return cancelledFailure
	case errors.As(err, &invocation), errors.Is(err, llm.ErrNotConfigured):
		// A model call that ran out of time is an unavailable model, not a
		// cancelled request.
		return Failure{Code: CodeModelUnavailable, Status: http.StatusBadGateway, Message: "The AI service is unavailable. Try again later."}
	case errors.Is(err, context.DeadlineExceeded):
		return cancelledFailure
	case errors.As(err, &archive), errors.Is(err, odt.ErrMissingContent):
		return Failure{Code: CodeMalformedArchive, Status: http.StatusUnprocessableEntity, Message: "The ODT archive is malformed."}
	case errors.Is(err, profiles.ErrNotFound):
		return Failure{Code: CodeProfileNotFound, Status: http.StatusNotFound, Message: "profile not found"}
	default:
		return Failure{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "Processing failed."}
	}
}
