package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"profile-backend/internal/documents"
	"profile-backend/internal/extract"
	"profile-backend/internal/ingest"
	"profile-backend/internal/llm"
	"profile-backend/internal/queue"
	"profile-backend/internal/shared/storage/object"
	"profile-backend/internal/shared/telemetry"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingIDs indicates a message without document, profile or user id.
type ErrMissingIDs struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingIDs) Error() string { return "missing document, profile or user id" }

// ErrProcess indicates processing failed after successful parsing.
// Unrecoverable failures will not succeed on redelivery.
type ErrProcess struct {
	DocumentID    string
	RequestID     string
	Code          string
	Unrecoverable bool
	Err           error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process document"
	}
	return "process document: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	switch err := msg.Validate(); {
	case errors.Is(err, queue.ErrMissingField):
		return msg, meta, ErrMissingIDs{Meta: meta, RequestID: msg.RequestID}
	case err != nil:
		return msg, meta, ErrDecode{Meta: meta, Err: err}
	}
	return msg, meta, nil
}

// Processor ingests a stored document named by a queue message.
type Processor struct {
	Documents *documents.Service
	Store     object.ObjectStore
	Pipeline  *ingest.Pipeline
}

// Process extracts the stored document, records the extracted copy and merges
// the validated fragment into the profile. The document's ingest status ends
// as ingested or failed with the classified code.
func (p *Processor) Process(ctx context.Context, msg queue.Message) error {
	if p == nil || p.Documents == nil || p.Pipeline == nil {
		return errors.New("document processor not configured")
	}

	doc, err := p.Documents.Get(ctx, msg.UserID, msg.DocumentID)
	if err != nil {
		return processError(msg, err, errors.Is(err, documents.ErrNotFound))
	}

	if err := p.ingest(ctx, doc, msg); err != nil {
		var procErr ErrProcess
		if errors.As(err, &procErr) {
			p.record(ctx, doc, msg, procErr.Code)
		}
		return err
	}
	p.record(ctx, doc, msg, "")
	return nil
}

func (p *Processor) ingest(ctx context.Context, doc documents.Document, msg queue.Message) error {
	res, extractedKey, err := extract.ExtractStored(ctx, p.Store, doc.StorageKey, doc.ContentType, doc.FileName)
	if err != nil {
		return processError(msg, err, errors.Is(err, object.ErrNotFound))
	}
	if err := p.Documents.RecordExtraction(ctx, doc, extractedKey, res.MimeType); err != nil {
		return processError(msg, err, false)
	}

	_, _, err = p.Pipeline.Ingest(ctx, msg.UserID, msg.ProfileID, ingest.Input{
		FileName:  doc.FileName,
		MimeType:  res.MimeType,
		Text:      res.Text,
		Kind:      llm.KindDocument,
		RequestID: msg.RequestID,
	})
	if err != nil {
		return processError(msg, err, false)
	}
	return nil
}

// record stores the outcome on the document. A failed status write is logged
// and does not change the job result.
func (p *Processor) record(ctx context.Context, doc documents.Document, msg queue.Message, code string) {
	ctx = context.WithoutCancel(ctx)
	var err error
	if code == "" {
		err = p.Documents.MarkIngested(ctx, doc, msg.ProfileID)
	} else {
		err = p.Documents.MarkFailed(ctx, doc, msg.ProfileID, code)
	}
	if err != nil {
		telemetry.Warn("worker.status_write_failed", map[string]any{
			"document_id": doc.ID,
			"profile_id":  msg.ProfileID,
			"request_id":  msg.RequestID,
			"error":       err,
		})
	}
}

func processError(msg queue.Message, err error, notFound bool) error {
	f := ingest.Classify(err)
	unrecoverable := notFound
	switch f.Code {
	case ingest.CodeUnsupportedFormat, ingest.CodeExtractionFailed, ingest.CodeSchemaValidationFailed, ingest.CodeProfileNotFound:
		unrecoverable = true
	}
	code := f.Code
	if notFound {
		code = ingest.CodeProfileNotFound
	}
	return ErrProcess{
		DocumentID:    msg.DocumentID,
		RequestID:     msg.RequestID,
		Code:          code,
		Unrecoverable: unrecoverable,
		Err:           err,
	}
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, p *Processor, body string) error {
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	return p.Process(ctx, msg)
}
