package documents

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"profile-backend/internal/extract"
	"profile-backend/internal/shared/storage/object"
	"profile-backend/internal/shared/telemetry"
)

// Service contains business logic for documents.
type Service struct {
	Store           object.ObjectStore
	Repo            DocumentsRepo
	StorageProvider string
}

// Upload saves the file to object storage and records the document. An empty
// declared type falls back to the type sniffed by the store. Files no
// extractor can read are refused before anything is stored, and the blob is
// removed again when the record cannot be written.
func (s *Service) Upload(ctx context.Context, userId, fileName, declaredType string, r io.Reader) (Document, error) {
	if strings.TrimSpace(fileName) == "" || userId == "" {
		return Document{}, ErrInvalidInput
	}
	if !extract.Supported(declaredType, fileName) {
		return Document{}, &extract.UnsupportedFormatError{MimeType: declaredType, FileName: fileName}
	}

	storageKey, size, sniffed, err := s.Store.Save(ctx, userId, fileName, r)
	if err != nil {
		return Document{}, err
	}

	declared := strings.TrimSpace(declaredType)
	if declared == "" {
		declared = sniffed
	}

	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userId,
		FileName:        fileName,
		MimeType:        declared,
		ContentType:     declared,
		SizeBytes:       size,
		StorageProvider: s.provider(),
		StorageKey:      storageKey,
		Status:          StatusUploaded,
		CreatedAt:       time.Now().UTC(),
	}
	doc.StatusAt = doc.CreatedAt

	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), storageKey); delErr != nil {
			telemetry.Warn("documents.orphaned_blob", map[string]any{
				"storage_key": storageKey,
				"error":       delErr,
			})
		}
		return Document{}, err
	}

	return doc, nil
}

// Get returns one document owned by the user.
func (s *Service) Get(ctx context.Context, userId, documentID string) (Document, error) {
	if userId == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userId, documentID)
}

// Current returns the current document for a user.
func (s *Service) Current(ctx context.Context, userId string) (Document, error) {
	if userId == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetCurrentByUser(ctx, userId)
}

// List returns the user's documents newest first.
func (s *Service) List(ctx context.Context, userId string, filter ListFilter) ([]Document, error) {
	if userId == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userId, filter)
}

// RecordExtraction stores where the extracted text lives and the recorded MIME type.
func (s *Service) RecordExtraction(ctx context.Context, doc Document, extractedKey, mimeType string) error {
	return s.Repo.UpdateExtraction(ctx, doc.UserID, doc.ID, extractedKey, mimeType, time.Now().UTC())
}

// MarkQueued records that doc was handed to the worker queue for profileID.
func (s *Service) MarkQueued(ctx context.Context, doc Document, profileID string) error {
	return s.transition(ctx, doc, Transition{Status: StatusQueued, ProfileID: profileID})
}

// MarkIngested records a successful merge of doc into profileID.
func (s *Service) MarkIngested(ctx context.Context, doc Document, profileID string) error {
	return s.transition(ctx, doc, Transition{Status: StatusIngested, ProfileID: profileID})
}

// MarkFailed records the failure code of the last ingest attempt.
func (s *Service) MarkFailed(ctx context.Context, doc Document, profileID, code string) error {
	return s.transition(ctx, doc, Transition{Status: StatusFailed, ProfileID: profileID, FailureCode: code})
}

func (s *Service) transition(ctx context.Context, doc Document, t Transition) error {
	t.At = time.Now().UTC()
	err := s.Repo.UpdateStatus(ctx, doc.UserID, doc.ID, t)
	if err == nil {
		telemetry.Info("documents.status", map[string]any{
			"document_id":  doc.ID,
			"profile_id":   t.ProfileID,
			"status":       string(t.Status),
			"failure_code": t.FailureCode,
		})
	}
	return err
}

func (s *Service) provider() string {
	if s.StorageProvider == "" {
		return "local"
	}
	return s.StorageProvider
}
