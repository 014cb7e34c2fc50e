package documents

import (
	"context"
	"time"
)

// DocumentsRepo persists document records. Every lookup is scoped to the
// owning user; another user's document reads as ErrNotFound.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userId, documentID string) (Document, error)
	GetCurrentByUser(ctx context.Context, userId string) (Document, error)
	ListByUser(ctx context.Context, userId string, filter ListFilter) ([]Document, error)
	UpdateExtraction(ctx context.Context, userId, documentID, extractedKey, mimeType string, extractedAt time.Time) error
	UpdateStatus(ctx context.Context, userId, documentID string, t Transition) error
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
