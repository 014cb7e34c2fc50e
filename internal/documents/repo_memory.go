package documents

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo keeps documents in process memory. It backs dev runs without
// DATABASE_URL and the handler tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Document
	owners map[string][]string // user id -> document ids in upload order
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Document),
		owners: make(map[string][]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.Status == "" {
		doc.Status = StatusUploaded
	}
	if doc.StatusAt.IsZero() {
		doc.StatusAt = doc.CreatedAt
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[doc.ID]; !exists {
		r.owners[doc.UserID] = append(r.owners[doc.UserID], doc.ID)
	}
	r.byID[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetCurrentByUser(ctx context.Context, userId string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.owners[userId]
	if len(ids) == 0 {
		return Document{}, ErrNotFound
	}
	return r.byID[ids[len(ids)-1]], nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userId, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[documentID]
	if !ok || doc.UserID != userId {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) UpdateExtraction(ctx context.Context, userId, documentID, extractedKey, mimeType string, extractedAt time.Time) error {
	return r.update(ctx, userId, documentID, func(doc *Document) {
		doc.ExtractedTextKey = extractedKey
		doc.ExtractedAt = &extractedAt
		if mimeType != "" {
			doc.MimeType = mimeType
		}
	})
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, userId, documentID string, t Transition) error {
	return r.update(ctx, userId, documentID, func(doc *Document) { doc.apply(t) })
}

// ListByUser walks the user's uploads newest first. Upload order stands in
// for created_at, which ties for uploads within the same clock tick.
func (r *MemoryRepo) ListByUser(ctx context.Context, userId string, filter ListFilter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter = filter.normalized()

	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.owners[userId]
	out := []Document{}
	skipped := 0
	for i := len(ids) - 1; i >= 0 && len(out) < filter.Limit; i-- {
		doc := r.byID[ids[i]]
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (r *MemoryRepo) update(ctx context.Context, userId, documentID string, fn func(*Document)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[documentID]
	if !ok || doc.UserID != userId {
		return ErrNotFound
	}
	fn(&doc)
	r.byID[documentID] = doc
	return nil
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
