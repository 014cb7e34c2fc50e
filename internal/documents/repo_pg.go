package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo stores documents in Postgres. Soft-deleted rows are invisible.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, user_id, file_name, mime_type, content_type, size_bytes,
    storage_provider, storage_key, extracted_text_key, extracted_at,
    status, profile_id, failure_code, status_at, created_at`

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id, user_id, file_name, original_filename, mime_type, content_type,
    size_bytes, storage_provider, storage_key, status, status_at, created_at
) VALUES ($1, $2, $3, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	if doc.ContentType == "" {
		doc.ContentType = doc.MimeType
	}
	if doc.StorageProvider == "" {
		doc.StorageProvider = "local"
	}
	if doc.Status == "" {
		doc.Status = StatusUploaded
	}

	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.MimeType,
		doc.ContentType,
		doc.SizeBytes,
		doc.StorageProvider,
		nullString(doc.StorageKey),
		string(doc.Status),
		doc.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetCurrentByUser(ctx context.Context, userId string) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT 1`
	return scanOne(r.DB.QueryRowContext(ctx, query, userId))
}

func (r *PGRepo) GetByID(ctx context.Context, userId, documentID string) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	return scanOne(r.DB.QueryRowContext(ctx, query, userId, documentID))
}

// ListByUser pages through the user's documents newest first, optionally
// restricted to one status.
func (r *PGRepo) ListByUser(ctx context.Context, userId string, filter ListFilter) ([]Document, error) {
	filter = filter.normalized()
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND deleted_at IS NULL AND ($2::text = '' OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

	rows, err := r.DB.QueryContext(ctx, query, userId, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateExtraction(ctx context.Context, userId, documentID, extractedKey, mimeType string, extractedAt time.Time) error {
	const query = `
UPDATE documents
SET extracted_text_key = $3,
    extracted_at = $4,
    mime_type = COALESCE(NULLIF($5, ''), mime_type)
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	return r.exec(ctx, query, userId, documentID, extractedKey, extractedAt, mimeType)
}

// UpdateStatus applies t. An empty ProfileID keeps the stored target and any
// status other than failed clears the failure code.
func (r *PGRepo) UpdateStatus(ctx context.Context, userId, documentID string, t Transition) error {
	const query = `
UPDATE documents
SET status = $3,
    profile_id = COALESCE(NULLIF($4, ''), profile_id),
    failure_code = CASE WHEN $3 = 'failed' THEN NULLIF($5, '') END,
    status_at = $6
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	return r.exec(ctx, query, userId, documentID, string(t.Status), t.ProfileID, t.FailureCode, t.At)
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (Document, error) {
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc                                   Document
		contentType, provider, key, extracted sql.NullString
		profileID, failureCode                sql.NullString
		status                                string
		extractedAt                           sql.NullTime
	)
	err := row.Scan(
		&doc.ID, &doc.UserID, &doc.FileName, &doc.MimeType, &contentType, &doc.SizeBytes,
		&provider, &key, &extracted, &extractedAt,
		&status, &profileID, &failureCode, &doc.StatusAt, &doc.CreatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	doc.ContentType = contentType.String
	doc.StorageProvider = provider.String
	doc.StorageKey = key.String
	doc.ExtractedTextKey = extracted.String
	if extractedAt.Valid {
		doc.ExtractedAt = &extractedAt.Time
	}
	doc.Status = Status(status)
	doc.ProfileID = profileID.String
	doc.FailureCode = failureCode.String
	return doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ DocumentsRepo = (*PGRepo)(nil)
