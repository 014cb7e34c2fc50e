package documents

import "time"

// Status tracks where a stored document is in the ingest lifecycle.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusQueued   Status = "queued"
	StatusIngested Status = "ingested"
	StatusFailed   Status = "failed"
)

// ParseStatus accepts the lowercase status names; the empty string means
// "any status" and is returned with ok true.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case "", StatusUploaded, StatusQueued, StatusIngested, StatusFailed:
		return s, true
	default:
		return "", false
	}
}

// Document is a source file a user uploaded for profile ingestion.
// ContentType is what the uploader declared; MimeType is what extraction
// recorded (text/markdown for a text/plain *.md upload).
type Document struct {
	ID               string
	UserID           string
	FileName         string
	MimeType         string
	ContentType      string
	SizeBytes        int64
	StorageProvider  string
	StorageKey       string
	ExtractedTextKey string
	ExtractedAt      *time.Time

	Status      Status
	ProfileID   string // target of the most recent ingest request
	FailureCode string
	StatusAt    time.Time

	CreatedAt time.Time
}

// Transition is a status change applied to one document.
type Transition struct {
	Status      Status
	ProfileID   string
	FailureCode string
	At          time.Time
}

func (d *Document) apply(t Transition) {
	d.Status = t.Status
	if t.ProfileID != "" {
		d.ProfileID = t.ProfileID
	}
	d.FailureCode = ""
	if t.Status == StatusFailed {
		d.FailureCode = t.FailureCode
	}
	d.StatusAt = t.At
}

// ListFilter narrows ListByUser. Limit 0 means the repository default.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}
