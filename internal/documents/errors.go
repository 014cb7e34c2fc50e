package documents

import "errors"

var (
	ErrNotFound      = errors.New("document not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidStatus = errors.New("status must be uploaded, queued, ingested or failed")
)
