package documents

import "time"

// DocumentResponse is the JSON shape of a document.
type DocumentResponse struct {
	DocumentID  string     `json:"documentId"`
	FileName    string     `json:"fileName"`
	MimeType    string     `json:"mimeType"`
	ContentType string     `json:"contentType,omitempty"`
	SizeBytes   int64      `json:"sizeBytes"`
	Extracted   bool       `json:"extracted"`
	ExtractedAt *time.Time `json:"extractedAt,omitempty"`
	Ingest      IngestView `json:"ingest"`
	UploadedAt  time.Time  `json:"uploadedAt"`
}

// IngestView reports the latest ingest attempt for a document.
type IngestView struct {
	Status      Status    `json:"status"`
	ProfileID   string    `json:"profileId,omitempty"`
	FailureCode string    `json:"failureCode,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ToResponse maps a document onto its JSON shape.
func ToResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		MimeType:    doc.MimeType,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		Extracted:   doc.ExtractedTextKey != "",
		ExtractedAt: doc.ExtractedAt,
		Ingest: IngestView{
			Status:      doc.Status,
			ProfileID:   doc.ProfileID,
			FailureCode: doc.FailureCode,
			UpdatedAt:   doc.StatusAt,
		},
		UploadedAt: doc.CreatedAt,
	}
}
