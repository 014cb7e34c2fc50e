package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"profile-backend/internal/shared/storage/object"
)

const (
	MimePDF           = "application/pdf"
	MimeDOCX          = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeODT           = "application/vnd.oasis.opendocument.text"
	MimePlain         = "text/plain"
	MimeMarkdown      = "text/markdown"
	MimeMarkdownX     = "text/x-markdown"
	mimeZip           = "application/zip"
	mimeOctetStream   = "application/octet-stream"
	extractedSuffix   = ".extracted.txt"
	extractedMimeType = "text/plain; charset=utf-8"
)

// Result is the extracted text plus the MIME type recorded for it. The
// recorded type may differ from the declared one (a text/plain upload named
// *.md is recorded as text/markdown).
type Result struct {
	Text     string
	MimeType string
}

// UnsupportedFormatError reports a MIME type/extension pair that matches no
// supported format.
type UnsupportedFormatError struct {
	MimeType string
	FileName string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: mime=%q file=%q", e.MimeType, e.FileName)
}

// ExtractionError reports that the underlying format reader failed.
type ExtractionError struct {
	MimeType string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.MimeType, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractStored pulls text from a stored object and persists a derived .extracted.txt copy.
func ExtractStored(ctx context.Context, store object.ObjectStore, fileKey string, mimeType string, fileName string) (Result, string, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, "", err
	}

	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return Result{}, "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return Result{}, "", fmt.Errorf("extract text key=%s mime=%s: read: %w", fileKey, mimeType, err)
	}

	res, err := ExtractTextFromBytes(ctx, raw, mimeType, fileName)
	if err != nil {
		return Result{}, "", err
	}

	extractedKey := fileKey + extractedSuffix
	if err := saveExtracted(ctx, store, extractedKey, res.Text); err != nil {
		return Result{}, "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}

	return res, extractedKey, nil
}

// ExtractTextFromBytes converts an in-memory payload to plain text. Dispatch
// order: PDF, DOCX, then plain text/markdown by type or by .txt/.md extension.
// Anything else, ODT included, is an *UnsupportedFormatError.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	normalized := normalizeMimeType(mimeType, fileName, data)
	ext := strings.ToLower(filepath.Ext(fileName))

	switch {
	case normalized == MimePDF:
		text, err := extractPDF(data)
		if err != nil {
			return Result{}, &ExtractionError{MimeType: normalized, Err: err}
		}
		return Result{Text: text, MimeType: normalized}, nil
	case normalized == MimeDOCX:
		text, err := extractDOCX(data)
		if err != nil {
			return Result{}, &ExtractionError{MimeType: normalized, Err: err}
		}
		return Result{Text: text, MimeType: normalized}, nil
	case isTextType(normalized) || ext == ".md" || ext == ".txt":
		text, err := decodeUTF8(data)
		if err != nil {
			return Result{}, &ExtractionError{MimeType: normalized, Err: err}
		}
		return Result{Text: text, MimeType: recordedTextType(normalized, ext)}, nil
	default:
		return Result{}, &UnsupportedFormatError{MimeType: normalized, FileName: fileName}
	}
}

// Supported reports whether ExtractTextFromBytes would dispatch the pair to a reader.
func Supported(mimeType, fileName string) bool {
	normalized := normalizeMimeType(mimeType, fileName, nil)
	ext := strings.ToLower(filepath.Ext(fileName))
	return normalized == MimePDF || normalized == MimeDOCX || isTextType(normalized) || ext == ".md" || ext == ".txt"
}

func isTextType(mime string) bool {
	switch mime {
	case MimePlain, MimeMarkdown, MimeMarkdownX:
		return true
	default:
		return false
	}
}

func recordedTextType(normalized, ext string) string {
	switch {
	case normalized == MimePlain && ext == ".md":
		return MimeMarkdown
	case normalized == "" || normalized == mimeOctetStream:
		if ext == ".md" {
			return MimeMarkdown
		}
		return MimePlain
	default:
		return normalized
	}
}

func saveExtracted(ctx context.Context, store object.ObjectStore, key string, text string) error {
	_, err := store.SaveWithKey(ctx, key, extractedMimeType, strings.NewReader(text))
	return err
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	return stripDocxXML(doc.Editable().GetContent()), nil
}

// stripDocxXML keeps character data and turns paragraph and break ends into newlines.
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// decodeUTF8 mirrors a browser TextDecoder("utf-8"): a leading BOM is dropped
// and invalid sequences become U+FFFD.
func decodeUTF8(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != mimeZip && clean != mimeOctetStream && clean != "" {
		return clean
	}

	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".docx":
		return MimeDOCX
	case ".pdf":
		return MimePDF
	case ".odt":
		return MimeODT
	default:
		return clean
	}
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		switch name {
		case "word/document.xml":
			return MimeDOCX
		case "content.xml":
			return MimeODT
		}
	}
	return ""
}
