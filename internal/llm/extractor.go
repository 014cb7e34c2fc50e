package llm

import (
	"context"
	"errors"
	"strings"
)

// Kind distinguishes an uploaded document from a free-typed biography.
type Kind string

const (
	KindDocument  Kind = "document"
	KindBiography Kind = "biography"
)

// ParseKind accepts "document" or "biography" (case-insensitive).
func ParseKind(raw string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindDocument:
		return KindDocument, true
	case KindBiography:
		return KindBiography, true
	default:
		return "", false
	}
}

// ProfileExtractor turns plain text into the model's raw profile JSON and
// issues repair requests for malformed output.
type ProfileExtractor struct {
	model     Completer
	prompts   PromptSet
	maxTokens int
}

// NewProfileExtractor builds an extractor. maxTokens <= 0 uses the prompt set's limit.
func NewProfileExtractor(model Completer, prompts PromptSet, maxTokens int) *ProfileExtractor {
	if maxTokens <= 0 {
		maxTokens = prompts.MaxTokens
	}
	return &ProfileExtractor{model: model, prompts: prompts, maxTokens: maxTokens}
}

// PromptVersion reports which prompt set the extractor uses.
func (e *ProfileExtractor) PromptVersion() string {
	return e.prompts.Version
}

// ExtractProfile sends one extraction request and returns the response unmodified.
func (e *ProfileExtractor) ExtractProfile(ctx context.Context, text string, kind Kind) (string, error) {
	return e.call(ctx, Request{
		System:      e.systemPrompt(kind),
		User:        text,
		Temperature: e.prompts.Temperature,
		MaxTokens:   e.maxTokens,
	})
}

// Repair asks the model to reformat raw into valid profile JSON.
func (e *ProfileExtractor) Repair(ctx context.Context, raw string) (string, error) {
	return e.call(ctx, Request{
		System:      e.prompts.Repair,
		User:        raw,
		Temperature: e.prompts.Temperature,
		MaxTokens:   e.maxTokens,
	})
}

func (e *ProfileExtractor) systemPrompt(kind Kind) string {
	if kind == KindBiography && strings.TrimSpace(e.prompts.Biography) != "" {
		return e.prompts.Extraction + "\n\n" + e.prompts.Biography
	}
	return e.prompts.Extraction
}

func (e *ProfileExtractor) call(ctx context.Context, req Request) (string, error) {
	out, err := e.model.Complete(ctx, req)
	if err != nil {
		var invErr *InvocationError
		if errors.As(err, &invErr) {
			return "", err
		}
		return "", &InvocationError{Provider: providerName(e.model), Err: err}
	}
	return out, nil
}
