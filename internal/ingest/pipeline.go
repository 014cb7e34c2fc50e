// Package ingest runs documents through extraction, AI extraction, the
// validation and repair loop, and the merge into a canonical profile.
package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"profile-backend/internal/extract"
	"profile-backend/internal/llm"
	"profile-backend/internal/profile"
	"profile-backend/internal/profiles"
	"profile-backend/internal/repair"
	"profile-backend/internal/shared/metrics"
	"profile-backend/internal/shared/telemetry"
)

// Model is the AI side of the pipeline. *llm.ProfileExtractor implements it.
type Model interface {
	ExtractProfile(ctx context.Context, text string, kind llm.Kind) (string, error)
	Repair(ctx context.Context, raw string) (string, error)
}

// ProfileWriter applies a validated fragment to a stored profile.
type ProfileWriter interface {
	ApplyFragment(ctx context.Context, userId, profileID string, fragment profile.Fragment) (profiles.Profile, error)
}

// Input is one document or biography. When Data is nil, Text is used as the
// already-extracted plain text.
type Input struct {
	FileName  string
	MimeType  string
	Data      []byte
	Text      string
	Kind      llm.Kind
	RequestID string
}

// Output is a validated fragment plus how it was obtained.
type Output struct {
	Fragment        profile.Fragment
	Outcome         repair.Outcome
	RepairAttempted bool
	MimeType        string
	Text            string
}

// Pipeline wires the stages together. Profiles may be nil for parse-only use.
type Pipeline struct {
	Model    Model
	Profiles ProfileWriter
}

// Parse extracts, asks the model and validates. The returned fragment is
// Merge({}, parsed) so its skills are de-duplicated. Nothing is persisted.
func (p *Pipeline) Parse(ctx context.Context, in Input) (Output, error) {
	start := time.Now()
	metrics.IncDocuments()

	out, err := p.parse(ctx, in)
	metrics.ObserveDurationMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		p.fail(in, "parse", err)
		return Output{}, err
	}
	return out, nil
}

// Ingest parses in and merges the fragment into the profile. The merge runs
// even if ctx is cancelled after the model answered, so a document is never
// half applied.
func (p *Pipeline) Ingest(ctx context.Context, userId, profileID string, in Input) (Output, profiles.Profile, error) {
	out, err := p.Parse(ctx, in)
	if err != nil {
		return Output{}, profiles.Profile{}, err
	}
	updated, err := p.merge(ctx, userId, profileID, in, out)
	if err != nil {
		return Output{}, profiles.Profile{}, err
	}
	return out, updated, nil
}

func (p *Pipeline) merge(ctx context.Context, userId, profileID string, in Input, out Output) (profiles.Profile, error) {
	if p.Profiles == nil {
		return profiles.Profile{}, errors.New("ingest: profile writer not configured")
	}
	start := time.Now()
	profile.AssignIDs(&out.Fragment)
	updated, err := p.Profiles.ApplyFragment(context.WithoutCancel(ctx), userId, profileID, out.Fragment)
	if err != nil {
		p.fail(in, "merge", err)
		return profiles.Profile{}, err
	}
	telemetry.Info("ingest.merge", map[string]any{
		"request_id":  in.RequestID,
		"document":    in.FileName,
		"profile_id":  profileID,
		"version":     updated.Version,
		"outcome":     string(out.Outcome),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return updated, nil
}

func (p *Pipeline) parse(ctx context.Context, in Input) (Output, error) {
	kind := in.Kind
	if kind == "" {
		kind = llm.KindDocument
	}

	text, mimeType, err := p.extract(ctx, in)
	if err != nil {
		return Output{}, err
	}

	start := time.Now()
	raw, err := p.Model.ExtractProfile(ctx, text, kind)
	telemetry.Info("ingest.model", map[string]any{
		"request_id":  in.RequestID,
		"document":    in.FileName,
		"kind":        string(kind),
		"ok":          err == nil,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		return Output{}, err
	}

	start = time.Now()
	loop := repair.Loop{Model: p.Model}
	res, err := loop.Run(ctx, raw)
	if res.RepairAttempted {
		metrics.IncRepairs()
		if res.Outcome == repair.OutcomeRepairFailed {
			metrics.IncRepairFailures()
		}
	}
	telemetry.Info("ingest.repair", map[string]any{
		"request_id":       in.RequestID,
		"document":         in.FileName,
		"outcome":          string(res.Outcome),
		"repair_attempted": res.RepairAttempted,
		"duration_ms":      time.Since(start).Milliseconds(),
	})
	if err != nil {
		return Output{}, err
	}

	return Output{
		Fragment:        profile.Merge(profile.Fragment{}, res.Fragment),
		Outcome:         res.Outcome,
		RepairAttempted: res.RepairAttempted,
		MimeType:        mimeType,
		Text:            text,
	}, nil
}

func (p *Pipeline) extract(ctx context.Context, in Input) (string, string, error) {
	start := time.Now()
	text, mimeType := in.Text, in.MimeType
	if in.Data != nil {
		res, err := extract.ExtractTextFromBytes(ctx, in.Data, in.MimeType, in.FileName)
		if err != nil {
			return "", "", err
		}
		text, mimeType = res.Text, res.MimeType
	}
	if mimeType == "" {
		mimeType = extract.MimePlain
	}
	telemetry.Info("ingest.extract", map[string]any{
		"request_id":  in.RequestID,
		"document":    in.FileName,
		"mime_type":   mimeType,
		"chars":       len(text),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if strings.TrimSpace(text) == "" {
		return "", "", ErrEmptyText
	}
	return text, mimeType, nil
}

func (p *Pipeline) fail(in Input, stage string, err error) {
	f := Classify(err)
	metrics.IncFailure(f.Code)
	fields := map[string]any{
		"request_id": in.RequestID,
		"document":   in.FileName,
		"mime_type":  in.MimeType,
		"stage":      stage,
		"code":       f.Code,
		"error":      err,
	}
	if f.Raw != "" {
		fields["raw_len"] = len(f.Raw)
	}
	telemetry.Error("ingest.failed", fields)
}
