package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"profile-backend/internal/profiles"
	"profile-backend/internal/repair"
)

// Status is the per-file result of a batch.
type Status string

const (
	StatusOK        Status = "ok"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// FileResult reports what happened to one file. Raw holds the offending model
// output for schema failures and is meant for diagnostics only.
type FileResult struct {
	FileName string         `json:"fileName"`
	Status   Status         `json:"status"`
	MimeType string         `json:"mimeType,omitempty"`
	Outcome  repair.Outcome `json:"outcome,omitempty"`
	Code     string         `json:"code,omitempty"`
	Message  string         `json:"message,omitempty"`
	Raw      string         `json:"raw,omitempty"`
}

// BatchResult holds per-file results in input order and the profile after the
// last successful merge (nil when nothing was merged).
type BatchResult struct {
	Files   []FileResult
	Profile *profiles.Profile
}

// Batch ingests several files into one profile. A failed file never stops the
// others. With Concurrency <= 1 files run one at a time in order; otherwise
// parsing runs in parallel and merges are applied in input order.
// Cancellation is checked before each file starts.
type Batch struct {
	Pipeline    *Pipeline
	Concurrency int
}

// Run processes inputs for the profile.
func (b *Batch) Run(ctx context.Context, userId, profileID string, inputs []Input) BatchResult {
	if b.Concurrency <= 1 {
		return b.runSequential(ctx, userId, profileID, inputs)
	}
	return b.runParallel(ctx, userId, profileID, inputs)
}

func (b *Batch) runSequential(ctx context.Context, userId, profileID string, inputs []Input) BatchResult {
	var out BatchResult
	out.Files = make([]FileResult, len(inputs))
	for i, in := range inputs {
		if ctx.Err() != nil {
			out.Files[i] = cancelled(in)
			continue
		}
		parsed, updated, err := b.Pipeline.Ingest(ctx, userId, profileID, in)
		if err != nil {
			out.Files[i] = failed(in, err)
			continue
		}
		out.Files[i] = succeeded(in, parsed)
		out.Profile = &updated
	}
	return out
}

func (b *Batch) runParallel(ctx context.Context, userId, profileID string, inputs []Input) BatchResult {
	parsed := make([]Output, len(inputs))
	errs := make([]error, len(inputs))
	skipped := make([]bool, len(inputs))

	var g errgroup.Group
	g.SetLimit(b.Concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			if ctx.Err() != nil {
				skipped[i] = true
				return nil
			}
			parsed[i], errs[i] = b.Pipeline.Parse(ctx, in)
			return nil
		})
	}
	_ = g.Wait()

	var out BatchResult
	out.Files = make([]FileResult, len(inputs))
	for i, in := range inputs {
		switch {
		case skipped[i]:
			out.Files[i] = cancelled(in)
		case errs[i] != nil:
			out.Files[i] = failed(in, errs[i])
		default:
			updated, err := b.Pipeline.merge(ctx, userId, profileID, in, parsed[i])
			if err != nil {
				out.Files[i] = failed(in, err)
				continue
			}
			out.Files[i] = succeeded(in, parsed[i])
			out.Profile = &updated
		}
	}
	return out
}

func succeeded(in Input, o Output) FileResult {
	return FileResult{FileName: in.FileName, Status: StatusOK, MimeType: o.MimeType, Outcome: o.Outcome}
}

func failed(in Input, err error) FileResult {
	f := Classify(err)
	status := StatusFailed
	if f.Code == CodeCancelled {
		status = StatusCancelled
	}
	return FileResult{FileName: in.FileName, Status: status, MimeType: in.MimeType, Code: f.Code, Message: f.Message, Raw: f.Raw}
}

func cancelled(in Input) FileResult {
	return FileResult{FileName: in.FileName, Status: StatusCancelled, MimeType: in.MimeType, Code: CodeCancelled, Message: "Processing was cancelled."}
}
