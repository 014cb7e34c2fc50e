package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile-backend/internal/llm"
	"profile-backend/internal/llm/openai"
	"profile-backend/internal/profiles"
	"profile-backend/internal/repair"
)

// scriptedModel answers extraction calls with extract(text) and repair calls
// with repair(raw). It counts every call.
type scriptedModel struct {
	mu       sync.Mutex
	extract  func(text string) (string, error)
	repair   func(raw string) (string, error)
	calls    int
	repairs  int
	lastKind llm.Kind
}

func (m *scriptedModel) ExtractProfile(ctx context.Context, text string, kind llm.Kind) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastKind = kind
	m.mu.Unlock()
	return m.extract(text)
}

func (m *scriptedModel) Repair(ctx context.Context, raw string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.repairs++
	m.mu.Unlock()
	if m.repair == nil {
		return "", errors.New("unexpected repair call")
	}
	return m.repair(raw)
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func constant(out string) func(string) (string, error) {
	return func(string) (string, error) { return out, nil }
}

func newProfiles() *profiles.Service {
	return &profiles.Service{Repo: profiles.NewMemoryRepo()}
}

func textInput(name, text string) Input {
	return Input{FileName: name, MimeType: "text/plain", Data: []byte(text), Kind: llm.KindDocument}
}

func TestParseValidOutput(t *testing.T) {
	model := &scriptedModel{extract: constant(`{"skills":["Go","SQL","Go"],"careerObjective":"Build things"}`)}
	p := &Pipeline{Model: model}

	out, err := p.Parse(context.Background(), textInput("cv.txt", "Jane Doe, Go engineer"))
	require.NoError(t, err)
	assert.Equal(t, repair.OutcomeValid, out.Outcome)
	assert.False(t, out.RepairAttempted)
	assert.Equal(t, []string{"Go", "SQL"}, out.Fragment.Skills)
	assert.Equal(t, "text/plain", out.MimeType)
	assert.Equal(t, 1, model.callCount())
}

func TestParseRepairsOnce(t *testing.T) {
	model := &scriptedModel{
		extract: constant("Sure! Here you go: {skills: [Go]}"),
		repair:  constant(`{"skills":["Go"]}`),
	}
	p := &Pipeline{Model: model}

	out, err := p.Parse(context.Background(), textInput("cv.txt", "Jane"))
	require.NoError(t, err)
	assert.Equal(t, repair.OutcomeRepairedValid, out.Outcome)
	assert.True(t, out.RepairAttempted)
	assert.Equal(t, 2, model.callCount())
}

func TestParseAlwaysMalformedStopsAfterOneRepair(t *testing.T) {
	model := &scriptedModel{
		extract: constant("no json here"),
		repair:  constant("still no json"),
	}
	p := &Pipeline{Model: model}

	_, err := p.Parse(context.Background(), textInput("cv.txt", "Jane"))
	require.Error(t, err)
	assert.Equal(t, 2, model.callCount(), "one extraction plus exactly one repair")

	f := Classify(err)
	assert.Equal(t, CodeSchemaValidationFailed, f.Code)
	assert.Equal(t, "still no json", f.Raw)
}

func TestParseTransportFailureIsModelUnavailable(t *testing.T) {
	model := &scriptedModel{extract: func(string) (string, error) {
		return "", &llm.InvocationError{Provider: "openai", Err: errors.New("connection refused")}
	}}
	p := &Pipeline{Model: model}

	_, err := p.Parse(context.Background(), textInput("cv.txt", "Jane"))
	assert.Equal(t, CodeModelUnavailable, Classify(err).Code)
	assert.Equal(t, 1, model.callCount(), "transport failures are not repaired")
}

// flakyCompleter fails its first call with a 503 and answers valid JSON after.
type flakyCompleter struct {
	mu    sync.Mutex
	calls int
}

func (f *flakyCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == 1 {
		return "", errors.New("openai http status 503: upstream overloaded")
	}
	return `{"skills":["Go"]}`, nil
}

func TestParseServerErrorIsNotRetried(t *testing.T) {
	completer := &flakyCompleter{}
	prompts, _ := llm.Prompts("")
	p := &Pipeline{Model: llm.NewProfileExtractor(completer, prompts, 0)}

	_, err := p.Parse(context.Background(), textInput("cv.txt", "Jane, Go engineer"))
	var invocation *llm.InvocationError
	require.ErrorAs(t, err, &invocation)
	assert.Equal(t, CodeModelUnavailable, Classify(err).Code)
	assert.Equal(t, 1, completer.calls)
}

func TestParseModelTimeoutIsModelUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client, err := openai.NewClient("key", "gpt-4o-mini", openai.WithBaseURL(srv.URL), openai.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	prompts, _ := llm.Prompts("")
	p := &Pipeline{Model: llm.NewProfileExtractor(client, prompts, 0)}

	_, err = p.Parse(context.Background(), textInput("cv.txt", "Jane"))
	f := Classify(err)
	assert.Equal(t, CodeModelUnavailable, f.Code)
	assert.Equal(t, http.StatusBadGateway, f.Status)

	svc := newProfiles()
	created, err := svc.Create(context.Background(), "user-1", "Main")
	require.NoError(t, err)
	batch := &Batch{Pipeline: &Pipeline{Model: p.Model, Profiles: svc}}
	res := batch.Run(context.Background(), "user-1", created.ID, []Input{textInput("cv.txt", "Jane")})
	require.Len(t, res.Files, 1)
	assert.Equal(t, StatusFailed, res.Files[0].Status)
	assert.Equal(t, CodeModelUnavailable, res.Files[0].Code)
}

func TestParseUnsupportedFormatSkipsModel(t *testing.T) {
	model := &scriptedModel{extract: constant("{}")}
	p := &Pipeline{Model: model}

	_, err := p.Parse(context.Background(), Input{FileName: "photo.png", MimeType: "image/png", Data: []byte("png")})
	assert.Equal(t, CodeUnsupportedFormat, Classify(err).Code)
	assert.Zero(t, model.callCount())
}

func TestParseBlankTextSkipsModel(t *testing.T) {
	model := &scriptedModel{extract: constant("{}")}
	p := &Pipeline{Model: model}

	_, err := p.Parse(context.Background(), textInput("blank.txt", "  \n\t"))
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Equal(t, CodeExtractionFailed, Classify(err).Code)
	assert.Zero(t, model.callCount())
}

func TestParseUsesTextWhenDataIsNil(t *testing.T) {
	var seen string
	model := &scriptedModel{extract: func(text string) (string, error) {
		seen = text
		return "{}", nil
	}}
	p := &Pipeline{Model: model}

	out, err := p.Parse(context.Background(), Input{FileName: "biography", Text: "I like Go.", Kind: llm.KindBiography})
	require.NoError(t, err)
	assert.Equal(t, "I like Go.", seen)
	assert.Equal(t, llm.KindBiography, model.lastKind)
	assert.Equal(t, "text/plain", out.MimeType)
}

func TestIngestMergesIntoProfile(t *testing.T) {
	svc := newProfiles()
	ctx := context.Background()
	created, err := svc.Create(ctx, "user-1", "Main")
	require.NoError(t, err)

	model := &scriptedModel{extract: constant(`{"skills":["Go"],"jobHistory":[{"company":"Acme","title":"Engineer"}]}`)}
	p := &Pipeline{Model: model, Profiles: svc}

	out, updated, err := p.Ingest(ctx, "user-1", created.ID, textInput("cv.txt", "Jane"))
	require.NoError(t, err)
	assert.Equal(t, repair.OutcomeValid, out.Outcome)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, []string{"Go"}, updated.Data.Skills)
	require.Len(t, updated.Data.JobHistory, 1)
	assert.NotEmpty(t, updated.Data.JobHistory[0].ID)
}

func TestIngestUnknownProfile(t *testing.T) {
	model := &scriptedModel{extract: constant(`{"skills":["Go"]}`)}
	p := &Pipeline{Model: model, Profiles: newProfiles()}

	_, _, err := p.Ingest(context.Background(), "user-1", "missing", textInput("cv.txt", "Jane"))
	assert.Equal(t, CodeProfileNotFound, Classify(err).Code)
}

func TestIngestWithoutWriter(t *testing.T) {
	model := &scriptedModel{extract: constant(`{}`)}
	p := &Pipeline{Model: model}

	_, _, err := p.Ingest(context.Background(), "user-1", "p", textInput("cv.txt", "Jane"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not configured"))
}
