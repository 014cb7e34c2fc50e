package documents

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func seed(t *testing.T, repo *MemoryRepo, userID string, n int) []Document {
	t.Helper()
	base := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = Document{
			ID:        fmt.Sprintf("%s-doc-%d", userID, i),
			UserID:    userID,
			FileName:  fmt.Sprintf("cv-%d.txt", i),
			CreatedAt: base, // identical timestamps; order comes from upload order
		}
		if err := repo.Create(context.Background(), docs[i]); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	return docs
}

func TestMemoryRepoListNewestFirstWithPaging(t *testing.T) {
	repo := NewMemoryRepo()
	seed(t, repo, "user-1", 5)
	seed(t, repo, "user-2", 2)

	got, err := repo.ListByUser(context.Background(), "user-1", ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 2 || got[0].ID != "user-1-doc-3" || got[1].ID != "user-1-doc-2" {
		t.Fatalf("unexpected page %+v", got)
	}
	if got[0].Status != StatusUploaded {
		t.Fatalf("expected default status uploaded, got %q", got[0].Status)
	}

	none, err := repo.ListByUser(context.Background(), "nobody", ListFilter{})
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v %v", none, err)
	}
}

func TestMemoryRepoStatusTransitionsAndFilter(t *testing.T) {
	repo := NewMemoryRepo()
	docs := seed(t, repo, "user-1", 3)
	ctx := context.Background()
	at := time.Now().UTC()

	if err := repo.UpdateStatus(ctx, "user-1", docs[0].ID, Transition{Status: StatusFailed, ProfileID: "p1", FailureCode: "extraction_failed", At: at}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := repo.UpdateStatus(ctx, "user-1", docs[2].ID, Transition{Status: StatusQueued, ProfileID: "p1", At: at}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	failed, err := repo.ListByUser(ctx, "user-1", ListFilter{Status: StatusFailed})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(failed) != 1 || failed[0].FailureCode != "extraction_failed" || failed[0].ProfileID != "p1" {
		t.Fatalf("unexpected failed docs %+v", failed)
	}

	// A retry that succeeds clears the failure code and keeps the target.
	if err := repo.UpdateStatus(ctx, "user-1", docs[0].ID, Transition{Status: StatusIngested, At: at}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	doc, err := repo.GetByID(ctx, "user-1", docs[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.Status != StatusIngested || doc.FailureCode != "" || doc.ProfileID != "p1" {
		t.Fatalf("unexpected document after retry %+v", doc)
	}
}

func TestMemoryRepoScopesByOwner(t *testing.T) {
	repo := NewMemoryRepo()
	docs := seed(t, repo, "user-1", 1)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "user-2", docs[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, "user-2", docs[0].ID, Transition{Status: StatusQueued}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetCurrentByUser(ctx, "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"", "uploaded", "queued", "ingested", "failed"} {
		if _, ok := ParseStatus(raw); !ok {
			t.Fatalf("expected %q to parse", raw)
		}
	}
	if _, ok := ParseStatus("QUEUED"); ok {
		t.Fatalf("status names are lowercase")
	}
}
