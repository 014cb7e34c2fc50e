package queue

import (
	"errors"
	"testing"
	"time"
)

func TestMessageRoundTrip(t *testing.T) {
	now := time.Date(2026, time.January, 30, 22, 0, 0, 0, time.UTC)
	msg := NewMessage("doc-123", "profile-9", "guest:abc", "request-456", now)

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got != msg {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}
	if got.EnqueuedAt != "2026-01-30T22:00:00Z" {
		t.Fatalf("unexpected enqueuedAt %q", got.EnqueuedAt)
	}
	if age := got.Age(now.Add(90 * time.Second)); age != 90*time.Second {
		t.Fatalf("unexpected age %v", age)
	}
}

func TestDecodeUnversionedPayload(t *testing.T) {
	got, err := DecodeMessage([]byte(`{"documentId":"d","profileId":"p","userId":"u"}`))
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("expected legacy payload read as version 1, got %d", got.Version)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Age(time.Now()) != 0 {
		t.Fatalf("expected zero age without enqueuedAt")
	}
}

func TestMessageValidate(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		want error
	}{
		{"missing document", Message{ProfileID: "p", UserID: "u"}, ErrMissingField},
		{"blank profile", Message{DocumentID: "d", ProfileID: "  ", UserID: "u"}, ErrMissingField},
		{"missing user", Message{DocumentID: "d", ProfileID: "p"}, ErrMissingField},
		{"future version", Message{DocumentID: "d", ProfileID: "p", UserID: "u", Version: MessageVersion + 1}, ErrUnsupportedVersion},
	}
	for _, tc := range cases {
		if err := tc.msg.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}
