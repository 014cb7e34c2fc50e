package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MessageVersion is the payload version written by this build. Payloads
// without a version predate versioning and are read as version 1.
const MessageVersion = 1

var (
	ErrMissingField       = errors.New("message field missing")
	ErrUnsupportedVersion = errors.New("message version not supported")
)

// Message asks a worker to ingest a stored document into a profile.
type Message struct {
	DocumentID string `json:"documentId"`
	ProfileID  string `json:"profileId"`
	UserID     string `json:"userId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage stamps a message with the current version and enqueue time.
func NewMessage(documentID, profileID, userID, requestID string, now time.Time) Message {
	return Message{
		DocumentID: documentID,
		ProfileID:  profileID,
		UserID:     userID,
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// Validate reports the first missing id, or a version newer than this build
// understands.
func (m Message) Validate() error {
	if m.Version > MessageVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}
	for _, f := range []struct{ name, value string }{
		{"documentId", m.DocumentID},
		{"profileId", m.ProfileID},
		{"userId", m.UserID},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}

// Age is the time since the message was enqueued; zero when EnqueuedAt is
// absent or unparseable.
func (m Message) Age(now time.Time) time.Duration {
	at, err := time.Parse(time.RFC3339, m.EnqueuedAt)
	if err != nil {
		return 0
	}
	return now.Sub(at)
}

func EncodeMessage(msg Message) ([]byte, error) {
	if msg.Version == 0 {
		msg.Version = MessageVersion
	}
	return json.Marshal(msg)
}

func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Version == 0 {
		msg.Version = 1
	}
	return msg, nil
}
