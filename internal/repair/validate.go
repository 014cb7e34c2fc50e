// Package repair turns raw model output into a validated profile fragment,
// issuing at most one repair request when the output is malformed.
package repair

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"profile-backend/internal/profile"
)

// ErrNoJSONObject means the text contained no '{'...'}' span.
var ErrNoJSONObject = errors.New("no JSON object found")

// SchemaValidationError reports output that is not a valid profile fragment.
// Raw is the model text as received; Repaired is the repair response, if any.
type SchemaValidationError struct {
	Raw      string
	Repaired string
	Err      error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// Validate cleans raw, parses it strictly and checks it against the fragment
// schema. Unknown keys are ignored; wrong types are rejected. Validate is
// pure, so validating the same input twice yields the same fragment.
func Validate(raw string) (profile.Fragment, error) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return profile.Fragment{}, &SchemaValidationError{Raw: raw, Err: ErrNoJSONObject}
	}

	doc, err := decodeStrict(cleaned)
	if err != nil {
		return profile.Fragment{}, &SchemaValidationError{Raw: raw, Err: err}
	}

	schema, err := fragmentSchema()
	if err != nil {
		return profile.Fragment{}, fmt.Errorf("compile fragment schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return profile.Fragment{}, &SchemaValidationError{Raw: raw, Err: err}
	}

	var frag profile.Fragment
	if err := json.Unmarshal([]byte(cleaned), &frag); err != nil {
		return profile.Fragment{}, &SchemaValidationError{Raw: raw, Err: err}
	}
	return frag, nil
}

func decodeStrict(s string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("parse json: trailing data after object")
	}
	return doc, nil
}
