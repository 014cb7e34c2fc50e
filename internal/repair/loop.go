package repair

import (
	"context"
	"errors"

	"profile-backend/internal/profile"
)

// Outcome is the terminal state of one validation run.
type Outcome string

const (
	OutcomeValid         Outcome = "valid"
	OutcomeRepairedValid Outcome = "repaired_valid"
	OutcomeRepairFailed  Outcome = "repair_failed"
)

// Repairer issues the single repair request.
type Repairer interface {
	Repair(ctx context.Context, raw string) (string, error)
}

// Loop validates model output and, on failure, asks Model for exactly one
// repair. It never retries beyond that.
type Loop struct {
	Model Repairer
}

// Result records what happened during Run.
type Result struct {
	Fragment        profile.Fragment
	Outcome         Outcome
	FirstRaw        string
	FinalRaw        string
	RepairAttempted bool
}

// Run validates raw. A *SchemaValidationError is returned when the repaired
// output is still invalid; a repair transport failure is returned as-is.
func (l *Loop) Run(ctx context.Context, raw string) (Result, error) {
	res := Result{FirstRaw: raw, FinalRaw: raw}

	frag, err := Validate(raw)
	if err == nil {
		res.Fragment = frag
		res.Outcome = OutcomeValid
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if l.Model == nil {
		res.Outcome = OutcomeRepairFailed
		return res, err
	}

	res.RepairAttempted = true
	repaired, callErr := l.Model.Repair(ctx, raw)
	if callErr != nil {
		res.Outcome = OutcomeRepairFailed
		return res, callErr
	}
	res.FinalRaw = repaired

	frag, err = Validate(repaired)
	if err != nil {
		res.Outcome = OutcomeRepairFailed
		sve := &SchemaValidationError{Raw: raw, Repaired: repaired, Err: err}
		var inner *SchemaValidationError
		if errors.As(err, &inner) {
			sve.Err = inner.Err
		}
		return res, sve
	}
	res.Fragment = frag
	res.Outcome = OutcomeRepairedValid
	return res, nil
}
