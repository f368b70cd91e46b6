package pipeline

import (
	"context"

	"github.com/chartflow/chartflow/internal/dialect"
	"github.com/chartflow/chartflow/internal/patient"
	"github.com/chartflow/chartflow/internal/publish"
)

// State names a pipeline stage. Every run walks the states in order and
// every transition is observable through the stage callback.
type State string

const (
	StateIdle                 State = "idle"
	StateCapturing            State = "capturing"
	StateRecognizing          State = "recognizing"
	StateDetectingDialect     State = "detecting_dialect"
	StateExtracting           State = "extracting"
	StateNormalizing          State = "normalizing"
	StateValidating           State = "validating"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StatePublishing           State = "publishing"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
)

// StageCallback observes state transitions. It is called synchronously from
// the run loop, so it must be fast.
type StageCallback func(from, to State)

// Validation is the outcome of the record completeness check.
type Validation struct {
	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// RunResult is the terminal outcome of one pipeline run.
type RunResult struct {
	State       State             `json:"state"`
	Record      patient.Record    `json:"record"`
	Dialect     dialect.Detection `json:"dialect"`
	Validation  Validation        `json:"validation"`
	Publish     publish.Result    `json:"publish,omitempty"`
	FailedStage State             `json:"failed_stage,omitempty"`
	Err         error             `json:"-"`
}

// Confirmer supplies user corrections for incomplete records. Confirm
// receives the current record and the list of missing fields; it returns the
// corrected record and whether to proceed. Returning ok=false abandons the
// run without publishing.
type Confirmer interface {
	Confirm(ctx context.Context, rec patient.Record, missing []string) (patient.Record, bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, rec patient.Record, missing []string) (patient.Record, bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, rec patient.Record, missing []string) (patient.Record, bool, error) {
	return f(ctx, rec, missing)
}
