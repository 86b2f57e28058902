package app

import (
	"time"

	"github.com/google/uuid"
)

// Operation tracks one CLI command. Commands that write to the store mark
// it, which makes Close archive the database afterwards.
type Operation struct {
	ID         string // UUID, also written to every log line
	Name       string
	Parameters string
	StartedAt  time.Time
	Status     string // "success" or "error"
	wrote      bool
}

// NewOperation creates a new operation with a fresh id.
func NewOperation(name, parameters string) *Operation {
	return &Operation{
		ID:         uuid.NewString(),
		Name:       name,
		Parameters: parameters,
		StartedAt:  time.Now(),
		Status:     "success",
	}
}

// MarkWrite records that the operation may have written to the store.
func (op *Operation) MarkWrite() {
	op.wrote = true
}

// Wrote reports whether MarkWrite was called.
func (op *Operation) Wrote() bool {
	return op.wrote
}

// Fail marks the operation as failed when err is non-nil and returns err.
func (op *Operation) Fail(err error) error {
	if err != nil {
		op.Status = "error"
	}
	return err
}
