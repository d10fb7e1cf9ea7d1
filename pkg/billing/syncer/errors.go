package syncer

import (
	"fmt"

	"github.com/golangci/golangci-billing/pkg/billing/models"
)

// ProcessorError is returned when the gateway round-trip failed. Nothing was
// stored and the caller's customer is untouched.
type ProcessorError struct {
	Op string
	// EntityID is the id of the entity the processor rejected, the customer
	// id when the processor didn't name one.
	EntityID string
	// Partial is the customer as far as the call got before failing: entities
	// the processor created on the way carry their remote ids. It's for
	// inspection and logging only and must not be stored or synced.
	Partial *models.Customer
	Err     error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor %s of %s failed: %s", e.Op, e.EntityID, e.Err)
}

func (e *ProcessorError) Cause() error  { return e.Err }
func (e *ProcessorError) Unwrap() error { return e.Err }

// PersistenceError is returned when the processor accepted the operation but
// the result couldn't be stored. Customer holds the processor's view; run
// Reconcile to bring the store up to date.
type PersistenceError struct {
	Op         string
	CustomerID string
	Customer   *models.Customer
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("can't store customer %s after %s: %s", e.CustomerID, e.Op, e.Err)
}

func (e *PersistenceError) Cause() error  { return e.Err }
func (e *PersistenceError) Unwrap() error { return e.Err }

// ConflictError is returned when the stored customer was changed by someone
// else between read and commit. The processor call already happened.
type ConflictError struct {
	Op         string
	CustomerID string
	Expected   int64
	Customer   *models.Customer
	Err        error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("customer %s changed in parallel during %s: expected version %d", e.CustomerID, e.Op, e.Expected)
}

func (e *ConflictError) Cause() error  { return e.Err }
func (e *ConflictError) Unwrap() error { return e.Err }
