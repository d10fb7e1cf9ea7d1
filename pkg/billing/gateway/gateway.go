// Package gateway is the boundary to the remote payment processor.
package gateway

import (
	"context"
	"fmt"

	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -package gateway -source gateway.go -destination gateway_mock.go

// Gateway performs processor round-trips on a customer aggregate. Every
// method updates the passed customer in place with what the processor
// returned, including the sync status of every entity it touched. On error
// the customer is in an undefined state and must be thrown away.
type Gateway interface {
	// Load replaces the customer's remote-owned data with the processor's.
	Load(ctx context.Context, c *models.Customer) error
	// Save creates NEW and updates CHANGED entities.
	Save(ctx context.Context, c *models.Customer) error
	CancelSubscription(ctx context.Context, c *models.Customer, subscriptionID string) error
	// RefundTransaction refunds amount of a sale and appends the credit
	// transaction.
	RefundTransaction(ctx context.Context, c *models.Customer, transactionID string, amount decimal.Decimal) error
}

var (
	ErrNotFound      = errors.New("not found in processor")
	ErrNotSynced     = errors.New("entity was never saved to processor")
	ErrDeclined      = errors.New("declined by processor")
	ErrNotRefundable = errors.New("transaction can't be refunded")
	ErrTerminal      = errors.New("entity is cancelled or failed")
)

// EntityError names the entity the processor rejected.
type EntityError struct {
	EntityID string
	Err      error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s: %s", e.EntityID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

func NewEntityError(entityID string, err error) error {
	return &EntityError{EntityID: entityID, Err: err}
}

// FailedEntity returns the id of the entity err was reported for, or "".
func FailedEntity(err error) string {
	for err != nil {
		if ee, ok := err.(*EntityError); ok {
			return ee.EntityID
		}

		causer, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = causer.Cause()
	}
	return ""
}

// IsNotFound reports whether err was caused by a missing remote entity.
func IsNotFound(err error) bool {
	return rootCause(err) == ErrNotFound
}

// IsRejected reports whether the processor refused the request itself, as
// opposed to a transport or availability failure. Repeating a rejected
// request unchanged fails again.
func IsRejected(err error) bool {
	switch rootCause(err) {
	case ErrDeclined, ErrNotRefundable:
		return true
	default:
		return false
	}
}

func rootCause(err error) error {
	for err != nil {
		switch e := err.(type) {
		case *EntityError:
			err = e.Err
		case interface{ Cause() error }:
			err = e.Cause()
		default:
			return err
		}
	}
	return nil
}
