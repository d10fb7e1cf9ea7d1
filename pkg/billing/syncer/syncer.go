// Package syncer runs processor round-trips and commits their results.
package syncer

import (
	"context"

	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/billing/gateway"
	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/golangci/golangci-billing/pkg/billing/store"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	OpLoad      = "load"
	OpSave      = "save"
	OpCancel    = "cancel"
	OpRefund    = "refund"
	OpReconcile = "reconcile"
)

// Syncer makes one remote call and then one store commit per operation,
// strictly in that order. It works on a copy: the customer passed in is
// never modified, the synced customer is returned.
type Syncer struct {
	gw    gateway.Gateway
	store store.Store
	log   logutil.Log
}

func New(gw gateway.Gateway, st store.Store, log logutil.Log) *Syncer {
	return &Syncer{
		gw:    gw,
		store: st,
		log:   log,
	}
}

// Load replaces the customer's remote data with the processor's.
func (s Syncer) Load(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	return s.run(ctx, OpLoad, c, func(work *models.Customer) error {
		return s.gw.Load(ctx, work)
	})
}

// Save detects what changed since the last sync and pushes it.
func (s Syncer) Save(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return s.run(ctx, OpSave, c, func(work *models.Customer) error {
		return s.gw.Save(ctx, work.MarkChanged())
	})
}

func (s Syncer) CancelSubscription(ctx context.Context, c *models.Customer, subscriptionID string) (*models.Customer, error) {
	if c.SubscriptionByID(subscriptionID) == nil {
		return nil, models.ValidationError{Field: "subscriptionId", EntityID: subscriptionID, Reason: "no such subscription"}
	}

	return s.run(ctx, OpCancel, c, func(work *models.Customer) error {
		return s.gw.CancelSubscription(ctx, work, subscriptionID)
	})
}

func (s Syncer) RefundTransaction(ctx context.Context, c *models.Customer, transactionID string,
	amount decimal.Decimal) (*models.Customer, error) {

	if c.TransactionByID(transactionID) == nil {
		return nil, models.ValidationError{Field: "transactionId", EntityID: transactionID, Reason: "no such transaction"}
	}
	if !amount.IsPositive() {
		return nil, models.ValidationError{Field: "amount", EntityID: transactionID, Reason: "must be positive"}
	}

	return s.run(ctx, OpRefund, c, func(work *models.Customer) error {
		return s.gw.RefundTransaction(ctx, work, transactionID, amount)
	})
}

// Reconcile reloads the latest stored customer from the processor and
// stores the result. It's the recovery path after a PersistenceError or a
// ConflictError and is safe to repeat.
func (s Syncer) Reconcile(ctx context.Context, customerID string) (*models.Customer, error) {
	latest, err := s.store.Get(ctx, customerID)
	if err != nil {
		return nil, errors.Wrapf(err, "can't get customer %s to reconcile", customerID)
	}

	return s.run(ctx, OpReconcile, latest, func(work *models.Customer) error {
		return s.gw.Load(ctx, work)
	})
}

func (s Syncer) run(ctx context.Context, op string, c *models.Customer, call func(work *models.Customer) error) (*models.Customer, error) {
	log := logutil.WrapLogWithContext(s.log, logutil.Context{
		"op":       op,
		"customer": c.ID,
		"version":  c.Version,
	})

	work := c.Clone()
	if err := call(work); err != nil {
		entityID := gateway.FailedEntity(err)
		if entityID == "" {
			entityID = c.ID
		}
		log.Warnf("Processor rejected %s: %s", entityID, err)
		return nil, &ProcessorError{Op: op, EntityID: entityID, Partial: work, Err: err}
	}

	expected := work.Version
	if err := s.store.Save(ctx, work); err != nil {
		if errors.Cause(err) == store.ErrConflict {
			log.Warnf("Customer was changed in parallel, reconcile is needed: %s", err)
			return nil, &ConflictError{Op: op, CustomerID: c.ID, Expected: expected, Customer: work, Err: err}
		}

		log.Errorf("Can't store synced customer, reconcile is needed: %s", err)
		return nil, &PersistenceError{Op: op, CustomerID: c.ID, Customer: work, Err: err}
	}

	work.MarkSynced()
	log.Infof("Synced customer %#v", work)
	return work, nil
}
