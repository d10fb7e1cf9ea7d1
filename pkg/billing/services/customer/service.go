// Package customer is the application layer over customer billing: it
// loads the stored customer, applies a change and syncs it.
package customer

import (
	"context"
	"time"

	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/billing/analytics"
	"github.com/golangci/golangci-billing/pkg/billing/gateway"
	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/golangci/golangci-billing/pkg/billing/plans"
	"github.com/golangci/golangci-billing/pkg/billing/pricing"
	"github.com/golangci/golangci-billing/pkg/billing/store"
	"github.com/golangci/golangci-billing/pkg/billing/syncer"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrAlreadySubscribed = errors.New("customer already has an equal or better active plan")

type SubscribePayload struct {
	PlanID  string
	Nonce   string
	Address models.Address
}

func (p SubscribePayload) FillLogContext(lctx logutil.Context) {
	lctx["plan"] = p.PlanID
	if p.Address.CountryCodeAlpha2 != "" {
		lctx["country"] = p.Address.CountryCodeAlpha2
	}
}

type RefundPayload struct {
	TransactionID string
	Amount        decimal.Decimal
}

func (p RefundPayload) FillLogContext(lctx logutil.Context) {
	lctx["transaction"] = p.TransactionID
	lctx["amount"] = p.Amount.String()
}

type Service interface {
	Create(ctx context.Context, name, email string) (*models.Customer, error)
	Subscribe(ctx context.Context, customerID string, payload *SubscribePayload) (*models.Customer, *models.Subscription, error)
	Cancel(ctx context.Context, customerID, subscriptionID string) (*models.Customer, error)
	Refund(ctx context.Context, customerID string, payload *RefundPayload) (*models.Customer, error)

	// Refresh pulls the processor's view of the customer.
	Refresh(ctx context.Context, customerID string) (*models.Customer, error)

	// Reconcile repairs the stored customer after a failed commit.
	Reconcile(ctx context.Context, customerID string) (*models.Customer, error)

	// Retry sends an entity the processor rejected to it again.
	Retry(ctx context.Context, customerID, entityID string) (*models.Customer, error)
}

func Configure(s *syncer.Syncer, st store.Store, catalog plans.Catalog, tracker analytics.Tracker, log logutil.Log) Service {
	return &basicService{
		Syncer:  s,
		Store:   st,
		Catalog: catalog,
		Tracker: tracker,
		Log:     log,
	}
}

type basicService struct {
	Syncer  *syncer.Syncer
	Store   store.Store
	Catalog plans.Catalog
	Tracker analytics.Tracker
	Log     logutil.Log
}

func (s *basicService) log(customerID string, fillers ...logutil.ContextFiller) logutil.Log {
	lctx := logutil.Context{"customer": customerID}
	for _, f := range fillers {
		f.FillLogContext(lctx)
	}
	return logutil.WrapLogWithContext(s.Log, lctx)
}

func (s *basicService) Create(ctx context.Context, name, email string) (*models.Customer, error) {
	c, err := models.NewCustomer(name, email)
	if err != nil {
		return nil, err
	}

	saved, err := s.Syncer.Save(ctx, c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create customer")
	}

	s.log(saved.ID).Infof("Created customer")
	return saved, nil
}

func (s *basicService) Subscribe(ctx context.Context, customerID string, payload *SubscribePayload) (*models.Customer, *models.Subscription, error) {
	log := s.log(customerID, payload)

	plan, err := s.Catalog.Get(ctx, payload.PlanID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to get plan %s", payload.PlanID)
	}

	c, err := s.Store.Get(ctx, customerID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get customer")
	}

	if active := c.ActiveSubscriptionLikePlan(*plan, time.Time{}); active != nil {
		log.Infof("Refusing to subscribe: subscription %s on plan %s is active", active.ID, active.Plan.ProcessorID)
		return nil, nil, errors.Wrapf(ErrAlreadySubscribed, "subscription %s", active.ID)
	}

	stored := c.Clone()
	sub, err := c.SubscribeToPlan(*plan, payload.Nonce, payload.Address)
	if err != nil {
		return nil, nil, err
	}

	saved, err := s.Syncer.Save(ctx, c)
	if err != nil {
		s.keepFailure(ctx, stored, err, log)
		return nil, nil, errors.Wrapf(err, "failed to subscribe to plan %s", plan.ProcessorID)
	}

	savedSub := saved.SubscriptionByID(sub.ID)
	if savedSub == nil {
		return nil, nil, errors.Errorf("subscription %s is missing after save", sub.ID)
	}

	s.Tracker.Track(ctx, saved.ID, analytics.EventSubscribed, map[string]interface{}{
		"plan":     plan.ProcessorID,
		"price":    pricing.EffectivePrice(savedSub).String(),
		"currency": plan.Currency,
	})
	log.Infof("Subscribed with subscription %s", savedSub.ID)
	return saved, savedSub, nil
}

func (s *basicService) Cancel(ctx context.Context, customerID, subscriptionID string) (*models.Customer, error) {
	c, err := s.Store.Get(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get customer")
	}

	saved, err := s.Syncer.CancelSubscription(ctx, c, subscriptionID)
	if err != nil {
		s.keepFailure(ctx, c, err, s.log(customerID))
		return nil, errors.Wrapf(err, "failed to cancel subscription %s", subscriptionID)
	}

	sub := saved.SubscriptionByID(subscriptionID)
	s.Tracker.Track(ctx, saved.ID, analytics.EventSubscriptionCanceled, map[string]interface{}{
		"plan": sub.Plan.ProcessorID,
	})
	s.log(customerID).Infof("Canceled subscription %s", subscriptionID)
	return saved, nil
}

func (s *basicService) Refund(ctx context.Context, customerID string, payload *RefundPayload) (*models.Customer, error) {
	c, err := s.Store.Get(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get customer")
	}

	saved, err := s.Syncer.RefundTransaction(ctx, c, payload.TransactionID, payload.Amount)
	if err != nil {
		s.keepFailure(ctx, c, err, s.log(customerID, payload))
		return nil, errors.Wrapf(err, "failed to refund transaction %s", payload.TransactionID)
	}

	s.Tracker.Track(ctx, saved.ID, analytics.EventTransactionRefunded, map[string]interface{}{
		"amount": payload.Amount.String(),
	})
	s.log(customerID, payload).Infof("Refunded")
	return saved, nil
}

func (s *basicService) Refresh(ctx context.Context, customerID string) (*models.Customer, error) {
	c, err := s.Store.Get(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get customer")
	}

	return s.Syncer.Load(ctx, c)
}

func (s *basicService) Reconcile(ctx context.Context, customerID string) (*models.Customer, error) {
	return s.Syncer.Reconcile(ctx, customerID)
}

func (s *basicService) Retry(ctx context.Context, customerID, entityID string) (*models.Customer, error) {
	c, err := s.Store.Get(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get customer")
	}

	if err = c.RetryFailed(entityID); err != nil {
		return nil, err
	}

	saved, err := s.Syncer.Save(ctx, c)
	if err != nil {
		s.keepFailure(ctx, c, err, s.log(customerID))
		return nil, errors.Wrapf(err, "failed to retry %s", entityID)
	}

	s.log(customerID).Infof("Retried %s", entityID)
	return saved, nil
}

// keepFailure records the entity the processor rejected as FAILED in the
// stored customer. Nothing was changed remotely, so only the store is
// written. Transport errors leave the stored customer alone.
func (s *basicService) keepFailure(ctx context.Context, stored *models.Customer, err error, log logutil.Log) {
	var perr *syncer.ProcessorError
	if !errors.As(err, &perr) || !gateway.IsRejected(perr.Err) {
		return
	}

	entityID := gateway.FailedEntity(perr.Err)
	if !stored.MarkFailed(entityID) {
		return
	}

	if err := s.Store.Save(ctx, stored); err != nil {
		log.Warnf("Can't store rejection of %s: %s", entityID, err)
		return
	}
	log.Infof("Processor rejected %s, marked it as failed", entityID)
}
