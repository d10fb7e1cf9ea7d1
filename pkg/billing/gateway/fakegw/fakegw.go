// Package fakegw is an in-memory payment processor for development and
// tests. It understands the usual sandbox nonces.
package fakegw

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golangci/golangci-billing/pkg/billing/gateway"
	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/golangci/golangci-billing/pkg/billing/pricing"
	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	NonceCreditCard = "fake-valid-nonce"
	NoncePayPal     = "fake-paypal-one-time-nonce"
	NonceApplePay   = "fake-apple-pay-visa-nonce"
	NonceAndroidPay = "fake-android-pay-visa-nonce"
	NonceDeclined   = "fake-processor-declined-visa-nonce"
)

type Gateway struct {
	mu       sync.Mutex
	seq      int
	remote   map[string]*models.Customer
	failNext error

	Now func() time.Time
}

var _ gateway.Gateway = &Gateway{}

func New() *Gateway {
	return &Gateway{
		remote: map[string]*models.Customer{},
		Now:    time.Now,
	}
}

// FailNext makes the next call return err without touching anything.
func (g *Gateway) FailNext(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = err
}

// Remote returns a copy of the processor's view of a customer.
func (g *Gateway) Remote(processorID string) *models.Customer {
	g.mu.Lock()
	defer g.mu.Unlock()

	rc := g.remote[processorID]
	if rc == nil {
		return nil
	}
	return rc.Clone()
}

func (g *Gateway) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.failNext; err != nil {
		g.failNext = nil
		return err
	}
	return nil
}

func (g *Gateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_%d", prefix, g.seq)
}

func (g *Gateway) Load(ctx context.Context, c *models.Customer) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin(ctx); err != nil {
		return err
	}

	rc := g.remote[c.Processor.ID]
	if rc == nil {
		return gateway.NewEntityError(c.ID, gateway.ErrNotFound)
	}

	version := c.Version
	*c = *rc.Clone()
	c.Version = version
	return nil
}

func (g *Gateway) Save(ctx context.Context, c *models.Customer) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin(ctx); err != nil {
		return err
	}

	if c.Processor.HasID() && g.remote[c.Processor.ID] == nil {
		return gateway.NewEntityError(c.ID, gateway.ErrNotFound)
	}

	// validate everything first: a rejected save changes nothing remotely
	for i, m := range c.PaymentMethods {
		if !m.Base().Processor.State().NeedsSync() || m.Base().Nonce == "" {
			continue
		}
		resolved, err := resolveNonce(m)
		if err != nil {
			return err
		}
		c.PaymentMethods[i] = resolved
	}

	if err := g.markSaved(&c.Processor, "cus"); err != nil {
		return err
	}
	for _, a := range c.Addresses {
		if err := g.markSaved(&a.Processor, "addr"); err != nil {
			return err
		}
	}
	for _, m := range c.PaymentMethods {
		m.Base().Nonce = ""
		if err := g.markSaved(&m.Base().Processor, "pm"); err != nil {
			return err
		}
	}
	for _, s := range c.Subscriptions {
		if err := g.saveSubscription(c, s); err != nil {
			return err
		}
	}
	for _, t := range c.Transactions {
		if err := confirmTransaction(t); err != nil {
			return err
		}
	}

	g.remote[c.Processor.ID] = c.Clone()
	return nil
}

func (g *Gateway) markSaved(l *processor.Link, prefix string) error {
	if !l.State().NeedsSync() {
		return nil
	}

	id := l.ID
	if id == "" {
		id = g.nextID(prefix)
	}
	return l.MarkSaved(id)
}

// confirmTransaction accepts a retried transaction back. Transactions are
// created by the processor only, so there is nothing to push.
func confirmTransaction(t models.Transaction) error {
	l := &t.Base().Processor
	if l.State() != processor.StatusChanged || !l.HasID() {
		return nil
	}
	return l.MarkSaved(l.ID)
}

func (g *Gateway) saveSubscription(c *models.Customer, s *models.Subscription) error {
	if !s.Processor.State().NeedsSync() {
		return nil
	}
	if c.PaymentMethodByID(s.PaymentMethodID) == nil {
		return gateway.NewEntityError(s.ID, errors.Wrapf(gateway.ErrDeclined, "no payment method %s", s.PaymentMethodID))
	}

	for _, d := range s.Discounts {
		if err := g.markSaved(&d.Base().Processor, "disc"); err != nil {
			return err
		}
	}

	isNew := !s.Processor.HasID()
	if err := g.markSaved(&s.Processor, "sub"); err != nil {
		return err
	}
	if !isNew {
		return nil
	}

	now := g.Now()
	s.Status = models.SubscriptionActive
	s.FirstBillingAt = now
	s.PaidThroughDate = now.AddDate(0, maxInt(s.Plan.BillingFrequency, 1), 0)

	amount := pricing.EffectivePrice(s)
	if amount.IsPositive() {
		g.charge(c, s, amount, now)
	}
	return nil
}

func (g *Gateway) charge(c *models.Customer, s *models.Subscription, amount decimal.Decimal, now time.Time) {
	pm := c.PaymentMethodByID(s.PaymentMethodID)
	tx, _ := models.NewTransaction(models.TransactionKindFor(pm.Kind()))

	b := tx.Base()
	b.ID = models.NewID()
	b.Processor = processor.SavedLink(g.nextID("tx"))
	b.Type = models.TransactionSale
	b.Status = models.TransactionSettled
	b.Amount = amount
	b.Currency = s.Plan.Currency
	b.SubscriptionID = s.ID
	b.PaymentMethodID = pm.Base().ID
	b.CreatedAt = now

	c.Transactions = append(c.Transactions, tx)
}

func (g *Gateway) CancelSubscription(ctx context.Context, c *models.Customer, subscriptionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin(ctx); err != nil {
		return err
	}

	s := c.SubscriptionByID(subscriptionID)
	if s == nil {
		return gateway.NewEntityError(subscriptionID, gateway.ErrNotFound)
	}
	if !s.Processor.HasID() {
		return gateway.NewEntityError(subscriptionID, gateway.ErrNotSynced)
	}
	if s.Processor.State().IsTerminal() || s.Status.IsTerminal() {
		return gateway.NewEntityError(subscriptionID, gateway.ErrTerminal)
	}

	s.Status = models.SubscriptionCanceled
	s.Processor.MarkCancelled()
	g.remote[c.Processor.ID] = c.Clone()
	return nil
}

func (g *Gateway) RefundTransaction(ctx context.Context, c *models.Customer, transactionID string, amount decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin(ctx); err != nil {
		return err
	}

	tx := c.TransactionByID(transactionID)
	if tx == nil {
		return gateway.NewEntityError(transactionID, gateway.ErrNotFound)
	}
	orig := tx.Base()
	if !orig.Processor.HasID() {
		return gateway.NewEntityError(transactionID, gateway.ErrNotSynced)
	}
	if !amount.IsPositive() || amount.GreaterThan(orig.Refundable()) {
		return gateway.NewEntityError(transactionID,
			errors.Wrapf(gateway.ErrNotRefundable, "%s of %s left", amount, orig.Refundable()))
	}

	credit, _ := models.NewTransaction(tx.Kind())
	b := credit.Base()
	b.ID = models.NewID()
	b.Processor = processor.SavedLink(g.nextID("re"))
	b.Type = models.TransactionCredit
	b.Status = models.TransactionSubmitted
	b.Amount = amount
	b.Currency = orig.Currency
	b.SubscriptionID = orig.SubscriptionID
	b.PaymentMethodID = orig.PaymentMethodID
	b.RefundedTransactionID = orig.ID
	b.CreatedAt = g.Now()

	orig.RefundedAmount = orig.RefundedAmount.Add(amount)
	c.Transactions = append(c.Transactions, credit)
	g.remote[c.Processor.ID] = c.Clone()
	return nil
}

func resolveNonce(m models.PaymentMethod) (models.PaymentMethod, error) {
	base := *m.Base()

	switch base.Nonce {
	case NonceCreditCard:
		return &models.CreditCard{PaymentMethodBase: base, CardType: "Visa", Last4: "1881",
			ExpirationMonth: "12", ExpirationYear: "2030"}, nil
	case NoncePayPal:
		return &models.PayPalAccount{PaymentMethodBase: base, Email: "payer@example.com"}, nil
	case NonceApplePay:
		return &models.ApplePayCard{PaymentMethodBase: base, CardType: "Apple Pay - Visa", Last4: "1881"}, nil
	case NonceAndroidPay:
		return &models.AndroidPayCard{PaymentMethodBase: base, SourceCardType: "Visa", SourceCardLast4: "1881"}, nil
	case NonceDeclined:
		return nil, gateway.NewEntityError(base.ID, gateway.ErrDeclined)
	default:
		return nil, gateway.NewEntityError(base.ID, errors.Wrapf(gateway.ErrDeclined, "unknown nonce %q", base.Nonce))
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
