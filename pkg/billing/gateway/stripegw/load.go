package stripegw

import (
	"context"
	"time"

	"github.com/golangci/golangci-billing/pkg/billing/gateway"
	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/golangci/golangci-billing/pkg/billing/processor"
	stripe "github.com/stripe/stripe-go/v82"
)

// Load replaces everything Stripe owns with Stripe's view. Entities that
// were never saved stay as they are: Stripe doesn't know them yet.
func (g Gateway) Load(ctx context.Context, c *models.Customer) error {
	if !c.Processor.HasID() {
		return gateway.NewEntityError(c.ID, gateway.ErrNotSynced)
	}

	sc, err := g.customers.Get(c.Processor.ID, &stripe.CustomerParams{Params: params(ctx)})
	if err != nil {
		return wrapErr(err, c.ID, "can't load customer")
	}
	if sc.Deleted {
		return gateway.NewEntityError(c.ID, gateway.ErrNotFound)
	}

	c.Name = sc.Name
	c.Email = sc.Email
	c.Phone = sc.Phone
	if ip := sc.Metadata["ip_address"]; ip != "" {
		c.IPAddress = ip
	}
	c.Processor = processor.SavedLink(sc.ID)

	if err = g.loadPaymentMethods(ctx, c); err != nil {
		return err
	}

	c.DefaultPaymentMethodID = ""
	if sc.InvoiceSettings != nil && sc.InvoiceSettings.DefaultPaymentMethod != nil {
		if pm := paymentMethodByProcessorID(c, sc.InvoiceSettings.DefaultPaymentMethod.ID); pm != nil {
			c.DefaultPaymentMethodID = pm.Base().ID
		}
	}

	if err = g.loadSubscriptions(ctx, c); err != nil {
		return err
	}
	return g.loadTransactions(ctx, c)
}

func (g Gateway) loadPaymentMethods(ctx context.Context, c *models.Customer) error {
	var ret []models.PaymentMethod

	it := g.methods.List(&stripe.PaymentMethodListParams{
		ListParams: stripe.ListParams{Context: ctx},
		Customer:   stripe.String(c.Processor.ID),
	})
	for it.Next() {
		spm := it.PaymentMethod()

		base := models.PaymentMethodBase{ID: models.NewID()}
		if local := paymentMethodByProcessorID(c, spm.ID); local != nil {
			base = *local.Base()
		}
		base.Nonce = ""
		base.Processor = processor.SavedLink(spm.ID)

		ret = append(ret, paymentMethodFromStripe(spm, base))
	}
	if err := it.Err(); err != nil {
		return wrapErr(err, c.ID, "can't list payment methods")
	}

	for _, m := range c.PaymentMethods {
		if !m.Base().Processor.HasID() {
			ret = append(ret, m)
		}
	}
	c.PaymentMethods = ret
	return nil
}

func (g Gateway) loadSubscriptions(ctx context.Context, c *models.Customer) error {
	var ret []*models.Subscription

	it := g.subscriptions.List(&stripe.SubscriptionListParams{
		ListParams: stripe.ListParams{Context: ctx},
		Customer:   stripe.String(c.Processor.ID),
		Status:     stripe.String("all"),
	})
	for it.Next() {
		ss := it.Subscription()

		s := subscriptionByProcessorID(c, ss.ID)
		if s == nil {
			s = &models.Subscription{ID: ss.Metadata[localIDKey]}
			if s.ID == "" {
				s.ID = models.NewID()
			}
		}

		applySubscription(s, ss)
		s.Processor = processor.SavedLink(ss.ID)
		if s.Status.IsTerminal() {
			s.Processor.MarkCancelled()
		}
		if ss.DefaultPaymentMethod != nil {
			if pm := paymentMethodByProcessorID(c, ss.DefaultPaymentMethod.ID); pm != nil {
				s.PaymentMethodID = pm.Base().ID
			}
		}

		ret = append(ret, s)
	}
	if err := it.Err(); err != nil {
		return wrapErr(err, c.ID, "can't list subscriptions")
	}

	for _, s := range c.Subscriptions {
		if !s.Processor.HasID() {
			ret = append(ret, s)
		}
	}
	c.Subscriptions = ret
	return nil
}

// loadTransactions refreshes sales from the customer's charges. Refund
// transactions are kept: Stripe reports them on the charge only.
func (g Gateway) loadTransactions(ctx context.Context, c *models.Customer) error {
	var sales []models.Transaction

	it := g.charges.List(&stripe.ChargeListParams{
		ListParams: stripe.ListParams{Context: ctx},
		Customer:   stripe.String(c.Processor.ID),
	})
	for it.Next() {
		ch := it.Charge()

		tx := transactionByProcessorID(c, ch.ID)
		if tx == nil {
			tx, _ = models.NewTransaction(transactionKind(ch))
			b := tx.Base()
			b.ID = models.NewID()
			b.Type = models.TransactionSale
			b.SubscriptionID = ch.Metadata[subscriptionIDKey]
			if pm := paymentMethodByProcessorID(c, ch.PaymentMethod); pm != nil {
				b.PaymentMethodID = pm.Base().ID
			}
		}

		b := tx.Base()
		b.Processor = processor.SavedLink(ch.ID)
		b.Status = transactionStatus(ch)
		b.Amount = fromMinor(ch.Amount)
		b.RefundedAmount = fromMinor(ch.AmountRefunded)
		b.Currency = currencyCode(ch.Currency)
		b.CreatedAt = time.Unix(ch.Created, 0).UTC()

		sales = append(sales, tx)
	}
	if err := it.Err(); err != nil {
		return wrapErr(err, c.ID, "can't list charges")
	}

	ret := sales
	for _, t := range c.Transactions {
		if t.Base().Type != models.TransactionSale {
			ret = append(ret, t)
		}
	}
	c.Transactions = ret
	return nil
}

func paymentMethodByProcessorID(c *models.Customer, id string) models.PaymentMethod {
	if id == "" {
		return nil
	}
	for _, m := range c.PaymentMethods {
		if m.Base().Processor.ID == id {
			return m
		}
	}
	return nil
}

func subscriptionByProcessorID(c *models.Customer, id string) *models.Subscription {
	for _, s := range c.Subscriptions {
		if s.Processor.ID == id {
			return s
		}
	}
	return nil
}

func transactionByProcessorID(c *models.Customer, id string) models.Transaction {
	for _, t := range c.Transactions {
		if t.Base().Processor.ID == id {
			return t
		}
	}
	return nil
}
