package stripegw

import (
	"context"

	"github.com/golangci/golangci-billing/pkg/billing/gateway"
	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v82"
)

const subscriptionIDKey = "subscription_id"

func (g Gateway) CancelSubscription(ctx context.Context, c *models.Customer, subscriptionID string) error {
	s := c.SubscriptionByID(subscriptionID)
	switch {
	case s == nil:
		return gateway.NewEntityError(subscriptionID, gateway.ErrNotFound)
	case !s.Processor.HasID():
		return gateway.NewEntityError(subscriptionID, gateway.ErrNotSynced)
	case s.Processor.State().IsTerminal() || s.Status.IsTerminal():
		return gateway.NewEntityError(subscriptionID, gateway.ErrTerminal)
	}

	ss, err := g.subscriptions.Cancel(s.Processor.ID, &stripe.SubscriptionCancelParams{Params: params(ctx)})
	if err != nil {
		return wrapErr(err, s.ID, "can't cancel subscription")
	}

	applySubscription(s, ss)
	s.Status = models.SubscriptionCanceled
	s.Processor.MarkCancelled()
	return nil
}

func (g Gateway) RefundTransaction(ctx context.Context, c *models.Customer, transactionID string, amount decimal.Decimal) error {
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

	r, err := g.refunds.New(&stripe.RefundParams{
		Params: params(ctx),
		Charge: stripe.String(orig.Processor.ID),
		Amount: stripe.Int64(toMinor(amount)),
	})
	if err != nil {
		return wrapErr(err, orig.ID, "can't refund transaction")
	}

	credit, _ := models.NewTransaction(tx.Kind())
	b := credit.Base()
	b.ID = models.NewID()
	b.Processor = processor.SavedLink(r.ID)
	b.Type = models.TransactionCredit
	b.Status = refundStatus(r.Status)
	b.Amount = fromMinor(r.Amount)
	b.Currency = orig.Currency
	b.SubscriptionID = orig.SubscriptionID
	b.PaymentMethodID = orig.PaymentMethodID
	b.RefundedTransactionID = orig.ID
	b.CreatedAt = unixOrNow(r.Created)

	orig.RefundedAmount = orig.RefundedAmount.Add(b.Amount)
	c.Transactions = append(c.Transactions, credit)
	return nil
}

func refundStatus(s stripe.RefundStatus) models.TransactionStatus {
	switch s {
	case stripe.RefundStatusSucceeded:
		return models.TransactionSettled
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		return models.TransactionFailed
	default:
		return models.TransactionSubmitted
	}
}
