package models

import (
	"sort"
	"time"

	"github.com/golangci/golangci-billing/pkg/billing/processor"
)

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// ValidSubscriptions returns the subscriptions paid through asOf, highest
// plan level first. Subscriptions of equal level keep their order.
func (c *Customer) ValidSubscriptions(asOf time.Time) []*Subscription {
	asOf = orNow(asOf)

	var ret []*Subscription
	for _, s := range c.Subscriptions {
		if s.IsValidAt(asOf) {
			ret = append(ret, s)
		}
	}

	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].Plan.Compare(ret[j].Plan) > 0
	})
	return ret
}

// ActiveSubscriptions returns the valid subscriptions in ACTIVE status.
func (c *Customer) ActiveSubscriptions(asOf time.Time) []*Subscription {
	var ret []*Subscription
	for _, s := range c.ValidSubscriptions(asOf) {
		if s.IsActive() {
			ret = append(ret, s)
		}
	}
	return ret
}

// Subscription returns the best valid subscription or nil.
func (c *Customer) Subscription(asOf time.Time) *Subscription {
	valid := c.ValidSubscriptions(asOf)
	if len(valid) == 0 {
		return nil
	}
	return valid[0]
}

func (c *Customer) ActiveSubscriptionForPlan(plan Plan, asOf time.Time) *Subscription {
	for _, s := range c.ActiveSubscriptions(asOf) {
		if s.Plan.ProcessorID == plan.ProcessorID {
			return s
		}
	}
	return nil
}

// ActiveSubscriptionLikePlan returns the best active subscription whose
// plan is at least as good as plan.
func (c *Customer) ActiveSubscriptionLikePlan(plan Plan, asOf time.Time) *Subscription {
	for _, s := range c.ActiveSubscriptions(asOf) {
		if s.Plan.IsAtLeast(plan) {
			return s
		}
	}
	return nil
}

// SubscribeToPlan adds a pending subscription to plan, paid with a new
// payment method created from nonce and billed to address. The payment
// method becomes the default. Nothing is sent to the gateway.
//
// The kind of the new payment method isn't known until the gateway resolves
// the nonce, so it's added as a *CreditCard placeholder that carries only the
// nonce. Gateway.Save replaces it with a payment method of the resolved kind
// under the same local id. Callers must not rely on the placeholder's kind
// or card fields before the customer is saved.
func (c *Customer) SubscribeToPlan(plan Plan, nonce string, address Address) (*Subscription, error) {
	if nonce == "" {
		return nil, ValidationError{Field: "nonce", EntityID: c.ID, Reason: "required"}
	}
	if plan.ProcessorID == "" {
		return nil, ValidationError{Field: "plan", EntityID: c.ID, Reason: "plan has no processor id"}
	}

	addr := address.Clone()
	addr.ID = NewID()
	addr.Processor = processor.NewLink()

	method := &CreditCard{
		PaymentMethodBase: PaymentMethodBase{
			ID:               NewID(),
			BillingAddressID: addr.ID,
			Processor:        processor.NewLink(),
			Nonce:            nonce,
		},
	}

	sub := &Subscription{
		ID:              NewID(),
		Processor:       processor.NewLink(),
		Plan:            plan,
		PaymentMethodID: method.ID,
		Price:           plan.Price,
		Status:          SubscriptionPending,
	}

	c.Addresses = append(c.Addresses, addr)
	c.PaymentMethods = append(c.PaymentMethods, method)
	c.Subscriptions = append(c.Subscriptions, sub)
	c.DefaultPaymentMethodID = method.ID

	return sub, nil
}
