package models

import (
	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
)

// snapshot is the aggregate as the gateway and the store last agreed on it.
// It's never mutated after creation.
type snapshot struct {
	customer *Customer
}

var trackedOpts = cmp.Options{
	// sync status is the tracker's output, not its input
	cmpopts.IgnoreTypes(processor.Link{}),
	cmpopts.EquateEmpty(),
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
}

var subscriptionOpts = cmp.Options{
	trackedOpts,
	cmpopts.IgnoreFields(Subscription{}, "Discounts"),
}

// MarkSynced records the current state as the last synced one. The store
// calls it after every load and commit.
func (c *Customer) MarkSynced() {
	s := c.Clone()
	s.synced = nil
	c.synced = &snapshot{customer: s}
}

// IsSynced reports whether the customer has a last-synced state to compare
// against.
func (c *Customer) IsSynced() bool {
	return c.synced != nil
}

// MarkChanged walks the aggregate and moves every entity with a remote id
// whose tracked data or position differs from the last synced state to
// CHANGED. A changed discount also changes its subscription. Cancelled and
// failed entities are left alone.
func (c *Customer) MarkChanged() *Customer {
	var prev *Customer
	if c.synced != nil {
		prev = c.synced.customer
	}

	if prev == nil || customerFieldsChanged(c, prev) {
		markChanged(&c.Processor)
	}

	var prevAddresses []*Address
	var prevMethods []PaymentMethod
	var prevSubscriptions []*Subscription
	if prev != nil {
		prevAddresses = prev.Addresses
		prevMethods = prev.PaymentMethods
		prevSubscriptions = prev.Subscriptions
	}

	for i, a := range c.Addresses {
		j, old := findAddress(prevAddresses, a)
		if old == nil || i != j || !cmp.Equal(a, old, trackedOpts) {
			markChanged(&a.Processor)
		}
	}

	for i, m := range c.PaymentMethods {
		j, old := findPaymentMethod(prevMethods, m)
		if old == nil || i != j || !cmp.Equal(m, old, trackedOpts) {
			markChanged(&m.Base().Processor)
		}
	}

	for i, s := range c.Subscriptions {
		j, old := findSubscription(prevSubscriptions, s)
		changed := old == nil || i != j || !cmp.Equal(s, old, subscriptionOpts)
		if markDiscountsChanged(s, old) {
			changed = true
		}
		if changed {
			markChanged(&s.Processor)
		}
	}

	return c
}

func customerFieldsChanged(c, prev *Customer) bool {
	return c.Name != prev.Name ||
		c.Email != prev.Email ||
		c.Phone != prev.Phone ||
		c.IPAddress != prev.IPAddress ||
		c.DefaultPaymentMethodID != prev.DefaultPaymentMethodID
}

// markDiscountsChanged marks changed discounts of s and reports whether the
// discount list differs from the one of old at all.
func markDiscountsChanged(s, old *Subscription) bool {
	var prev []Discount
	if old != nil {
		prev = old.Discounts
	}

	anyChanged := len(s.Discounts) != len(prev)
	for i, d := range s.Discounts {
		var match Discount
		if id := d.Base().Processor.ID; id != "" && old != nil {
			match = old.DiscountByProcessorID(id)
		} else if i < len(prev) && !prev[i].Base().Processor.HasID() {
			match = prev[i]
		}

		if match == nil || !cmp.Equal(d, match, trackedOpts) {
			markChanged(&d.Base().Processor)
			anyChanged = true
		}
	}
	return anyChanged
}

func markChanged(l *processor.Link) {
	if l.State().IsTerminal() {
		return
	}
	l.MarkChanged()
}

func trackingKey(localID string, l processor.Link) string {
	if localID != "" {
		return localID
	}
	if l.HasID() {
		return "processor:" + l.ID
	}
	return ""
}

func findAddress(list []*Address, a *Address) (int, *Address) {
	key := trackingKey(a.ID, a.Processor)
	if key == "" {
		return -1, nil
	}
	for i, o := range list {
		if trackingKey(o.ID, o.Processor) == key {
			return i, o
		}
	}
	return -1, nil
}

func findPaymentMethod(list []PaymentMethod, m PaymentMethod) (int, PaymentMethod) {
	key := trackingKey(m.Base().ID, m.Base().Processor)
	if key == "" {
		return -1, nil
	}
	for i, o := range list {
		if trackingKey(o.Base().ID, o.Base().Processor) == key {
			return i, o
		}
	}
	return -1, nil
}

func findSubscription(list []*Subscription, s *Subscription) (int, *Subscription) {
	key := trackingKey(s.ID, s.Processor)
	if key == "" {
		return -1, nil
	}
	for i, o := range list {
		if trackingKey(o.ID, o.Processor) == key {
			return i, o
		}
	}
	return -1, nil
}
