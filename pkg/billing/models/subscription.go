package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "Active"
	SubscriptionPastDue  SubscriptionStatus = "Past Due"
	SubscriptionCanceled SubscriptionStatus = "Canceled"
	SubscriptionExpired  SubscriptionStatus = "Expired"
	SubscriptionPending  SubscriptionStatus = "Pending"
)

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionActive, SubscriptionPastDue, SubscriptionCanceled, SubscriptionExpired, SubscriptionPending:
		return true
	}
	return false
}

// IsTerminal reports whether the subscription can't be billed anymore.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionCanceled || s == SubscriptionExpired
}

type Subscription struct {
	ID        string         `json:"id"`
	Processor processor.Link `json:"processor"`

	Plan Plan `json:"plan"`
	// PaymentMethodID references a payment method of the owning customer
	// without owning it.
	PaymentMethodID string             `json:"paymentMethodId,omitempty"`
	Price           decimal.Decimal    `json:"price"`
	Status          SubscriptionStatus `json:"status"`
	PaidThroughDate time.Time          `json:"paidThroughDate"`
	FirstBillingAt  time.Time          `json:"firstBillingDate"`
	Descriptor      *Descriptor        `json:"descriptor,omitempty"`
	Discounts       []Discount         `json:"discounts"`
}

// Descriptor is what appears on the customer's card statement.
type Descriptor struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	URL   string `json:"url,omitempty"`
}

func (s *Subscription) GoString() string {
	return fmt.Sprintf("{ID: %s, Plan: %s, Status: %s, PaidThrough: %s, Processor: %#v}",
		s.ID, s.Plan.ProcessorID, s.Status, s.PaidThroughDate.Format(time.RFC3339), s.Processor)
}

// IsValidAt reports whether the subscription is paid through t.
func (s *Subscription) IsValidAt(t time.Time) bool {
	return !s.PaidThroughDate.Before(t)
}

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionActive
}

// DiscountByProcessorID finds a synced discount by its remote id.
func (s *Subscription) DiscountByProcessorID(id string) Discount {
	if id == "" {
		return nil
	}
	for _, d := range s.Discounts {
		if d.Base().Processor.ID == id {
			return d
		}
	}
	return nil
}

func (s *Subscription) Clone() *Subscription {
	c := *s
	if s.Descriptor != nil {
		d := *s.Descriptor
		c.Descriptor = &d
	}
	if s.Discounts != nil {
		c.Discounts = make([]Discount, 0, len(s.Discounts))
		for _, d := range s.Discounts {
			c.Discounts = append(c.Discounts, d.CloneDiscount())
		}
	}
	return &c
}

func (s Subscription) MarshalJSON() ([]byte, error) {
	discounts, err := marshalDiscounts(s.Discounts)
	if err != nil {
		return nil, errors.Wrapf(err, "subscription %s", s.ID)
	}

	type alias Subscription
	return json.Marshal(struct {
		alias
		Discounts []taggedValue `json:"discounts"`
	}{
		alias:     alias(s),
		Discounts: discounts,
	})
}

func (s *Subscription) UnmarshalJSON(data []byte) error {
	type alias Subscription
	aux := struct {
		*alias
		Discounts []taggedValue `json:"discounts"`
	}{
		alias: (*alias)(s),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	discounts, err := unmarshalDiscounts(aux.Discounts)
	if err != nil {
		return errors.Wrapf(err, "subscription %s", s.ID)
	}
	s.Discounts = discounts
	return nil
}
