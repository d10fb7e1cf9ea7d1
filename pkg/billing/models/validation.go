package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var emailRe = regexp.MustCompile(`^([\w-.+]+@([\w-]+\.)+[\w-]{2,6})?$`)

// ValidationError is returned when a field of an entity is rejected before
// any gateway call is made.
type ValidationError struct {
	Field    string
	EntityID string
	Reason   string
}

func (e ValidationError) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s of %s: %s", e.Field, e.EntityID, e.Reason)
}

func (c *Customer) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", EntityID: c.ID, Reason: "required"}
	}
	c.Name = name
	return nil
}

// SetEmail stores the email trimmed and lowercased.
func (c *Customer) SetEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ValidationError{Field: "email", EntityID: c.ID, Reason: "required"}
	}
	if !emailRe.MatchString(email) {
		return ValidationError{Field: "email", EntityID: c.ID, Reason: fmt.Sprintf("%q is not an email", email)}
	}
	c.Email = email
	return nil
}

// SetDefaultPaymentMethod points the default at a method of the customer.
// An empty id clears it.
func (c *Customer) SetDefaultPaymentMethod(id string) error {
	if id != "" && c.PaymentMethodByID(id) == nil {
		return ValidationError{Field: "defaultPaymentMethodId", EntityID: c.ID, Reason: fmt.Sprintf("no payment method %s", id)}
	}
	c.DefaultPaymentMethodID = id
	return nil
}

// Validate checks the invariants of the whole aggregate.
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ValidationError{Field: "name", EntityID: c.ID, Reason: "required"}
	}
	if c.Email == "" || !emailRe.MatchString(c.Email) {
		return ValidationError{Field: "email", EntityID: c.ID, Reason: fmt.Sprintf("%q is not an email", c.Email)}
	}
	if c.DefaultPaymentMethodID != "" && c.PaymentMethodByID(c.DefaultPaymentMethodID) == nil {
		return ValidationError{Field: "defaultPaymentMethodId", EntityID: c.ID,
			Reason: fmt.Sprintf("no payment method %s", c.DefaultPaymentMethodID)}
	}

	for _, m := range c.PaymentMethods {
		b := m.Base()
		if b.BillingAddressID != "" && c.AddressByID(b.BillingAddressID) == nil {
			return ValidationError{Field: "billingAddressId", EntityID: b.ID,
				Reason: fmt.Sprintf("no address %s", b.BillingAddressID)}
		}
	}

	for _, s := range c.Subscriptions {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	for _, t := range c.Transactions {
		b := t.Base()
		if b.Amount.IsNegative() {
			return ValidationError{Field: "amount", EntityID: b.ID, Reason: "negative"}
		}
	}

	return nil
}

func (s *Subscription) Validate() error {
	if s.Price.IsNegative() {
		return ValidationError{Field: "price", EntityID: s.ID, Reason: "negative"}
	}
	if s.Status != "" && !s.Status.IsValid() {
		return ValidationError{Field: "status", EntityID: s.ID, Reason: fmt.Sprintf("unknown status %q", s.Status)}
	}
	for _, d := range s.Discounts {
		if err := validateDiscount(d, s.ID); err != nil {
			return err
		}
	}
	return nil
}

func validateDiscount(d Discount, subscriptionID string) error {
	if d.Base().NumberOfBillingCycles < 1 {
		return ValidationError{Field: "numberOfBillingCycles", EntityID: subscriptionID, Reason: "must be at least 1"}
	}

	var v decimal.Decimal
	switch d := d.(type) {
	case *AmountDiscount:
		v = d.Amount
	case *PercentDiscount:
		v = d.Percent
	case *InviterDiscount:
		v = d.Amount
	case *CouponAmount:
		v = d.Amount
	case *CouponPercent:
		v = d.Percent
	}
	if v.IsNegative() {
		return ValidationError{Field: string(d.Kind()), EntityID: subscriptionID, Reason: "negative"}
	}
	return nil
}
