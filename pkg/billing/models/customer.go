package models

import (
	"encoding/json"
	"fmt"

	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// Customer is the aggregate root: everything it embeds is loaded, synced
// with the gateway and stored as one unit.
type Customer struct {
	ID        string         `json:"id"`
	Processor processor.Link `json:"processor"`
	// Version is bumped by the store on every commit.
	Version int64 `json:"version"`

	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`

	Addresses              []*Address      `json:"addresses"`
	PaymentMethods         []PaymentMethod `json:"paymentMethods"`
	DefaultPaymentMethodID string          `json:"defaultPaymentMethodId,omitempty"`
	Subscriptions          []*Subscription `json:"subscriptions"`
	Transactions           []Transaction   `json:"transactions"`

	synced *snapshot
}

// NewCustomer validates the contact fields and returns a customer that was
// never synced.
func NewCustomer(name, email string) (*Customer, error) {
	c := &Customer{
		ID:        NewID(),
		Processor: processor.NewLink(),
	}
	if err := c.SetName(name); err != nil {
		return nil, err
	}
	if err := c.SetEmail(email); err != nil {
		return nil, err
	}
	return c, nil
}

func NewID() string {
	return uuid.NewV4().String()
}

func (c *Customer) GoString() string {
	return fmt.Sprintf("{ID: %s, Version: %d, Processor: %#v, Subscriptions: %d, PaymentMethods: %d}",
		c.ID, c.Version, c.Processor, len(c.Subscriptions), len(c.PaymentMethods))
}

func (c *Customer) AddressByID(id string) *Address {
	for _, a := range c.Addresses {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (c *Customer) PaymentMethodByID(id string) PaymentMethod {
	for _, m := range c.PaymentMethods {
		if m.Base().ID == id {
			return m
		}
	}
	return nil
}

func (c *Customer) DefaultPaymentMethod() PaymentMethod {
	if c.DefaultPaymentMethodID == "" {
		return nil
	}
	return c.PaymentMethodByID(c.DefaultPaymentMethodID)
}

func (c *Customer) SubscriptionByID(id string) *Subscription {
	for _, s := range c.Subscriptions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (c *Customer) TransactionByID(id string) Transaction {
	for _, t := range c.Transactions {
		if t.Base().ID == id {
			return t
		}
	}
	return nil
}

// MarkFailed moves the entity with the given local or remote id to FAILED.
// It's used after a gateway rejection named that entity.
func (c *Customer) MarkFailed(entityID string) bool {
	l := c.findLink(entityID)
	if l == nil {
		return false
	}
	l.MarkFailed()
	return true
}

// RetryFailed puts a FAILED entity back into the sync cycle: the next save
// sends it to the gateway again.
func (c *Customer) RetryFailed(entityID string) error {
	l := c.findLink(entityID)
	if l == nil {
		return ValidationError{Field: "entityId", EntityID: entityID, Reason: "no such entity"}
	}
	if err := l.Retry(); err != nil {
		return ValidationError{Field: "entityId", EntityID: entityID, Reason: err.Error()}
	}
	return nil
}

// findLink returns the link of the entity with the given local or remote id.
// Discounts have no local id and are matched by remote id only.
func (c *Customer) findLink(entityID string) *processor.Link {
	if entityID == "" {
		return nil
	}

	matches := func(localID string, l *processor.Link) bool {
		return localID == entityID || l.ID == entityID
	}

	if matches(c.ID, &c.Processor) {
		return &c.Processor
	}
	for _, a := range c.Addresses {
		if matches(a.ID, &a.Processor) {
			return &a.Processor
		}
	}
	for _, m := range c.PaymentMethods {
		if matches(m.Base().ID, &m.Base().Processor) {
			return &m.Base().Processor
		}
	}
	for _, s := range c.Subscriptions {
		if matches(s.ID, &s.Processor) {
			return &s.Processor
		}
		for _, d := range s.Discounts {
			if matches("", &d.Base().Processor) {
				return &d.Base().Processor
			}
		}
	}
	for _, t := range c.Transactions {
		if matches(t.Base().ID, &t.Base().Processor) {
			return &t.Base().Processor
		}
	}
	return nil
}

// Clone returns a deep copy. The last-synced snapshot is shared: snapshots
// are never mutated.
func (c *Customer) Clone() *Customer {
	ret := *c

	if c.Addresses != nil {
		ret.Addresses = make([]*Address, 0, len(c.Addresses))
		for _, a := range c.Addresses {
			ret.Addresses = append(ret.Addresses, a.Clone())
		}
	}
	if c.PaymentMethods != nil {
		ret.PaymentMethods = make([]PaymentMethod, 0, len(c.PaymentMethods))
		for _, m := range c.PaymentMethods {
			ret.PaymentMethods = append(ret.PaymentMethods, m.ClonePaymentMethod())
		}
	}
	if c.Subscriptions != nil {
		ret.Subscriptions = make([]*Subscription, 0, len(c.Subscriptions))
		for _, s := range c.Subscriptions {
			ret.Subscriptions = append(ret.Subscriptions, s.Clone())
		}
	}
	if c.Transactions != nil {
		ret.Transactions = make([]Transaction, 0, len(c.Transactions))
		for _, t := range c.Transactions {
			ret.Transactions = append(ret.Transactions, t.CloneTransaction())
		}
	}

	return &ret
}

type storedCustomer struct {
	customerAlias
	PaymentMethods []taggedValue `json:"paymentMethods"`
	Transactions   []taggedValue `json:"transactions"`
}

type customerAlias Customer

func (c Customer) MarshalJSON() ([]byte, error) {
	methods, err := marshalPaymentMethods(c.PaymentMethods)
	if err != nil {
		return nil, errors.Wrapf(err, "customer %s", c.ID)
	}
	txs, err := marshalTransactions(c.Transactions)
	if err != nil {
		return nil, errors.Wrapf(err, "customer %s", c.ID)
	}

	return json.Marshal(storedCustomer{
		customerAlias:  customerAlias(c),
		PaymentMethods: methods,
		Transactions:   txs,
	})
}

// UnmarshalJSON decodes a stored customer. The decoded state is what the
// change tracker compares against afterwards.
func (c *Customer) UnmarshalJSON(data []byte) error {
	var sc storedCustomer
	if err := json.Unmarshal(data, &sc); err != nil {
		return err
	}

	methods, err := unmarshalPaymentMethods(sc.PaymentMethods)
	if err != nil {
		return errors.Wrapf(err, "customer %s", sc.ID)
	}
	txs, err := unmarshalTransactions(sc.Transactions)
	if err != nil {
		return errors.Wrapf(err, "customer %s", sc.ID)
	}

	*c = Customer(sc.customerAlias)
	c.PaymentMethods = methods
	c.Transactions = txs
	c.MarkSynced()
	return nil
}
