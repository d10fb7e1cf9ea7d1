package models

import (
	"encoding/json"
	"time"

	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindTransactionCreditCard     TransactionKind = "TransactionCreditCard"
	KindTransactionPayPalAccount  TransactionKind = "TransactionPayPalAccount"
	KindTransactionApplePayCard   TransactionKind = "TransactionApplePayCard"
	KindTransactionAndroidPayCard TransactionKind = "TransactionAndroidPayCard"
)

type TransactionType string

const (
	TransactionSale   TransactionType = "sale"
	TransactionCredit TransactionType = "credit"
)

type TransactionStatus string

const (
	TransactionAuthorized     TransactionStatus = "authorized"
	TransactionSettled        TransactionStatus = "settled"
	TransactionSubmitted      TransactionStatus = "submitted_for_settlement"
	TransactionFailed         TransactionStatus = "failed"
	TransactionVoided         TransactionStatus = "voided"
	TransactionProcessorError TransactionStatus = "processor_declined"
)

// Transaction is an immutable record of a processed charge or refund, one
// of the four payment-method flavoured kinds.
type Transaction interface {
	Base() *TransactionBase
	Kind() TransactionKind
	CloneTransaction() Transaction

	isTransaction()
}

type TransactionBase struct {
	ID        string         `json:"id"`
	Processor processor.Link `json:"processor"`

	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	Amount          decimal.Decimal   `json:"amount"`
	RefundedAmount  decimal.Decimal   `json:"refundedAmount"`
	Currency        string            `json:"currency,omitempty"`
	SubscriptionID  string            `json:"subscriptionId,omitempty"`
	PaymentMethodID string            `json:"paymentMethodId,omitempty"`
	// RefundedTransactionID links a credit to the sale it refunds.
	RefundedTransactionID string    `json:"refundedTransactionId,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
}

func (b *TransactionBase) Base() *TransactionBase { return b }
func (*TransactionBase) isTransaction()           {}

// Refundable returns how much of a sale can still be refunded.
func (b *TransactionBase) Refundable() decimal.Decimal {
	if b.Type != TransactionSale {
		return decimal.Zero
	}
	left := b.Amount.Sub(b.RefundedAmount)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

type TransactionCreditCard struct {
	TransactionBase

	CardType string `json:"cardType,omitempty"`
	Last4    string `json:"last4,omitempty"`
}

func (*TransactionCreditCard) Kind() TransactionKind { return KindTransactionCreditCard }
func (t *TransactionCreditCard) CloneTransaction() Transaction {
	c := *t
	return &c
}

type TransactionPayPalAccount struct {
	TransactionBase

	PayerEmail string `json:"payerEmail,omitempty"`
}

func (*TransactionPayPalAccount) Kind() TransactionKind { return KindTransactionPayPalAccount }
func (t *TransactionPayPalAccount) CloneTransaction() Transaction {
	c := *t
	return &c
}

type TransactionApplePayCard struct {
	TransactionBase

	CardType string `json:"cardType,omitempty"`
	Last4    string `json:"last4,omitempty"`
}

func (*TransactionApplePayCard) Kind() TransactionKind { return KindTransactionApplePayCard }
func (t *TransactionApplePayCard) CloneTransaction() Transaction {
	c := *t
	return &c
}

type TransactionAndroidPayCard struct {
	TransactionBase

	SourceCardType  string `json:"sourceCardType,omitempty"`
	SourceCardLast4 string `json:"sourceCardLast4,omitempty"`
}

func (*TransactionAndroidPayCard) Kind() TransactionKind { return KindTransactionAndroidPayCard }
func (t *TransactionAndroidPayCard) CloneTransaction() Transaction {
	c := *t
	return &c
}

func NewTransaction(kind TransactionKind) (Transaction, error) {
	switch kind {
	case KindTransactionCreditCard:
		return &TransactionCreditCard{}, nil
	case KindTransactionPayPalAccount:
		return &TransactionPayPalAccount{}, nil
	case KindTransactionApplePayCard:
		return &TransactionApplePayCard{}, nil
	case KindTransactionAndroidPayCard:
		return &TransactionAndroidPayCard{}, nil
	default:
		return nil, errors.Errorf("unknown transaction kind %q", kind)
	}
}

// TransactionKindFor maps a payment method kind to the transaction kind
// recorded for charges made with it.
func TransactionKindFor(kind PaymentMethodKind) TransactionKind {
	switch kind {
	case KindPayPalAccount:
		return KindTransactionPayPalAccount
	case KindApplePayCard:
		return KindTransactionApplePayCard
	case KindAndroidPayCard:
		return KindTransactionAndroidPayCard
	default:
		return KindTransactionCreditCard
	}
}

func marshalTransactions(txs []Transaction) ([]taggedValue, error) {
	ret := make([]taggedValue, 0, len(txs))
	for _, t := range txs {
		data, err := json.Marshal(t)
		if err != nil {
			return nil, errors.Wrapf(err, "can't marshal transaction %s", t.Base().ID)
		}
		ret = append(ret, taggedValue{Kind: string(t.Kind()), Data: data})
	}
	return ret, nil
}

func unmarshalTransactions(values []taggedValue) ([]Transaction, error) {
	ret := make([]Transaction, 0, len(values))
	for _, v := range values {
		t, err := NewTransaction(TransactionKind(v.Kind))
		if err != nil {
			return nil, err
		}
		if err = json.Unmarshal(v.Data, t); err != nil {
			return nil, errors.Wrapf(err, "can't unmarshal %s transaction", v.Kind)
		}
		ret = append(ret, t)
	}
	return ret, nil
}
