package models

import (
	"encoding/json"

	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/pkg/errors"
)

type PaymentMethodKind string

const (
	KindCreditCard     PaymentMethodKind = "CreditCard"
	KindPayPalAccount  PaymentMethodKind = "PayPalAccount"
	KindApplePayCard   PaymentMethodKind = "ApplePayCard"
	KindAndroidPayCard PaymentMethodKind = "AndroidPayCard"
)

// PaymentMethod is one of *CreditCard, *PayPalAccount, *ApplePayCard or
// *AndroidPayCard. The set is closed: only this package can add kinds.
type PaymentMethod interface {
	Base() *PaymentMethodBase
	Kind() PaymentMethodKind
	ClonePaymentMethod() PaymentMethod

	isPaymentMethod()
}

type PaymentMethodBase struct {
	ID               string         `json:"id"`
	BillingAddressID string         `json:"billingAddressId,omitempty"`
	Processor        processor.Link `json:"processor"`

	// Nonce is the one-time token the gateway creates the method from. It is
	// dropped once the method is saved.
	Nonce string `json:"nonce,omitempty"`
}

func (b *PaymentMethodBase) Base() *PaymentMethodBase { return b }
func (*PaymentMethodBase) isPaymentMethod()           {}

type CreditCard struct {
	PaymentMethodBase

	CardType        string `json:"cardType,omitempty"`
	CardholderName  string `json:"cardholderName,omitempty"`
	CountryOfIssue  string `json:"countryOfIssuance,omitempty"`
	ExpirationMonth string `json:"expirationMonth,omitempty"`
	ExpirationYear  string `json:"expirationYear,omitempty"`
	Last4           string `json:"last4,omitempty"`
}

func (*CreditCard) Kind() PaymentMethodKind { return KindCreditCard }
func (m *CreditCard) ClonePaymentMethod() PaymentMethod {
	c := *m
	return &c
}

type PayPalAccount struct {
	PaymentMethodBase

	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

func (*PayPalAccount) Kind() PaymentMethodKind { return KindPayPalAccount }
func (m *PayPalAccount) ClonePaymentMethod() PaymentMethod {
	c := *m
	return &c
}

type ApplePayCard struct {
	PaymentMethodBase

	CardType              string `json:"cardType,omitempty"`
	PaymentInstrumentName string `json:"paymentInstrumentName,omitempty"`
	ExpirationMonth       string `json:"expirationMonth,omitempty"`
	ExpirationYear        string `json:"expirationYear,omitempty"`
	Last4                 string `json:"last4,omitempty"`
}

func (*ApplePayCard) Kind() PaymentMethodKind { return KindApplePayCard }
func (m *ApplePayCard) ClonePaymentMethod() PaymentMethod {
	c := *m
	return &c
}

type AndroidPayCard struct {
	PaymentMethodBase

	SourceCardType    string `json:"sourceCardType,omitempty"`
	SourceCardLast4   string `json:"sourceCardLast4,omitempty"`
	SourceDescription string `json:"sourceDescription,omitempty"`
	VirtualCardType   string `json:"virtualCardType,omitempty"`
	VirtualCardLast4  string `json:"virtualCardLast4,omitempty"`
	ExpirationMonth   string `json:"expirationMonth,omitempty"`
	ExpirationYear    string `json:"expirationYear,omitempty"`
}

func (*AndroidPayCard) Kind() PaymentMethodKind { return KindAndroidPayCard }
func (m *AndroidPayCard) ClonePaymentMethod() PaymentMethod {
	c := *m
	return &c
}

// NewPaymentMethod returns an empty payment method of the given kind.
func NewPaymentMethod(kind PaymentMethodKind) (PaymentMethod, error) {
	switch kind {
	case KindCreditCard:
		return &CreditCard{}, nil
	case KindPayPalAccount:
		return &PayPalAccount{}, nil
	case KindApplePayCard:
		return &ApplePayCard{}, nil
	case KindAndroidPayCard:
		return &AndroidPayCard{}, nil
	default:
		return nil, errors.Errorf("unknown payment method kind %q", kind)
	}
}

func marshalPaymentMethods(methods []PaymentMethod) ([]taggedValue, error) {
	ret := make([]taggedValue, 0, len(methods))
	for _, m := range methods {
		data, err := json.Marshal(m)
		if err != nil {
			return nil, errors.Wrapf(err, "can't marshal payment method %s", m.Base().ID)
		}
		ret = append(ret, taggedValue{Kind: string(m.Kind()), Data: data})
	}
	return ret, nil
}

func unmarshalPaymentMethods(values []taggedValue) ([]PaymentMethod, error) {
	ret := make([]PaymentMethod, 0, len(values))
	for _, v := range values {
		m, err := NewPaymentMethod(PaymentMethodKind(v.Kind))
		if err != nil {
			return nil, err
		}
		if err = json.Unmarshal(v.Data, m); err != nil {
			return nil, errors.Wrapf(err, "can't unmarshal %s payment method", v.Kind)
		}
		ret = append(ret, m)
	}
	return ret, nil
}

// taggedValue is the stored form of a variant: its kind plus its own fields.
type taggedValue struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}
