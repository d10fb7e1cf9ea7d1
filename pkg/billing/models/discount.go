package models

import (
	"encoding/json"

	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type DiscountKind string

const (
	KindDiscountAmount  DiscountKind = "DiscountAmount"
	KindDiscountPercent DiscountKind = "DiscountPercent"
	KindDiscountInviter DiscountKind = "DiscountInviter"
	KindCouponAmount    DiscountKind = "CouponAmount"
	KindCouponPercent   DiscountKind = "CouponPercent"
)

const DefaultDiscountGroup = "General"

// Discount is one of *AmountDiscount, *PercentDiscount, *InviterDiscount,
// *CouponAmount or *CouponPercent. Discounts live inside a subscription and
// have no local id; the remote id in Processor identifies them.
type Discount interface {
	Base() *DiscountBase
	Kind() DiscountKind
	CloneDiscount() Discount

	isDiscount()
}

type DiscountBase struct {
	Processor             processor.Link `json:"processor"`
	NumberOfBillingCycles int            `json:"numberOfBillingCycles"`
	Group                 string         `json:"group"`
	Name                  string         `json:"name,omitempty"`
}

func (b *DiscountBase) Base() *DiscountBase { return b }
func (*DiscountBase) isDiscount()           {}

func (b *DiscountBase) applyDefaults() {
	if b.NumberOfBillingCycles == 0 {
		b.NumberOfBillingCycles = 1
	}
	if b.Group == "" {
		b.Group = DefaultDiscountGroup
	}
}

func newDiscountBase(name string) DiscountBase {
	b := DiscountBase{Name: name, Processor: processor.NewLink()}
	b.applyDefaults()
	return b
}

// AmountDiscount takes a fixed amount off the subscription price.
type AmountDiscount struct {
	DiscountBase
	Amount decimal.Decimal `json:"amount"`
}

func NewAmountDiscount(name string, amount decimal.Decimal) *AmountDiscount {
	return &AmountDiscount{DiscountBase: newDiscountBase(name), Amount: amount}
}

func (*AmountDiscount) Kind() DiscountKind { return KindDiscountAmount }
func (d *AmountDiscount) CloneDiscount() Discount {
	c := *d
	return &c
}

// PercentDiscount takes a share of the subscription price.
type PercentDiscount struct {
	DiscountBase
	Percent decimal.Decimal `json:"percent"`
}

func NewPercentDiscount(name string, percent decimal.Decimal) *PercentDiscount {
	return &PercentDiscount{DiscountBase: newDiscountBase(name), Percent: percent}
}

func (*PercentDiscount) Kind() DiscountKind { return KindDiscountPercent }
func (d *PercentDiscount) CloneDiscount() Discount {
	c := *d
	return &c
}

// InviterDiscount is the referral credit granted for an invited customer.
type InviterDiscount struct {
	DiscountBase
	Amount decimal.Decimal `json:"amount"`
	// InviterID is the id of the customer whose referral earned the credit.
	InviterID string `json:"inviterId,omitempty"`
}

func NewInviterDiscount(name, inviterID string, amount decimal.Decimal) *InviterDiscount {
	return &InviterDiscount{DiscountBase: newDiscountBase(name), Amount: amount, InviterID: inviterID}
}

func (*InviterDiscount) Kind() DiscountKind { return KindDiscountInviter }
func (d *InviterDiscount) CloneDiscount() Discount {
	c := *d
	return &c
}

type CouponAmount struct {
	DiscountBase
	Amount   decimal.Decimal `json:"amount"`
	CouponID string          `json:"couponId,omitempty"`
}

func NewCouponAmount(name, couponID string, amount decimal.Decimal) *CouponAmount {
	return &CouponAmount{DiscountBase: newDiscountBase(name), Amount: amount, CouponID: couponID}
}

func (*CouponAmount) Kind() DiscountKind { return KindCouponAmount }
func (d *CouponAmount) CloneDiscount() Discount {
	c := *d
	return &c
}

type CouponPercent struct {
	DiscountBase
	Percent  decimal.Decimal `json:"percent"`
	CouponID string          `json:"couponId,omitempty"`
}

func NewCouponPercent(name, couponID string, percent decimal.Decimal) *CouponPercent {
	return &CouponPercent{DiscountBase: newDiscountBase(name), Percent: percent, CouponID: couponID}
}

func (*CouponPercent) Kind() DiscountKind { return KindCouponPercent }
func (d *CouponPercent) CloneDiscount() Discount {
	c := *d
	return &c
}

func NewDiscount(kind DiscountKind) (Discount, error) {
	switch kind {
	case KindDiscountAmount:
		return &AmountDiscount{}, nil
	case KindDiscountPercent:
		return &PercentDiscount{}, nil
	case KindDiscountInviter:
		return &InviterDiscount{}, nil
	case KindCouponAmount:
		return &CouponAmount{}, nil
	case KindCouponPercent:
		return &CouponPercent{}, nil
	default:
		return nil, errors.Errorf("unknown discount kind %q", kind)
	}
}

func marshalDiscounts(discounts []Discount) ([]taggedValue, error) {
	ret := make([]taggedValue, 0, len(discounts))
	for _, d := range discounts {
		data, err := json.Marshal(d)
		if err != nil {
			return nil, errors.Wrapf(err, "can't marshal %s discount", d.Kind())
		}
		ret = append(ret, taggedValue{Kind: string(d.Kind()), Data: data})
	}
	return ret, nil
}

func unmarshalDiscounts(values []taggedValue) ([]Discount, error) {
	ret := make([]Discount, 0, len(values))
	for _, v := range values {
		d, err := NewDiscount(DiscountKind(v.Kind))
		if err != nil {
			return nil, err
		}
		if err = json.Unmarshal(v.Data, d); err != nil {
			return nil, errors.Wrapf(err, "can't unmarshal %s discount", v.Kind)
		}
		d.Base().applyDefaults()
		ret = append(ret, d)
	}
	return ret, nil
}
