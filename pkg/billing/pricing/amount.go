// Package pricing resolves how much each discount takes off a subscription.
package pricing

import (
	"fmt"

	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CurrentAmount returns the amount d takes off one billing cycle of sub. The
// result is never negative and never above the subscription price.
func CurrentAmount(d models.Discount, sub *models.Subscription) decimal.Decimal {
	price := nonNegative(sub.Price)

	switch d := d.(type) {
	case *models.AmountDiscount:
		return fixed(d.Amount, price)
	case *models.CouponAmount:
		return fixed(d.Amount, price)
	case *models.InviterDiscount:
		// referral credit: a fixed amount per cycle, capped by the price
		return fixed(d.Amount, price)
	case *models.PercentDiscount:
		return percentOf(d.Percent, price)
	case *models.CouponPercent:
		return percentOf(d.Percent, price)
	default:
		panic(fmt.Sprintf("unknown discount %T", d))
	}
}

// DiscountTotal sums the current amounts of all discounts of sub, capped by
// its price.
func DiscountTotal(sub *models.Subscription) decimal.Decimal {
	price := nonNegative(sub.Price)

	total := decimal.Zero
	for _, d := range sub.Discounts {
		total = total.Add(CurrentAmount(d, sub))
	}
	return decimal.Min(total, price)
}

// EffectivePrice is what the customer pays for one cycle after discounts.
func EffectivePrice(sub *models.Subscription) decimal.Decimal {
	return nonNegative(sub.Price).Sub(DiscountTotal(sub))
}

func fixed(amount, price decimal.Decimal) decimal.Decimal {
	return decimal.Min(nonNegative(amount), price)
}

func percentOf(percent, price decimal.Decimal) decimal.Decimal {
	p := decimal.Min(nonNegative(percent), hundred)
	return price.Mul(p).Div(hundred)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
