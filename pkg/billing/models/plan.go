package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Plan is the subscription tier a customer pays for. Subscriptions embed a
// copy of it, so catalog changes never rewrite existing subscriptions.
type Plan struct {
	ProcessorID      string          `json:"processorId"`
	Name             string          `json:"name"`
	Level            int             `json:"level"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	BillingFrequency int             `json:"billingFrequency"` // months
}

func (p Plan) GoString() string {
	return fmt.Sprintf("{ProcessorID: %s, Level: %d, Price: %s %s}", p.ProcessorID, p.Level, p.Price, p.Currency)
}

// Compare orders plans by level: negative when p is the lower tier.
func (p Plan) Compare(o Plan) int {
	switch {
	case p.Level < o.Level:
		return -1
	case p.Level > o.Level:
		return 1
	default:
		return 0
	}
}

// IsAtLeast reports whether p is an equal or better tier than o.
func (p Plan) IsAtLeast(o Plan) bool {
	return p.Compare(o) >= 0
}
