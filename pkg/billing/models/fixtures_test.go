package models

import (
	"time"

	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/shopspring/decimal"
)

var (
	planStandard = Plan{ProcessorID: "standard", Name: "Standard", Level: 1, Price: decimal.RequireFromString("19.90"), Currency: "USD", BillingFrequency: 1}
	planPro      = Plan{ProcessorID: "pro", Name: "Pro", Level: 2, Price: decimal.RequireFromString("49.00"), Currency: "USD", BillingFrequency: 1}
	planFree     = Plan{ProcessorID: "free", Name: "Free", Level: 0, Price: decimal.Zero, Currency: "USD", BillingFrequency: 1}

	now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
)

// syncedCustomer returns a customer whose every entity went through the
// gateway, with the last synced state recorded.
func syncedCustomer() *Customer {
	c := &Customer{
		ID:        "c1",
		Processor: processor.SavedLink("cus_1"),
		Name:      "Jane Doe",
		Email:     "jane@example.com",
		Addresses: []*Address{
			{ID: "a1", Processor: processor.SavedLink("addr_1"), StreetAddress: "1 Main St", Locality: "Springfield"},
			{ID: "a2", Processor: processor.SavedLink("addr_2"), StreetAddress: "2 Side St", Locality: "Shelbyville"},
		},
		PaymentMethods: []PaymentMethod{
			&CreditCard{PaymentMethodBase: PaymentMethodBase{ID: "pm1", BillingAddressID: "a1", Processor: processor.SavedLink("card_1")}, Last4: "4242"},
			&PayPalAccount{PaymentMethodBase: PaymentMethodBase{ID: "pm2", Processor: processor.SavedLink("pp_1")}, Email: "jane@paypal.test"},
		},
		DefaultPaymentMethodID: "pm1",
		Subscriptions: []*Subscription{
			{
				ID:              "s1",
				Processor:       processor.SavedLink("sub_1"),
				Plan:            planStandard,
				PaymentMethodID: "pm1",
				Price:           planStandard.Price,
				Status:          SubscriptionActive,
				PaidThroughDate: now.AddDate(0, 1, 0),
				Discounts: []Discount{
					&PercentDiscount{
						DiscountBase: DiscountBase{Processor: processor.SavedLink("disc_1"), NumberOfBillingCycles: 1, Group: DefaultDiscountGroup},
						Percent:      decimal.NewFromInt(20),
					},
				},
			},
		},
		Transactions: []Transaction{
			&TransactionCreditCard{TransactionBase: TransactionBase{
				ID: "t1", Processor: processor.SavedLink("ch_1"), Type: TransactionSale,
				Status: TransactionSettled, Amount: decimal.RequireFromString("19.90"), SubscriptionID: "s1", PaymentMethodID: "pm1",
			}},
		},
	}
	c.MarkSynced()
	return c
}

func subscription(id string, plan Plan, status SubscriptionStatus, paidThrough time.Time) *Subscription {
	return &Subscription{
		ID:              id,
		Processor:       processor.SavedLink("sub_" + id),
		Plan:            plan,
		Price:           plan.Price,
		Status:          status,
		PaidThroughDate: paidThrough,
	}
}
