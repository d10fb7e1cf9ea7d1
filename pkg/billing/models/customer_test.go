package models

import (
	"encoding/json"
	"testing"

	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomer(t *testing.T) {
	c, err := NewCustomer("  Jane Doe ", " Jane@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", c.Name)
	assert.Equal(t, "jane@example.com", c.Email)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, processor.StatusNew, c.Processor.State())
	assert.False(t, c.IsSynced())
}

func TestCloneIsDeep(t *testing.T) {
	c := syncedCustomer()
	cl := c.Clone()

	cl.Name = "Other"
	cl.Addresses[0].Locality = "Other"
	cl.PaymentMethods[0].(*CreditCard).Last4 = "0000"
	cl.Subscriptions[0].Discounts[0].(*PercentDiscount).Percent = decimal.NewFromInt(99)
	cl.Transactions[0].Base().Processor.MarkFailed()
	cl.Subscriptions = append(cl.Subscriptions, subscription("s2", planPro, SubscriptionActive, now))

	assert.Equal(t, syncedCustomer().Name, c.Name)
	assert.Equal(t, "Springfield", c.Addresses[0].Locality)
	assert.Equal(t, "4242", c.PaymentMethods[0].(*CreditCard).Last4)
	assert.True(t, decimal.NewFromInt(20).Equal(c.Subscriptions[0].Discounts[0].(*PercentDiscount).Percent))
	assert.Equal(t, processor.StatusSaved, c.Transactions[0].Base().Processor.Status)
	assert.Len(t, c.Subscriptions, 1)
}

func TestCustomerJSONKeepsVariants(t *testing.T) {
	c := syncedCustomer()
	c.Transactions = append(c.Transactions, &TransactionPayPalAccount{TransactionBase: TransactionBase{
		ID: "t2", Type: TransactionCredit, Amount: decimal.RequireFromString("5.50"), RefundedTransactionID: "t1",
	}})

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var got Customer
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.Processor, got.Processor)
	assert.Equal(t, c.DefaultPaymentMethodID, got.DefaultPaymentMethodID)
	require.Len(t, got.PaymentMethods, 2)
	assert.Equal(t, KindCreditCard, got.PaymentMethods[0].Kind())
	assert.Equal(t, "4242", got.PaymentMethods[0].(*CreditCard).Last4)
	assert.Equal(t, KindPayPalAccount, got.PaymentMethods[1].Kind())

	require.Len(t, got.Subscriptions, 1)
	require.Len(t, got.Subscriptions[0].Discounts, 1)
	d := got.Subscriptions[0].Discounts[0].(*PercentDiscount)
	assert.True(t, decimal.NewFromInt(20).Equal(d.Percent))
	assert.Equal(t, "disc_1", d.Processor.ID)
	assert.True(t, got.Subscriptions[0].PaidThroughDate.Equal(c.Subscriptions[0].PaidThroughDate))

	require.Len(t, got.Transactions, 2)
	assert.Equal(t, KindTransactionPayPalAccount, got.Transactions[1].Kind())
	assert.Equal(t, "t1", got.Transactions[1].Base().RefundedTransactionID)

	// a decoded customer is its own baseline
	assert.True(t, got.IsSynced())
	got.MarkChanged()
	assert.Equal(t, allSavedExcept(&got), statuses(&got))
}

func TestUnmarshalDiscountDefaults(t *testing.T) {
	data := []byte(`{"id":"s1","processor":{"id":"sub_1","state":"saved"},"price":"10",
		"discounts":[{"kind":"CouponAmount","data":{"amount":"5","couponId":"SPRING"}}]}`)

	var s Subscription
	require.NoError(t, json.Unmarshal(data, &s))
	require.Len(t, s.Discounts, 1)

	d := s.Discounts[0].(*CouponAmount)
	assert.Equal(t, 1, d.NumberOfBillingCycles)
	assert.Equal(t, DefaultDiscountGroup, d.Group)
	assert.Equal(t, "SPRING", d.CouponID)
}

func TestUnmarshalUnknownKind(t *testing.T) {
	data := []byte(`{"id":"c1","paymentMethods":[{"kind":"Bitcoin","data":{}}]}`)
	var c Customer
	assert.Error(t, json.Unmarshal(data, &c))
}

func TestMarkFailed(t *testing.T) {
	c := syncedCustomer()

	assert.True(t, c.MarkFailed("pm2"))
	assert.Equal(t, processor.StatusFailed, c.PaymentMethods[1].Base().Processor.Status)

	assert.True(t, c.MarkFailed("disc_1"))
	assert.Equal(t, processor.StatusFailed, c.Subscriptions[0].Discounts[0].Base().Processor.Status)

	assert.True(t, c.MarkFailed("cus_1"))
	assert.Equal(t, processor.StatusFailed, c.Processor.Status)

	assert.False(t, c.MarkFailed("missing"))
	assert.False(t, c.MarkFailed(""))
}

func TestRetryFailed(t *testing.T) {
	c := syncedCustomer()
	require.True(t, c.MarkFailed("sub_1"))
	require.True(t, c.MarkFailed("t1"))

	require.NoError(t, c.RetryFailed("s1"))
	assert.Equal(t, processor.StatusChanged, c.Subscriptions[0].Processor.Status)
	require.NoError(t, c.RetryFailed("ch_1"))
	assert.Equal(t, processor.StatusChanged, c.Transactions[0].Base().Processor.Status)

	var verr ValidationError
	assert.True(t, errors.As(c.RetryFailed("s1"), &verr), "only FAILED entities are retried")
	assert.Equal(t, "s1", verr.EntityID)
	assert.True(t, errors.As(c.RetryFailed("missing"), &verr))
	assert.Equal(t, "missing", verr.EntityID)
}

func TestLookups(t *testing.T) {
	c := syncedCustomer()
	assert.Equal(t, "a2", c.AddressByID("a2").ID)
	assert.Nil(t, c.AddressByID("nope"))
	assert.Equal(t, "pm1", c.DefaultPaymentMethod().Base().ID)
	assert.Equal(t, "s1", c.SubscriptionByID("s1").ID)
	assert.Equal(t, "t1", c.TransactionByID("t1").Base().ID)
	assert.Nil(t, c.TransactionByID("t9"))

	c.DefaultPaymentMethodID = ""
	assert.Nil(t, c.DefaultPaymentMethod())
}
