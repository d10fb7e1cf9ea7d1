package models

import (
	"testing"
	"time"

	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(subs []*Subscription) []string {
	var ret []string
	for _, s := range subs {
		ret = append(ret, s.ID)
	}
	return ret
}

func selectorCustomer() *Customer {
	return &Customer{
		ID: "c1",
		Subscriptions: []*Subscription{
			subscription("expired", planPro, SubscriptionActive, now.Add(-time.Hour)),
			subscription("std", planStandard, SubscriptionActive, now.AddDate(0, 1, 0)),
			subscription("pro-due", planPro, SubscriptionPastDue, now.AddDate(0, 0, 3)),
			subscription("std2", planStandard, SubscriptionActive, now),
			subscription("free", planFree, SubscriptionActive, now.AddDate(1, 0, 0)),
		},
	}
}

func TestValidSubscriptions(t *testing.T) {
	c := selectorCustomer()
	assert.Equal(t, []string{"pro-due", "std", "std2", "free"}, ids(c.ValidSubscriptions(now)))
	assert.Equal(t, "expired", c.Subscriptions[0].ID, "input order is kept")
}

func TestActiveSubscriptions(t *testing.T) {
	c := selectorCustomer()
	assert.Equal(t, []string{"std", "std2", "free"}, ids(c.ActiveSubscriptions(now)))
	assert.Equal(t, []string{"free"}, ids(c.ActiveSubscriptions(now.AddDate(0, 2, 0))))
}

func TestSubscription(t *testing.T) {
	c := selectorCustomer()
	assert.Equal(t, "pro-due", c.Subscription(now).ID)
	assert.Nil(t, c.Subscription(now.AddDate(2, 0, 0)))
	assert.Nil(t, (&Customer{}).Subscription(now))
}

func TestZeroAsOfMeansNow(t *testing.T) {
	c := &Customer{Subscriptions: []*Subscription{
		subscription("past", planPro, SubscriptionActive, time.Now().Add(-time.Minute)),
		subscription("future", planStandard, SubscriptionActive, time.Now().Add(time.Hour)),
	}}
	assert.Equal(t, []string{"future"}, ids(c.ActiveSubscriptions(time.Time{})))
}

func TestActiveSubscriptionForPlan(t *testing.T) {
	c := selectorCustomer()
	assert.Equal(t, "std", c.ActiveSubscriptionForPlan(planStandard, now).ID)
	assert.Nil(t, c.ActiveSubscriptionForPlan(planPro, now), "past due isn't active")
}

func TestActiveSubscriptionLikePlan(t *testing.T) {
	c := selectorCustomer()
	assert.Equal(t, "std", c.ActiveSubscriptionLikePlan(planFree, now).ID)
	assert.Equal(t, "std", c.ActiveSubscriptionLikePlan(planStandard, now).ID)
	assert.Nil(t, c.ActiveSubscriptionLikePlan(planPro, now))
}

func TestSubscribeToPlan(t *testing.T) {
	c := syncedCustomer()
	sub, err := c.SubscribeToPlan(planPro, "fake-valid-nonce", Address{FirstName: "Jane", PostalCode: "94107"})
	require.NoError(t, err)

	require.Len(t, c.Addresses, 3)
	addr := c.Addresses[2]
	assert.NotEmpty(t, addr.ID)
	assert.Equal(t, "94107", addr.PostalCode)
	assert.Equal(t, processor.StatusNew, addr.Processor.State())

	require.Len(t, c.PaymentMethods, 3)
	pm := c.PaymentMethods[2]
	placeholder, ok := pm.(*CreditCard)
	require.True(t, ok, "%T", pm)
	assert.Empty(t, placeholder.Last4)
	assert.Equal(t, processor.StatusNew, placeholder.Processor.State())
	assert.Equal(t, addr.ID, pm.Base().BillingAddressID)
	assert.Equal(t, "fake-valid-nonce", pm.Base().Nonce)
	assert.Equal(t, pm.Base().ID, c.DefaultPaymentMethodID)

	require.Len(t, c.Subscriptions, 2)
	assert.Same(t, sub, c.Subscriptions[1])
	assert.Equal(t, pm.Base().ID, sub.PaymentMethodID)
	assert.True(t, planPro.Price.Equal(sub.Price))
	assert.Equal(t, SubscriptionPending, sub.Status)
	assert.Equal(t, processor.StatusNew, sub.Processor.State())
	assert.NoError(t, c.Validate())
}

func TestSubscribeToPlanNeedsNonce(t *testing.T) {
	c := syncedCustomer()
	_, err := c.SubscribeToPlan(planPro, "", Address{})
	assert.Error(t, err)
	assert.Len(t, c.Subscriptions, 1)
}
