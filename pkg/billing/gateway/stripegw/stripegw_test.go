package stripegw

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/billing/gateway"
	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/golangci/golangci-billing/pkg/billing/processor"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"
)

var testCtx = context.Background()

var plan = models.Plan{ProcessorID: "price_standard", Level: 1, Price: decimal.RequireFromString("19.90"), Currency: "USD", BillingFrequency: 1}

type responder func() (status int, body string)

// fakeStripe serves canned Stripe API responses and records what it got.
// Requests are keyed by method and path.
type fakeStripe struct {
	t   *testing.T
	mux *http.ServeMux

	mu       sync.Mutex
	routes   map[string]map[string]responder
	requests map[string]url.Values
	headers  map[string]http.Header
	counts   map[string]int
}

func newFakeStripe(t *testing.T) *fakeStripe {
	return &fakeStripe{
		t:        t,
		mux:      http.NewServeMux(),
		routes:   map[string]map[string]responder{},
		requests: map[string]url.Values{},
		headers:  map[string]http.Header{},
		counts:   map[string]int{},
	}
}

func (f *fakeStripe) handle(method, path string, status int, body string) {
	f.respond(method, path, func() (int, string) { return status, body })
}

func (f *fakeStripe) respond(method, path string, fn responder) {
	f.mu.Lock()
	defer f.mu.Unlock()

	byMethod := f.routes[path]
	if byMethod == nil {
		byMethod = map[string]responder{}
		f.routes[path] = byMethod
		f.mux.HandleFunc(path, f.serve)
	}
	byMethod[method] = fn
}

func (f *fakeStripe) serve(w http.ResponseWriter, r *http.Request) {
	assert.NoError(f.t, r.ParseForm())
	key := r.Method + " " + r.URL.Path

	f.mu.Lock()
	fn := f.routes[r.URL.Path][r.Method]
	if fn != nil {
		f.requests[key] = r.Form
		f.headers[key] = r.Header
		f.counts[key]++
	}
	f.mu.Unlock()

	if fn == nil {
		http.Error(w, `{"error":{"type":"invalid_request_error"}}`, http.StatusMethodNotAllowed)
		return
	}

	status, body := fn()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func (f *fakeStripe) form(method, path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method+" "+path]
}

func (f *fakeStripe) header(method, path string) http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers[method+" "+path]
}

func (f *fakeStripe) hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[method+" "+path]
}

func customerList(customers ...string) string {
	return `{"object":"list","url":"/v1/customers","has_more":false,"data":[` + strings.Join(customers, ",") + `]}`
}

func (f *fakeStripe) gateway() *Gateway {
	srv := httptest.NewServer(f.mux)
	f.t.Cleanup(srv.Close)

	b := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return New("sk_test_123", b, logutil.NewStderrLog("test"))
}

const subscriptionJSON = `{"id":"sub_1","object":"subscription","status":"active","start_date":1710504000,
	"items":{"object":"list","data":[{"id":"si_1","current_period_end":1713182400,
	"price":{"id":"price_standard","unit_amount":1990,"currency":"usd"}}]}}`

func subscribedCustomer(t *testing.T, nonce string) *models.Customer {
	c, err := models.NewCustomer("Jane Doe", "jane@example.com")
	require.NoError(t, err)
	s, err := c.SubscribeToPlan(plan, nonce, models.Address{FirstName: "Jane", LastName: "Doe", PostalCode: "94107", CountryCodeAlpha2: "US"})
	require.NoError(t, err)
	s.Discounts = append(s.Discounts, models.NewPercentDiscount("launch", decimal.NewFromInt(20)))
	return c
}

func TestSaveNewCustomer(t *testing.T) {
	f := newFakeStripe(t)
	f.handle(http.MethodGet, "/v1/customers", http.StatusOK, customerList())
	f.handle(http.MethodPost, "/v1/customers", http.StatusOK, `{"id":"cus_1","object":"customer"}`)
	f.handle(http.MethodPost, "/v1/customers/cus_1", http.StatusOK, `{"id":"cus_1","object":"customer"}`)
	f.handle(http.MethodPost, "/v1/payment_methods/pm_card_visa/attach", http.StatusOK,
		`{"id":"pm_1","object":"payment_method","type":"card","card":{"brand":"visa","last4":"4242","exp_month":12,"exp_year":2030,"country":"US"}}`)
	f.handle(http.MethodPost, "/v1/payment_methods/pm_1", http.StatusOK, `{"id":"pm_1","object":"payment_method","type":"card"}`)
	f.handle(http.MethodPost, "/v1/coupons", http.StatusOK, `{"id":"co_1","object":"coupon"}`)
	f.handle(http.MethodPost, "/v1/subscriptions", http.StatusOK, subscriptionJSON)

	c := subscribedCustomer(t, "pm_card_visa")
	require.NoError(t, f.gateway().Save(testCtx, c))

	assert.Equal(t, processor.SavedLink("cus_1"), c.Processor)
	assert.Equal(t, "jane@example.com", f.form(http.MethodPost, "/v1/customers").Get("email"))
	assert.Equal(t, c.ID, f.form(http.MethodPost, "/v1/customers").Get("metadata[local_id]"))

	assert.Equal(t, processor.SavedLink("cus_1/"+c.Addresses[0].ID), c.Addresses[0].Processor)
	assert.Equal(t, "94107", f.form(http.MethodPost, "/v1/payment_methods/pm_1").Get("billing_details[address][postal_code]"))
	assert.Equal(t, "Jane Doe", f.form(http.MethodPost, "/v1/payment_methods/pm_1").Get("billing_details[name]"))

	card, ok := c.PaymentMethods[0].(*models.CreditCard)
	require.True(t, ok)
	assert.Equal(t, processor.SavedLink("pm_1"), card.Processor)
	assert.Equal(t, "4242", card.Last4)
	assert.Equal(t, "12", card.ExpirationMonth)
	assert.Empty(t, card.Nonce)
	assert.Equal(t, "pm_1", f.form(http.MethodPost, "/v1/customers/cus_1").Get("invoice_settings[default_payment_method]"))

	assert.Equal(t, "20", f.form(http.MethodPost, "/v1/coupons").Get("percent_off"))
	assert.Equal(t, "once", f.form(http.MethodPost, "/v1/coupons").Get("duration"))

	subForm := f.form(http.MethodPost, "/v1/subscriptions")
	assert.Equal(t, "cus_1", subForm.Get("customer"))
	assert.Equal(t, "price_standard", subForm.Get("items[0][price]"))
	assert.Equal(t, "pm_1", subForm.Get("default_payment_method"))
	assert.Equal(t, "co_1", subForm.Get("discounts[0][coupon]"))

	s := c.Subscriptions[0]
	assert.Equal(t, processor.SavedLink("sub_1"), s.Processor)
	assert.Equal(t, models.SubscriptionActive, s.Status)
	assert.Equal(t, time.Unix(1713182400, 0).UTC(), s.PaidThroughDate)
	assert.Equal(t, processor.SavedLink("co_1"), s.Discounts[0].Base().Processor)
}

func TestSaveDeclinedCard(t *testing.T) {
	f := newFakeStripe(t)
	f.handle(http.MethodGet, "/v1/customers", http.StatusOK, customerList())
	f.handle(http.MethodPost, "/v1/customers", http.StatusOK, `{"id":"cus_1","object":"customer"}`)
	f.handle(http.MethodPost, "/v1/payment_methods/pm_card_chargeDeclined/attach", http.StatusPaymentRequired,
		`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`)

	c := subscribedCustomer(t, "pm_card_chargeDeclined")
	err := f.gateway().Save(testCtx, c)
	require.Error(t, err)

	assert.Equal(t, c.PaymentMethods[0].Base().ID, gateway.FailedEntity(err))
	assert.Equal(t, gateway.ErrDeclined, errors.Cause(err.(*gateway.EntityError).Err))
}

func TestSaveAfterFailureReusesCustomer(t *testing.T) {
	c := subscribedCustomer(t, "pm_card_chargeDeclined")

	f := newFakeStripe(t)
	f.handle(http.MethodPost, "/v1/customers", http.StatusOK, `{"id":"cus_1","object":"customer"}`)
	f.respond(http.MethodGet, "/v1/customers", func() (int, string) {
		if f.hits(http.MethodPost, "/v1/customers") == 0 {
			return http.StatusOK, customerList()
		}
		return http.StatusOK, customerList(
			`{"id":"cus_0","object":"customer","email":"jane@example.com","metadata":{"local_id":"someone-else"}}`,
			`{"id":"cus_1","object":"customer","email":"jane@example.com","metadata":{"local_id":"`+c.ID+`"}}`)
	})
	f.handle(http.MethodPost, "/v1/customers/cus_1", http.StatusOK, `{"id":"cus_1","object":"customer"}`)
	f.handle(http.MethodPost, "/v1/payment_methods/pm_card_chargeDeclined/attach", http.StatusPaymentRequired,
		`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`)

	g := f.gateway()
	for i := 0; i < 2; i++ {
		// every attempt starts from the stored customer, which never got the remote id
		work := c.Clone()
		err := g.Save(testCtx, work)
		assert.True(t, gateway.IsRejected(err), "%v", err)
	}

	assert.Equal(t, 1, f.hits(http.MethodPost, "/v1/customers"))
	assert.Equal(t, 1, f.hits(http.MethodPost, "/v1/customers/cus_1"))
	assert.Equal(t, 2, f.hits(http.MethodGet, "/v1/customers"))
	assert.Equal(t, "jane@example.com", f.form(http.MethodGet, "/v1/customers").Get("email"))
	assert.Equal(t, "customer-"+c.ID, f.header(http.MethodPost, "/v1/customers").Get("Idempotency-Key"))
}

func TestCancelSubscription(t *testing.T) {
	f := newFakeStripe(t)
	f.handle(http.MethodDelete, "/v1/subscriptions/sub_1", http.StatusOK,
		`{"id":"sub_1","object":"subscription","status":"canceled"}`)

	c := &models.Customer{ID: "c1", Processor: processor.SavedLink("cus_1"), Subscriptions: []*models.Subscription{
		{ID: "s1", Processor: processor.SavedLink("sub_1"), Status: models.SubscriptionActive},
	}}

	g := f.gateway()
	require.NoError(t, g.CancelSubscription(testCtx, c, "s1"))
	assert.Equal(t, models.SubscriptionCanceled, c.Subscriptions[0].Status)
	assert.Equal(t, processor.StatusCancelled, c.Subscriptions[0].Processor.Status)

	err := g.CancelSubscription(testCtx, c, "s1")
	assert.Equal(t, gateway.ErrTerminal, err.(*gateway.EntityError).Err)
}

func TestRefundTransaction(t *testing.T) {
	f := newFakeStripe(t)
	f.handle(http.MethodPost, "/v1/refunds", http.StatusOK,
		`{"id":"re_1","object":"refund","amount":500,"status":"succeeded","created":1710504000}`)

	c := &models.Customer{ID: "c1", Processor: processor.SavedLink("cus_1"), Transactions: []models.Transaction{
		&models.TransactionCreditCard{TransactionBase: models.TransactionBase{
			ID: "t1", Processor: processor.SavedLink("ch_1"), Type: models.TransactionSale,
			Amount: decimal.RequireFromString("19.90"), Currency: "USD",
		}},
	}}

	g := f.gateway()
	err := g.RefundTransaction(testCtx, c, "t1", decimal.NewFromInt(25))
	assert.Equal(t, "t1", gateway.FailedEntity(err))
	assert.Nil(t, f.form(http.MethodPost, "/v1/refunds"), "no request for an impossible refund")

	require.NoError(t, g.RefundTransaction(testCtx, c, "t1", decimal.NewFromInt(5)))
	assert.Equal(t, "ch_1", f.form(http.MethodPost, "/v1/refunds").Get("charge"))
	assert.Equal(t, "500", f.form(http.MethodPost, "/v1/refunds").Get("amount"))

	require.Len(t, c.Transactions, 2)
	credit := c.Transactions[1]
	assert.Equal(t, models.KindTransactionCreditCard, credit.Kind())
	assert.Equal(t, models.TransactionCredit, credit.Base().Type)
	assert.Equal(t, models.TransactionSettled, credit.Base().Status)
	assert.Equal(t, "t1", credit.Base().RefundedTransactionID)
	assert.True(t, decimal.RequireFromString("14.90").Equal(c.Transactions[0].Base().Refundable()))
}

func TestLoad(t *testing.T) {
	f := newFakeStripe(t)
	f.handle(http.MethodGet, "/v1/customers/cus_1", http.StatusOK,
		`{"id":"cus_1","object":"customer","name":"Jane Roe","email":"roe@example.com",
		"invoice_settings":{"default_payment_method":"pm_2"}}`)
	f.handle(http.MethodGet, "/v1/payment_methods", http.StatusOK,
		`{"object":"list","url":"/v1/payment_methods","has_more":false,"data":[
		{"id":"pm_1","object":"payment_method","type":"card","card":{"brand":"visa","last4":"4242"}},
		{"id":"pm_2","object":"payment_method","type":"paypal","paypal":{"payer_email":"roe@paypal.test"}}]}`)
	f.handle(http.MethodGet, "/v1/subscriptions", http.StatusOK,
		`{"object":"list","url":"/v1/subscriptions","has_more":false,"data":[`+subscriptionJSON+`]}`)
	f.handle(http.MethodGet, "/v1/charges", http.StatusOK,
		`{"object":"list","url":"/v1/charges","has_more":false,"data":[
		{"id":"ch_1","object":"charge","amount":1990,"amount_refunded":500,"currency":"usd","status":"succeeded",
		"captured":true,"created":1710504000,"payment_method":"pm_1"}]}`)

	unsaved := &models.Subscription{ID: "s-new", Plan: plan}
	c := &models.Customer{
		ID: "c1", Version: 3, Processor: processor.SavedLink("cus_1"),
		PaymentMethods: []models.PaymentMethod{
			&models.CreditCard{PaymentMethodBase: models.PaymentMethodBase{ID: "pm-local", Processor: processor.SavedLink("pm_1")}},
		},
		Subscriptions: []*models.Subscription{
			{ID: "s1", Processor: processor.Link{ID: "sub_1", Status: processor.StatusChanged}},
			unsaved,
		},
	}

	require.NoError(t, f.gateway().Load(testCtx, c))

	assert.Equal(t, "Jane Roe", c.Name)
	assert.Equal(t, int64(3), c.Version)
	assert.Equal(t, "cus_1", f.form(http.MethodGet, "/v1/payment_methods").Get("customer"))

	require.Len(t, c.PaymentMethods, 2)
	assert.Equal(t, "pm-local", c.PaymentMethods[0].Base().ID)
	pp, ok := c.PaymentMethods[1].(*models.PayPalAccount)
	require.True(t, ok)
	assert.Equal(t, "roe@paypal.test", pp.Email)
	assert.Equal(t, pp.ID, c.DefaultPaymentMethodID)

	require.Len(t, c.Subscriptions, 2)
	assert.Equal(t, "s1", c.Subscriptions[0].ID)
	assert.Equal(t, processor.SavedLink("sub_1"), c.Subscriptions[0].Processor)
	assert.True(t, decimal.RequireFromString("19.90").Equal(c.Subscriptions[0].Price))
	assert.Same(t, unsaved, c.Subscriptions[1])

	require.Len(t, c.Transactions, 1)
	tx := c.Transactions[0].Base()
	assert.Equal(t, models.TransactionSettled, tx.Status)
	assert.Equal(t, "pm-local", tx.PaymentMethodID)
	assert.True(t, decimal.RequireFromString("14.90").Equal(tx.Refundable()))
}

func TestLoadMissingCustomer(t *testing.T) {
	f := newFakeStripe(t)
	f.handle(http.MethodGet, "/v1/customers/cus_404", http.StatusNotFound,
		`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such customer"}}`)

	c := &models.Customer{ID: "c1", Processor: processor.SavedLink("cus_404")}
	err := f.gateway().Load(testCtx, c)
	assert.True(t, gateway.IsNotFound(err))
	assert.Equal(t, "c1", gateway.FailedEntity(err))
}
