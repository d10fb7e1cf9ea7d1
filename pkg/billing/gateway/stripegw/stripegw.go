// Package stripegw implements the payment gateway on top of Stripe.
package stripegw

import (
	"context"
	"net/http"

	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/billing/gateway"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/charge"
	"github.com/stripe/stripe-go/v82/coupon"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/paymentmethod"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/subscription"
)

const localIDKey = "local_id"

type Gateway struct {
	customers     customer.Client
	methods       paymentmethod.Client
	subscriptions subscription.Client
	coupons       coupon.Client
	refunds       refund.Client
	charges       charge.Client

	log logutil.Log
}

var _ gateway.Gateway = &Gateway{}

func New(key string, backend stripe.Backend, log logutil.Log) *Gateway {
	return &Gateway{
		customers:     customer.Client{B: backend, Key: key},
		methods:       paymentmethod.Client{B: backend, Key: key},
		subscriptions: subscription.Client{B: backend, Key: key},
		coupons:       coupon.Client{B: backend, Key: key},
		refunds:       refund.Client{B: backend, Key: key},
		charges:       charge.Client{B: backend, Key: key},
		log:           log,
	}
}

// NewFromConfig reads STRIPE_SECRET_KEY and, for tests against a local
// stripe-mock, STRIPE_API_URL.
func NewFromConfig(cfg config.Config, log logutil.Log) (*Gateway, error) {
	key := cfg.GetString("STRIPE_SECRET_KEY")
	if key == "" {
		return nil, errors.New("no STRIPE_SECRET_KEY")
	}

	bc := &stripe.BackendConfig{
		LeveledLogger: leveledLog{log: log},
		// the caller decides about retries
		MaxNetworkRetries: stripe.Int64(0),
	}
	if u := cfg.GetString("STRIPE_API_URL"); u != "" {
		bc.URL = stripe.String(u)
	}

	return New(key, stripe.GetBackendWithConfig(stripe.APIBackend, bc), log), nil
}

// wrapErr maps Stripe errors onto the gateway's error kinds and attaches
// the local id of the entity the request was about.
func wrapErr(err error, entityID, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	if serr, ok := err.(*stripe.Error); ok {
		switch {
		case serr.HTTPStatusCode == http.StatusNotFound || serr.Code == stripe.ErrorCodeResourceMissing:
			err = errors.Wrap(gateway.ErrNotFound, serr.Msg)
		case serr.Type == stripe.ErrorTypeCard:
			err = errors.Wrapf(gateway.ErrDeclined, "%s: %s", serr.Code, serr.Msg)
		}
	}

	return gateway.NewEntityError(entityID, errors.Wrapf(err, format, args...))
}

func params(ctx context.Context) stripe.Params {
	return stripe.Params{Context: ctx}
}

func toMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

type leveledLog struct {
	log logutil.Log
}

func (l leveledLog) Debugf(format string, v ...interface{}) {
	l.log.Debugf("stripe", format, v...)
}

func (l leveledLog) Infof(format string, v ...interface{}) {
	l.log.Debugf("stripe", format, v...)
}

func (l leveledLog) Warnf(format string, v ...interface{}) {
	l.log.Warnf(format, v...)
}

func (l leveledLog) Errorf(format string, v ...interface{}) {
	// request errors are returned to the caller, who decides whether to report
	l.log.Infof(format, v...)
}
