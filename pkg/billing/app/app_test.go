package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redigo "github.com/garyburd/redigo/redis"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/billing/gateway/fakegw"
	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/golangci/golangci-billing/pkg/billing/services/customer"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.DB().SetMaxOpenConns(1)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	pool := &redigo.Pool{
		MaxIdle: 2,
		Dial: func() (redigo.Conn, error) {
			return redigo.Dial("tcp", mr.Addr())
		},
	}

	t.Setenv("BILLING_GATEWAY", "fake")
	t.Setenv("AMPLITUDE_API_KEY", "")
	t.Setenv("MIXPANEL_API_KEY", "")

	log := logutil.NewStderrLog("test")
	a := NewApp(SetLog(log), SetConfig(config.NewEnvConfig(log)), SetDB(db), SetRedisPool(pool))
	t.Cleanup(a.Close)
	require.NoError(t, a.Migrate())
	return a
}

func TestAppSubscribe(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, isFake := a.gw.(*fakegw.Gateway)
	require.True(t, isFake)

	require.NoError(t, a.Catalog().Save(ctx, models.Plan{
		ProcessorID:      "standard",
		Name:             "Standard",
		Level:            1,
		Price:            decimal.RequireFromString("19.90"),
		Currency:         "USD",
		BillingFrequency: 1,
	}))

	c, err := a.Customers().Create(ctx, "Jane Doe", "jane@example.com")
	require.NoError(t, err)

	c, sub, err := a.Customers().Subscribe(ctx, c.ID, &customer.SubscribePayload{
		PlanID: "standard",
		Nonce:  fakegw.NoncePayPal,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, models.KindPayPalAccount, c.DefaultPaymentMethod().Kind())

	got, err := a.Syncer().Reconcile(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Version+1, got.Version)
}

func TestBuildGatewayUnknown(t *testing.T) {
	t.Setenv("BILLING_GATEWAY", "braintree")
	log := logutil.NewStderrLog("test")

	_, err := buildGateway(config.NewEnvConfig(log), log)
	assert.Error(t, err)
}
