// Package app wires billing dependencies from the environment.
package app

import (
	"time"

	redigo "github.com/garyburd/redigo/redis"
	"github.com/golangci/golangci-billing/internal/shared/apperrors"
	"github.com/golangci/golangci-billing/internal/shared/cache"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/db/gormdb"
	"github.com/golangci/golangci-billing/internal/shared/db/redis"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/billing/analytics"
	"github.com/golangci/golangci-billing/pkg/billing/gateway"
	"github.com/golangci/golangci-billing/pkg/billing/gateway/fakegw"
	"github.com/golangci/golangci-billing/pkg/billing/gateway/stripegw"
	"github.com/golangci/golangci-billing/pkg/billing/plans"
	"github.com/golangci/golangci-billing/pkg/billing/services/customer"
	"github.com/golangci/golangci-billing/pkg/billing/store"
	"github.com/golangci/golangci-billing/pkg/billing/syncer"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

type App struct {
	cfg        config.Config
	log        logutil.Log
	trackedLog logutil.Log
	errTracker apperrors.Tracker
	gormDB     *gorm.DB
	redisPool  *redigo.Pool
	gw         gateway.Gateway
	tracker    analytics.Tracker

	store     *store.DBStore
	dbCatalog *plans.DBCatalog
	catalog   plans.Catalog
	syncer    *syncer.Syncer
	customers customer.Service
}

func (a *App) buildDeps() {
	if a.log == nil {
		slog := logutil.NewStderrLog("golangci-billing")
		slog.SetLevel(logutil.LogLevelInfo)
		a.log = slog
	}

	if a.cfg == nil {
		a.cfg = config.NewEnvConfig(a.log)
	}

	if a.errTracker == nil {
		a.errTracker = apperrors.GetTracker(a.cfg, a.log, "billing")
	}
	if a.trackedLog == nil {
		a.trackedLog = apperrors.WrapLogWithTracker(a.log, nil, a.errTracker)
	}

	if a.gormDB == nil {
		gormDB, err := gormdb.GetDB(a.cfg, a.trackedLog, "")
		if err != nil {
			a.log.Fatalf("Can't get DB: %s", err)
		}
		a.gormDB = gormDB
	}

	if a.redisPool == nil {
		redisPool, err := redis.GetPool(a.cfg)
		if err != nil {
			a.log.Fatalf("Can't get redis pool: %s", err)
		}
		a.redisPool = redisPool
	}

	if a.gw == nil {
		gw, err := buildGateway(a.cfg, a.trackedLog)
		if err != nil {
			a.log.Fatalf("Can't build payment gateway: %s", err)
		}
		a.gw = gw
	}

	if a.tracker == nil {
		a.tracker = analytics.NewTracker(a.cfg, a.log.Child("analytics"))
	}
}

func buildGateway(cfg config.Config, log logutil.Log) (gateway.Gateway, error) {
	switch name := cfg.GetStringDefault("BILLING_GATEWAY", "stripe"); name {
	case "stripe":
		return stripegw.NewFromConfig(cfg, log.Child("stripe"))
	case "fake":
		log.Warnf("Using in-memory payment gateway, nothing is charged")
		return fakegw.New(), nil
	default:
		return nil, errors.Errorf("unknown BILLING_GATEWAY %q", name)
	}
}

func (a *App) buildServices() {
	a.store = store.NewDBStore(a.gormDB)
	a.dbCatalog = plans.NewDBCatalog(a.gormDB)
	a.catalog = plans.NewCachedCatalog(a.dbCatalog, cache.NewRedis(a.redisPool),
		a.cfg.GetDuration("PLANS_CACHE_TTL", 10*time.Minute), a.trackedLog.Child("plans"))
	a.syncer = syncer.New(a.gw, a.store, a.trackedLog.Child("syncer"))
	a.customers = customer.Configure(a.syncer, a.store, a.catalog, a.tracker, a.trackedLog)
}

func NewApp(modifiers ...Modifier) *App {
	a := App{}
	for _, m := range modifiers {
		m(&a)
	}
	a.buildDeps()
	a.buildServices()

	return &a
}

func (a App) Migrate() error {
	if err := a.store.Migrate(); err != nil {
		return err
	}
	return a.dbCatalog.Migrate()
}

func (a App) Customers() customer.Service {
	return a.customers
}

func (a App) Catalog() plans.Catalog {
	return a.catalog
}

func (a App) Syncer() *syncer.Syncer {
	return a.syncer
}

func (a App) Log() logutil.Log {
	return a.trackedLog
}

func (a App) Close() {
	if err := a.redisPool.Close(); err != nil {
		a.log.Warnf("Can't close redis pool: %s", err)
	}
	if err := a.gormDB.Close(); err != nil {
		a.log.Warnf("Can't close DB: %s", err)
	}
}
