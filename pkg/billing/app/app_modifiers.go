package app

import (
	redigo "github.com/garyburd/redigo/redis"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/billing/analytics"
	"github.com/golangci/golangci-billing/pkg/billing/gateway"
	"github.com/jinzhu/gorm"
)

type Modifier func(a *App)

func SetConfig(cfg config.Config) Modifier {
	return func(a *App) {
		a.cfg = cfg
	}
}

func SetLog(log logutil.Log) Modifier {
	return func(a *App) {
		a.log = log
	}
}

func SetDB(db *gorm.DB) Modifier {
	return func(a *App) {
		a.gormDB = db
	}
}

func SetRedisPool(p *redigo.Pool) Modifier {
	return func(a *App) {
		a.redisPool = p
	}
}

func SetGateway(gw gateway.Gateway) Modifier {
	return func(a *App) {
		a.gw = gw
	}
}

func SetTracker(t analytics.Tracker) Modifier {
	return func(a *App) {
		a.tracker = t
	}
}
