package plans

import (
	"context"
	"time"

	"github.com/golangci/golangci-billing/internal/shared/cache"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/golangci/golangci-billing/pkg/billing/models"
)

const (
	cacheKeyPrefix = "billing/plans/"
	cacheListKey   = cacheKeyPrefix + "_all"
)

// CachedCatalog reads through a cache. Cache failures are logged and the
// wrapped catalog is used instead.
type CachedCatalog struct {
	next  Catalog
	cache cache.Cache
	ttl   time.Duration
	log   logutil.Log
}

var _ Catalog = &CachedCatalog{}

func NewCachedCatalog(next Catalog, c cache.Cache, ttl time.Duration, log logutil.Log) *CachedCatalog {
	return &CachedCatalog{
		next:  next,
		cache: c,
		ttl:   ttl,
		log:   log,
	}
}

func (c CachedCatalog) Get(ctx context.Context, processorID string) (*models.Plan, error) {
	key := cacheKeyPrefix + processorID

	var cached *models.Plan
	if err := c.cache.Get(key, &cached); err != nil {
		c.log.Warnf("Can't get plan %s from cache: %s", processorID, err)
	} else if cached != nil {
		return cached, nil
	}

	p, err := c.next.Get(ctx, processorID)
	if err != nil {
		return nil, err
	}

	if err = c.cache.Set(key, c.ttl, p); err != nil {
		c.log.Warnf("Can't save plan %s to cache: %s", processorID, err)
	}
	return p, nil
}

func (c CachedCatalog) List(ctx context.Context) ([]models.Plan, error) {
	var cached []models.Plan
	if err := c.cache.Get(cacheListKey, &cached); err != nil {
		c.log.Warnf("Can't get plans from cache: %s", err)
	} else if cached != nil {
		return cached, nil
	}

	ps, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}

	if err = c.cache.Set(cacheListKey, c.ttl, ps); err != nil {
		c.log.Warnf("Can't save plans to cache: %s", err)
	}
	return ps, nil
}

func (c CachedCatalog) Save(ctx context.Context, plan models.Plan) error {
	if err := c.next.Save(ctx, plan); err != nil {
		return err
	}

	for _, key := range []string{cacheKeyPrefix + plan.ProcessorID, cacheListKey} {
		if err := c.cache.Delete(key); err != nil {
			c.log.Warnf("Can't invalidate cached %s: %s", key, err)
		}
	}
	return nil
}
