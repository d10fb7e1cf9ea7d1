// Package store persists customer aggregates as versioned documents.
package store

import (
	"context"

	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/pkg/errors"
)

//go:generate mockgen -package store -source store.go -destination store_mock.go

var (
	ErrNotFound = errors.New("customer not found")
	// ErrConflict means the stored customer was changed after it was read.
	ErrConflict = errors.New("customer was changed in parallel")
)

type Store interface {
	Get(ctx context.Context, id string) (*models.Customer, error)
	GetByProcessorID(ctx context.Context, processorID string) (*models.Customer, error)

	// Save writes c only if the stored version still equals c.Version and
	// increments c.Version on success. A zero version inserts.
	Save(ctx context.Context, c *models.Customer) error
}
