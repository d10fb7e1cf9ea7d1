// Package plans keeps the catalog of plans customers can subscribe to.
package plans

import (
	"context"

	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/pkg/errors"
)

//go:generate mockgen -package plans -source catalog.go -destination catalog_mock.go

var ErrNotFound = errors.New("plan not found")

type Catalog interface {
	Get(ctx context.Context, processorID string) (*models.Plan, error)
	// List returns plans ordered by level, cheapest first.
	List(ctx context.Context) ([]models.Plan, error)
	Save(ctx context.Context, plan models.Plan) error
}

func validatePlan(p models.Plan) error {
	switch {
	case p.ProcessorID == "":
		return models.ValidationError{Field: "processorId", Reason: "is required"}
	case p.Price.IsNegative():
		return models.ValidationError{Field: "price", EntityID: p.ProcessorID, Reason: "must not be negative"}
	case p.BillingFrequency < 1:
		return models.ValidationError{Field: "billingFrequency", EntityID: p.ProcessorID, Reason: "must be at least 1 month"}
	}
	return nil
}
