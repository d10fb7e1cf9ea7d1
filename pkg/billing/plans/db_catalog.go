package plans

import (
	"context"
	"time"

	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type planRecord struct {
	ProcessorID      string          `gorm:"primary_key"`
	Name             string          `gorm:"not null"`
	Level            int             `gorm:"not null;index"`
	Price            decimal.Decimal `gorm:"type:varchar(32);not null"`
	Currency         string          `gorm:"not null"`
	BillingFrequency int             `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (planRecord) TableName() string {
	return "billing_plans"
}

func (r planRecord) toModel() models.Plan {
	return models.Plan{
		ProcessorID:      r.ProcessorID,
		Name:             r.Name,
		Level:            r.Level,
		Price:            r.Price,
		Currency:         r.Currency,
		BillingFrequency: r.BillingFrequency,
	}
}

type DBCatalog struct {
	db *gorm.DB
}

var _ Catalog = &DBCatalog{}

func NewDBCatalog(db *gorm.DB) *DBCatalog {
	return &DBCatalog{db: db}
}

func (c DBCatalog) Migrate() error {
	return errors.Wrap(c.db.AutoMigrate(&planRecord{}).Error, "can't migrate plans table")
}

func (c DBCatalog) Get(ctx context.Context, processorID string) (*models.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec planRecord
	if err := c.db.Where("processor_id = ?", processorID).First(&rec).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", processorID)
		}
		return nil, errors.Wrapf(err, "can't fetch plan %s", processorID)
	}

	p := rec.toModel()
	return &p, nil
}

func (c DBCatalog) List(ctx context.Context) ([]models.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var recs []planRecord
	if err := c.db.Order("level ASC, processor_id ASC").Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "can't list plans")
	}

	ret := make([]models.Plan, 0, len(recs))
	for _, r := range recs {
		ret = append(ret, r.toModel())
	}
	return ret, nil
}

// Save inserts the plan or overwrites the one with the same processor id.
func (c DBCatalog) Save(ctx context.Context, plan models.Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePlan(plan); err != nil {
		return err
	}

	rec := planRecord{
		ProcessorID:      plan.ProcessorID,
		Name:             plan.Name,
		Level:            plan.Level,
		Price:            plan.Price,
		Currency:         plan.Currency,
		BillingFrequency: plan.BillingFrequency,
	}

	var existing planRecord
	err := c.db.Where("processor_id = ?", plan.ProcessorID).First(&existing).Error
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		return errors.Wrapf(err, "can't fetch plan %s", plan.ProcessorID)
	}
	if err == nil {
		rec.CreatedAt = existing.CreatedAt
	}

	if err := c.db.Save(&rec).Error; err != nil {
		return errors.Wrapf(err, "can't save plan %s", plan.ProcessorID)
	}
	return nil
}
