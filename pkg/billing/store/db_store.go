package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golangci/golangci-billing/pkg/billing/models"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

type customerRecord struct {
	ID          string `gorm:"primary_key"`
	ProcessorID string `gorm:"index"`
	Email       string `gorm:"index"`
	Version     int64  `gorm:"not null"`
	Document    string `gorm:"type:text;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (customerRecord) TableName() string {
	return "billing_customers"
}

type DBStore struct {
	db *gorm.DB
}

var _ Store = &DBStore{}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

func (s DBStore) Migrate() error {
	return errors.Wrap(s.db.AutoMigrate(&customerRecord{}).Error, "can't migrate customers table")
}

func (s DBStore) Get(ctx context.Context, id string) (*models.Customer, error) {
	return s.getBy(ctx, "id = ?", id)
}

func (s DBStore) GetByProcessorID(ctx context.Context, processorID string) (*models.Customer, error) {
	return s.getBy(ctx, "processor_id = ?", processorID)
}

func (s DBStore) getBy(ctx context.Context, query string, arg string) (*models.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec customerRecord
	if err := s.db.Where(query, arg).First(&rec).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", arg)
		}
		return nil, errors.Wrapf(err, "can't fetch customer %s", arg)
	}

	var c models.Customer
	if err := json.Unmarshal([]byte(rec.Document), &c); err != nil {
		return nil, errors.Wrapf(err, "can't decode customer %s", rec.ID)
	}
	c.Version = rec.Version
	c.MarkSynced()

	return &c, nil
}

func (s DBStore) Save(ctx context.Context, c *models.Customer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	next := *c
	next.Version = c.Version + 1
	doc, err := json.Marshal(&next)
	if err != nil {
		return errors.Wrapf(err, "can't encode customer %s", c.ID)
	}

	if c.Version == 0 {
		err = s.insert(c, next.Version, string(doc))
	} else {
		err = s.update(c, next.Version, string(doc))
	}
	if err != nil {
		return err
	}

	c.Version = next.Version
	return nil
}

func (s DBStore) insert(c *models.Customer, version int64, doc string) error {
	rec := customerRecord{
		ID:          c.ID,
		ProcessorID: c.Processor.ID,
		Email:       c.Email,
		Version:     version,
		Document:    doc,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		found, existsErr := s.exists(c.ID)
		if existsErr != nil {
			return errors.Wrapf(err, "can't insert customer %s (%s)", c.ID, existsErr)
		}
		if found {
			return errors.Wrapf(ErrConflict, "customer %s already exists", c.ID)
		}
		return errors.Wrapf(err, "can't insert customer %s", c.ID)
	}
	return nil
}

func (s DBStore) update(c *models.Customer, version int64, doc string) error {
	res := s.db.Model(&customerRecord{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]interface{}{
			"processor_id": c.Processor.ID,
			"email":        c.Email,
			"version":      version,
			"document":     doc,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "can't update customer %s", c.ID)
	}

	if res.RowsAffected == 0 {
		found, err := s.exists(c.ID)
		if err != nil {
			return err
		}
		if !found {
			return errors.Wrapf(ErrNotFound, "%s", c.ID)
		}
		return errors.Wrapf(ErrConflict, "customer %s isn't at version %d anymore", c.ID, c.Version)
	}
	return nil
}

func (s DBStore) exists(id string) (bool, error) {
	var n int
	if err := s.db.Model(&customerRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, errors.Wrapf(err, "can't check customer %s exists", id)
	}
	return n != 0, nil
}
