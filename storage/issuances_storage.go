package storage

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/certledger/certledger/storage/model"
)

// IssuancesStorage implements model.IssuancesStore using GORM
type IssuancesStorage struct {
	db *gorm.DB
}

// Create implements the model.IssuancesStore interface
func (s *IssuancesStorage) Create(issuance *model.Issuance) error {
	if issuance.LedgerAddress == "" {
		return errors.New("issuance ledger address is required")
	}
	if err := s.db.Create(issuance).Error; err != nil {
		if isUniqueConstraintError(err) {
			return model.AlreadyExistsErrorFmt("issuance already exists for %s", issuance.LedgerAddress)
		}
		return errors.Wrap(err, "issuances: create failed")
	}
	return nil
}

// Update implements the model.IssuancesStore interface
func (s *IssuancesStorage) Update(issuance *model.Issuance) error {
	if issuance.ID == 0 {
		return errors.New("issuance has not been created")
	}
	return errors.Wrap(s.db.Save(issuance).Error, "issuances: update failed")
}

// ByAddress implements the model.IssuancesStore interface
func (s *IssuancesStorage) ByAddress(address string) (*model.Issuance, error) {
	var issuance model.Issuance
	if err := s.db.Where("ledger_address = ?", address).First(&issuance).Error; err != nil {
		if isNotFound(err) {
			return nil, model.NotFoundErrorFmt("no issuance for %s", address)
		}
		return nil, errors.Wrap(err, "issuances: get failed")
	}
	return &issuance, nil
}

// List implements the model.IssuancesStore interface
func (s *IssuancesStorage) List(states ...model.IssuanceState) ([]model.Issuance, error) {
	q := s.db.Order("id")
	if len(states) > 0 {
		q = q.Where("state IN ?", states)
	}
	var list []model.Issuance
	if err := q.Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "issuances: list failed")
	}
	return list, nil
}

// Stale implements the model.IssuancesStore interface
func (s *IssuancesStorage) Stale(before time.Time, states ...model.IssuanceState) ([]model.Issuance, error) {
	q := s.db.Where("updated_at < ?", before).Order("id")
	if len(states) > 0 {
		q = q.Where("state IN ?", states)
	}
	var list []model.Issuance
	if err := q.Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "issuances: stale lookup failed")
	}
	return list, nil
}
