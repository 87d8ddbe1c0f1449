package storage

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/certledger/certledger/storage/model"
)

// VerificationAttemptsStorage implements model.VerificationAttemptsStore using GORM
type VerificationAttemptsStorage struct {
	db *gorm.DB
}

// Add implements the model.VerificationAttemptsStore interface
func (s *VerificationAttemptsStorage) Add(attempt *model.VerificationAttempt) error {
	return errors.Wrap(s.db.Create(attempt).Error, "verification attempts: add failed")
}

// List implements the model.VerificationAttemptsStore interface
func (s *VerificationAttemptsStorage) List(limit int) ([]model.VerificationAttempt, error) {
	q := s.db.Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []model.VerificationAttempt
	if err := q.Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "verification attempts: list failed")
	}
	return list, nil
}
