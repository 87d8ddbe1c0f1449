package storage

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/certledger/certledger/storage/model"
)

// OperatorsStorage implements model.OperatorsStore using GORM
type OperatorsStorage struct {
	db        *gorm.DB
	passwords passwordHasher
}

// Count implements the model.OperatorsStore interface
func (s *OperatorsStorage) Count() (int64, error) {
	var n int64
	err := s.db.Model(&model.Operator{}).Count(&n).Error
	return n, errors.Wrap(err, "operators: count failed")
}

// List implements the model.OperatorsStore interface
func (s *OperatorsStorage) List() ([]model.Operator, error) {
	var ops []model.Operator
	if err := s.db.Order("username").Find(&ops).Error; err != nil {
		return nil, errors.Wrap(err, "operators: list failed")
	}
	for i := range ops {
		ops[i].PasswordHash = ""
	}
	return ops, nil
}

// Create implements the model.OperatorsStore interface
func (s *OperatorsStorage) Create(username, password string) (*model.Operator, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}
	hash, err := s.passwords.hash(password)
	if err != nil {
		return nil, err
	}
	op := model.Operator{
		Username:     username,
		PasswordHash: hash,
	}
	if err = s.db.Create(&op).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, model.AlreadyExistsErrorFmt("operator already exists: %s", username)
		}
		return nil, errors.Wrap(err, "operators: create failed")
	}
	op.PasswordHash = ""
	return &op, nil
}

// SetDisabled implements the model.OperatorsStore interface
func (s *OperatorsStorage) SetDisabled(username string, disabled bool) error {
	res := s.db.Model(&model.Operator{}).Where("username = ?", username).Update("disabled", disabled)
	if res.Error != nil {
		return errors.Wrap(res.Error, "operators: update failed")
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("operator not found: %s", username)
	}
	return nil
}

// Authenticate implements the model.OperatorsStore interface
func (s *OperatorsStorage) Authenticate(username, password string) (*model.Operator, error) {
	var op model.Operator
	if err := s.db.Where("username = ?", username).First(&op).Error; err != nil {
		if isNotFound(err) {
			return nil, errors.New("invalid credentials")
		}
		return nil, errors.Wrap(err, "operators: get failed")
	}
	if op.Disabled {
		return nil, errors.New("operator disabled")
	}
	ok, rehash, err := s.passwords.verify(op.PasswordHash, password)
	if err != nil || !ok {
		return nil, errors.New("invalid credentials")
	}
	if rehash {
		if h, err := s.passwords.hash(password); err == nil {
			_ = s.db.Model(&op).Update("password_hash", h).Error
		}
	}
	op.PasswordHash = ""
	return &op, nil
}
