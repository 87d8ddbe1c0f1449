package storage

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/certledger/certledger/storage/model"
)

// InstitutionsStorage implements model.InstitutionsStore using GORM
type InstitutionsStorage struct {
	db        *gorm.DB
	passwords passwordHasher
}

// newInstitutionID returns a 32 character id, which fits into a ledger seed
func newInstitutionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create implements the model.InstitutionsStore interface
func (s *InstitutionsStorage) Create(name, password string) (*model.Institution, error) {
	if name == "" || password == "" {
		return nil, errors.New("name and password are required")
	}
	var existing int64
	if err := s.db.Model(&model.Institution{}).Where("name = ?", name).Count(&existing).Error; err != nil {
		return nil, errors.Wrap(err, "institutions: count failed")
	}
	if existing > 0 {
		return nil, model.AlreadyExistsErrorFmt("institution already exists: %s", name)
	}
	hash, err := s.passwords.hash(password)
	if err != nil {
		return nil, err
	}
	inst := model.Institution{
		ID:           newInstitutionID(),
		Name:         name,
		PasswordHash: hash,
		Verification: model.VerificationUnverified,
	}
	if err = s.db.Create(&inst).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, model.AlreadyExistsErrorFmt("institution already exists: %s", name)
		}
		return nil, errors.Wrap(err, "institutions: create failed")
	}
	inst.PasswordHash = ""
	return &inst, nil
}

func (s *InstitutionsStorage) first(query string, arg any) (*model.Institution, error) {
	var inst model.Institution
	if err := s.db.Where(query, arg).First(&inst).Error; err != nil {
		if isNotFound(err) {
			return nil, model.NotFoundErrorFmt("institution not found: %v", arg)
		}
		return nil, errors.Wrap(err, "institutions: get failed")
	}
	return &inst, nil
}

// Get implements the model.InstitutionsStore interface
func (s *InstitutionsStorage) Get(id string) (*model.Institution, error) {
	inst, err := s.first("id = ?", id)
	if err != nil {
		return nil, err
	}
	inst.PasswordHash = ""
	return inst, nil
}

// ByName implements the model.InstitutionsStore interface
func (s *InstitutionsStorage) ByName(name string) (*model.Institution, error) {
	inst, err := s.first("name = ?", name)
	if err != nil {
		return nil, err
	}
	inst.PasswordHash = ""
	return inst, nil
}

// List implements the model.InstitutionsStore interface
func (s *InstitutionsStorage) List() ([]model.Institution, error) {
	var list []model.Institution
	if err := s.db.Order("name").Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "institutions: list failed")
	}
	for i := range list {
		list[i].PasswordHash = ""
	}
	return list, nil
}

// Authenticate implements the model.InstitutionsStore interface; the stored
// hash is upgraded if the hashing parameters changed
func (s *InstitutionsStorage) Authenticate(name, password string) (*model.Institution, error) {
	inst, err := s.first("name = ?", name)
	if err != nil {
		return nil, err
	}
	ok, rehash, err := s.passwords.verify(inst.PasswordHash, password)
	if err != nil || !ok {
		return nil, errors.New("invalid credentials")
	}
	if rehash {
		if newHash, err := s.passwords.hash(password); err == nil {
			_ = s.db.Model(&model.Institution{}).Where("id = ?", inst.ID).Update("password_hash", newHash).Error
		}
	}
	inst.PasswordHash = ""
	return inst, nil
}

// SetVerification implements the model.InstitutionsStore interface
func (s *InstitutionsStorage) SetVerification(id string, verification model.Verification) (
	*model.Institution, error,
) {
	if !verification.Valid() {
		return nil, errors.Errorf("invalid verification state %d", verification)
	}
	res := s.db.Model(&model.Institution{}).Where("id = ?", id).Update("verification", verification)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "institutions: update failed")
	}
	if res.RowsAffected == 0 {
		return nil, model.NotFoundErrorFmt("institution not found: %s", id)
	}
	return s.Get(id)
}
