package storage

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/certledger/certledger/storage/model"
)

// Storage is a GORM-based storage implementation
type Storage struct {
	db        *gorm.DB
	passwords passwordHasher
}

var models = []any{
	&model.Institution{},
	&model.Certificate{},
	&model.Issuance{},
	&model.VerificationAttempt{},
	&model.Operator{},
	&model.KeyValue{},
}

// NewStorage creates a new GORM-based storage
func NewStorage(config Config) (*Storage, error) {
	db, err := Connect(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return NewStorageFromDB(db, config.PasswordHashing)
}

// NewStorageFromDB migrates the schema on an already opened database and
// returns a Storage for it
func NewStorageFromDB(db *gorm.DB, hashing Argon2idParams) (*Storage, error) {
	if err := db.AutoMigrate(models...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return &Storage{
		db:        db,
		passwords: newPasswordHasher(hashing),
	}, nil
}

// Backends returns all stores of this Storage
func (s *Storage) Backends() model.Backends {
	return model.Backends{
		Institutions:  s.InstitutionsStorage(),
		Certificates:  s.CertificatesStorage(),
		Issuances:     s.IssuancesStorage(),
		Verifications: s.VerificationAttemptsStorage(),
		Operators:     s.OperatorsStorage(),
		KV:            s.KeyValue(),
	}
}

// InstitutionsStorage returns an InstitutionsStorage
func (s *Storage) InstitutionsStorage() *InstitutionsStorage {
	return &InstitutionsStorage{
		db:        s.db,
		passwords: s.passwords,
	}
}

// CertificatesStorage returns a CertificatesStorage
func (s *Storage) CertificatesStorage() *CertificatesStorage {
	return &CertificatesStorage{db: s.db}
}

// IssuancesStorage returns an IssuancesStorage
func (s *Storage) IssuancesStorage() *IssuancesStorage {
	return &IssuancesStorage{db: s.db}
}

// VerificationAttemptsStorage returns a VerificationAttemptsStorage
func (s *Storage) VerificationAttemptsStorage() *VerificationAttemptsStorage {
	return &VerificationAttemptsStorage{db: s.db}
}

// OperatorsStorage returns an OperatorsStorage
func (s *Storage) OperatorsStorage() *OperatorsStorage {
	return &OperatorsStorage{
		db:        s.db,
		passwords: s.passwords,
	}
}
