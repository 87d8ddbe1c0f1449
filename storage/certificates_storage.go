package storage

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/certledger/certledger/storage/model"
)

// CertificatesStorage implements model.CertificatesStore using GORM
type CertificatesStorage struct {
	db *gorm.DB
}

// Create implements the model.CertificatesStore interface
func (s *CertificatesStorage) Create(cert *model.Certificate) error {
	if cert.Token == "" {
		return errors.New("certificate token is required")
	}
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	cert.TokenHash = model.HashToken(cert.Token)
	if err := s.db.Omit("Institution").Create(cert).Error; err != nil {
		if isUniqueConstraintError(err) {
			return model.AlreadyExistsErrorFmt("certificate already exists at %s", cert.LedgerAddress)
		}
		return errors.Wrap(err, "certificates: create failed")
	}
	return nil
}

func (s *CertificatesStorage) first(query string, arg any) (*model.Certificate, error) {
	var cert model.Certificate
	if err := s.db.Preload("Institution").Where(query, arg).First(&cert).Error; err != nil {
		if isNotFound(err) {
			return nil, model.NotFoundError("certificate not found")
		}
		return nil, errors.Wrap(err, "certificates: get failed")
	}
	withVerification(&cert)
	return &cert, nil
}

func withVerification(cert *model.Certificate) {
	if cert.Institution != nil {
		cert.Verification = cert.Institution.Verification
		cert.Institution.PasswordHash = ""
	}
}

// ByToken implements the model.CertificatesStore interface
func (s *CertificatesStorage) ByToken(token string) (*model.Certificate, error) {
	if token == "" {
		return nil, model.NotFoundError("certificate not found")
	}
	return s.first("token_hash = ?", model.HashToken(token))
}

// ByLedgerAddress implements the model.CertificatesStore interface
func (s *CertificatesStorage) ByLedgerAddress(address string) (*model.Certificate, error) {
	return s.first("ledger_address = ?", address)
}

// List implements the model.CertificatesStore interface
func (s *CertificatesStorage) List(institutionID string) ([]model.Certificate, error) {
	q := s.db.Preload("Institution").Order("created_at DESC")
	if institutionID != "" {
		q = q.Where("institution_id = ?", institutionID)
	}
	var certs []model.Certificate
	if err := q.Find(&certs).Error; err != nil {
		return nil, errors.Wrap(err, "certificates: list failed")
	}
	for i := range certs {
		withVerification(&certs[i])
	}
	return certs, nil
}

// LedgerAddresses implements the model.CertificatesStore interface
func (s *CertificatesStorage) LedgerAddresses() ([]string, error) {
	var addresses []string
	if err := s.db.Model(&model.Certificate{}).Pluck("ledger_address", &addresses).Error; err != nil {
		return nil, errors.Wrap(err, "certificates: list addresses failed")
	}
	return addresses, nil
}
