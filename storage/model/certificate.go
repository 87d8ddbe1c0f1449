package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Certificate is an issued certificate; it is immutable after creation.
//
// The token is the public lookup key of a certificate: whoever holds the
// token can read the public certificate view. Since tokens are too long for
// a portable unique index, lookups go through TokenHash.
type Certificate struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	InstitutionID string       `gorm:"index;size:32" json:"institutionId"`
	Institution   *Institution `gorm:"foreignKey:InstitutionID" json:"-"`
	CandidateID   string       `gorm:"size:32" json:"candidateId"`
	CandidateName string       `gorm:"size:64" json:"candidateName"`
	Description   string       `gorm:"size:128" json:"description"`
	URI           *string      `gorm:"size:200" json:"uri"`
	IssuedAt      int64        `json:"issuedAt"`

	// NFTHash is the proof reference returned by the ledger
	NFTHash       string `gorm:"size:128" json:"externalProofReference"`
	LedgerAddress string `gorm:"uniqueIndex;size:64" json:"ledgerAddress"`
	Token         string `gorm:"type:text" json:"token"`
	TokenHash     string `gorm:"uniqueIndex;size:64" json:"-"`

	// Verification mirrors the verification state of the institution at
	// read time; it is not stored
	Verification Verification `gorm:"-" json:"verification"`
}

// HashToken returns the lookup hash of a token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CertificatesStore persists certificates
type CertificatesStore interface {
	// Create stores a new certificate; a taken ledger address or token
	// results in an AlreadyExistsError
	Create(cert *Certificate) error
	// ByToken returns the certificate bound to token or a NotFoundError
	ByToken(token string) (*Certificate, error)
	// ByLedgerAddress returns the certificate at a ledger address or a NotFoundError
	ByLedgerAddress(address string) (*Certificate, error)
	// List returns all certificates, optionally only those of one institution
	List(institutionID string) ([]Certificate, error)
	// LedgerAddresses returns the ledger addresses of all stored certificates
	LedgerAddresses() ([]string, error)
}
