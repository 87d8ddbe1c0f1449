package model

import (
	"fmt"
	"time"
)

// IssuanceState is the state of an issuance saga
type IssuanceState int

// Constants for IssuanceState
const (
	IssuanceDraft IssuanceState = iota
	IssuanceExternallySubmitted
	IssuanceTokenMinted
	IssuancePersisted
	IssuanceFailed
	IssuancePartial
)

// String returns the canonical string representation for the state.
func (s IssuanceState) String() string {
	switch s {
	case IssuanceDraft:
		return "draft"
	case IssuanceExternallySubmitted:
		return "externally_submitted"
	case IssuanceTokenMinted:
		return "token_minted"
	case IssuancePersisted:
		return "persisted"
	case IssuanceFailed:
		return "failed"
	case IssuancePartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible from the state
func (s IssuanceState) Terminal() bool {
	return s == IssuancePersisted || s == IssuanceFailed || s == IssuancePartial
}

// MarshalJSON encodes the state as a JSON string.
func (s IssuanceState) MarshalJSON() ([]byte, error) {
	return []byte("\"" + s.String() + "\""), nil
}

// UnmarshalJSON decodes the state from a JSON string.
func (s *IssuanceState) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("issuance state must be a JSON string")
	}
	ps, err := ParseIssuanceState(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*s = ps
	return nil
}

// ParseIssuanceState converts a string to an IssuanceState
func ParseIssuanceState(v string) (IssuanceState, error) {
	for s := IssuanceDraft; s <= IssuancePartial; s++ {
		if s.String() == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("invalid issuance state: %s", v)
}

// Issuance is the persisted saga of a single certificate issuance. The ledger
// address is unique, so that a second issuance of the same logical
// certificate is detected before anything is submitted.
type Issuance struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	LedgerAddress string        `gorm:"uniqueIndex;size:64" json:"ledgerAddress"`
	State         IssuanceState `gorm:"index" json:"state"`

	InstitutionID string  `gorm:"index;size:32" json:"institutionId"`
	CandidateID   string  `gorm:"size:32" json:"candidateId"`
	CandidateName string  `gorm:"size:64" json:"candidateName"`
	Description   string  `gorm:"size:128" json:"description"`
	URI           *string `gorm:"size:200" json:"uri,omitempty"`
	IssuedAt      int64   `json:"issuedAt"`

	ProofReference string `gorm:"size:128" json:"externalProofReference,omitempty"`
	Token          string `gorm:"type:text" json:"-"`
	CertificateID  string `gorm:"size:36" json:"certificateId,omitempty"`

	// FailedStep is the step that could not be completed for failed and
	// partial sagas
	FailedStep string `json:"failedStep,omitempty"`
	// Timeout is set if the failed step ran into a deadline
	Timeout bool   `json:"timeout,omitempty"`
	Reason  string `gorm:"type:text" json:"reason,omitempty"`
}

// IssuancesStore persists issuance sagas
type IssuancesStore interface {
	// Create stores a new saga; an existing saga for the same ledger address
	// results in an AlreadyExistsError
	Create(issuance *Issuance) error
	// Update saves all fields of the saga
	Update(issuance *Issuance) error
	// ByAddress returns the saga for a ledger address or a NotFoundError
	ByAddress(address string) (*Issuance, error)
	// List returns all sagas in one of the passed states; no states means all
	List(states ...IssuanceState) ([]Issuance, error)
	// Stale returns sagas in one of the passed states last updated before the
	// passed time
	Stale(before time.Time, states ...IssuanceState) ([]Issuance, error)
}
