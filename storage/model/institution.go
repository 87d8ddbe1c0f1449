package model

import (
	"time"
)

// Institution is an issuer of certificates
type Institution struct {
	// ID is generated at registration and never changes
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name string `gorm:"uniqueIndex;size:64" json:"name"`
	// PasswordHash stores a PHC-formatted argon2id hash of the institution's password
	PasswordHash string       `json:"-"`
	Verification Verification `gorm:"index" json:"verification"`
}

// InstitutionsStore abstracts persistence and authentication of institutions
type InstitutionsStore interface {
	// Create registers a new institution; the implementation must hash the
	// password and return an AlreadyExistsError if the name is taken
	Create(name, password string) (*Institution, error)
	// Get returns an institution by id
	Get(id string) (*Institution, error)
	// ByName returns an institution by name
	ByName(name string) (*Institution, error)
	// List returns all institutions (without password hashes)
	List() ([]Institution, error)
	// Authenticate checks a name/password combo and returns the institution
	Authenticate(name, password string) (*Institution, error)
	// SetVerification changes the verification state of an institution
	SetVerification(id string, verification Verification) (*Institution, error)
}
