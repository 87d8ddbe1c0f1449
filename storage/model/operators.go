package model

import (
	"time"
)

// Operator is a user of the admin API.
// When no operators exist, the admin API is open; when one or more operators
// exist, only authenticated operators may access it.
type Operator struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Username     string `gorm:"uniqueIndex;size:64" json:"username"`
	PasswordHash string `json:"-"`
	Disabled     bool   `json:"disabled"`
}

// OperatorsStore abstracts persistence and authentication of operators
type OperatorsStore interface {
	// Count returns the number of operators present in the store
	Count() (int64, error)
	// List returns all operators (without password hashes)
	List() ([]Operator, error)
	// Create creates an operator; the implementation must hash the password
	Create(username, password string) (*Operator, error)
	// SetDisabled enables or disables an operator
	SetDisabled(username string, disabled bool) error
	// Authenticate checks a username/password combo and returns the operator
	Authenticate(username, password string) (*Operator, error)
}
