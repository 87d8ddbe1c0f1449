package model

import (
	"time"
)

// VerificationAttempt is an audit log entry for a document verification
type VerificationAttempt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Outcome     string `gorm:"index;size:32" json:"outcome"`
	FileName    string `json:"fileName"`
	FileSize    int    `json:"fileSize"`
	ContentType string `gorm:"size:64" json:"contentType"`
	ClaimedName string `gorm:"size:128" json:"claimedName,omitempty"`
	// TokenHash is the lookup hash of the extracted token, if any
	TokenHash string `gorm:"index;size:64" json:"tokenHash,omitempty"`
	ClientIP  string `gorm:"size:64" json:"clientIp,omitempty"`
	Country   string `gorm:"size:2" json:"country,omitempty"`
	Reason    string `gorm:"type:text" json:"reason,omitempty"`
}

// VerificationAttemptsStore is the append-only verification audit log
type VerificationAttemptsStore interface {
	Add(attempt *VerificationAttempt) error
	// List returns the latest attempts, newest first
	List(limit int) ([]VerificationAttempt, error)
}
