package model

import (
	"fmt"
)

// Verification is the trust state of an institution; certificates inherit
// the state of their institution
type Verification int

// Constants for Verification
const (
	VerificationUnverified Verification = iota
	VerificationVerified
)

// String returns the canonical string representation for the verification state.
func (v Verification) String() string {
	switch v {
	case VerificationUnverified:
		return "unverified"
	case VerificationVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Valid reports whether the verification state is one of the defined constants.
func (v Verification) Valid() bool {
	switch v {
	case VerificationUnverified, VerificationVerified:
		return true
	default:
		return false
	}
}

// MarshalJSON encodes the verification state as a JSON string.
func (v Verification) MarshalJSON() ([]byte, error) {
	return []byte("\"" + v.String() + "\""), nil
}

// UnmarshalJSON decodes the verification state from a JSON string.
func (v *Verification) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("verification must be a JSON string")
	}
	pv, err := ParseVerification(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*v = pv
	return nil
}

// ParseVerification converts a string to a Verification, returning an error for invalid values.
func ParseVerification(s string) (Verification, error) {
	switch s {
	case "unverified", "UNVERIFIED":
		return VerificationUnverified, nil
	case "verified", "VERIFIED":
		return VerificationVerified, nil
	}
	return 0, fmt.Errorf("invalid verification state: %s", s)
}
