package attestation

import (
	"context"
	"net"

	"github.com/pkg/errors"

	"github.com/certledger/certledger/certerr"
)

// Size limits of the on-chain certificate account
const (
	MaxInstitutionIDLen   = 32
	MaxInstitutionNameLen = 64
	MaxCandidateIDLen     = 32
	MaxCandidateNameLen   = 64
	MaxDescriptionLen     = 128
	MaxURILen             = 200
)

// Key identifies a logical certificate on the ledger
type Key struct {
	InstitutionID string
	CandidateID   string
	IssuedAt      int64
}

// Record holds the certificate facts stored on the ledger
type Record struct {
	Authority       string  `json:"authority" msgpack:"authority"`
	InstitutionID   string  `json:"institutionId" msgpack:"institution_id"`
	InstitutionName string  `json:"institutionName" msgpack:"institution_name"`
	CandidateID     string  `json:"candidateId" msgpack:"candidate_id"`
	CandidateName   string  `json:"candidateName" msgpack:"candidate_name"`
	IssuedAt        int64   `json:"issuedAt" msgpack:"issued_at"`
	Description     string  `json:"description" msgpack:"description"`
	URI             *string `json:"uri,omitempty" msgpack:"uri,omitempty"`
}

// Key returns the Key of the Record
func (r Record) Key() Key {
	return Key{
		InstitutionID: r.InstitutionID,
		CandidateID:   r.CandidateID,
		IssuedAt:      r.IssuedAt,
	}
}

// Proof is returned for a successful submission
type Proof struct {
	// Address is the deterministic ledger address of the record
	Address string `json:"address"`
	// Reference is the opaque proof reference, e.g. a transaction signature
	Reference string `json:"reference"`
}

// Entry is a Record together with its ledger address
type Entry struct {
	Address string `json:"address"`
	Record
}

func checkField(field, value string, maxLen int, required bool) error {
	if required && value == "" {
		return certerr.ValidationErrorf("%s is required", field)
	}
	if len(value) > maxLen {
		return certerr.ValidationErrorf("%s must not be longer than %d bytes", field, maxLen)
	}
	return nil
}

// Validate checks the Record against the ledger's account limits. It is
// applied to submitted records as well as to records read from the ledger.
func (r Record) Validate() error {
	if r.Authority == "" {
		return certerr.ValidationErrorf("authority is required")
	}
	if err := checkField("institutionId", r.InstitutionID, MaxInstitutionIDLen, true); err != nil {
		return err
	}
	if err := checkField("institutionName", r.InstitutionName, MaxInstitutionNameLen, true); err != nil {
		return err
	}
	if err := checkField("candidateId", r.CandidateID, MaxCandidateIDLen, true); err != nil {
		return err
	}
	if err := checkField("candidateName", r.CandidateName, MaxCandidateNameLen, true); err != nil {
		return err
	}
	if r.IssuedAt <= 0 {
		return certerr.ValidationErrorf("issuedAt must be a positive unix timestamp")
	}
	if err := checkField("description", r.Description, MaxDescriptionLen, false); err != nil {
		return err
	}
	if r.URI != nil {
		return checkField("uri", *r.URI, MaxURILen, false)
	}
	return nil
}

// Bridge records certificate facts on an external, append-only ledger
type Bridge interface {
	// Address returns the deterministic ledger address for the key
	Address(key Key) (string, error)
	// Submit stores the record; an occupied address is a conflict
	Submit(ctx context.Context, record Record) (Proof, error)
	// FetchAll returns all certificate records on the ledger
	FetchAll(ctx context.Context) ([]Entry, error)
	// FetchOne returns the record at address or a not found error
	FetchOne(ctx context.Context, address string) (*Record, error)
}

// classify maps cancellation and network failures to transient errors and
// wraps everything else with msg
func classify(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return certerr.TransientError(msg, true, err)
	}
	if errors.Is(err, context.Canceled) {
		return certerr.TransientError(msg, false, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return certerr.TransientError(msg, netErr.Timeout(), err)
	}
	if _, ok := certerr.As(err); ok {
		return err
	}
	return errors.Wrap(err, msg)
}
