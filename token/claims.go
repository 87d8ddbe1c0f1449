package token

import (
	"encoding/json"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/pkg/errors"

	"github.com/certledger/certledger/certerr"
)

// Limits for claim values; they match the size limits of the on-chain
// certificate account, so that everything bound into a token can also be
// anchored on the ledger.
const (
	MaxInstitutionIDLen   = 32
	MaxCandidateIDLen     = 32
	MaxCandidateNameLen   = 64
	MaxProofReferenceLen  = 128
	payloadVersion        = 1
	headerType            = "certificate+jws"
	tokenSegments         = 3
	tokenSegmentSeparator = "."
)

// Claims is the set of certificate fields bound into a token
type Claims struct {
	InstitutionID          string `json:"institutionId" structs:"institution_id"`
	CandidateID            string `json:"candidateId" structs:"candidate_id"`
	CandidateName          string `json:"candidateName" structs:"candidate_name"`
	IssuedAt               int64  `json:"issuedAt" structs:"issued_at"`
	ExternalProofReference string `json:"externalProofReference" structs:"external_proof_reference"`
}

// Token is a verified token
type Token struct {
	Claims
	// MintedAt is the time the token itself was minted
	MintedAt time.Time `json:"mintedAt"`
}

// payload is the signed JWS payload; field names are sorted by JCS, the
// struct order only matters for readability.
type payload struct {
	CandidateID            string `json:"candidateId"`
	CandidateName          string `json:"candidateName"`
	ExternalProofReference string `json:"externalProofReference"`
	MintedAt               int64  `json:"iat"`
	InstitutionID          string `json:"institutionId"`
	IssuedAt               int64  `json:"issuedAt"`
	Version                int    `json:"ver"`
}

func checkLen(field, value string, maxLen int) error {
	if value == "" {
		return certerr.ValidationErrorf("%s is required", field)
	}
	if len(value) > maxLen {
		return certerr.ValidationErrorf("%s must not be longer than %d bytes", field, maxLen)
	}
	return nil
}

// Validate checks that all claims are present and within their limits
func (c Claims) Validate() error {
	if err := checkLen("institutionId", c.InstitutionID, MaxInstitutionIDLen); err != nil {
		return err
	}
	if err := checkLen("candidateId", c.CandidateID, MaxCandidateIDLen); err != nil {
		return err
	}
	if err := checkLen("candidateName", c.CandidateName, MaxCandidateNameLen); err != nil {
		return err
	}
	if c.IssuedAt <= 0 {
		return certerr.ValidationErrorf("issuedAt must be a positive unix timestamp")
	}
	return checkLen("externalProofReference", c.ExternalProofReference, MaxProofReferenceLen)
}

// Canonical returns the RFC 8785 canonical JSON payload binding the claims
// and the token's mint time.
func (c Claims) Canonical(mintedAt time.Time) ([]byte, error) {
	raw, err := json.Marshal(
		payload{
			CandidateID:            c.CandidateID,
			CandidateName:          c.CandidateName,
			ExternalProofReference: c.ExternalProofReference,
			MintedAt:               mintedAt.Unix(),
			InstitutionID:          c.InstitutionID,
			IssuedAt:               c.IssuedAt,
			Version:                payloadVersion,
		},
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	canonical, err := jcs.Transform(raw)
	return canonical, errors.Wrap(err, "token: canonicalization failed")
}
