package issuance

import (
	"time"

	"github.com/certledger/certledger/attestation"
	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/storage/model"
	"github.com/certledger/certledger/token"
)

// Draft is an issuance request before anything was recorded
type Draft struct {
	InstitutionID string    `json:"institutionId" structs:"institution_id"`
	CandidateID   string    `json:"candidateId" structs:"candidate_id"`
	CandidateName string    `json:"candidateName" structs:"candidate_name"`
	Description   string    `json:"description" structs:"description"`
	URI           *string   `json:"uri,omitempty" structs:"uri"`
	IssuedAt      time.Time `json:"issuedAt" structs:"issued_at,omitnested"`
}

// Validate checks the draft against the limits of the token and the ledger
func (d Draft) Validate() error {
	claims := token.Claims{
		InstitutionID: d.InstitutionID,
		CandidateID:   d.CandidateID,
		CandidateName: d.CandidateName,
		IssuedAt:      d.IssuedAt.Unix(),
		// not known before submission
		ExternalProofReference: "-",
	}
	if err := claims.Validate(); err != nil {
		return err
	}
	if len(d.Description) > attestation.MaxDescriptionLen {
		return certerr.ValidationErrorf(
			"description must not be longer than %d bytes", attestation.MaxDescriptionLen,
		)
	}
	if d.URI != nil && len(*d.URI) > attestation.MaxURILen {
		return certerr.ValidationErrorf("uri must not be longer than %d bytes", attestation.MaxURILen)
	}
	return nil
}

func (d Draft) key() attestation.Key {
	return attestation.Key{
		InstitutionID: d.InstitutionID,
		CandidateID:   d.CandidateID,
		IssuedAt:      d.IssuedAt.Unix(),
	}
}

func (d Draft) record(institutionName string) attestation.Record {
	return attestation.Record{
		InstitutionID:   d.InstitutionID,
		InstitutionName: institutionName,
		CandidateID:     d.CandidateID,
		CandidateName:   d.CandidateName,
		IssuedAt:        d.IssuedAt.Unix(),
		Description:     d.Description,
		URI:             d.URI,
	}
}

// applyDraft resets a saga to the draft state for d
func applyDraft(saga *model.Issuance, d Draft) {
	saga.State = model.IssuanceDraft
	saga.InstitutionID = d.InstitutionID
	saga.CandidateID = d.CandidateID
	saga.CandidateName = d.CandidateName
	saga.Description = d.Description
	saga.URI = d.URI
	saga.IssuedAt = d.IssuedAt.Unix()
	saga.ProofReference = ""
	saga.Token = ""
	saga.CertificateID = ""
	saga.FailedStep = ""
	saga.Timeout = false
	saga.Reason = ""
}
