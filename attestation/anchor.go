package attestation

import (
	"bytes"
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
	"github.com/pkg/errors"
)

const discriminatorLen = 8

var (
	createCertificateDiscriminator  = anchorDiscriminator("global", "create_certificate")
	certificateAccountDiscriminator = anchorDiscriminator("account", "Certificate")
)

func anchorDiscriminator(namespace, name string) []byte {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	return h[:discriminatorLen]
}

// createCertificateArgs are the borsh encoded instruction arguments; field
// order is significant
type createCertificateArgs struct {
	InstitutionID   string
	InstitutionName string
	CandidateID     string
	CandidateName   string
	IssuedAt        int64
	Description     string
	URI             *string
}

// certificateAccount is the borsh layout of the on-chain account after the
// discriminator
type certificateAccount struct {
	Institution     [32]byte
	InstitutionID   string
	InstitutionName string
	CandidateID     string
	CandidateName   string
	IssuedAt        int64
	Description     string
	URI             *string
}

func encodeCreateCertificate(r Record) ([]byte, error) {
	args, err := borsh.Serialize(
		createCertificateArgs{
			InstitutionID:   r.InstitutionID,
			InstitutionName: r.InstitutionName,
			CandidateID:     r.CandidateID,
			CandidateName:   r.CandidateName,
			IssuedAt:        r.IssuedAt,
			Description:     r.Description,
			URI:             r.URI,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "attestation: could not encode instruction")
	}
	return append(append([]byte{}, createCertificateDiscriminator...), args...), nil
}

func encodeCertificateAccount(r Record) ([]byte, error) {
	authority, err := solana.PublicKeyFromBase58(r.Authority)
	if err != nil {
		return nil, errors.Wrap(err, "attestation: invalid authority")
	}
	data, err := borsh.Serialize(
		certificateAccount{
			Institution:     authority,
			InstitutionID:   r.InstitutionID,
			InstitutionName: r.InstitutionName,
			CandidateID:     r.CandidateID,
			CandidateName:   r.CandidateName,
			IssuedAt:        r.IssuedAt,
			Description:     r.Description,
			URI:             r.URI,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "attestation: could not encode account")
	}
	return append(append([]byte{}, certificateAccountDiscriminator...), data...), nil
}

// decodeCertificateAccount decodes and validates raw account data
func decodeCertificateAccount(data []byte) (*Record, error) {
	if len(data) < discriminatorLen || !bytes.Equal(data[:discriminatorLen], certificateAccountDiscriminator) {
		return nil, errors.New("attestation: account is not a certificate account")
	}
	var acc certificateAccount
	if err := borsh.Deserialize(&acc, data[discriminatorLen:]); err != nil {
		return nil, errors.Wrap(err, "attestation: could not decode certificate account")
	}
	r := &Record{
		Authority:       solana.PublicKeyFromBytes(acc.Institution[:]).String(),
		InstitutionID:   acc.InstitutionID,
		InstitutionName: acc.InstitutionName,
		CandidateID:     acc.CandidateID,
		CandidateName:   acc.CandidateName,
		IssuedAt:        acc.IssuedAt,
		Description:     acc.Description,
		URI:             acc.URI,
	}
	if err := r.Validate(); err != nil {
		return nil, errors.Wrap(err, "attestation: invalid certificate account")
	}
	return r, nil
}
