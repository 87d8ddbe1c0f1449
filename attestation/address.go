package attestation

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/certledger/certledger/certerr"
)

// DefaultProgramID is the id of the deployed certificate program
const DefaultProgramID = "9nF17epkj1esEvgx4JpkviUfn2XbEheBDUsiuqAt6ogc"

const (
	certificateSeed = "certificate"
	maxSeedLen      = 32
)

// DeriveAddress returns the program derived address of the certificate
// account for key. The seeds are the same as the ones the on-chain program
// uses, so the result can be used to look up an account directly.
func DeriveAddress(programID solana.PublicKey, key Key) (solana.PublicKey, error) {
	if key.InstitutionID == "" || key.CandidateID == "" {
		return solana.PublicKey{}, certerr.ValidationErrorf("institutionId and candidateId are required")
	}
	if len(key.InstitutionID) > maxSeedLen {
		return solana.PublicKey{}, certerr.ValidationErrorf(
			"institutionId must not be longer than %d bytes", maxSeedLen,
		)
	}
	if len(key.CandidateID) > maxSeedLen {
		return solana.PublicKey{}, certerr.ValidationErrorf(
			"candidateId must not be longer than %d bytes", maxSeedLen,
		)
	}
	issuedAt := make([]byte, 8)
	binary.LittleEndian.PutUint64(issuedAt, uint64(key.IssuedAt))
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte(certificateSeed),
			[]byte(key.InstitutionID),
			[]byte(key.CandidateID),
			issuedAt,
		}, programID,
	)
	if err != nil {
		return solana.PublicKey{}, errors.Wrap(err, "attestation: could not derive address")
	}
	return addr, nil
}

// ParseProgramID parses a base58 program id; an empty id yields the
// DefaultProgramID
func ParseProgramID(id string) (solana.PublicKey, error) {
	if id == "" {
		id = DefaultProgramID
	}
	pk, err := solana.PublicKeyFromBase58(id)
	if err != nil {
		return solana.PublicKey{}, errors.Wrapf(err, "attestation: invalid program id '%s'", id)
	}
	return pk, nil
}
