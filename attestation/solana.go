package attestation

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/certerr"
)

// SolanaConfig configures a SolanaBridge
type SolanaConfig struct {
	RPCEndpoint string
	ProgramID   string
	// KeypairFile is a solana-keygen keypair file of the paying authority
	KeypairFile string
	Commitment  rpc.CommitmentType
}

// SolanaBridge anchors certificates with the certificate program on Solana
type SolanaBridge struct {
	client     *rpc.Client
	programID  solana.PublicKey
	payer      solana.PrivateKey
	commitment rpc.CommitmentType
}

// NewSolanaBridge creates a new SolanaBridge
func NewSolanaBridge(conf SolanaConfig) (*SolanaBridge, error) {
	programID, err := ParseProgramID(conf.ProgramID)
	if err != nil {
		return nil, err
	}
	payer, err := solana.PrivateKeyFromSolanaKeygenFile(conf.KeypairFile)
	if err != nil {
		return nil, errors.Wrapf(err, "attestation: reading payer keypair from %s failed", conf.KeypairFile)
	}
	commitment := conf.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentFinalized
	}
	log.WithFields(
		log.Fields{
			"program": programID.String(),
			"payer":   payer.PublicKey().String(),
			"rpc":     conf.RPCEndpoint,
		},
	).Debug("initialized solana bridge")
	return &SolanaBridge{
		client:     rpc.New(conf.RPCEndpoint),
		programID:  programID,
		payer:      payer,
		commitment: commitment,
	}, nil
}

// Authority returns the public key that signs certificate submissions
func (b *SolanaBridge) Authority() string {
	return b.payer.PublicKey().String()
}

// Address implements the Bridge interface
func (b *SolanaBridge) Address(key Key) (string, error) {
	addr, err := DeriveAddress(b.programID, key)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// Submit implements the Bridge interface
func (b *SolanaBridge) Submit(ctx context.Context, record Record) (Proof, error) {
	if record.Authority == "" {
		record.Authority = b.Authority()
	}
	if err := record.Validate(); err != nil {
		return Proof{}, err
	}
	addr, err := DeriveAddress(b.programID, record.Key())
	if err != nil {
		return Proof{}, err
	}
	proof := Proof{Address: addr.String()}

	_, err = b.client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{Commitment: b.commitment})
	if err == nil {
		return proof, certerr.ConflictErrorf("ledger address %s is already occupied", proof.Address)
	}
	if !errors.Is(err, rpc.ErrNotFound) {
		return proof, classify(ctx, err, "attestation: could not check ledger address")
	}

	data, err := encodeCreateCertificate(record)
	if err != nil {
		return proof, err
	}
	ix := solana.NewInstruction(
		b.programID,
		[]*solana.AccountMeta{
			solana.NewAccountMeta(addr, true, false),
			solana.NewAccountMeta(b.payer.PublicKey(), true, true),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		data,
	)
	latest, err := b.client.GetLatestBlockhash(ctx, b.commitment)
	if err != nil {
		return proof, classify(ctx, err, "attestation: could not get latest blockhash")
	}
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		latest.Value.Blockhash,
		solana.TransactionPayer(b.payer.PublicKey()),
	)
	if err != nil {
		return proof, errors.Wrap(err, "attestation: could not build transaction")
	}
	if _, err = tx.Sign(
		func(pk solana.PublicKey) *solana.PrivateKey {
			if pk.Equals(b.payer.PublicKey()) {
				return &b.payer
			}
			return nil
		},
	); err != nil {
		return proof, errors.Wrap(err, "attestation: could not sign transaction")
	}
	sig, err := b.client.SendTransactionWithOpts(
		ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: b.commitment,
		},
	)
	if err != nil {
		return proof, classify(ctx, err, "attestation: could not send transaction")
	}
	proof.Reference = sig.String()
	log.WithFields(
		log.Fields{
			"address":   proof.Address,
			"signature": proof.Reference,
		},
	).Info("submitted certificate to solana")
	return proof, nil
}

// FetchAll implements the Bridge interface
func (b *SolanaBridge) FetchAll(ctx context.Context) ([]Entry, error) {
	accounts, err := b.client.GetProgramAccountsWithOpts(
		ctx, b.programID, &rpc.GetProgramAccountsOpts{
			Commitment: b.commitment,
			Filters: []rpc.RPCFilter{
				{
					Memcmp: &rpc.RPCFilterMemcmp{
						Offset: 0,
						Bytes:  solana.Base58(certificateAccountDiscriminator),
					},
				},
			},
		},
	)
	if err != nil {
		return nil, classify(ctx, err, "attestation: could not fetch program accounts")
	}
	entries := make([]Entry, 0, len(accounts))
	for _, acc := range accounts {
		if acc == nil || acc.Account == nil || acc.Account.Data == nil {
			continue
		}
		r, err := decodeCertificateAccount(acc.Account.Data.GetBinary())
		if err != nil {
			log.WithError(err).WithField("address", acc.Pubkey.String()).Warn("skipping invalid ledger account")
			continue
		}
		entries = append(
			entries, Entry{
				Address: acc.Pubkey.String(),
				Record:  *r,
			},
		)
	}
	return entries, nil
}

// FetchOne implements the Bridge interface
func (b *SolanaBridge) FetchOne(ctx context.Context, address string) (*Record, error) {
	addr, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, certerr.ValidationErrorf("invalid ledger address '%s'", address)
	}
	res, err := b.client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{Commitment: b.commitment})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, certerr.NotFoundErrorf("no certificate at ledger address %s", address)
		}
		return nil, classify(ctx, err, "attestation: could not fetch account")
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return nil, certerr.NotFoundErrorf("no certificate at ledger address %s", address)
	}
	if !res.Value.Owner.Equals(b.programID) {
		return nil, certerr.NotFoundErrorf("account %s is not owned by the certificate program", address)
	}
	return decodeCertificateAccount(res.Value.Data.GetBinary())
}
