package config

import (
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"

	"github.com/certledger/certledger/attestation"
)

// Ledger types
const (
	LedgerTypeLocal  = "local"
	LedgerTypeSolana = "solana"
)

// ledgerConf configures the external ledger certificates are anchored on.
//
// YAML example:
//
//	ledger:
//	  type: solana
//	  program_id: 9nF17epkj1esEvgx4JpkviUfn2XbEheBDUsiuqAt6ogc
//	  timeout: 60s
//	  solana:
//	    rpc_endpoint: https://api.devnet.solana.com
//	    keypair_file: /etc/certledger/authority.json
//	    commitment: confirmed
type ledgerConf struct {
	Type      string                  `yaml:"type"`
	ProgramID string                  `yaml:"program_id"`
	Timeout   duration.DurationOption `yaml:"timeout"`
	Local     struct {
		// Path is the directory of the local ledger; empty keeps it in memory
		Path      string `yaml:"path"`
		Authority string `yaml:"authority"`
	} `yaml:"local"`
	Solana struct {
		RPCEndpoint string `yaml:"rpc_endpoint"`
		KeypairFile string `yaml:"keypair_file"`
		Commitment  string `yaml:"commitment"`
	} `yaml:"solana"`
}

var defaultLedgerConf = ledgerConf{
	Type:      LedgerTypeLocal,
	ProgramID: attestation.DefaultProgramID,
	Timeout:   duration.DurationOption(60 * time.Second),
}

func (c *ledgerConf) validate() error {
	if _, err := attestation.ParseProgramID(c.ProgramID); err != nil {
		return errors.Wrap(err, "error in ledger conf")
	}
	switch c.Type {
	case LedgerTypeLocal:
		return nil
	case LedgerTypeSolana:
		if c.Solana.RPCEndpoint == "" {
			return errors.New("error in ledger conf: solana.rpc_endpoint must be specified")
		}
		if c.Solana.KeypairFile == "" {
			return errors.New("error in ledger conf: solana.keypair_file must be specified")
		}
		switch rpc.CommitmentType(c.Solana.Commitment) {
		case "", rpc.CommitmentFinalized, rpc.CommitmentConfirmed, rpc.CommitmentProcessed:
		default:
			return errors.Errorf("error in ledger conf: unknown commitment '%s'", c.Solana.Commitment)
		}
		return nil
	default:
		return errors.Errorf("error in ledger conf: unknown type '%s'", c.Type)
	}
}

// Bridge returns the configured attestation.Bridge and a function to
// release it
func (c ledgerConf) Bridge() (attestation.Bridge, func() error, error) {
	if c.Type == LedgerTypeSolana {
		b, err := attestation.NewSolanaBridge(
			attestation.SolanaConfig{
				RPCEndpoint: c.Solana.RPCEndpoint,
				ProgramID:   c.ProgramID,
				KeypairFile: c.Solana.KeypairFile,
				Commitment:  rpc.CommitmentType(c.Solana.Commitment),
			},
		)
		return b, func() error { return nil }, err
	}
	l, err := attestation.NewLocalLedger(
		attestation.LocalLedgerConfig{
			Path:      c.Local.Path,
			ProgramID: c.ProgramID,
			Authority: c.Local.Authority,
		},
	)
	if err != nil {
		return nil, nil, err
	}
	return l, l.Close, nil
}
