package attestation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/certledger/certledger/certerr"
)

const localLedgerKeyPrefix = "certificate:"

// LocalLedger is an embedded append-only ledger backed by badger. It uses the
// same address scheme as the SolanaBridge and is meant for development and
// tests.
type LocalLedger struct {
	db        *badger.DB
	programID solana.PublicKey
	authority string
	now       func() time.Time
}

// LocalLedgerConfig configures a LocalLedger
type LocalLedgerConfig struct {
	// Path is the badger directory; empty means in-memory
	Path      string
	ProgramID string
	// Authority is recorded as the submitting authority; it must be a base58
	// public key, if empty the program id is used
	Authority string
}

// NewLocalLedger opens a LocalLedger
func NewLocalLedger(conf LocalLedgerConfig) (*LocalLedger, error) {
	programID, err := ParseProgramID(conf.ProgramID)
	if err != nil {
		return nil, err
	}
	authority := conf.Authority
	if authority == "" {
		authority = programID.String()
	}
	opts := badger.DefaultOptions(conf.Path).WithLogger(nil)
	if conf.Path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "attestation: could not open local ledger")
	}
	if conf.Path != "" {
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				if db.IsClosed() {
					return
				}
			again:
				if err := db.RunValueLogGC(0.7); err == nil {
					goto again
				}
			}
		}()
	}
	return &LocalLedger{
		db:        db,
		programID: programID,
		authority: authority,
		now:       time.Now,
	}, nil
}

// Close closes the underlying database
func (l *LocalLedger) Close() error {
	return l.db.Close()
}

// Address implements the Bridge interface
func (l *LocalLedger) Address(key Key) (string, error) {
	addr, err := DeriveAddress(l.programID, key)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

type localEntry struct {
	Record      Record `msgpack:"record"`
	Reference   string `msgpack:"reference"`
	SubmittedAt int64  `msgpack:"submitted_at"`
}

// Submit implements the Bridge interface
func (l *LocalLedger) Submit(ctx context.Context, record Record) (Proof, error) {
	if err := ctx.Err(); err != nil {
		return Proof{}, classify(ctx, err, "attestation: submission aborted")
	}
	if record.Authority == "" {
		record.Authority = l.authority
	}
	if err := record.Validate(); err != nil {
		return Proof{}, err
	}
	address, err := l.Address(record.Key())
	if err != nil {
		return Proof{}, err
	}
	proof := Proof{Address: address}
	data, err := encodeCertificateAccount(record)
	if err != nil {
		return proof, err
	}
	sum := sha256.Sum256(append([]byte(address), data...))
	proof.Reference = hex.EncodeToString(sum[:])

	value, err := msgpack.Marshal(
		localEntry{
			Record:      record,
			Reference:   proof.Reference,
			SubmittedAt: l.now().Unix(),
		},
	)
	if err != nil {
		return proof, errors.WithStack(err)
	}
	key := []byte(localLedgerKeyPrefix + address)
	err = l.db.Update(
		func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if err == nil {
				return certerr.ConflictErrorf("ledger address %s is already occupied", address)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			return txn.Set(key, value)
		},
	)
	if err != nil {
		if certerr.Is(err, certerr.KindConflict) {
			return proof, err
		}
		return proof, errors.Wrap(err, "attestation: could not write local ledger")
	}
	log.WithFields(
		log.Fields{
			"address":   address,
			"reference": proof.Reference,
		},
	).Debug("recorded certificate in local ledger")
	return proof, nil
}

// FetchAll implements the Bridge interface
func (l *LocalLedger) FetchAll(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	prefix := []byte(localLedgerKeyPrefix)
	err := l.db.View(
		func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				item := it.Item()
				address := strings.TrimPrefix(string(item.Key()), localLedgerKeyPrefix)
				err := item.Value(
					func(v []byte) error {
						var e localEntry
						if err := msgpack.Unmarshal(v, &e); err != nil {
							return err
						}
						if err := e.Record.Validate(); err != nil {
							return err
						}
						entries = append(
							entries, Entry{
								Address: address,
								Record:  e.Record,
							},
						)
						return nil
					},
				)
				if err != nil {
					return errors.Wrapf(err, "invalid local ledger entry at %s", address)
				}
			}
			return nil
		},
	)
	if err != nil {
		return nil, classify(ctx, err, "attestation: could not read local ledger")
	}
	return entries, nil
}

// FetchOne implements the Bridge interface
func (l *LocalLedger) FetchOne(ctx context.Context, address string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, err, "attestation: fetch aborted")
	}
	var e localEntry
	err := l.db.View(
		func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(localLedgerKeyPrefix + address))
			if err != nil {
				return err
			}
			return item.Value(
				func(v []byte) error {
					return msgpack.Unmarshal(v, &e)
				},
			)
		},
	)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, certerr.NotFoundErrorf("no certificate at ledger address %s", address)
		}
		return nil, errors.Wrap(err, "attestation: could not read local ledger")
	}
	if err = e.Record.Validate(); err != nil {
		return nil, errors.Wrap(err, "attestation: invalid local ledger entry")
	}
	return &e.Record, nil
}
