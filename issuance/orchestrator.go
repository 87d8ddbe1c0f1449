package issuance

import (
	"context"
	"time"

	"github.com/fatih/structs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/attestation"
	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/events"
	"github.com/certledger/certledger/storage/model"
	"github.com/certledger/certledger/token"
)

// DefaultLedgerTimeout bounds a single ledger submission
const DefaultLedgerTimeout = 60 * time.Second

// Names of the issuance steps; they equal the state reached after the step
var (
	StepExternallySubmitted = model.IssuanceExternallySubmitted.String()
	StepTokenMinted         = model.IssuanceTokenMinted.String()
	StepPersisted           = model.IssuancePersisted.String()
)

var errRecordedWithoutProof = errors.New("record found on ledger without a proof reference")

// Stores are the storage backends used by the Orchestrator
type Stores struct {
	Institutions model.InstitutionsStore
	Certificates model.CertificatesStore
	Issuances    model.IssuancesStore
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPublisher sets the publisher for certificate.issued events
func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithLedgerTimeout sets the timeout for ledger submissions
func WithLedgerTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.ledgerTimeout = d
		}
	}
}

// WithClock sets the clock used for default issue dates
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// Orchestrator runs the issuance flow: record on the ledger, mint the token,
// persist the certificate. Every step is tracked in a persisted saga, so that
// a crash between the steps can be reconciled.
type Orchestrator struct {
	issuer        *token.Issuer
	bridge        attestation.Bridge
	stores        Stores
	publisher     events.Publisher
	ledgerTimeout time.Duration
	now           func() time.Time
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	issuer *token.Issuer, bridge attestation.Bridge, stores Stores, opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		issuer:        issuer,
		bridge:        bridge,
		stores:        stores,
		publisher:     events.Nop{},
		ledgerTimeout: DefaultLedgerTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Issue issues a certificate for the draft. It never retries on its own; a
// failed saga can be retried by issuing the same draft again.
func (o *Orchestrator) Issue(ctx context.Context, draft Draft) (*model.Certificate, error) {
	if err := o.issuer.Configured(); err != nil {
		return nil, err
	}
	if draft.IssuedAt.IsZero() {
		draft.IssuedAt = o.now()
	}
	draft.IssuedAt = draft.IssuedAt.Truncate(time.Second)
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	inst, err := o.stores.Institutions.Get(draft.InstitutionID)
	if err != nil {
		return nil, certerr.FromStore(err)
	}
	address, err := o.bridge.Address(draft.key())
	if err != nil {
		return nil, err
	}
	logger := log.WithField("address", address)
	logger.WithFields(structs.Map(draft)).Debug("issuance: starting")

	saga, timedOut, err := o.begin(address, draft)
	if err != nil {
		return nil, certerr.WithAddress(err, address)
	}
	if timedOut {
		if err = o.checkTimedOutSubmission(ctx, saga); err != nil {
			return nil, err
		}
	}

	submitCtx, cancel := context.WithTimeout(ctx, o.ledgerTimeout)
	proof, err := o.bridge.Submit(submitCtx, draft.record(inst.Name))
	cancel()
	if err != nil {
		o.fail(saga, StepExternallySubmitted, err)
		logger.WithError(err).Info("issuance: ledger submission failed")
		return nil, certerr.WithAddress(certerr.WithStep(err, StepExternallySubmitted), address)
	}
	saga.State = model.IssuanceExternallySubmitted
	saga.ProofReference = proof.Reference
	o.save(saga)
	logger.WithField("proof", proof.Reference).Info("issuance: recorded on ledger")

	return o.complete(ctx, saga, inst)
}

// begin creates the saga in the draft state; a failed saga for the same
// address is reused. timedOut reports whether the last submission of a
// reused saga ran into a deadline, so its record may exist on the ledger.
func (o *Orchestrator) begin(address string, draft Draft) (saga *model.Issuance, timedOut bool, err error) {
	existing, err := o.stores.Issuances.ByAddress(address)
	if err == nil {
		if existing.State != model.IssuanceFailed {
			return nil, false, certerr.ConflictErrorf(
				"certificate is already being issued or was issued (state %s)", existing.State,
			)
		}
		timedOut = existing.Timeout && existing.FailedStep == StepExternallySubmitted
		applyDraft(existing, draft)
		if err = o.stores.Issuances.Update(existing); err != nil {
			return nil, false, err
		}
		return existing, timedOut, nil
	}
	var notFound model.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, false, err
	}
	saga = &model.Issuance{LedgerAddress: address}
	applyDraft(saga, draft)
	if err = o.stores.Issuances.Create(saga); err != nil {
		return nil, false, certerr.FromStore(err)
	}
	return saga, false, nil
}

// checkTimedOutSubmission looks the saga's address up on the ledger before
// it is submitted again. A record that is already there was written by the
// timed out submission; its proof reference is lost and the saga becomes
// partial. If the ledger cannot be asked, the saga stays failed with its
// timeout, so the Reconciler checks it later.
func (o *Orchestrator) checkTimedOutSubmission(ctx context.Context, saga *model.Issuance) error {
	fetchCtx, cancel := context.WithTimeout(ctx, o.ledgerTimeout)
	_, err := o.bridge.FetchOne(fetchCtx, saga.LedgerAddress)
	cancel()
	switch {
	case err == nil:
		return o.partial(saga, StepExternallySubmitted, errRecordedWithoutProof)
	case certerr.Is(err, certerr.KindNotFound):
		return nil
	default:
		saga.State = model.IssuanceFailed
		saga.FailedStep = StepExternallySubmitted
		saga.Timeout = true
		saga.Reason = err.Error()
		o.save(saga)
		return certerr.WithAddress(certerr.WithStep(err, StepExternallySubmitted), saga.LedgerAddress)
	}
}

// complete mints the token and persists the certificate for a saga that
// was recorded on the ledger
func (o *Orchestrator) complete(
	ctx context.Context, saga *model.Issuance, inst *model.Institution,
) (*model.Certificate, error) {
	if saga.Token == "" {
		tok, err := o.issuer.Mint(
			token.Claims{
				InstitutionID:          saga.InstitutionID,
				CandidateID:            saga.CandidateID,
				CandidateName:          saga.CandidateName,
				IssuedAt:               saga.IssuedAt,
				ExternalProofReference: saga.ProofReference,
			},
		)
		if err != nil {
			return nil, o.partial(saga, StepTokenMinted, err)
		}
		saga.State = model.IssuanceTokenMinted
		saga.Token = tok
		o.save(saga)
	}

	cert := &model.Certificate{
		InstitutionID: saga.InstitutionID,
		CandidateID:   saga.CandidateID,
		CandidateName: saga.CandidateName,
		Description:   saga.Description,
		URI:           saga.URI,
		IssuedAt:      saga.IssuedAt,
		NFTHash:       saga.ProofReference,
		LedgerAddress: saga.LedgerAddress,
		Token:         saga.Token,
	}
	if err := o.stores.Certificates.Create(cert); err != nil {
		var exists model.AlreadyExistsError
		if !errors.As(err, &exists) {
			return nil, o.partial(saga, StepPersisted, err)
		}
		// persisted by an earlier run that crashed before updating the saga
		stored, lookupErr := o.stores.Certificates.ByLedgerAddress(saga.LedgerAddress)
		if lookupErr != nil || stored.Token != saga.Token {
			return nil, o.partial(saga, StepPersisted, err)
		}
		cert = stored
	}
	saga.State = model.IssuancePersisted
	saga.CertificateID = cert.ID
	o.save(saga)
	cert.Verification = inst.Verification

	events.PublishBestEffort(
		ctx, o.publisher, events.Event{
			Type:       events.TypeCertificateIssued,
			OccurredAt: o.now(),
			Data: events.CertificateIssued{
				CertificateID:  cert.ID,
				InstitutionID:  cert.InstitutionID,
				LedgerAddress:  cert.LedgerAddress,
				ProofReference: cert.NFTHash,
				IssuedAt:       cert.IssuedAt,
			},
		},
	)
	log.WithFields(
		log.Fields{
			"address":     saga.LedgerAddress,
			"certificate": cert.ID,
		},
	).Info("issuance: certificate persisted")
	return cert, nil
}

func (o *Orchestrator) fail(saga *model.Issuance, step string, err error) {
	saga.State = model.IssuanceFailed
	saga.FailedStep = step
	saga.Reason = err.Error()
	if e, ok := certerr.As(err); ok && e.Kind == certerr.KindTransient {
		saga.Timeout = e.Timeout
	}
	o.save(saga)
}

func (o *Orchestrator) partial(saga *model.Issuance, step string, err error) error {
	saga.State = model.IssuancePartial
	saga.FailedStep = step
	saga.Reason = err.Error()
	o.save(saga)
	log.WithError(err).WithFields(
		log.Fields{
			"address": saga.LedgerAddress,
			"step":    step,
		},
	).Error("issuance: recorded on ledger but not completed")
	return certerr.WithAddress(certerr.PartialIssuanceError(step, err), saga.LedgerAddress)
}

// save persists the saga; a failure is only logged, the outcome of the flow
// is decided by the ledger and the certificate store
func (o *Orchestrator) save(saga *model.Issuance) {
	if err := o.stores.Issuances.Update(saga); err != nil {
		log.WithError(err).WithFields(
			log.Fields{
				"address": saga.LedgerAddress,
				"state":   saga.State.String(),
			},
		).Error("issuance: could not update saga")
	}
}
