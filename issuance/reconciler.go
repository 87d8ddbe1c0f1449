package issuance

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/storage/model"
)

// Defaults for the Reconciler
const (
	DefaultReconcileSchedule = "@every 5m"
	DefaultGracePeriod       = 10 * time.Minute
)

// Summary describes a single reconciliation run
type Summary struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Scanned    int       `json:"scanned"`
	Resumed    int       `json:"resumed"`
	Failed     int       `json:"failed"`
	Partial    int       `json:"partial"`
	Errors     int       `json:"errors"`
}

// Reconciler resolves sagas left behind by crashed or timed out issuances.
// Sagas that were recorded on the ledger are completed, drafts are resolved
// by looking up their address on the ledger.
type Reconciler struct {
	o     *Orchestrator
	kv    model.KeyValueStore
	grace time.Duration
	cron  *cron.Cron
	mu    sync.Mutex
}

// NewReconciler creates a Reconciler; sagas younger than grace are left
// alone, since their request may still be running
func NewReconciler(o *Orchestrator, kv model.KeyValueStore, grace time.Duration) *Reconciler {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Reconciler{
		o:     o,
		kv:    kv,
		grace: grace,
	}
}

// Start runs the Reconciler according to the passed cron schedule
func (r *Reconciler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}
	r.cron = cron.New()
	_, err := r.cron.AddFunc(
		schedule, func() {
			if _, err := r.Run(context.Background()); err != nil {
				log.WithError(err).Error("issuance: reconciliation failed")
			}
		},
	)
	if err != nil {
		return errors.Wrapf(err, "invalid reconcile schedule '%s'", schedule)
	}
	r.cron.Start()
	return nil
}

// Stop stops scheduled runs and waits for a running one
func (r *Reconciler) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// Last returns the summary of the last run or nil if there was none
func (r *Reconciler) Last() (*Summary, error) {
	if r.kv == nil {
		return nil, nil
	}
	var s Summary
	found, err := r.kv.GetAs(model.KeyValueScopeIssuance, model.KeyValueKeyLastReconcile, &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

// Run reconciles all stale sagas once; concurrent calls are serialized
func (r *Reconciler) Run(ctx context.Context) (*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Summary{StartedAt: r.o.now()}
	sagas, err := r.o.stores.Issuances.Stale(
		s.StartedAt.Add(-r.grace),
		model.IssuanceDraft,
		model.IssuanceExternallySubmitted,
		model.IssuanceTokenMinted,
		model.IssuanceFailed,
	)
	if err != nil {
		return nil, err
	}
	for i := range sagas {
		saga := &sagas[i]
		if saga.State == model.IssuanceFailed &&
			!(saga.Timeout && saga.FailedStep == StepExternallySubmitted) {
			continue
		}
		s.Scanned++
		r.reconcile(ctx, saga, s)
	}
	s.FinishedAt = r.o.now()
	if r.kv != nil {
		if err = r.kv.SetAny(model.KeyValueScopeIssuance, model.KeyValueKeyLastReconcile, s); err != nil {
			log.WithError(err).Warn("issuance: could not store reconciliation summary")
		}
	}
	log.WithFields(
		log.Fields{
			"scanned": s.Scanned,
			"resumed": s.Resumed,
			"failed":  s.Failed,
			"partial": s.Partial,
			"errors":  s.Errors,
		},
	).Info("issuance: reconciliation finished")
	return s, nil
}

func (r *Reconciler) reconcile(ctx context.Context, saga *model.Issuance, s *Summary) {
	logger := log.WithFields(
		log.Fields{
			"address": saga.LedgerAddress,
			"state":   saga.State.String(),
		},
	)
	switch saga.State {
	case model.IssuanceExternallySubmitted, model.IssuanceTokenMinted:
		inst, err := r.o.stores.Institutions.Get(saga.InstitutionID)
		if err != nil {
			logger.WithError(err).Warn("issuance: institution of saga not found")
			s.Errors++
			return
		}
		if _, err = r.o.complete(ctx, saga, inst); err != nil {
			s.Partial++
			return
		}
		logger.Info("issuance: resumed saga")
		s.Resumed++
	case model.IssuanceDraft, model.IssuanceFailed:
		_, err := r.o.bridge.FetchOne(ctx, saga.LedgerAddress)
		switch {
		case err == nil:
			// the proof reference of the submission is lost
			_ = r.o.partial(saga, StepExternallySubmitted, errRecordedWithoutProof)
			s.Partial++
		case certerr.Is(err, certerr.KindNotFound):
			if saga.State == model.IssuanceFailed {
				// the timed out submission never reached the ledger
				saga.Timeout = false
				r.o.save(saga)
				logger.Info("issuance: timed out submission not on ledger")
				s.Failed++
				return
			}
			saga.State = model.IssuanceFailed
			saga.FailedStep = StepExternallySubmitted
			saga.Reason = "not recorded on ledger"
			r.o.save(saga)
			logger.Info("issuance: abandoned draft marked as failed")
			s.Failed++
		default:
			logger.WithError(err).Warn("issuance: ledger lookup failed")
			s.Errors++
		}
	}
}
