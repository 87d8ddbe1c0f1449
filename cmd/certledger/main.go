package main

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger"
	"github.com/certledger/certledger/api/adminapi"
	"github.com/certledger/certledger/cmd/certledger/config"
	"github.com/certledger/certledger/internal/geoip"
	"github.com/certledger/certledger/internal/logger"
	"github.com/certledger/certledger/internal/version"
	"github.com/certledger/certledger/issuance"
	"github.com/certledger/certledger/render"
	"github.com/certledger/certledger/token"
	"github.com/certledger/certledger/verification"
)

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	config.Load(configFile)
	c := config.Get()
	logger.Init(c.Logging.Internal.Conf, c.Logging.Internal.Level, c.Logging.Access)
	log.WithField("version", version.VERSION).Info("Loaded Config")

	if err := config.UseCache(c.Caching); err != nil {
		log.Fatal(err)
	}

	backs, err := config.LoadStorageBackends(c.Storage)
	if err != nil {
		log.Fatal(err)
	}

	if c.Signing.TokenSecret == "" {
		log.Warn("no token secret configured; issuance and verification will fail")
	}
	issuer, err := token.NewIssuer([]byte(c.Signing.TokenSecret))
	if err != nil {
		log.Fatal(err)
	}
	verifier, err := token.NewVerifier([]byte(c.Signing.TokenSecret))
	if err != nil {
		log.Fatal(err)
	}
	log.Info("Loaded signing secret")

	bridge, closeBridge, err := c.Ledger.Bridge()
	if err != nil {
		log.WithError(err).Fatal("could not init ledger")
	}
	defer func() { _ = closeBridge() }()
	log.WithField("type", c.Ledger.Type).Info("Initialized ledger")

	publisher, err := c.Events.Publisher()
	if err != nil {
		log.WithError(err).Fatal("could not init event publisher")
	}
	defer func() { _ = publisher.Close() }()

	var locator geoip.Locator = geoip.Nop{}
	if c.GeoIP.Database != "" {
		db, err := geoip.Open(c.GeoIP.Database)
		if err != nil {
			log.WithError(err).Fatal("could not open geoip database")
		}
		defer func() { _ = db.Close() }()
		locator = db
	}

	orchestrator := issuance.NewOrchestrator(
		issuer, bridge, issuance.Stores{
			Institutions: backs.Institutions,
			Certificates: backs.Certificates,
			Issuances:    backs.Issuances,
		},
		issuance.WithPublisher(publisher),
		issuance.WithLedgerTimeout(c.Ledger.Timeout.Duration()),
	)
	reconciler := issuance.NewReconciler(orchestrator, backs.KV, c.Issuance.Reconcile.GracePeriod.Duration())
	if c.Issuance.Reconcile.Enabled {
		if err = reconciler.Start(c.Issuance.Reconcile.Schedule); err != nil {
			log.Fatal(err)
		}
		defer reconciler.Stop()
		log.WithField("schedule", c.Issuance.Reconcile.Schedule).Info("Scheduled issuance reconciliation")
	}

	extractor := c.Extraction.Client()
	verifyOpts := []verification.Option{
		verification.WithLocator(locator),
		verification.WithMaxUploadSize(c.Verification.MaxUploadSize),
	}
	if c.Verification.AuditLog {
		verifyOpts = append(verifyOpts, verification.WithAuditLog(backs.Verifications))
	}
	certledger.FiberServerConfig.BodyLimit = 2 * c.Verification.MaxUploadSize

	externalURL := strings.TrimSuffix(c.Server.ExternalURL, "/")
	lookupURL := c.Lookup.QRBaseURL
	if lookupURL == "" && externalURL != "" {
		lookupURL = externalURL + "/api/v1/certificates/by-token/"
	}

	opts := certledger.Options{
		LookupVerifySignature:  c.Lookup.VerifySignature,
		LookupCacheTTL:         c.Lookup.CacheTTL.Duration(),
		RequireInstitutionAuth: c.API.RequireInstitutionAuth,
	}
	if c.Lookup.CacheTTL.Duration() == 0 {
		opts.LookupCacheTTL = -1
	}
	if c.API.Admin.Enabled {
		opts.Admin = &adminapi.Options{
			Port:             c.API.Admin.Port,
			OperatorsEnabled: c.API.Admin.OperatorsEnabled,
		}
		if externalURL != "" {
			opts.Admin.ServerURL = externalURL + "/api/v1/admin"
		}
	}

	cl, err := certledger.New(
		c.Server, certledger.Services{
			Backends:     backs,
			Orchestrator: orchestrator,
			Reconciler:   reconciler,
			Verification: verification.NewService(verifier, extractor, verifyOpts...),
			Verifier:     verifier,
			Analyzer:     extractor,
			Bridge:       bridge,
			Renderer: render.Renderer{
				LookupURL: lookupURL,
				Issuer:    c.Lookup.PDFIssuer,
			},
			Sessions: certledger.NewSessions([]byte(c.Signing.SessionSecret), c.Signing.SessionLifetime.Duration()),
		}, opts,
	)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("Initialized Endpoints")
	cl.Start()
}
