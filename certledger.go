package certledger

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/api/adminapi"
	"github.com/certledger/certledger/attestation"
	"github.com/certledger/certledger/extraction"
	"github.com/certledger/certledger/internal/logger"
	"github.com/certledger/certledger/issuance"
	"github.com/certledger/certledger/render"
	"github.com/certledger/certledger/storage/model"
	"github.com/certledger/certledger/token"
	"github.com/certledger/certledger/verification"
)

// DefaultLookupCacheTTL is the default lifetime of cached lookup responses
const DefaultLookupCacheTTL = 10 * time.Minute

// FiberServerConfig is the fiber.Config that is used to init the http fiber.App
var FiberServerConfig = fiber.Config{
	ReadTimeout:    30 * time.Second,
	WriteTimeout:   90 * time.Second,
	IdleTimeout:    150 * time.Second,
	ReadBufferSize: 8192,
	// uploads are limited by the verification service, this only has to
	// leave room for the multipart envelope
	BodyLimit:    2 * verification.DefaultMaxUploadSize,
	ErrorHandler: handleError,
	Network:      "tcp",
}

// Analyzer forwards documents to the forensic analysis service
type Analyzer interface {
	Analyze(ctx context.Context, test, reference extraction.File) (*extraction.Analysis, error)
}

// Services are the components the http api is built on
type Services struct {
	Backends     model.Backends
	Orchestrator *issuance.Orchestrator
	Reconciler   *issuance.Reconciler
	Verification *verification.Service
	Verifier     *token.Verifier
	Analyzer     Analyzer
	Bridge       attestation.Bridge
	Renderer     render.Renderer
	Sessions     *Sessions
}

// Options controls optional behavior of the http api
type Options struct {
	// LookupVerifySignature enables signature checks of tokens used for
	// public lookups
	LookupVerifySignature bool
	// LookupCacheTTL is the lifetime of cached lookup responses; lookups are
	// not cached if negative
	LookupCacheTTL time.Duration
	// RequireInstitutionAuth requires an institution session for issuing
	// certificates
	RequireInstitutionAuth bool
	// Admin configures the admin api; it is not mounted if nil. If
	// Admin.Port is set, it is served on its own port.
	Admin *adminapi.Options
}

// CertLedger is the certificate issuance and verification service
type CertLedger struct {
	Services
	options     Options
	server      *fiber.App
	adminServer *fiber.App
	serverConf  ServerConf
}

// New creates a new CertLedger and registers all routes
func New(serverConf ServerConf, services Services, opts Options) (*CertLedger, error) {
	if opts.LookupCacheTTL == 0 {
		opts.LookupCacheTTL = DefaultLookupCacheTTL
	}
	if tps := serverConf.TrustedProxies; len(tps) > 0 {
		FiberServerConfig.TrustedProxies = serverConf.TrustedProxies
		FiberServerConfig.EnableTrustedProxyCheck = true
	}
	FiberServerConfig.ProxyHeader = serverConf.ForwardedIPHeader
	server := newServer()
	cl := &CertLedger{
		Services:   services,
		options:    opts,
		server:     server,
		serverConf: serverConf,
	}

	api := server.Group("/api/v1")
	cl.registerInstitutions(api)
	cl.registerCertificates(api)
	cl.registerLookup(api)
	cl.registerVerify(api)
	cl.registerLedger(api)

	if opts.Admin != nil {
		admin := api.Group("/admin")
		if opts.Admin.Port > 0 {
			cl.adminServer = newServer()
			admin = cl.adminServer.Group("/api/v1/admin")
		}
		if err := adminapi.Register(
			admin, services.Backends, services.Reconciler, opts.Admin,
		); err != nil {
			return nil, err
		}
	}
	return cl, nil
}

func newServer() *fiber.App {
	server := fiber.New(FiberServerConfig)
	server.Use(recover.New())
	server.Use(compress.New())
	server.Use(
		fiberlogger.New(
			fiberlogger.Config{
				Output: logger.AccessWriter(),
			},
		),
	)
	server.Use(requestid.New())
	return server
}

// HttpHandlerFunc returns an http.HandlerFunc for serving all the necessary endpoints
func (cl CertLedger) HttpHandlerFunc() http.HandlerFunc {
	return adaptor.FiberApp(cl.server)
}

// Listen starts an http server at the specific address for serving all the
// necessary endpoints
func (cl CertLedger) Listen(addr string) error {
	return cl.server.Listen(addr)
}

// Shutdown gracefully shuts down the servers
func (cl CertLedger) Shutdown() error {
	if cl.adminServer != nil {
		if err := cl.adminServer.Shutdown(); err != nil {
			return err
		}
	}
	return cl.server.Shutdown()
}

// Start starts the server as configured in the ServerConf; it does not return
func (cl CertLedger) Start() {
	conf := cl.serverConf
	if cl.adminServer != nil {
		addr := fmt.Sprintf("%s:%d", conf.IPListen, cl.options.Admin.Port)
		log.WithField("port", cl.options.Admin.Port).Info("starting admin api server")
		go func() {
			log.WithError(cl.adminServer.Listen(addr)).Fatal()
		}()
	}
	if !conf.TLS.Enabled {
		log.WithField("port", conf.Port).Info("TLS is disabled starting http server")
		log.WithError(cl.server.Listen(fmt.Sprintf("%s:%d", conf.IPListen, conf.Port))).Fatal()
	}
	// TLS enabled
	if conf.TLS.RedirectHTTP {
		httpServer := fiber.New(FiberServerConfig)
		httpServer.All(
			"*", func(ctx *fiber.Ctx) error {
				//goland:noinspection HttpUrlsUsage
				return ctx.Redirect(
					strings.Replace(ctx.Request().URI().String(), "http://", "https://", 1),
					fiber.StatusPermanentRedirect,
				)
			},
		)
		log.Info("TLS and http redirect enabled, starting redirect server on port 80")
		go func() {
			log.WithError(httpServer.Listen(conf.IPListen + ":80")).Fatal()
		}()
	}
	time.Sleep(time.Millisecond) // This is just for a more pretty output with the tls header printed after the http one
	log.Info("TLS enabled, starting https server on port 443")
	log.WithError(cl.server.ListenTLS(conf.IPListen+":443", conf.TLS.Cert, conf.TLS.Key)).Fatal()
}
