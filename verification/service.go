package verification

import (
	"context"
	"mime"
	"slices"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/extraction"
	"github.com/certledger/certledger/internal/geoip"
	"github.com/certledger/certledger/storage/model"
	"github.com/certledger/certledger/token"
)

// DefaultMaxUploadSize is the default limit for uploaded documents
const DefaultMaxUploadSize = 10 << 20

// AllowedContentTypes are the accepted document types
var AllowedContentTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"application/pdf",
}

// State is a step of a verification
type State string

// Constants for State
const (
	StateUploaded     State = "uploaded"
	StateExtracted    State = "extracted"
	StateTokenChecked State = "token_checked"
)

// Upload is a document submitted for verification
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	ClientIP    string
}

// Result is the outcome of a verification
type Result struct {
	Outcome     token.Outcome `json:"outcome"`
	Name        string        `json:"name,omitempty"`
	Token       string        `json:"token,omitempty"`
	ExtractedAt time.Time     `json:"extractedAt"`
	Claims      *token.Claims `json:"claims,omitempty"`
}

// Option configures a Service
type Option func(*Service)

// WithAuditLog sets the store verification attempts are appended to
func WithAuditLog(store model.VerificationAttemptsStore) Option {
	return func(s *Service) {
		s.audit = store
	}
}

// WithLocator sets the geoip locator used for the audit log
func WithLocator(l geoip.Locator) Option {
	return func(s *Service) {
		if l != nil {
			s.geo = l
		}
	}
}

// WithMaxUploadSize sets the maximum accepted document size in bytes
func WithMaxUploadSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// Service verifies uploaded certificate documents: the extraction service
// recovers the claimed name and token, which are then cross-checked.
type Service struct {
	verifier  *token.Verifier
	extractor extraction.Extractor
	audit     model.VerificationAttemptsStore
	geo       geoip.Locator
	maxSize   int
}

// NewService creates a new Service
func NewService(verifier *token.Verifier, extractor extraction.Extractor, opts ...Option) *Service {
	s := &Service{
		verifier:  verifier,
		extractor: extractor,
		geo:       geoip.Nop{},
		maxSize:   DefaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeContentType lower-cases a content type and strips parameters
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func (s *Service) validate(up Upload) error {
	if len(up.Data) == 0 {
		return certerr.ValidationErrorf("no file uploaded")
	}
	if !slices.Contains(AllowedContentTypes, NormalizeContentType(up.ContentType)) {
		return certerr.ValidationErrorf(
			"invalid file type '%s', allowed are %s", up.ContentType, strings.Join(AllowedContentTypes, ", "),
		)
	}
	if len(up.Data) > s.maxSize {
		return certerr.ValidationErrorf("file is larger than %d bytes", s.maxSize)
	}
	return nil
}

// Verify verifies an uploaded document. For the outcomes forged,
// name_mismatch and incomplete_extraction both a Result and the matching
// error are returned; infrastructure failures only return an error.
func (s *Service) Verify(ctx context.Context, up Upload) (res *Result, err error) {
	state := StateUploaded
	defer func() {
		s.record(up, res, err)
		log.WithFields(
			log.Fields{
				"file":  up.Filename,
				"state": state,
			},
		).WithError(err).Debug("verification: finished")
	}()

	if err = s.verifier.Configured(); err != nil {
		return nil, err
	}
	if err = s.validate(up); err != nil {
		return nil, err
	}
	extracted, err := s.extractor.Extract(
		ctx, extraction.File{
			Name:        up.Filename,
			ContentType: NormalizeContentType(up.ContentType),
			Data:        up.Data,
		},
	)
	if err != nil {
		return nil, err
	}
	state = StateExtracted
	res = &Result{
		Name:        extracted.Name,
		Token:       extracted.Token,
		ExtractedAt: extracted.ExtractedAt,
	}

	tok, outcome, err := s.verifier.CrossCheck(extracted.Name, extracted.Token)
	if outcome == "" {
		// not an outcome of the document, e.g. a configuration error
		return nil, err
	}
	state = StateTokenChecked
	res.Outcome = outcome
	if tok != nil {
		res.Claims = &tok.Claims
	}
	return res, err
}

func (s *Service) record(up Upload, res *Result, err error) {
	if s.audit == nil {
		return
	}
	attempt := &model.VerificationAttempt{
		FileName:    up.Filename,
		FileSize:    len(up.Data),
		ContentType: NormalizeContentType(up.ContentType),
		ClientIP:    up.ClientIP,
		Country:     s.geo.Country(up.ClientIP),
	}
	if res != nil && res.Outcome != "" {
		attempt.Outcome = string(res.Outcome)
		attempt.ClaimedName = res.Name
		if res.Token != "" {
			attempt.TokenHash = model.HashToken(res.Token)
		}
	} else {
		attempt.Outcome = certerr.KindOf(err).String()
	}
	if err != nil {
		attempt.Reason = err.Error()
	}
	if len(attempt.ClaimedName) > 128 {
		attempt.ClaimedName = attempt.ClaimedName[:128]
	}
	if auditErr := s.audit.Add(attempt); auditErr != nil {
		log.WithError(auditErr).Warn("verification: could not write audit log")
	}
}
