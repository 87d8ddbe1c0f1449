package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/certledger/certledger/extraction"
	"github.com/certledger/certledger/verification"
)

type extractionConf struct {
	ExtractURL string                  `yaml:"extract_url"`
	AnalyzeURL string                  `yaml:"analyze_url"`
	Timeout    duration.DurationOption `yaml:"timeout"`
}

var defaultExtractionConf = extractionConf{
	ExtractURL: extraction.DefaultExtractURL,
	AnalyzeURL: extraction.DefaultAnalyzeURL,
	Timeout:    duration.DurationOption(extraction.DefaultTimeout),
}

func (c *extractionConf) validate() error {
	if c.ExtractURL == "" {
		return errors.New("error in extraction conf: extract_url must be specified")
	}
	if c.Timeout.Duration() <= 0 {
		c.Timeout = duration.DurationOption(extraction.DefaultTimeout)
	}
	return nil
}

// Client returns a client for the configured extraction service
func (c extractionConf) Client() *extraction.Client {
	return extraction.NewClient(
		extraction.Config{
			ExtractURL: c.ExtractURL,
			AnalyzeURL: c.AnalyzeURL,
			Timeout:    c.Timeout.Duration(),
		},
	)
}

type verificationConf struct {
	MaxUploadSize int  `yaml:"max_upload_size"`
	AuditLog      bool `yaml:"audit_log"`
}

var defaultVerificationConf = verificationConf{
	MaxUploadSize: verification.DefaultMaxUploadSize,
	AuditLog:      true,
}

func (c *verificationConf) validate() error {
	if c.MaxUploadSize <= 0 {
		return errors.New("error in verification conf: max_upload_size must be positive")
	}
	return nil
}

type geoIPConf struct {
	// Database is the path of a MaxMind country database
	Database string `yaml:"database"`
}

func (c *geoIPConf) validate() error {
	if c.Database != "" && !fileutils.FileExists(c.Database) {
		return errors.Errorf("error in geoip conf: database '%s' does not exist", c.Database)
	}
	return nil
}

type lookupConf struct {
	VerifySignature bool                    `yaml:"verify_signature"`
	CacheTTL        duration.DurationOption `yaml:"cache_ttl"`
	// QRBaseURL is prefixed to tokens encoded in QR codes; defaults to the
	// lookup endpoint of server.external_url
	QRBaseURL string `yaml:"qr_base_url"`
	// PDFIssuer is printed in the footer of rendered certificates
	PDFIssuer string `yaml:"pdf_issuer"`
}

var defaultLookupConf = lookupConf{
	CacheTTL:  duration.DurationOption(10 * time.Minute),
	PDFIssuer: "certledger",
}
