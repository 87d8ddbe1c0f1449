package extraction

import (
	"bytes"
	"context"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/certerr"
)

// Defaults for Config
const (
	DefaultExtractURL = "http://localhost:5000/extract-data"
	DefaultAnalyzeURL = "http://localhost:8000/analyze"
	DefaultTimeout    = 30 * time.Second
)

// File is an uploaded document forwarded to the extraction service
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result is the data the extraction service recovered from a document.
// Missing fields are left empty; deciding whether a result is complete is up
// to the caller.
type Result struct {
	Name        string    `json:"name"`
	Token       string    `json:"token"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// Complete reports whether both a name and a token were extracted
func (r Result) Complete() bool {
	return r.Name != "" && r.Token != ""
}

// Analysis is the forensic report of comparing a document with a trusted
// reference
type Analysis struct {
	Passed bool   `json:"passed"`
	Status int    `json:"status"`
	Report string `json:"report"`
}

// Config configures a Client
type Config struct {
	ExtractURL string
	AnalyzeURL string
	Timeout    time.Duration
}

// Extractor recovers a claimed name and token from a document
type Extractor interface {
	Extract(ctx context.Context, file File) (*Result, error)
}

// Client talks to the external extraction service
type Client struct {
	http       *resty.Client
	extractURL string
	analyzeURL string
	now        func() time.Time
}

// NewClient creates a new Client
func NewClient(conf Config) *Client {
	if conf.ExtractURL == "" {
		conf.ExtractURL = DefaultExtractURL
	}
	if conf.AnalyzeURL == "" {
		conf.AnalyzeURL = DefaultAnalyzeURL
	}
	if conf.Timeout == 0 {
		conf.Timeout = DefaultTimeout
	}
	return &Client{
		http:       resty.New().SetTimeout(conf.Timeout),
		extractURL: conf.ExtractURL,
		analyzeURL: conf.AnalyzeURL,
		now:        time.Now,
	}
}

type extractResponse struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

type upstreamError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

func (e upstreamError) String() string {
	for _, s := range []string{
		e.Message,
		e.Error,
		e.Detail,
	} {
		if s != "" {
			return s
		}
	}
	return "extraction service rejected the file"
}

// Extract implements the Extractor interface
func (c *Client) Extract(ctx context.Context, file File) (*Result, error) {
	var out extractResponse
	var upstream upstreamError
	res, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("file", file.Name, file.ContentType, bytes.NewReader(file.Data)).
		SetResult(&out).
		SetError(&upstream).
		Post(c.extractURL)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if err = checkStatus(res, upstream); err != nil {
		return nil, err
	}
	result := &Result{
		Name:        strings.TrimSpace(out.Name),
		Token:       strings.TrimSpace(out.Token),
		ExtractedAt: c.now().UTC(),
	}
	log.WithFields(
		log.Fields{
			"file":        file.Name,
			"size":        len(file.Data),
			"name_found":  result.Name != "",
			"token_found": result.Token != "",
		},
	).Debug("extraction finished")
	return result, nil
}

// Analyze forwards a document and a trusted reference to the forensic
// analyzer and returns its report
func (c *Client) Analyze(ctx context.Context, test, reference File) (*Analysis, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("test_file", test.Name, test.ContentType, bytes.NewReader(test.Data)).
		SetMultipartField("reference_file", reference.Name, reference.ContentType, bytes.NewReader(reference.Data)).
		Post(c.analyzeURL)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if res.StatusCode() >= 500 {
		return nil, certerr.TransientError(
			"analysis service failed", false, errors.Errorf("status %d", res.StatusCode()),
		)
	}
	return &Analysis{
		Passed: !res.IsError(),
		Status: res.StatusCode(),
		Report: string(res.Body()),
	}, nil
}

func checkStatus(res *resty.Response, upstream upstreamError) error {
	status := res.StatusCode()
	switch {
	case status >= 500:
		return certerr.TransientError(
			"extraction service is unavailable", false, errors.Errorf("status %d", status),
		)
	case status >= 400:
		return certerr.RejectedErrorf("%s", upstream.String())
	case status < 200 || status >= 300:
		return errors.Errorf("unexpected extraction service status %d", status)
	}
	return nil
}

// classify maps transport errors: exceeded deadlines are timeouts, every
// other transport failure means the service is unavailable
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return certerr.TransientError("extraction service timed out", true, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return certerr.TransientError("extraction service timed out", true, err)
	}
	return certerr.TransientError("extraction service is unavailable", false, err)
}
