package token

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/pkg/errors"

	"github.com/certledger/certledger/certerr"
)

// Outcome is the result of cross-checking extracted data against a token
type Outcome string

// Constants for Outcome
const (
	OutcomeVerified             Outcome = "verified"
	OutcomeForged               Outcome = "forged"
	OutcomeNameMismatch         Outcome = "name_mismatch"
	OutcomeIncompleteExtraction Outcome = "incomplete_extraction"
)

// Verifier verifies certificate tokens; it holds no mutable state and can be
// shared between goroutines
type Verifier struct {
	key jwk.Key
}

// NewVerifier creates a Verifier for the passed secret
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return &Verifier{}, nil
	}
	key, err := importSecret(secret)
	if err != nil {
		return nil, err
	}
	return &Verifier{key: key}, nil
}

// Configured returns a configuration error if no secret is set
func (v *Verifier) Configured() error {
	if v == nil || v.key == nil {
		return certerr.ConfigurationErrorf("token verification secret is not configured")
	}
	return nil
}

// Verify verifies a token with the passed secret
func Verify(token string, secret []byte) (*Token, error) {
	v, err := NewVerifier(secret)
	if err != nil {
		return nil, err
	}
	return v.Verify(token)
}

type header struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
}

var segmentEncoding = base64.RawURLEncoding.Strict()

// canonicalSegment decodes a base64url segment and rejects every spelling
// other than the one produced by the encoder
func canonicalSegment(segment string) ([]byte, error) {
	if segment == "" {
		return nil, errors.New("empty token segment")
	}
	data, err := segmentEncoding.DecodeString(segment)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base64url segment")
	}
	if segmentEncoding.EncodeToString(data) != segment {
		return nil, errors.New("non-canonical base64url segment")
	}
	return data, nil
}

func checkStructure(token string) error {
	segments := strings.Split(token, tokenSegmentSeparator)
	if len(segments) != tokenSegments {
		return errors.Errorf("token must have %d segments, got %d", tokenSegments, len(segments))
	}
	decoded := make([][]byte, tokenSegments)
	for i, s := range segments {
		d, err := canonicalSegment(s)
		if err != nil {
			return err
		}
		decoded[i] = d
	}
	var h header
	if err := json.Unmarshal(decoded[0], &h); err != nil {
		return errors.Wrap(err, "invalid token header")
	}
	if h.Algorithm != jwa.HS256().String() {
		return errors.Errorf("unexpected token algorithm '%s'", h.Algorithm)
	}
	if h.Type != headerType {
		return errors.Errorf("unexpected token type '%s'", h.Type)
	}
	return nil
}

func decodePayload(data []byte) (*Token, error) {
	canonical, err := jcs.Transform(data)
	if err != nil {
		return nil, errors.Wrap(err, "invalid token payload")
	}
	if !bytes.Equal(canonical, data) {
		return nil, errors.New("token payload is not canonical")
	}
	var p payload
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err = dec.Decode(&p); err != nil {
		return nil, errors.Wrap(err, "invalid token payload")
	}
	if p.Version != payloadVersion {
		return nil, errors.Errorf("unsupported token version %d", p.Version)
	}
	if p.MintedAt <= 0 {
		return nil, errors.New("token has no mint time")
	}
	t := &Token{
		Claims: Claims{
			InstitutionID:          p.InstitutionID,
			CandidateID:            p.CandidateID,
			CandidateName:          p.CandidateName,
			IssuedAt:               p.IssuedAt,
			ExternalProofReference: p.ExternalProofReference,
		},
		MintedAt: time.Unix(p.MintedAt, 0),
	}
	if err = t.Claims.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Verify checks the token's structure and signature and returns the bound
// claims. Every failure is reported as a forgery error, except for a missing
// secret, which is a configuration error.
func (v *Verifier) Verify(token string) (*Token, error) {
	if err := v.Configured(); err != nil {
		return nil, err
	}
	if err := checkStructure(token); err != nil {
		return nil, certerr.ForgeryError(err)
	}
	data, err := jws.Verify([]byte(token), jws.WithKey(jwa.HS256(), v.key))
	if err != nil {
		return nil, certerr.ForgeryError(err)
	}
	t, err := decodePayload(data)
	if err != nil {
		return nil, certerr.ForgeryError(err)
	}
	return t, nil
}

// CrossCheck verifies claimedToken and compares its bound candidate name with
// claimedName. The returned error is nil only for OutcomeVerified.
func (v *Verifier) CrossCheck(claimedName, claimedToken string) (*Token, Outcome, error) {
	if claimedName == "" || claimedToken == "" {
		return nil, OutcomeIncompleteExtraction, certerr.IncompleteExtractionErrorf(
			"extraction did not yield both a name and a token",
		)
	}
	t, err := v.Verify(claimedToken)
	if err != nil {
		if certerr.Is(err, certerr.KindForgery) {
			return nil, OutcomeForged, err
		}
		return nil, "", err
	}
	if t.CandidateName != claimedName {
		return t, OutcomeNameMismatch, certerr.NameMismatchErrorf(
			"extracted name does not match the name bound to the token",
		)
	}
	return t, OutcomeVerified, nil
}
