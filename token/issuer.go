package token

import (
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/pkg/errors"

	"github.com/certledger/certledger/certerr"
)

// Issuer mints certificate tokens with an HMAC secret
type Issuer struct {
	key jwk.Key
	now func() time.Time
}

// IssuerOption configures an Issuer
type IssuerOption func(*Issuer)

// WithClock sets the clock used for the token's mint time
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates a new Issuer for the passed secret. An empty secret
// results in an Issuer that refuses to mint.
func NewIssuer(secret []byte, opts ...IssuerOption) (*Issuer, error) {
	i := &Issuer{now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	if len(secret) == 0 {
		return i, nil
	}
	key, err := importSecret(secret)
	if err != nil {
		return nil, err
	}
	i.key = key
	return i, nil
}

func importSecret(secret []byte) (jwk.Key, error) {
	key, err := jwk.Import(secret)
	if err != nil {
		return nil, errors.Wrap(err, "token: could not import signing secret")
	}
	return key, nil
}

// Configured returns a configuration error if no signing secret is set
func (i *Issuer) Configured() error {
	if i == nil || i.key == nil {
		return certerr.ConfigurationErrorf("token signing secret is not configured")
	}
	return nil
}

// Mint returns a signed compact token for the passed claims
func (i *Issuer) Mint(claims Claims) (string, error) {
	if err := i.Configured(); err != nil {
		return "", err
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}
	data, err := claims.Canonical(i.now())
	if err != nil {
		return "", err
	}
	hdr := jws.NewHeaders()
	if err = hdr.Set(jws.TypeKey, headerType); err != nil {
		return "", errors.WithStack(err)
	}
	signed, err := jws.Sign(
		data, jws.WithKey(jwa.HS256(), i.key, jws.WithProtectedHeaders(hdr)),
	)
	if err != nil {
		return "", errors.Wrap(err, "token: signing failed")
	}
	return string(signed), nil
}
