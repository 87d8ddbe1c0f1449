package certledger

import (
	"encoding/json"

	"github.com/go-oidfed/lib/cache"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/internal"
	"github.com/certledger/certledger/internal/httperr"
	"github.com/certledger/certledger/storage/model"
)

type lookupResponse struct {
	Certificate *model.Certificate `json:"certificate"`
	Institution institutionView    `json:"institution"`
}

// lookup returns the certificate bound to the token. Possession of the token
// grants read access to the public certificate view.
func (cl *CertLedger) lookup(token string) (*model.Certificate, error) {
	if cl.options.LookupVerifySignature {
		if _, err := cl.Verifier.Verify(token); err != nil {
			return nil, err
		}
	}
	cert, err := cl.Backends.Certificates.ByToken(token)
	if err != nil {
		return nil, certerr.FromStore(err)
	}
	return cert, nil
}

func institutionName(cert *model.Certificate) string {
	if cert.Institution == nil {
		return ""
	}
	return cert.Institution.Name
}

func (cl *CertLedger) registerLookup(r fiber.Router) {
	r.Get(
		"/certificates/by-token/:token", func(c *fiber.Ctx) error {
			token := c.Params("token")
			cacheKey := cache.Key(internal.CacheKeyCertificateLookup, model.HashToken(token))
			if cl.options.LookupCacheTTL > 0 {
				var cached []byte
				set, err := cache.Get(cacheKey, &cached)
				if err != nil {
					log.WithError(err).Warn("lookup: could not read cache")
				}
				// a cached response implies a valid signature
				if set {
					c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
					return c.Send(cached)
				}
			}

			cert, err := cl.lookup(token)
			if err != nil {
				return httperr.Write(c, err)
			}
			data, err := json.Marshal(
				lookupResponse{
					Certificate: cert,
					Institution: institutionView{
						ID:           cert.InstitutionID,
						Name:         institutionName(cert),
						Verification: cert.Verification,
					},
				},
			)
			if err != nil {
				return httperr.Write(c, err)
			}
			if cl.options.LookupCacheTTL > 0 {
				if err = cache.Set(cacheKey, data, cl.options.LookupCacheTTL); err != nil {
					log.WithError(err).Warn("lookup: could not write cache")
				}
			}
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(data)
		},
	)
	r.Get(
		"/certificates/by-token/:token/pdf", func(c *fiber.Ctx) error {
			cert, err := cl.lookup(c.Params("token"))
			if err != nil {
				return httperr.Write(c, err)
			}
			pdf, err := cl.Renderer.PDF(cert, institutionName(cert))
			if err != nil {
				return httperr.Write(c, err)
			}
			c.Set(fiber.HeaderContentType, "application/pdf")
			c.Set(fiber.HeaderContentDisposition, `inline; filename="certificate-`+cert.ID+`.pdf"`)
			return c.Send(pdf)
		},
	)
	r.Get(
		"/certificates/by-token/:token/qr", func(c *fiber.Ctx) error {
			cert, err := cl.lookup(c.Params("token"))
			if err != nil {
				return httperr.Write(c, err)
			}
			png, err := cl.Renderer.QR(cert.Token)
			if err != nil {
				return httperr.Write(c, err)
			}
			c.Set(fiber.HeaderContentType, "image/png")
			return c.Send(png)
		},
	)
}
