package adminapi

import (
	"github.com/go-oidfed/lib/cache"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/internal"
)

// lookupCacheInvalidationMiddleware clears all cached certificate lookups
// for requests that successfully modify an institution. Lookups embed the
// verification state of the institution, so they cannot be cleared per
// certificate.
// It should be attached only to non-GET routes.
func lookupCacheInvalidationMiddleware(c *fiber.Ctx) error {
	if err := c.Next(); err != nil {
		return err
	}
	status := c.Response().StatusCode()
	if status >= 200 && status < 400 {
		if err := cache.Clear(internal.CacheKeyCertificateLookup); err != nil {
			log.WithError(err).Warn("adminapi: could not clear lookup cache")
		}
	}
	return nil
}
