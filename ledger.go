package certledger

import (
	slices2 "slices"

	arrays "github.com/adam-hanna/arrayOperations"
	"github.com/gofiber/fiber/v2"
	"tideland.dev/go/slices"

	"github.com/certledger/certledger/attestation"
	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/internal/httperr"
)

// The ledger endpoints query the external ledger directly; it is the
// canonical source for lookups by ledger address.
func (cl *CertLedger) registerLedger(r fiber.Router) {
	r.Get(
		"/ledger/certificates", func(c *fiber.Ctx) error {
			anchored := c.Query("anchored")
			if anchored != "" && anchored != "true" && anchored != "false" {
				return httperr.InvalidRequest(c, "anchored must be 'true' or 'false'")
			}
			entries, err := cl.Bridge.FetchAll(c.UserContext())
			if err != nil {
				return httperr.Write(c, err)
			}
			if anchored != "" {
				local, err := cl.Backends.Certificates.LedgerAddresses()
				if err != nil {
					return httperr.Write(c, certerr.FromStore(err))
				}
				addresses := make([]string, len(entries))
				for i, e := range entries {
					addresses[i] = e.Address
				}
				var keep []string
				if anchored == "true" {
					keep = arrays.Intersect(addresses, local)
				} else {
					// records that exist only on the ledger
					keep = slices.Subtract(addresses, local)
				}
				filtered := make([]attestation.Entry, 0, len(keep))
				for _, e := range entries {
					if slices2.Contains(keep, e.Address) {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}
			if entries == nil {
				entries = []attestation.Entry{}
			}
			return c.JSON(fiber.Map{"certificates": entries})
		},
	)
	r.Get(
		"/ledger/certificates/:address", func(c *fiber.Ctx) error {
			address := c.Params("address")
			record, err := cl.Bridge.FetchOne(c.UserContext(), address)
			if err != nil {
				return httperr.Write(c, err)
			}
			return c.JSON(
				attestation.Entry{
					Address: address,
					Record:  *record,
				},
			)
		},
	)
}
