package adminapi

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/internal/httperr"
	"github.com/certledger/certledger/storage/model"
)

func registerInstitutions(r fiber.Router, institutions model.InstitutionsStore) {
	g := r.Group("/institutions")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			list, err := institutions.List()
			if err != nil {
				return httperr.Write(c, err)
			}
			return c.JSON(list)
		},
	)

	type verificationReq struct {
		Verification model.Verification `json:"verification"`
	}
	g.Put(
		"/:id/verification", lookupCacheInvalidationMiddleware, func(c *fiber.Ctx) error {
			var req verificationReq
			if err := c.BodyParser(&req); err != nil {
				return httperr.InvalidRequest(c, "invalid body: "+err.Error())
			}
			inst, err := institutions.SetVerification(c.Params("id"), req.Verification)
			if err != nil {
				return httperr.Write(c, certerr.FromStore(err))
			}
			log.WithFields(
				log.Fields{
					"institution":  inst.ID,
					"verification": inst.Verification,
					"operator":     operator(c),
				},
			).Info("changed institution verification")
			return c.JSON(inst)
		},
	)
}
