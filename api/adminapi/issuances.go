package adminapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"tideland.dev/go/slices"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/internal/httperr"
	"github.com/certledger/certledger/issuance"
	"github.com/certledger/certledger/storage/model"
)

const defaultAttemptsLimit = 100

// parseStates parses a comma separated list of issuance states
func parseStates(raw string) ([]model.IssuanceState, error) {
	var states []model.IssuanceState
	for _, v := range slices.Unique(strings.Split(raw, ",")) {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		s, err := model.ParseIssuanceState(v)
		if err != nil {
			return nil, certerr.ValidationErrorf("%s", err)
		}
		states = append(states, s)
	}
	return states, nil
}

func registerIssuances(r fiber.Router, issuances model.IssuancesStore, reconciler *issuance.Reconciler) {
	g := r.Group("/issuances")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			states, err := parseStates(c.Query("state"))
			if err != nil {
				return httperr.Write(c, err)
			}
			list, err := issuances.List(states...)
			if err != nil {
				return httperr.Write(c, err)
			}
			return c.JSON(list)
		},
	)
	g.Get(
		"/:address", func(c *fiber.Ctx) error {
			saga, err := issuances.ByAddress(c.Params("address"))
			if err != nil {
				return httperr.Write(c, certerr.FromStore(err))
			}
			return c.JSON(saga)
		},
	)

	reconcilerConfigured := func(c *fiber.Ctx) error {
		if reconciler == nil {
			return httperr.Write(c, certerr.ConfigurationErrorf("reconciliation is not enabled"))
		}
		return c.Next()
	}
	g.Post(
		"/reconcile", reconcilerConfigured, func(c *fiber.Ctx) error {
			log.WithField("operator", operator(c)).Info("reconciliation triggered")
			summary, err := reconciler.Run(c.UserContext())
			if err != nil {
				return httperr.Write(c, err)
			}
			return c.JSON(summary)
		},
	)
	g.Get(
		"/reconcile/last", reconcilerConfigured, func(c *fiber.Ctx) error {
			summary, err := reconciler.Last()
			if err != nil {
				return httperr.Write(c, err)
			}
			if summary == nil {
				return httperr.Write(c, certerr.NotFoundErrorf("no reconciliation has run yet"))
			}
			return c.JSON(summary)
		},
	)
}

func registerVerificationAttempts(r fiber.Router, attempts model.VerificationAttemptsStore) {
	r.Get(
		"/verifications", func(c *fiber.Ctx) error {
			limit := c.QueryInt("limit", defaultAttemptsLimit)
			if limit <= 0 {
				return httperr.InvalidRequest(c, "limit must be positive")
			}
			list, err := attempts.List(limit)
			if err != nil {
				return httperr.Write(c, err)
			}
			return c.JSON(list)
		},
	)
}
