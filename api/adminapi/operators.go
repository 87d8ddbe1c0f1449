package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/internal/httperr"
	"github.com/certledger/certledger/storage/model"
)

// registerOperators wires the operator management handlers
func registerOperators(r fiber.Router, operators model.OperatorsStore) {
	g := r.Group("/operators")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			list, err := operators.List()
			if err != nil {
				return httperr.Write(c, err)
			}
			return c.JSON(list)
		},
	)

	type createReq struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	g.Post(
		"/", func(c *fiber.Ctx) error {
			var req createReq
			if err := c.BodyParser(&req); err != nil {
				return httperr.InvalidRequest(c, "invalid body")
			}
			if req.Username == "" || req.Password == "" {
				return httperr.InvalidRequest(c, "username and password are required")
			}
			op, err := operators.Create(req.Username, req.Password)
			if err != nil {
				return httperr.Write(c, certerr.FromStore(err))
			}
			return c.Status(fiber.StatusCreated).JSON(op)
		},
	)

	type updateReq struct {
		Disabled *bool `json:"disabled"`
	}
	g.Put(
		"/:username", func(c *fiber.Ctx) error {
			var req updateReq
			if err := c.BodyParser(&req); err != nil {
				return httperr.InvalidRequest(c, "invalid body")
			}
			if req.Disabled == nil {
				return httperr.InvalidRequest(c, "disabled is required")
			}
			if err := operators.SetDisabled(c.Params("username"), *req.Disabled); err != nil {
				return httperr.Write(c, certerr.FromStore(err))
			}
			return c.SendStatus(fiber.StatusNoContent)
		},
	)
}
