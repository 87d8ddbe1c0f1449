package certledger

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/internal/httperr"
	"github.com/certledger/certledger/storage/model"
)

const (
	maxInstitutionNameLen = 64
	minPasswordLen        = 8
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

func (r credentialsRequest) validate() error {
	if r.Name == "" {
		return certerr.ValidationErrorf("name is required")
	}
	if len(r.Name) > maxInstitutionNameLen {
		return certerr.ValidationErrorf("name must not be longer than %d bytes", maxInstitutionNameLen)
	}
	if len(r.Password) < minPasswordLen {
		return certerr.ValidationErrorf("password must have at least %d characters", minPasswordLen)
	}
	return nil
}

func (cl *CertLedger) registerInstitutions(r fiber.Router) {
	r.Post(
		"/institutions", func(c *fiber.Ctx) error {
			var req credentialsRequest
			if err := c.BodyParser(&req); err != nil {
				return httperr.InvalidRequest(c, "could not parse request body: "+err.Error())
			}
			if err := req.validate(); err != nil {
				return httperr.Write(c, err)
			}
			inst, err := cl.Backends.Institutions.Create(req.Name, req.Password)
			if err != nil {
				return httperr.Write(c, certerr.FromStore(err))
			}
			log.WithField("institution", inst.ID).Info("registered institution")
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"institution": inst})
		},
	)
	r.Get(
		"/institutions/:id", func(c *fiber.Ctx) error {
			inst, err := cl.Backends.Institutions.Get(c.Params("id"))
			if err != nil {
				return httperr.Write(c, certerr.FromStore(err))
			}
			return c.JSON(fiber.Map{"institution": inst})
		},
	)
	r.Post(
		"/institutions/login", func(c *fiber.Ctx) error {
			var req credentialsRequest
			if err := c.BodyParser(&req); err != nil {
				return httperr.InvalidRequest(c, "could not parse request body: "+err.Error())
			}
			if err := cl.Sessions.Configured(); err != nil {
				return httperr.Write(c, err)
			}
			inst, err := cl.Backends.Institutions.Authenticate(req.Name, req.Password)
			if err != nil {
				return httperr.Write(c, certerr.UnauthorizedErrorf("invalid credentials"))
			}
			session, exp, err := cl.Sessions.Issue(inst)
			if err != nil {
				return httperr.Write(c, err)
			}
			return c.JSON(
				loginResponse{
					Token:     session,
					ExpiresAt: exp.Truncate(time.Second).Unix(),
				},
			)
		},
	)
}

// institutionView is the public part of an institution shown in lookups
type institutionView struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Verification model.Verification `json:"verification"`
}
