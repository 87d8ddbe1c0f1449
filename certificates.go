package certledger

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/internal/httperr"
	"github.com/certledger/certledger/issuance"
)

type issueRequest struct {
	InstitutionID string  `json:"institutionId"`
	CandidateID   string  `json:"candidateId"`
	CandidateName string  `json:"candidateName"`
	Description   string  `json:"description"`
	IssuedAt      *int64  `json:"issuedAt"`
	URI           *string `json:"uri"`
}

func (r issueRequest) draft() issuance.Draft {
	d := issuance.Draft{
		InstitutionID: r.InstitutionID,
		CandidateID:   r.CandidateID,
		CandidateName: r.CandidateName,
		Description:   r.Description,
		URI:           r.URI,
	}
	if r.IssuedAt != nil {
		d.IssuedAt = time.Unix(*r.IssuedAt, 0)
	}
	return d
}

func (cl *CertLedger) registerCertificates(r fiber.Router) {
	handlers := []fiber.Handler{}
	if cl.options.RequireInstitutionAuth {
		handlers = append(handlers, cl.Sessions.middleware())
	}
	handlers = append(
		handlers, func(c *fiber.Ctx) error {
			var req issueRequest
			if err := c.BodyParser(&req); err != nil {
				return httperr.InvalidRequest(c, "could not parse request body: "+err.Error())
			}
			if cl.options.RequireInstitutionAuth && sessionInstitution(c) != req.InstitutionID {
				return httperr.Write(
					c, certerr.ForbiddenErrorf("session does not belong to institution '%s'", req.InstitutionID),
				)
			}
			if req.IssuedAt != nil && *req.IssuedAt <= 0 {
				return httperr.InvalidRequest(c, "issuedAt must be a positive unix timestamp")
			}
			cert, err := cl.Orchestrator.Issue(c.UserContext(), req.draft())
			if err != nil {
				return httperr.Write(c, err)
			}
			return c.JSON(fiber.Map{"certificate": cert})
		},
	)
	r.Post("/certificates", handlers...)

	r.Get(
		"/certificates", func(c *fiber.Ctx) error {
			certs, err := cl.Backends.Certificates.List(c.Query("institutionId"))
			if err != nil {
				return httperr.Write(c, certerr.FromStore(err))
			}
			return c.JSON(fiber.Map{"certificates": certs})
		},
	)
}
