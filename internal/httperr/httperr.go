package httperr

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/certerr"
)

// Response is the JSON body of error responses
type Response struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Step             string `json:"step,omitempty"`
	Address          string `json:"address,omitempty"`
}

// Status returns the HTTP status for err. Timeouts of issuance steps are
// reported as gateway timeouts, all other timeouts (e.g. of the extraction
// service) as request timeouts.
func Status(err error) int {
	e, ok := certerr.As(err)
	if !ok {
		return fiber.StatusInternalServerError
	}
	if e.Kind == certerr.KindTransient && e.Timeout {
		if e.Step != "" {
			return fiber.StatusGatewayTimeout
		}
		return fiber.StatusRequestTimeout
	}
	return certerr.HTTPStatus(e.Kind)
}

// Body returns the Response for err
func Body(err error) Response {
	res := Response{
		Error:            certerr.KindOf(err).String(),
		ErrorDescription: err.Error(),
	}
	if e, ok := certerr.As(err); ok {
		res.Step = e.Step
		res.Address = e.Address
	}
	return res
}

// Write writes the error response for err
func Write(c *fiber.Ctx, err error) error {
	status := Status(err)
	if status >= fiber.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return c.Status(status).JSON(Body(err))
}

// InvalidRequest writes a validation error with the passed description
func InvalidRequest(c *fiber.Ctx, description string) error {
	return Write(c, certerr.ValidationErrorf("%s", description))
}
