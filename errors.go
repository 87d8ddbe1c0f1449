package certledger

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/internal/httperr"
)

func handleError(ctx *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return ctx.Status(fe.Code).JSON(
			httperr.Response{
				Error:            fiberErrorKind(fe.Code).String(),
				ErrorDescription: fe.Message,
			},
		)
	}
	return httperr.Write(ctx, err)
}

func fiberErrorKind(status int) certerr.Kind {
	switch {
	case status == fiber.StatusNotFound:
		return certerr.KindNotFound
	case status == fiber.StatusUnauthorized:
		return certerr.KindUnauthorized
	case status == fiber.StatusForbidden:
		return certerr.KindForbidden
	case status >= 400 && status < 500:
		return certerr.KindValidation
	default:
		return certerr.KindInternal
	}
}
