package adminapi

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/internal/httperr"
	"github.com/certledger/certledger/storage/model"
)

const localsOperatorKey = "operator"

// authMiddleware enforces optional authentication for admin API routes.
// If there are no operators in storage, all requests are allowed.
// If there is at least one operator, it requires HTTP Basic authentication
// and validates credentials using the OperatorsStore.
func authMiddleware(operators model.OperatorsStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		count, err := operators.Count()
		if err != nil {
			return httperr.Write(c, err)
		}
		if count == 0 {
			return c.Next()
		}

		username, password, ok := parseBasicAuth(c)
		if !ok {
			c.Set(fiber.HeaderWWWAuthenticate, "Basic realm=admin")
			return httperr.Write(c, certerr.UnauthorizedErrorf("missing credentials"))
		}
		op, err := operators.Authenticate(username, password)
		if err != nil {
			c.Set(fiber.HeaderWWWAuthenticate, "Basic realm=admin")
			return httperr.Write(c, certerr.UnauthorizedErrorf("invalid credentials"))
		}
		c.Locals(localsOperatorKey, op.Username)
		return c.Next()
	}
}

// parseBasicAuth extracts Basic auth credentials from request headers
func parseBasicAuth(c *fiber.Ctx) (username, password string, ok bool) {
	auth := c.Get(fiber.HeaderAuthorization)
	const prefix = "Basic "
	if !strings.HasPrefix(auth, prefix) {
		return "", "", false
	}
	b, err := base64.StdEncoding.DecodeString(auth[len(prefix):])
	if err != nil {
		return "", "", false
	}
	username, password, ok = strings.Cut(string(b), ":")
	return
}

func operator(c *fiber.Ctx) string {
	username, _ := c.Locals(localsOperatorKey).(string)
	return username
}
