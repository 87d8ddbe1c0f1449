package adminapi

import (
	"embed"
	"net"
	neturl "net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/certledger/certledger/issuance"
	"github.com/certledger/certledger/storage/model"
)

//go:embed swagger.html openapi.yaml
var assets embed.FS

// Options controls optional features of the admin API registration.
type Options struct {
	// ServerURL is the external url of this instance, used in the api docs
	ServerURL string
	// Port, when > 0, is used to adapt the ServerURL to the admin API port for docs.
	Port int
	// OperatorsEnabled controls whether the operator management API is
	// mounted; a nil *Options enables it.
	OperatorsEnabled bool
}

// Register mounts all admin API routes under the provided group.
func Register(
	r fiber.Router, storages model.Backends, reconciler *issuance.Reconciler, opts *Options,
) error {
	var serverURL string
	if opts != nil {
		serverURL = adaptServerURLPort(opts.ServerURL, opts.Port)
	}

	openapiRaw, err := assets.ReadFile("openapi.yaml")
	if err != nil {
		return errors.Wrap(err, "adminapi: failed to read openapi.yaml")
	}
	// Update servers section to point to this instance
	openapiData := updateOpenAPIServers(openapiRaw, serverURL)
	openapiData = ensureBasicAuthSecurity(openapiData)
	swaggerHTML, err := assets.ReadFile("swagger.html")
	if err != nil {
		return errors.Wrap(err, "adminapi: failed to read swagger.html")
	}

	r.Get(
		"/openapi.yaml", func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderContentType, "application/yaml")
			return c.Send(openapiData)
		},
	)
	r.Get(
		"/docs", func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderContentType, fiber.MIMETextHTML)
			return c.Send(swaggerHTML)
		},
	)

	// Optional authentication middleware for all admin routes
	r.Use(authMiddleware(storages.Operators))

	registerInstitutions(r, storages.Institutions)
	registerIssuances(r, storages.Issuances, reconciler)
	registerVerificationAttempts(r, storages.Verifications)
	if opts == nil || opts.OperatorsEnabled {
		registerOperators(r, storages.Operators)
	}
	return nil
}

func updateOpenAPIServers(doc []byte, serverURL string) []byte {
	if len(serverURL) == 0 {
		return doc
	}
	var full map[string]any
	if err := yaml.Unmarshal(doc, &full); err != nil {
		return doc
	}
	full["servers"] = []map[string]any{
		{
			"url":         serverURL,
			"description": "This instance",
		},
	}
	res, err := yaml.Marshal(full)
	if err != nil {
		return doc
	}
	return res
}

// adaptServerURLPort updates or adds the port to the provided serverURL.
// If the input is invalid, it returns the original serverURL.
func adaptServerURLPort(serverURL string, port int) string {
	if len(serverURL) == 0 || port <= 0 {
		return serverURL
	}
	u, err := neturl.Parse(serverURL)
	if err != nil {
		return serverURL
	}
	host := u.Host
	if host == "" {
		return serverURL
	}
	name, _, err := net.SplitHostPort(host)
	if err != nil {
		// no port present, just append
		u.Host = net.JoinHostPort(host, strconv.Itoa(port))
		return u.String()
	}
	u.Host = net.JoinHostPort(name, strconv.Itoa(port))
	return u.String()
}

// ensureBasicAuthSecurity injects a HTTP Basic security scheme and a global security requirement
// into the OpenAPI document, if not already present.
func ensureBasicAuthSecurity(doc []byte) []byte {
	var full map[string]any
	if err := yaml.Unmarshal(doc, &full); err != nil {
		return doc
	}
	components, _ := full["components"].(map[string]any)
	if components == nil {
		components = map[string]any{}
		full["components"] = components
	}
	securitySchemes, _ := components["securitySchemes"].(map[string]any)
	if securitySchemes == nil {
		securitySchemes = map[string]any{}
		components["securitySchemes"] = securitySchemes
	}
	if _, exists := securitySchemes["basicAuth"]; !exists {
		securitySchemes["basicAuth"] = map[string]any{
			"type":   "http",
			"scheme": "basic",
		}
	}
	if _, exists := full["security"]; !exists {
		full["security"] = []map[string]any{{"basicAuth": []any{}}}
	}
	res, err := yaml.Marshal(full)
	if err != nil {
		return doc
	}
	return res
}
