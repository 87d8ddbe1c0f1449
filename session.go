package certledger

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/certledger/certledger/certerr"
	"github.com/certledger/certledger/internal/httperr"
	"github.com/certledger/certledger/storage/model"
)

// DefaultSessionLifetime is the default lifetime of institution sessions
const DefaultSessionLifetime = 12 * time.Hour

const (
	sessionIssuer        = "certledger"
	localsInstitutionKey = "institution"
)

// Sessions issues and checks institution sessions. Sessions are signed with
// their own secret, never with the certificate token secret.
type Sessions struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// NewSessions creates a new Sessions
func NewSessions(secret []byte, lifetime time.Duration) *Sessions {
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &Sessions{
		secret:   secret,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Configured returns a configuration error if no session secret is set
func (s *Sessions) Configured() error {
	if s == nil || len(s.secret) == 0 {
		return certerr.ConfigurationErrorf("no session secret configured")
	}
	return nil
}

// Issue returns a session token for the institution and its expiry
func (s *Sessions) Issue(inst *model.Institution) (string, time.Time, error) {
	if err := s.Configured(); err != nil {
		return "", time.Time{}, err
	}
	now := s.now()
	exp := now.Add(s.lifetime)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   inst.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Name: inst.Name,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "could not sign session")
	}
	return signed, exp, nil
}

// Parse checks a session token and returns the institution id it was issued
// for
func (s *Sessions) Parse(session string) (string, error) {
	if err := s.Configured(); err != nil {
		return "", err
	}
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(
		session, &claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", certerr.UnauthorizedErrorf("invalid session: %s", err)
	}
	if claims.Subject == "" {
		return "", certerr.UnauthorizedErrorf("invalid session: no subject")
	}
	return claims.Subject, nil
}

// middleware requires a valid bearer session and stores the institution id
// in the request locals
func (s *Sessions) middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return httperr.Write(c, certerr.UnauthorizedErrorf("missing session"))
		}
		institutionID, err := s.Parse(strings.TrimSpace(auth[len(prefix):]))
		if err != nil {
			if certerr.Is(err, certerr.KindUnauthorized) {
				c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			}
			return httperr.Write(c, err)
		}
		c.Locals(localsInstitutionKey, institutionID)
		return c.Next()
	}
}

func sessionInstitution(c *fiber.Ctx) string {
	id, _ := c.Locals(localsInstitutionKey).(string)
	return id
}
