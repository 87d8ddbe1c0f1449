package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/duration"
)

// Environment variables overriding secrets of the config file
const (
	EnvTokenSecret       = "CERTLEDGER_TOKEN_SECRET"
	EnvTokenSecretLegacy = "JWT_SECRET"
	EnvSessionSecret     = "CERTLEDGER_SESSION_SECRET"
)

const recommendedSecretLen = 32

// signingConf holds the secrets of certificate tokens and institution sessions.
// Both secrets can also be read from a file or the environment.
type signingConf struct {
	TokenSecret       string                  `yaml:"token_secret"`
	TokenSecretFile   string                  `yaml:"token_secret_file"`
	SessionSecret     string                  `yaml:"session_secret"`
	SessionSecretFile string                  `yaml:"session_secret_file"`
	SessionLifetime   duration.DurationOption `yaml:"session_lifetime"`
}

var defaultSigningConf = signingConf{
	SessionLifetime: duration.DurationOption(12 * time.Hour),
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvTokenSecret); v != "" {
		c.Signing.TokenSecret = v
	} else if v = os.Getenv(EnvTokenSecretLegacy); v != "" {
		c.Signing.TokenSecret = v
	}
	if v := os.Getenv(EnvSessionSecret); v != "" {
		c.Signing.SessionSecret = v
	}
}

func readSecret(name, value, file string) (string, error) {
	if file == "" {
		return value, nil
	}
	if value != "" {
		return "", errors.Errorf("error in signing conf: only one of %s and %s_file may be set", name, name)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", errors.Wrapf(err, "error in signing conf: could not read %s_file", name)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *signingConf) validate() (err error) {
	if c.TokenSecret, err = readSecret("token_secret", c.TokenSecret, c.TokenSecretFile); err != nil {
		return
	}
	if c.SessionSecret, err = readSecret("session_secret", c.SessionSecret, c.SessionSecretFile); err != nil {
		return
	}
	if c.TokenSecret != "" && c.TokenSecret == c.SessionSecret {
		return errors.New("error in signing conf: token_secret and session_secret must differ")
	}
	if c.TokenSecret != "" && len(c.TokenSecret) < recommendedSecretLen {
		log.Warnf("signing.token_secret is shorter than %d bytes", recommendedSecretLen)
	}
	return nil
}
