package config

import (
	"os"
	"path/filepath"
	"reflect"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/fileutils"
	"gopkg.in/yaml.v3"

	"github.com/certledger/certledger"
)

// Config holds the configuration for certledger
type Config struct {
	Server       certledger.ServerConf `yaml:"server"`
	API          apiConf               `yaml:"api"`
	Logging      loggingConf           `yaml:"logging"`
	Signing      signingConf           `yaml:"signing"`
	Storage      storageConf           `yaml:"storage"`
	Caching      cachingConf           `yaml:"caching"`
	Ledger       ledgerConf            `yaml:"ledger"`
	Extraction   extractionConf        `yaml:"extraction"`
	Verification verificationConf      `yaml:"verification"`
	Events       eventsConf            `yaml:"events"`
	GeoIP        geoIPConf             `yaml:"geoip"`
	Issuance     issuanceConf          `yaml:"issuance"`
	Lookup       lookupConf            `yaml:"lookup"`
}

type configValidator interface {
	validate() error
}

var c Config

var possibleConfigLocations = []string{
	".",
	"config",
	"/config",
	"/etc/certledger",
}

// Get returns the Config
func Get() Config {
	return c
}

func defaultConfig() Config {
	return Config{
		Server: certledger.ServerConf{
			Port: 7672,
		},
		API:          defaultAPIConf,
		Logging:      defaultLoggingConf,
		Signing:      defaultSigningConf,
		Storage:      defaultStorageConf,
		Ledger:       defaultLedgerConf,
		Extraction:   defaultExtractionConf,
		Verification: defaultVerificationConf,
		Events:       defaultEventsConf,
		Issuance:     defaultIssuanceConf,
		Lookup:       defaultLookupConf,
	}
}

func (c *Config) validate() error {
	v := reflect.ValueOf(c).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanAddr() {
			continue
		}
		if validator, ok := f.Addr().Interface().(configValidator); ok {
			if err := validator.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Parse parses a yaml config, applies the environment overrides and
// validates the result
func Parse(data []byte) (Config, error) {
	conf := defaultConfig()
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return conf, errors.Wrap(err, "could not parse config")
	}
	conf.applyEnv()
	if err := conf.validate(); err != nil {
		return conf, err
	}
	return conf, nil
}

func findConfigFile(filename string) (string, error) {
	if filename != "" {
		if !fileutils.FileExists(filename) {
			return "", errors.Errorf("config file '%s' does not exist", filename)
		}
		return filename, nil
	}
	for _, dir := range possibleConfigLocations {
		p := filepath.Join(dir, "config.yaml")
		if fileutils.FileExists(p) {
			return p, nil
		}
	}
	return "", errors.New("could not find a config file")
}

// Load loads the config from the passed file or one of the default
// locations; a .env file in the working directory is loaded first
func Load(filename string) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not load .env file")
	}
	file, err := findConfigFile(filename)
	if err != nil {
		log.Fatal(err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		log.WithError(err).Fatal("could not read config file")
	}
	c, err = Parse(data)
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}
}
