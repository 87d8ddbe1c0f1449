package config

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/certledger/certledger/storage"
	"github.com/certledger/certledger/storage/model"
)

type storageConf struct {
	Driver          storage.DriverType     `yaml:"driver"`
	DataDir         string                 `yaml:"data_dir"`
	DSN             string                 `yaml:"dsn"`
	Debug           bool                   `yaml:"debug"`
	PasswordHashing storage.Argon2idParams `yaml:"password_hashing"`

	storage.DSNConf `yaml:",inline"`
}

func (c *storageConf) validate() error {
	if c.Driver == storage.DriverSQLite {
		if c.DataDir == "" {
			return errors.New("error in storage conf: data_dir must be specified")
		}
		return nil
	}
	var err error
	if c.DSN == "" {
		c.DSN, err = storage.DSN(c.Driver, c.DSNConf)
	}
	return err
}

var defaultStorageConf = storageConf{
	Driver:  storage.DriverSQLite,
	DataDir: ".",
	DSNConf: storage.DSNConf{
		User: "certledger",
		Host: "localhost",
		DB:   "certledger",
	},
	Debug: false,
	PasswordHashing: storage.Argon2idParams{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      64,
		SaltLen:     32,
	},
}

// Config returns the storage.Config for the storageConf
func (c storageConf) Config() storage.Config {
	return storage.Config{
		Driver:          c.Driver,
		DSN:             c.DSN,
		DataDir:         c.DataDir,
		Debug:           c.Debug,
		PasswordHashing: c.PasswordHashing,
	}
}

// LoadStorageBackends loads and returns the storage backends for the passed Config
func LoadStorageBackends(c storageConf) (model.Backends, error) {
	backs, err := storage.LoadStorageBackends(c.Config())
	if err != nil {
		return model.Backends{}, err
	}
	log.Info("Loaded storage backend")
	return backs, nil
}
