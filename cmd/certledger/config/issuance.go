package config

import (
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/zachmann/go-utils/duration"

	"github.com/certledger/certledger/issuance"
)

type issuanceConf struct {
	Reconcile struct {
		Enabled     bool                    `yaml:"enabled"`
		Schedule    string                  `yaml:"schedule"`
		GracePeriod duration.DurationOption `yaml:"grace_period"`
	} `yaml:"reconcile"`
}

var defaultIssuanceConf = func() issuanceConf {
	c := issuanceConf{}
	c.Reconcile.Enabled = true
	c.Reconcile.Schedule = issuance.DefaultReconcileSchedule
	c.Reconcile.GracePeriod = duration.DurationOption(issuance.DefaultGracePeriod)
	return c
}()

func (c *issuanceConf) validate() error {
	if !c.Reconcile.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(c.Reconcile.Schedule); err != nil {
		return errors.Wrap(err, "error in issuance conf: invalid reconcile.schedule")
	}
	return nil
}
