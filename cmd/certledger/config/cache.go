package config

import (
	"github.com/go-oidfed/lib/cache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type cachingConf struct {
	RedisAddr string `yaml:"redis_addr"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	RedisDB   int    `yaml:"redis_db"`
}

// UseCache switches the cache to redis if caching.redis_addr is set; the
// in-memory cache is used otherwise
func UseCache(c cachingConf) error {
	if c.RedisAddr == "" {
		return nil
	}
	if err := cache.UseRedisCache(
		&redis.Options{
			Addr:     c.RedisAddr,
			Username: c.Username,
			Password: c.Password,
			DB:       c.RedisDB,
		},
	); err != nil {
		return errors.Wrap(err, "could not init redis cache")
	}
	log.Info("Loaded Redis Cache")
	return nil
}
