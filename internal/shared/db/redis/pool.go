package redis

import (
	"fmt"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/pkg/errors"
)

func GetPool(cfg config.Config) (*redis.Pool, error) {
	redisURL, err := GetURL(cfg)
	if err != nil {
		return nil, err
	}

	return &redis.Pool{
		MaxIdle:     cfg.GetInt("REDIS_MAX_IDLE", 10),
		IdleTimeout: cfg.GetDuration("REDIS_IDLE_TIMEOUT", 240*time.Second),
		TestOnBorrow: func(c redis.Conn, _ time.Time) error {
			_, pingErr := c.Do("PING")
			return pingErr
		},
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(redisURL)
		},
	}, nil
}

func GetURL(cfg config.Config) (string, error) {
	if redisURL := cfg.GetString("REDIS_URL"); redisURL != "" {
		return redisURL, nil
	}

	host := cfg.GetString("REDIS_HOST")
	password := cfg.GetString("REDIS_PASSWORD")
	if host == "" || password == "" {
		return "", errors.New("no REDIS_URL or REDIS_{HOST,PASSWORD} in config")
	}

	return fmt.Sprintf("redis://h:%s@%s", password, host), nil
}
