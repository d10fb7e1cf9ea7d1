package gormdb

import (
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq" // init pg driver
	"github.com/pkg/errors"
)

func GetDBConnString(cfg config.Config) (string, error) {
	dbURL := cfg.GetString("DATABASE_URL")
	if dbURL != "" {
		dbURL = strings.Replace(dbURL, "postgresql", "postgres", 1)
		return dbURL, nil
	}

	host := cfg.GetString("DATABASE_HOST")
	username := cfg.GetString("DATABASE_USERNAME")
	password := cfg.GetString("DATABASE_PASSWORD")
	name := cfg.GetString("DATABASE_NAME")
	if host == "" || username == "" || password == "" || name == "" {
		return "", errors.New("no DATABASE_URL or DATABASE_{HOST,USERNAME,PASSWORD,NAME} in config")
	}

	sslMode := cfg.GetStringDefault("DATABASE_SSLMODE", "disable")
	return "postgres://" + username + ":" + password + "@" + host + "/" + name + "?sslmode=" + sslMode, nil
}

// GetDB opens the database and waits for it to accept connections. Only the
// startup ping is retried.
func GetDB(cfg config.Config, log logutil.Log, connString string) (*gorm.DB, error) {
	if connString == "" {
		var err error
		connString, err = GetDBConnString(cfg)
		if err != nil {
			return nil, err
		}
	}
	adapter := strings.Split(connString, "://")[0]
	isDebug := cfg.GetBool("DEBUG_DB", false)
	if isDebug {
		log.Infof("Connecting to database %s", adapter)
	}

	db, err := gorm.Open(adapter, connString)
	if err != nil {
		return nil, errors.Wrap(err, "can't open db connection")
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.GetDuration("DATABASE_CONNECT_TIMEOUT", 30*time.Second)
	ping := func() error {
		if pingErr := db.DB().Ping(); pingErr != nil {
			log.Warnf("Database is not ready yet: %s", pingErr)
			return pingErr
		}
		return nil
	}
	if err = backoff.Retry(ping, b); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database didn't become ready")
	}

	if isDebug {
		db = db.Debug()
	}

	db.SetLogger(logger{
		log: log.Child("db"),
	})

	return db, nil
}
