package server

import (
	"fmt"
	"time"

	"github.com/dekarrin/pastprint/internal/config"
	"github.com/dekarrin/pastprint/server/dao"
	"github.com/dekarrin/pastprint/server/dao/inmem"
	"github.com/dekarrin/pastprint/server/dao/sqlite"
)

// Config is a configuration for a server. It contains all parameters that can
// be used to configure the operation of a PastPrintServer.
type Config struct {

	// TokenSecret is the secret used for signing tokens. If not provided, a
	// default key is used.
	TokenSecret []byte

	// DB is the configuration to use for connecting to the database. If not
	// provided, it will be set to a configuration for using an in-memory
	// persistence layer.
	DB config.Database

	// UnauthDelayMillis is the amount of additional time to wait
	// (in milliseconds) before sending a response that indicates either that
	// the client was unauthorized or the client was unauthenticated. This is
	// something of an "anti-flood" measure for naive clients attempting
	// non-parallel connections. If not set it will default to 1 second
	// (1000ms). Set this to any negative number to disable the delay.
	UnauthDelayMillis int
}

// UnauthDelay returns the configured time for the UnauthDelay as a
// time.Duration. If cfg.UnauthDelayMillis is set to a number less than 1, this
// will return a zero-valued time.Duration.
func (cfg Config) UnauthDelay() time.Duration {
	if cfg.UnauthDelayMillis < 1 {
		var dur time.Duration
		return dur
	}
	return time.Millisecond * time.Duration(cfg.UnauthDelayMillis)
}

// FillDefaults returns a new Config identitical to cfg but with unset values
// set to their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	if newCFG.TokenSecret == nil {
		newCFG.TokenSecret = []byte("DEFAULT_TOKEN_SECRET-DO_NOT_USE_IN_PROD!")
	}
	if newCFG.DB.Type == "" || newCFG.DB.Type == config.DatabaseNone {
		newCFG.DB = config.Database{Type: config.DatabaseInMemory}
	}
	if newCFG.UnauthDelayMillis == 0 {
		newCFG.UnauthDelayMillis = 1000
	}

	return newCFG
}

// Validate returns an error if the Config has invalid field values set. Empty
// and unset values are considered invalid; if defaults are intended to be used,
// call Validate on the return value of FillDefaults.
func (cfg Config) Validate() error {
	if len(cfg.TokenSecret) < config.MinSecretSize {
		return fmt.Errorf("token secret: must be at least %d bytes, but is %d", config.MinSecretSize, len(cfg.TokenSecret))
	}
	if len(cfg.TokenSecret) > config.MaxSecretSize {
		return fmt.Errorf("token secret: must be no more than %d bytes, but is %d", config.MaxSecretSize, len(cfg.TokenSecret))
	}
	if err := cfg.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}

	// all possible values for UnauthDelayMillis are valid, so no need to check it

	return nil
}

// connect performs all logic needed to connect to the configured DB and
// initialize the store for use.
func connect(db config.Database) (dao.Store, error) {
	switch db.Type {
	case config.DatabaseInMemory:
		return inmem.NewDatastore(), nil
	case config.DatabaseSQLite:
		if err := db.MakeDataDir(); err != nil {
			return nil, err
		}

		store, err := sqlite.NewDatastore(db.DataDir)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}

		return store, nil
	case config.DatabaseNone:
		return nil, fmt.Errorf("cannot connect to 'none' DB")
	default:
		return nil, fmt.Errorf("unknown database type: %q", db.Type.String())
	}
}
