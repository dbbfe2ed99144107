// Package config loads pastprint's settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dekarrin/pastprint/internal/loader"
	"github.com/tliron/commonlog"
)

const (
	// Filename is the name of the config file looked for by Find.
	Filename = "pastprint.toml"

	// EnvConfig names an environment variable that gives the config file
	// path.
	EnvConfig = "PASTPRINT_CONFIG"
)

// Interpreter holds the settings for running the host interpreter.
type Interpreter struct {
	// Python is the interpreter executable.
	Python string `toml:"python"`

	// Args are given to Python before anything else. They must put it in
	// interactive mode with unbuffered output.
	Args []string `toml:"args"`

	PS1 string `toml:"ps1"`
	PS2 string `toml:"ps2"`

	// Direct forces reading input without line editing even when attached to
	// a terminal.
	Direct bool `toml:"direct"`
}

// Loader holds the settings for rewriting module files.
type Loader struct {
	Policy string `toml:"policy"`
}

// Cache holds the settings for the rewrite cache.
type Cache struct {
	// DB is a connection string as accepted by ParseDBConnString. If empty,
	// nothing is cached.
	DB string `toml:"db"`
}

// Log holds logging settings.
type Log struct {
	// Verbosity is the commonlog verbosity. 0 logs notices and above, each
	// step up adds a level, and -4 turns logging off.
	Verbosity int `toml:"verbosity"`

	// File is where logs are written. If empty, logs go to stderr.
	File string `toml:"file"`
}

// Configure sets up commonlog with these settings.
func (l Log) Configure() {
	var path *string
	if l.File != "" {
		path = &l.File
	}
	commonlog.Configure(l.Verbosity, path)
}

// Server holds the settings for the rewrite server.
type Server struct {
	Listen string `toml:"listen"`
	Secret string `toml:"secret"`
	DB     string `toml:"db"`

	// UnauthDelayMillis is the extra wait before answering a request that
	// failed authentication.
	UnauthDelayMillis int `toml:"unauth_delay_ms"`
}

// Config is the complete contents of a config file.
type Config struct {
	Interpreter Interpreter `toml:"interpreter"`
	Loader      Loader      `toml:"loader"`
	Cache       Cache       `toml:"cache"`
	Log         Log         `toml:"log"`
	Server      Server      `toml:"server"`
}

// Load reads the config file at path. Keys that Config does not have are an
// error.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i := range undec {
			keys[i] = undec[i].String()
		}
		return cfg, fmt.Errorf("%s: unknown key(s): %s", path, strings.Join(keys, ", "))
	}

	return cfg, nil
}

// Find returns the path of the config file to use: the one named by
// EnvConfig, else Filename in the working directory, else Filename in the
// user's config directory under "pastprint". If none exists, it returns "".
func Find() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s: %w", EnvConfig, err)
		}
		return p, nil
	}

	candidates := []string{Filename}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "pastprint", Filename))
	}

	for _, c := range candidates {
		_, err := os.Stat(c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}

	return "", nil
}

// LoadDefault loads the file found by Find, or returns an empty Config if
// there is none.
func LoadDefault() (Config, error) {
	path, err := Find()
	if err != nil || path == "" {
		return Config{}, err
	}
	return Load(path)
}

// FillDefaults returns a new Config identical to cfg but with unset values
// set to their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	if newCFG.Interpreter.Python == "" {
		newCFG.Interpreter.Python = "python3"
	}
	if newCFG.Interpreter.Args == nil {
		newCFG.Interpreter.Args = []string{"-i", "-q", "-u"}
	}
	if newCFG.Interpreter.PS1 == "" {
		newCFG.Interpreter.PS1 = ">>> "
	}
	if newCFG.Interpreter.PS2 == "" {
		newCFG.Interpreter.PS2 = "... "
	}
	if newCFG.Loader.Policy == "" {
		newCFG.Loader.Policy = loader.PolicyAlways.String()
	}
	if newCFG.Server.Listen == "" {
		newCFG.Server.Listen = "localhost:8080"
	}
	if newCFG.Server.DB == "" {
		newCFG.Server.DB = DatabaseInMemory.String()
	}
	if newCFG.Server.UnauthDelayMillis == 0 {
		newCFG.Server.UnauthDelayMillis = 1000
	}

	return newCFG
}

// Validate returns an error if the Config has invalid field values set. Empty
// and unset values are considered invalid where a default exists; if
// defaults are intended to be used, call Validate on the return value of
// FillDefaults.
func (cfg Config) Validate() error {
	if cfg.Interpreter.Python == "" {
		return fmt.Errorf("interpreter.python: must not be empty")
	}
	if cfg.Interpreter.PS1 == "" || cfg.Interpreter.PS2 == "" {
		return fmt.Errorf("interpreter: ps1 and ps2 must not be empty")
	}
	if cfg.Interpreter.PS1 == cfg.Interpreter.PS2 {
		return fmt.Errorf("interpreter: ps1 and ps2 must differ")
	}
	if _, err := loader.ParsePolicy(cfg.Loader.Policy); err != nil {
		return fmt.Errorf("loader.policy: %w", err)
	}
	if cfg.Cache.DB != "" {
		if _, err := ParseDBConnString(cfg.Cache.DB); err != nil {
			return fmt.Errorf("cache.db: %w", err)
		}
	}
	if _, err := ParseDBConnString(cfg.Server.DB); err != nil {
		return fmt.Errorf("server.db: %w", err)
	}
	if cfg.Server.Secret != "" && len(cfg.Server.Secret) > MaxSecretSize {
		return fmt.Errorf("server.secret: must be no more than %d bytes, but is %d", MaxSecretSize, len(cfg.Server.Secret))
	}

	return nil
}
