/*
Ppserver starts a pastprint server and begins listening for new connections.

Usage:

	ppserver [flags]
	ppserver [flags] -l [[ADDRESS]:PORT]

Once started, the pastprint server will listen for HTTP requests and respond to
them using REST protocol. Clients can have whole modules rewritten, or open a
session and send it one line at a time as an interactive shell would. By
default, it will listen on localhost:8080. This can be changed with the
--listen/-l flag (or config via environment var). The flag argument must be
either a full address with port, such as "192.168.0.2:6001", or just the IP
address preceeded by a colon, such as ":6001".

If a JWT token secret is not given, one will be automatically generated. As a
consequence, in this mode of operation all session tokens are rendered invalid
as soon as the server shuts down.

Values not given by flag or environment variable are read from the [server]
section of the config file, if there is one.

The flags are:

	-v, --version
		Give the current version of the pastprint server and then exit.

	-c, --config FILE
		Read settings from the given TOML file instead of searching for
		pastprint.toml.

	-l, --listen LISTEN_ADDRESS
		Listen on the given address. Must be in BIND_ADDRESS:PORT or :PORT
		format. If not given, will default to the value of environment variable
		PASTPRINT_LISTEN_ADDRESS, and if that is not given, will default to
		localhost:8080.

	-s, --secret TOKEN_SECRET
		Use the provided secret for signing JWT tokens. If there are less than
		32 bytes in the secret, it will be repeated until it is. The maximum
		size is 64 bytes. If not given, will default to the value of environment
		variable PASTPRINT_TOKEN_SECRET. If no secret is specified or an empty
		secret is given, a random secret will be automatically generated.

	--db DRIVER[:PARAMS]
		Use the given DB connection string. DRIVER must be one of the following:
		inmem, sqlite. inmem has no further params. sqlite needs the path to the
		data directory such as sqlite:path/to/db_dir. If not given, will default
		to the value of environment variable PASTPRINT_DATABASE. If no DB driver
		is specified, an in-memory database is automatically selected.
*/
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dekarrin/pastprint/internal/config"
	"github.com/dekarrin/pastprint/internal/version"
	"github.com/dekarrin/pastprint/server"
	"github.com/spf13/pflag"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const (
	EnvListen = "PASTPRINT_LISTEN_ADDRESS"
	EnvSecret = "PASTPRINT_TOKEN_SECRET"
	EnvDB     = "PASTPRINT_DATABASE"
)

const (
	ExitSuccess = iota
	ExitUsageError
	ExitServerError
)

var log = commonlog.GetLogger("pastprint.ppserver")

// settings is everything needed to start the server, after flags, environment
// and config file have been consulted.
type settings struct {
	address string
	port    int
	cfg     server.Config

	// generatedSecret is whether cfg.TokenSecret was randomly made.
	generatedSecret bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("ppserver", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flagVersion := flags.BoolP("version", "v", false, "Give the current version of the pastprint server and then exit.")
	flagConfig := flags.StringP("config", "c", "", "Read settings from the given config file.")
	flags.StringP("listen", "l", "", "Listen on the given address.")
	flags.StringP("secret", "s", "", "Use the given secret for token generation.")
	flags.String("db", "", "Use the given DB connection string.")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(stderr, "%s\nDo -h for help.\n", err)
		return ExitUsageError
	}

	if *flagVersion {
		fmt.Fprintf(stdout, "%s (pastprint v%s)\n", version.ServerCurrent, version.Current)
		return ExitSuccess
	}

	if flags.NArg() > 0 {
		fmt.Fprintf(stderr, "Too many arguments\nDo -h for help.\n")
		return ExitUsageError
	}

	var fileCfg config.Config
	var err error
	if *flagConfig != "" {
		fileCfg, err = config.Load(*flagConfig)
	} else {
		fileCfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return ExitUsageError
	}
	fileCfg.Log.Configure()

	st, err := configure(flags, fileCfg.Server)
	if err != nil {
		fmt.Fprintf(stderr, "%s\nDo -h for help.\n", err)
		return ExitUsageError
	}
	if st.generatedSecret {
		// yell at the user bc they should know their secret might be bad
		log.Warningf("Using generated token secret; all tokens issued will become invalid at shutdown")
	}

	pps, err := server.New(st.cfg)
	if err != nil {
		log.Errorf("could not start server: %s", err)
		return ExitServerError
	}
	log.Debugf("Server initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting pastprint server %s...", version.ServerCurrent)
		serveErr <- pps.ServeForever(st.address, st.port)
	}()

	select {
	case err = <-serveErr:
		pps.Shutdown(context.Background())
	case <-ctx.Done():
		log.Infof("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = pps.Shutdown(shutdownCtx)
		if serr := <-serveErr; err == nil {
			err = serr
		}
	}

	if err != nil {
		log.Errorf("server stopped: %s", err)
		return ExitServerError
	}
	return ExitSuccess
}

// configure assembles the settings to start the server with. Flags take
// priority over environment variables, which take priority over fileCfg.
func configure(flags *pflag.FlagSet, fileCfg config.Server) (settings, error) {
	var st settings
	st.cfg.UnauthDelayMillis = fileCfg.UnauthDelayMillis

	// get address info
	listenAddr := lookup(flags, "listen", EnvListen, fileCfg.Listen)
	if listenAddr != "" {
		bindParts := strings.SplitN(listenAddr, ":", 2)
		if len(bindParts) != 2 {
			return st, fmt.Errorf("Listen address is not in ADDRESS:PORT or :PORT format.")
		}

		port, err := strconv.Atoi(bindParts[1])
		if err != nil {
			return st, fmt.Errorf("%q is not a valid port number.", bindParts[1])
		}
		st.address = bindParts[0]
		st.port = port
	}

	// look at db connection string
	dbConnStr := lookup(flags, "db", EnvDB, fileCfg.DB)
	if dbConnStr != "" {
		db, err := config.ParseDBConnString(dbConnStr)
		if err != nil {
			return st, fmt.Errorf("Not a valid DB string: %s", err)
		}
		st.cfg.DB = db
	}

	// get token secret
	tokSecStr := lookup(flags, "secret", EnvSecret, fileCfg.Secret)
	if tokSecStr != "" {
		secret, err := expandSecret([]byte(tokSecStr))
		if err != nil {
			return st, err
		}
		st.cfg.TokenSecret = secret
	} else {
		// use all possible bytes if doing a generated secret
		st.cfg.TokenSecret = make([]byte, config.MaxSecretSize)
		if _, err := rand.Read(st.cfg.TokenSecret); err != nil {
			return st, fmt.Errorf("Could not generate token secret: %s", err)
		}
		st.generatedSecret = true
	}

	return st, nil
}

// lookup gives the value of the named flag if it was set, otherwise the value
// of env if it is not empty, otherwise def.
func lookup(flags *pflag.FlagSet, name, env, def string) string {
	if f := flags.Lookup(name); f != nil && f.Changed {
		return f.Value.String()
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// expandSecret repeats secret until it is at least config.MinSecretSize bytes.
func expandSecret(secret []byte) ([]byte, error) {
	for len(secret) < config.MinSecretSize {
		doubled := make([]byte, len(secret)*2)
		copy(doubled, secret)
		copy(doubled[len(secret):], secret)
		secret = doubled
	}

	if len(secret) > config.MaxSecretSize {
		// keys would be chopped at the max, so rather than the user thinking
		// they have more security by giving a longer key, refuse to start.
		return nil, fmt.Errorf("Token secret is %d bytes, but it must be <= %d bytes", len(secret), config.MaxSecretSize)
	}
	return secret, nil
}
