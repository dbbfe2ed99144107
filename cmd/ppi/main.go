/*
Ppi starts an interactive Python session in which the legacy print statement
works.

It runs the Python interpreter and reads user input from stdin. Each line is
rewritten so that print statements become calls to the print function before
the interpreter receives it, so both of these work:

	>>> print "hello", "world"
	>>> print >>sys.stderr, "oops"

Input that uses print as a function in a way the statement cannot express,
such as print(x, file=f), is rejected by the interpreter as a syntax error.

Usage:

	ppi [flags] [FILE [ARGS...]]

If FILE is given, it is rewritten and run first, with ARGS as its arguments,
and the interactive session starts afterwards.

The flags are:

	-version
		Give the current version of pastprint and then exit.

	-c/-config FILE
		Load settings from the given TOML file. Defaults to the file named by
		environment variable PASTPRINT_CONFIG, then "pastprint.toml" in the
		current working directory, then pastprint/pastprint.toml in the user
		config directory.

	-p/-python EXECUTABLE
		Use the given Python interpreter. Overrides the config file.

	-n/-dry-run
		Do not start an interpreter. Show the rewritten input instead.

	-d/-direct
		Force reading directly from the console as opposed to using GNU
		readline based routines for reading input even if launched in a tty
		with stdin and stdout.

	-v
		Increase log verbosity. May be given more than once.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dekarrin/pastprint"
	"github.com/dekarrin/pastprint/internal/config"
	"github.com/dekarrin/pastprint/internal/pperrors"
	"github.com/dekarrin/pastprint/internal/version"
	"github.com/dekarrin/rosed"

	_ "github.com/tliron/commonlog/simple"
)

const (

	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitSessionError indicates an unsuccessful program execution due to a
	// problem during the session.
	ExitSessionError

	// ExitInitError indicates an unsuccessful program execution due to an issue
	// initializing the engine.
	ExitInitError
)

const consoleOutputWidth = 80

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string {
	return fmt.Sprintf("%d", int(*v))
}

func (v *verbosity) Set(string) error {
	*v++
	return nil
}

func (v *verbosity) IsBoolFlag() bool {
	return true
}

var (
	returnCode  int   = ExitSuccess
	flagVersion *bool = flag.Bool("version", false, "Gives the version info")
	configFile  string
	python      string
	dryRun      bool
	forceDirect bool
	verbose     verbosity
)

func init() {
	const (
		configUsage      = "the TOML file to load settings from"
		pythonUsage      = "the Python interpreter to run"
		dryRunUsage      = "show rewritten input instead of running an interpreter"
		forceDirectUsage = "force reading directly from stdin instead of going through GNU readline where possible"
	)
	flag.StringVar(&configFile, "config", "", configUsage)
	flag.StringVar(&configFile, "c", "", configUsage+" (shorthand)")
	flag.StringVar(&python, "python", "", pythonUsage)
	flag.StringVar(&python, "p", "", pythonUsage+" (shorthand)")
	flag.BoolVar(&dryRun, "dry-run", false, dryRunUsage)
	flag.BoolVar(&dryRun, "n", false, dryRunUsage+" (shorthand)")
	flag.BoolVar(&forceDirect, "direct", false, forceDirectUsage)
	flag.BoolVar(&forceDirect, "d", false, forceDirectUsage+" (shorthand)")
	flag.Var(&verbose, "v", "increase log verbosity")
}

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			// we are panicking, make sure we dont lose the panic just because
			// we checked
			panic(panicErr)
		} else {
			os.Exit(returnCode)
		}
	}()

	flag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	var cfg config.Config
	var err error
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		printError(err)
		returnCode = ExitInitError
		return
	}

	if python != "" {
		cfg.Interpreter.Python = python
	}
	if forceDirect {
		cfg.Interpreter.Direct = true
	}
	cfg.Log.Verbosity += int(verbose)
	cfg.Log.Configure()

	opts := pastprint.Options{
		Config: cfg,
		DryRun: dryRun,
	}
	if args := flag.Args(); len(args) > 0 {
		opts.Script = args[0]
		opts.ScriptArgs = args[1:]
	}

	eng, initErr := pastprint.New(opts)
	if initErr != nil {
		printError(initErr)
		returnCode = ExitInitError
		return
	}
	defer func() {
		if err := eng.Close(); err != nil {
			printError(err)
			if returnCode == ExitSuccess {
				returnCode = ExitSessionError
			}
		}
	}()

	err = eng.RunUntilQuit(context.Background())
	if err != nil {
		printError(err)
		returnCode = ExitSessionError
		return
	}
}

func printError(err error) {
	msg := pperrors.UserMessage(err)
	if !strings.Contains(msg, "\n") {
		msg = rosed.Edit("ERROR: " + msg).Wrap(consoleOutputWidth).String()
	}
	fmt.Fprintf(os.Stderr, "%s\n", msg)
}
