// Package pastprint contains a CLI-driven engine that runs an interactive
// Python interpreter and rewrites legacy print statements in everything the
// user types before the interpreter sees it.
package pastprint

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dekarrin/pastprint/hook"
	"github.com/dekarrin/pastprint/internal/config"
	"github.com/dekarrin/pastprint/internal/host"
	"github.com/dekarrin/pastprint/internal/input"
	"github.com/dekarrin/pastprint/internal/loader"
	"github.com/dekarrin/pastprint/internal/pperrors"
	"github.com/dekarrin/pastprint/interp"
	"github.com/dekarrin/pastprint/rewrite"
	"github.com/dekarrin/rosed"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("pastprint")

const consoleOutputWidth = 80

// Options are the settings for New.
type Options struct {
	// Config is the loaded configuration. Defaults are filled in by New.
	Config config.Config

	// Input and Output are the user's streams. If nil, stdin and stdout are
	// used.
	Input  io.Reader
	Output io.Writer

	// DryRun skips starting the interpreter and shows the rewritten input
	// instead.
	DryRun bool

	// Script, if set, is rewritten and run before the interactive session
	// starts, with ScriptArgs as its arguments.
	Script     string
	ScriptArgs []string

	// Registry is the hook registry to install into. If nil, hook.Default()
	// is used.
	Registry *hook.Registry
}

// Engine contains the things needed to run an interpreter session from an
// interactive shell attached to an input stream and an output stream.
type Engine struct {
	in      input.LineReader
	out     *bufio.Writer
	host    host.Host
	hooks   *hook.Registry
	session *interp.Session
	loader  *loader.Loader
	cfg     config.Config
	dryRun  bool
	running bool

	scriptDir string
}

// New creates a new engine ready to operate on the given input and output
// streams. The hooks of the registry are installed and, unless running dry,
// the interpreter is started.
func New(opts Options) (*Engine, error) {
	inputStream := opts.Input
	if inputStream == nil {
		inputStream = os.Stdin
	}
	outputStream := opts.Output
	if outputStream == nil {
		outputStream = os.Stdout
	}

	cfg := opts.Config.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, pperrors.WrapUserf(err, "The configuration is not valid: %s", err)
	}

	policy, _ := loader.ParsePolicy(cfg.Loader.Policy)

	eng := &Engine{
		out:    bufio.NewWriter(outputStream),
		cfg:    cfg,
		dryRun: opts.DryRun,
		hooks:  opts.Registry,
		loader: &loader.Loader{Policy: policy},
	}
	if eng.hooks == nil {
		eng.hooks = hook.Default()
	}

	if cfg.Cache.DB != "" {
		db, _ := config.ParseDBConnString(cfg.Cache.DB)
		store, err := db.OpenCache()
		if err != nil {
			return nil, fmt.Errorf("open rewrite cache: %w", err)
		}
		eng.loader.Cache = store
	}

	useReadline := !cfg.Interpreter.Direct && inputStream == os.Stdin && outputStream == os.Stdout

	var err error
	if useReadline {
		eng.in, err = input.NewInteractiveReader(historyFile())
		if err != nil {
			eng.closeCache()
			return nil, fmt.Errorf("initializing interactive-mode input reader: %w", err)
		}
	} else {
		eng.in = input.NewDirectReader(inputStream, outputStream)
	}

	eng.session = interp.New(interp.WithPrompts(interp.Prompts{
		Primary:      cfg.Interpreter.PS1,
		Continuation: cfg.Interpreter.PS2,
	}))

	eng.hooks.SetInput(eng.readInput)
	if err := eng.hooks.Install(hook.Config{Session: eng.session, Transform: eng.loader.Source}); err != nil {
		eng.in.Close()
		eng.closeCache()
		return nil, fmt.Errorf("install hooks: %w", err)
	}
	// if another engine already installed, lines go to its session
	eng.session = eng.hooks.Session()

	script, err := eng.prepareScript(opts.Script)
	if err != nil {
		eng.teardown()
		return nil, err
	}

	if eng.dryRun {
		eng.host = host.NewEcho(eng.out, cfg.Interpreter.PS1, cfg.Interpreter.PS2, eng.session.Pending)
		if script != "" {
			if err := eng.echoScript(script); err != nil {
				eng.teardown()
				return nil, err
			}
		}
	} else {
		eng.host, err = host.Start(host.Options{
			Python:     cfg.Interpreter.Python,
			Args:       cfg.Interpreter.Args,
			Script:     script,
			ScriptArgs: opts.ScriptArgs,
			ScriptName: opts.Script,
			Modules:    eng.loader,
			PS1:        cfg.Interpreter.PS1,
			PS2:        cfg.Interpreter.PS2,
			Stdout:     outputStream,
			Stderr:     os.Stderr,
		})
		if err != nil {
			eng.teardown()
			return nil, pperrors.WrapUserf(err, "Could not start %s: %s", cfg.Interpreter.Python, err)
		}
	}

	return eng, nil
}

// Close closes all resources associated with the Engine, including any
// readline-related resources created for interactive mode, and uninstalls the
// hooks.
func (eng *Engine) Close() error {
	if eng.running {
		return fmt.Errorf("cannot close a running engine")
	}

	var hostErr error
	if eng.host != nil {
		hostErr = eng.host.Wait()
	}
	err := eng.teardown()

	if hostErr != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(hostErr, &exitErr) {
			log.Infof("interpreter exited with status %d", exitErr.ExitCode())
		} else if err == nil {
			err = fmt.Errorf("wait for interpreter: %w", hostErr)
		}
	}
	return err
}

func (eng *Engine) teardown() error {
	eng.hooks.Uninstall()
	eng.closeCache()
	if eng.scriptDir != "" {
		os.RemoveAll(eng.scriptDir)
		eng.scriptDir = ""
	}
	if err := eng.in.Close(); err != nil {
		return fmt.Errorf("close line reader: %w", err)
	}
	return nil
}

func (eng *Engine) closeCache() {
	if eng.loader.Cache != nil {
		if err := eng.loader.Cache.Close(); err != nil {
			log.Warningf("closing rewrite cache: %s", err)
		}
		eng.loader.Cache = nil
	}
}

// RunUntilQuit reads lines from the user and hands the rewritten lines to the
// interpreter until either the interpreter exits or input ends.
func (eng *Engine) RunUntilQuit(ctx context.Context) error {
	if eng.dryRun {
		introMsg := "pastprint dry run: rewritten input is shown instead of being run"
		introMsg = rosed.Edit(introMsg).Wrap(consoleOutputWidth).String()
		if err := eng.write(introMsg + "\n"); err != nil {
			return err
		}
	}

	eng.running = true
	// so we dont have to remember to do this on every returned error condition
	defer func() {
		eng.running = false
	}()

	for eng.running {
		prompt, err := eng.host.Prompt(ctx)
		if err == io.EOF {
			break
		} else if err != nil {
			return fmt.Errorf("wait for prompt: %w", err)
		}

		var line string
		if prompt == "" {
			// only input() asks without a prompt; it is not interpreter input
			line, err = eng.readInput(prompt)
		} else {
			line, err = eng.hooks.ReadLine(prompt)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if err := eng.host.CloseInput(); err != nil {
					return fmt.Errorf("close interpreter input: %w", err)
				}
				continue
			}
			if errors.Is(err, input.ErrInterrupt) {
				eng.session.Discard()
				if err := eng.host.Interrupt(); err != nil {
					return fmt.Errorf("interrupt interpreter: %w", err)
				}
				continue
			}
			return fmt.Errorf("get user input: %w", err)
		}

		if err := eng.host.Send(line); err != nil {
			return fmt.Errorf("send to interpreter: %w", err)
		}
		if err := eng.out.Flush(); err != nil {
			return fmt.Errorf("could not flush output: %w", err)
		}
	}

	return eng.out.Flush()
}

// readInput is the input function of the hook registry.
func (eng *Engine) readInput(prompt string) (string, error) {
	if err := eng.out.Flush(); err != nil {
		return "", fmt.Errorf("could not flush output: %w", err)
	}
	return eng.in.ReadLine(prompt)
}

// prepareScript rewrites the script at path into a temporary directory and
// returns the path of the rewritten copy. It returns "" if path is "".
func (eng *Engine) prepareScript(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", pperrors.WrapUserf(err, "Could not read %s: %s", path, err)
	}

	src, err := eng.hooks.LoadSource(path, data)
	if err != nil {
		var se *rewrite.SyntaxError
		if errors.As(err, &se) {
			return "", pperrors.WrapUser(err, se.Traceback(), "")
		}
		return "", err
	}

	if eng.dryRun {
		return src, nil
	}

	eng.scriptDir, err = os.MkdirTemp("", "pastprint-")
	if err != nil {
		return "", fmt.Errorf("create script dir: %w", err)
	}
	out := filepath.Join(eng.scriptDir, filepath.Base(path))
	if err := os.WriteFile(out, []byte(src), 0600); err != nil {
		return "", fmt.Errorf("write rewritten script: %w", err)
	}
	return out, nil
}

// echoScript shows a rewritten script in dry-run mode.
func (eng *Engine) echoScript(src string) error {
	return eng.write(src)
}

func (eng *Engine) write(s string) error {
	if _, err := eng.out.WriteString(s); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	if err := eng.out.Flush(); err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}
	return nil
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "pastprint")
	if err := os.MkdirAll(dir, 0770); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}
