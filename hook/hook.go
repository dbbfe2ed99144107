// Package hook holds the points where pastprint intercepts the host
// interpreter: the function that reads a line of interactive input and the
// function that turns the bytes of a module file into the source to compile.
//
// A Registry starts with whatever functions the host provides. Install
// replaces them with wrappers that send each line through an interp.Session
// and each module through a source transform, and Uninstall puts the
// originals back.
package hook

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dekarrin/pastprint/interp"
	"github.com/dekarrin/pastprint/rewrite"
	"github.com/tliron/commonlog"
)

// InputFunc reads one line of interactive input after showing prompt. The
// returned line ends with a newline. At end of input it returns io.EOF.
type InputFunc func(prompt string) (string, error)

// SourceFunc converts the raw contents of the module file at path into the
// source text that should be compiled.
type SourceFunc func(path string, data []byte) (string, error)

var (
	// ErrNoInput is returned by ReadLine when no input function is set.
	ErrNoInput = errors.New("no input function is set")

	// ErrNoSource is returned by LoadSource when no source function is set
	// and none is installed.
	ErrNoSource = errors.New("no source function is set")
)

var log = commonlog.GetLogger("pastprint.hook")

// Config is the set of options for Install.
type Config struct {
	// Session receives every line read through the input hook. If nil, a new
	// session with the default prompts is used.
	Session *interp.Session

	// Transform produces module source. If nil, the data is taken as UTF-8
	// and given to rewrite.RewriteFile.
	Transform SourceFunc
}

// Registry holds the current input and source functions. All methods are
// safe for concurrent use.
type Registry struct {
	mu sync.Mutex

	input  InputFunc
	source SourceFunc

	installed  bool
	prevInput  InputFunc
	prevSource SourceFunc
	session    *interp.Session
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide Registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = &Registry{}
	})
	return defaultRegistry
}

// SetInput sets the function that reads interactive input. If the registry is
// installed, fn becomes the function the installed hook reads from, and
// setting it to nil leaves no input function until another is set.
func (r *Registry) SetInput(fn InputFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.installed {
		r.prevInput = fn
		if fn != nil {
			r.input = r.readLine
		} else {
			r.input = nil
		}
		return
	}
	r.input = fn
}

// SetSource sets the function that produces module source. If the registry is
// installed, fn is what Uninstall will restore.
func (r *Registry) SetSource(fn SourceFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.installed {
		r.prevSource = fn
		return
	}
	r.source = fn
}

// Install captures the current input and source functions and replaces them
// with ones that rewrite print statements. Installing twice logs a warning
// and leaves the first installation in place.
func (r *Registry) Install(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.installed {
		log.Warning("hooks already installed; ignoring second install")
		return nil
	}

	sess := cfg.Session
	if sess == nil {
		sess = interp.New()
	}
	transform := cfg.Transform
	if transform == nil {
		transform = rewriteSource
	}

	r.prevInput = r.input
	r.prevSource = r.source
	r.session = sess

	if r.prevInput == nil {
		log.Warning("no input function - assuming this is a test")
	} else {
		r.input = r.readLine
	}
	r.source = transform
	r.installed = true

	return nil
}

// Uninstall restores the functions captured by Install. It does nothing if
// the registry is not installed.
func (r *Registry) Uninstall() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.installed {
		return
	}

	r.input = r.prevInput
	r.source = r.prevSource
	r.prevInput = nil
	r.prevSource = nil
	r.session = nil
	r.installed = false
}

// Installed returns whether Install is in effect.
func (r *Registry) Installed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installed
}

// Session returns the session used by the installed input hook, or nil if the
// registry is not installed.
func (r *Registry) Session() *interp.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// ReadLine reads a line of input through the current input function.
func (r *Registry) ReadLine(prompt string) (string, error) {
	r.mu.Lock()
	fn := r.input
	r.mu.Unlock()

	if fn == nil {
		return "", ErrNoInput
	}
	return fn(prompt)
}

// LoadSource produces the source to compile for the module file at path.
func (r *Registry) LoadSource(path string, data []byte) (string, error) {
	r.mu.Lock()
	fn := r.source
	r.mu.Unlock()

	if fn == nil {
		return "", ErrNoSource
	}
	return fn(path, data)
}

// readLine is the installed input hook.
func (r *Registry) readLine(prompt string) (string, error) {
	r.mu.Lock()
	prev := r.prevInput
	sess := r.session
	r.mu.Unlock()

	if prev == nil {
		return "", ErrNoInput
	}
	line, err := prev(prompt)
	if err != nil {
		if errors.Is(err, io.EOF) && sess.Pending() {
			// nothing more is coming for the unfinished statement
			log.Debug("end of input with an unfinished statement")
			sess.Discard()
		}
		return "", err
	}
	log.Debugf("input line %q", line)
	line = sess.Feed(line, prompt)
	log.Debugf("updated line %q", line)
	return line, nil
}

func rewriteSource(path string, data []byte) (string, error) {
	out, err := rewrite.RewriteFile(string(data), path)
	if err != nil {
		return "", fmt.Errorf("rewrite %s: %w", path, err)
	}
	return out, nil
}
