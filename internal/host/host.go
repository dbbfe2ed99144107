// Package host runs the Python interpreter that executes the rewritten input
// and tells its caller when the interpreter wants the next line.
package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("pastprint.host")

// ErrClosed is returned by Send after CloseInput.
var ErrClosed = errors.New("input is closed")

// Host is an interpreter that reads lines after showing a prompt.
type Host interface {
	// Prompt blocks until the interpreter shows a prompt and returns it. It
	// returns io.EOF once the interpreter will not ask for input again.
	Prompt(ctx context.Context) (string, error)

	// Send gives the interpreter the text for the prompt last returned.
	Send(text string) error

	// CloseInput signals end of input.
	CloseInput() error

	// Interrupt abandons whatever the interpreter is doing, as Ctrl-C would.
	Interrupt() error

	// Wait blocks until the interpreter is done and releases its resources.
	Wait() error
}

// Options configure a Process.
type Options struct {
	// Python is the interpreter executable.
	Python string

	// Args come before Script on the command line.
	Args []string

	// Script, if set, is run before the interactive session starts, with
	// ScriptArgs as its arguments.
	Script     string
	ScriptArgs []string

	// ScriptName is the name Script runs under in sys.argv, __file__ and
	// tracebacks. Its directory is the first entry of sys.path. If empty,
	// Script is used.
	ScriptName string

	// Modules, if not nil, provides the source of the modules the
	// interpreter imports from outside its own library directories.
	Modules Modules

	// PS1 and PS2 are the prompts the interpreter is told to use and that
	// are recognized in its output.
	PS1 string
	PS2 string

	// Stdout and Stderr receive the interpreter's output, with prompts
	// removed from Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Process is a Host running as a child process. Its prompts are read from
// its stderr, which is where Python writes them when input is not a
// terminal. The prompts of input() are sent there too.
type Process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	prompts chan string
	scanErr chan error
	startup string
	modules *moduleServer

	mu     sync.Mutex
	closed bool
}

// Start launches the interpreter.
func Start(opts Options) (*Process, error) {
	startup, err := writeStartup(opts)
	if err != nil {
		return nil, err
	}

	// PYTHONSTARTUP is not read when there is a script, so the startup file
	// takes its place and runs it
	args := append([]string(nil), opts.Args...)
	if opts.Script != "" {
		args = append(args, startup)
		args = append(args, opts.ScriptArgs...)
	}

	p := &Process{
		cmd:     exec.Command(opts.Python, args...),
		prompts: make(chan string),
		scanErr: make(chan error, 1),
		startup: startup,
	}
	p.cmd.Stdout = opts.Stdout
	p.cmd.Env = append(os.Environ(), "PYTHONSTARTUP="+startup)

	if opts.Modules != nil {
		p.modules, err = newModuleServer(opts.Modules)
		if err != nil {
			p.cleanup()
			return nil, err
		}
		p.cmd.ExtraFiles = p.modules.childFiles()
	}

	p.stdin, err = p.cmd.StdinPipe()
	if err != nil {
		p.cleanup()
		return nil, fmt.Errorf("open interpreter stdin: %w", err)
	}
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		p.cleanup()
		return nil, fmt.Errorf("open interpreter stderr: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		if p.modules != nil {
			p.modules.close()
			p.modules = nil
		}
		p.cleanup()
		return nil, fmt.Errorf("start %s: %w", opts.Python, err)
	}
	log.Infof("started %s (pid %d)", opts.Python, p.cmd.Process.Pid)
	if p.modules != nil {
		p.modules.start()
	}

	errOut := opts.Stderr
	if errOut == nil {
		errOut = io.Discard
	}
	go func() {
		p.scanErr <- scanPrompts(stderr, errOut, opts.PS1, opts.PS2, p.prompts)
	}()

	return p, nil
}

func (p *Process) Prompt(ctx context.Context) (string, error) {
	select {
	case prompt, ok := <-p.prompts:
		if !ok {
			return "", io.EOF
		}
		return prompt, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *Process) Send(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	_, err := io.WriteString(p.stdin, text)
	return err
}

func (p *Process) CloseInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.stdin.Close()
}

func (p *Process) Interrupt() error {
	return p.cmd.Process.Signal(os.Interrupt)
}

func (p *Process) Wait() error {
	if err := p.CloseInput(); err != nil {
		log.Debugf("closing interpreter stdin: %s", err)
	}

	// stderr must be drained before Wait closes it
	for range p.prompts {
	}
	scanErr := <-p.scanErr

	err := p.cmd.Wait()
	if p.modules != nil {
		p.modules.wait()
	}
	p.cleanup()
	if err != nil {
		return err
	}
	return scanErr
}

func (p *Process) cleanup() {
	if p.startup != "" {
		os.Remove(p.startup)
		p.startup = ""
	}
}

// scanPrompts copies r to w until r is exhausted, except that a prompt at the
// end of what has been read so far is sent on out instead of being written.
// A prompt is either ps1, ps2, or the prompt of input() framed by
// inputPromptStart and inputPromptEnd. A trailing part that could be the
// start of a prompt is held back until more is read. out is closed when r is
// done.
func scanPrompts(r io.Reader, w io.Writer, ps1, ps2 string, out chan<- string) error {
	defer close(out)

	prompts := []string{ps1, ps2}
	if len(ps2) > len(ps1) {
		prompts = []string{ps2, ps1}
	}

	var pending []byte
	buf := make([]byte, 4096)
	for {
		n, readErr := r.Read(buf)
		pending = append(pending, buf[:n]...)

		found, start, ok := framedPrompt(pending)
		if !ok {
			for _, p := range prompts {
				if p != "" && bytes.HasSuffix(pending, []byte(p)) {
					found, start, ok = p, len(pending)-len(p), true
					break
				}
			}
		}

		flush := len(pending)
		switch {
		case ok:
			flush = start
		case readErr == nil:
			flush -= heldBack(pending, prompts)
		}

		if flush > 0 {
			if _, err := w.Write(pending[:flush]); err != nil {
				return err
			}
		}

		if ok {
			pending = pending[:0]
			out <- found
		} else {
			pending = append(pending[:0], pending[flush:]...)
		}

		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			return readErr
		}
	}
}

// framedPrompt returns the input() prompt framed at the end of data and the
// index its frame starts at.
func framedPrompt(data []byte) (prompt string, start int, ok bool) {
	if len(data) == 0 || data[len(data)-1] != inputPromptEnd {
		return "", 0, false
	}
	start = bytes.LastIndexByte(data[:len(data)-1], inputPromptStart)
	if start < 0 {
		return "", 0, false
	}
	return string(data[start+1 : len(data)-1]), start, true
}

// heldBack returns the length of the suffix of data that could still become
// a prompt: an unfinished input() frame, or else the longest suffix that is a
// proper prefix of one of prompts.
func heldBack(data []byte, prompts []string) int {
	if i := bytes.LastIndexByte(data, inputPromptStart); i >= 0 && bytes.IndexByte(data[i:], inputPromptEnd) < 0 {
		return len(data) - i
	}

	longest := 0
	for _, p := range prompts {
		for l := len(p) - 1; l > longest; l-- {
			if l <= len(data) && bytes.HasSuffix(data, []byte(p[:l])) {
				longest = l
				break
			}
		}
	}
	return longest
}
