package host

import (
	"context"
	"io"
	"strings"
	"sync"
)

// Echo is a Host that runs nothing. It writes every text it is sent to an
// output and guesses the prompt a real interpreter would show next.
type Echo struct {
	out     io.Writer
	ps1     string
	ps2     string
	pending func() bool

	mu     sync.Mutex
	closed bool
	block  bool
}

// NewEcho returns an Echo that writes to out. pending, if not nil, reports
// whether the caller is in the middle of a statement, which makes the next
// prompt ps2.
func NewEcho(out io.Writer, ps1, ps2 string, pending func() bool) *Echo {
	if pending == nil {
		pending = func() bool { return false }
	}
	return &Echo{
		out:     out,
		ps1:     ps1,
		ps2:     ps2,
		pending: pending,
	}
}

func (e *Echo) Prompt(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return "", io.EOF
	}
	if e.block || e.pending() {
		return e.ps2, nil
	}
	return e.ps1, nil
}

// Send writes text to the output. A text whose last line opens or continues
// an indented block makes the next prompt ps2 until a blank line is sent.
func (e *Echo) Send(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	if strings.TrimSpace(text) == "" {
		e.block = false
	} else if text != "#\n" {
		lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
		last := lines[len(lines)-1]
		e.block = strings.HasSuffix(strings.TrimSpace(last), ":") ||
			strings.HasPrefix(last, " ") || strings.HasPrefix(last, "\t")
	}

	_, err := io.WriteString(e.out, text)
	return err
}

func (e *Echo) CloseInput() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *Echo) Interrupt() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.block = false
	return nil
}

func (e *Echo) Wait() error {
	return e.CloseInput()
}
