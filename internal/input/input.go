// Package input contains identifiers used in getting lines of interactive
// Python input from CLI or other sources of input.
package input

import (
	"bufio"
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

// ErrInterrupt is returned by ReadLine when the user interrupts typing with
// Ctrl-C.
var ErrInterrupt = readline.ErrInterrupt

// LineReader reads lines of input after showing a prompt. The line it returns
// always ends with a newline; at end of input it returns "" and io.EOF.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// DirectLineReader implements LineReader and reads lines from any generic
// input stream directly. It can be used generically with any io.Reader but
// does not sanitize the input of control and escape sequences.
//
// DirectLineReader should not be used directly; instead, create one with
// [NewDirectReader].
type DirectLineReader struct {
	r   *bufio.Reader
	out io.Writer
}

// InteractiveLineReader implements LineReader and reads lines from stdin
// using a go implementation of the GNU Readline library. This keeps input
// clear of all typing and editing escape sequences and enables the use of
// history. This should in general probably only be used when directly
// connecting to a TTY for input.
//
// InteractiveLineReader should not be used directly; instead, create one
// with [NewInteractiveReader].
type InteractiveLineReader struct {
	rl *readline.Instance
}

// NewDirectReader creates a new DirectLineReader that reads from r. Prompts
// are written to promptOut; if it is nil, they are not shown.
func NewDirectReader(r io.Reader, promptOut io.Writer) *DirectLineReader {
	return &DirectLineReader{
		r:   bufio.NewReader(r),
		out: promptOut,
	}
}

// NewInteractiveReader creates a new InteractiveLineReader and initializes
// readline. If historyFile is not empty, history is kept there. The returned
// InteractiveLineReader must have Close() called on it before disposal to
// properly teardown readline resources.
func NewInteractiveReader(historyFile string) (*InteractiveLineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		HistoryFile: historyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}

	return &InteractiveLineReader{
		rl: rl,
	}, nil
}

// Close cleans up resources associated with the DirectLineReader.
func (dlr *DirectLineReader) Close() error {
	// this function is here so DirectLineReader implements LineReader. It
	// does not create resources but callers should treat it as though it
	// must have Close called on it.

	return nil
}

// Close cleans up readline resources and other resources associated with the
// InteractiveLineReader.
func (ilr *InteractiveLineReader) Close() error {
	return ilr.rl.Close()
}

// ReadLine writes the prompt and reads the next line. A last line with no
// terminator is given one.
//
// If at end of input, the returned string will be empty and error will be
// io.EOF. If any other error occurs, the returned string will be empty and
// error will be that error.
func (dlr *DirectLineReader) ReadLine(prompt string) (string, error) {
	if dlr.out != nil && prompt != "" {
		if _, err := io.WriteString(dlr.out, prompt); err != nil {
			return "", err
		}
	}

	line, err := dlr.r.ReadString('\n')
	if err != nil {
		if err != io.EOF || line == "" {
			return "", err
		}
		line += "\n"
	}

	return line, nil
}

// ReadLine shows the prompt and reads the next line with line editing.
//
// If at end of input, the returned string will be empty and error will be
// io.EOF. If the user presses Ctrl-C, error will be ErrInterrupt. If any
// other error occurs, the returned string will be empty and error will be
// that error.
func (ilr *InteractiveLineReader) ReadLine(prompt string) (string, error) {
	ilr.rl.SetPrompt(prompt)

	line, err := ilr.rl.Readline()
	if err != nil {
		return "", err
	}

	return line + "\n", nil
}
