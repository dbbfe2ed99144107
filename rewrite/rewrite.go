// Package rewrite converts Python source that uses the legacy print
// statement into source that calls the print function instead.
//
// Only print statements are changed. Everything else, including comments,
// whitespace, and line continuations, is kept byte for byte, so line and
// column numbers in the output match the input. Source that imports
// print_function from __future__ already has no print statements and is
// parsed with print as an ordinary name.
package rewrite

import (
	"github.com/dekarrin/pastprint/internal/printfix"
	"github.com/dekarrin/pastprint/internal/pygrammar"
	"github.com/dekarrin/pastprint/internal/pyparse"
)

// DefaultFilename is the name errors report for source that did not come
// from a file.
const DefaultFilename = "<string>"

// Rewrite is RewriteFile with DefaultFilename.
func Rewrite(src string) (string, error) {
	return RewriteFile(src, DefaultFilename)
}

// RewriteFile rewrites the complete module src. The source does not need to
// end with a newline. If src is not valid, the returned error is a
// *SyntaxError that names filename.
func RewriteFile(src, filename string) (string, error) {
	text := src + "\n"

	out, err := Fragment(text, filename)
	if err != nil {
		return "", err
	}

	return out[:len(out)-1], nil
}

// Fragment rewrites text exactly as given. Unlike RewriteFile, no newline is
// added, so a last line without a terminator is a syntax error and text that
// stops in the middle of a block is reported as failing at the end of input.
// This is what an interactive session needs to tell unfinished input from
// wrong input.
func Fragment(text, filename string) (string, error) {
	features, err := futureFeatures(text)
	if err != nil {
		return "", newSyntaxError(err, filename, text)
	}

	g := pygrammar.Python()
	if features["print_function"] {
		g = pygrammar.PythonNoPrint()
	}

	tree, err := pyparse.Parse(text, g)
	if err != nil {
		return "", newSyntaxError(err, filename, text)
	}

	if features["print_function"] {
		return text, nil
	}

	return printfix.Apply(text, printfix.Edits(tree, text)), nil
}

// Check returns the error RewriteFile would give for src, if any.
func Check(src, filename string) error {
	_, err := RewriteFile(src, filename)
	return err
}
