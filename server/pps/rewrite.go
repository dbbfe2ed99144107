package pps

import (
	"context"
	"errors"

	"github.com/dekarrin/pastprint/rewrite"
	"github.com/dekarrin/pastprint/server/serr"
)

// Rewrite converts the print statements of a complete module. filename is
// used only in error messages and defaults to rewrite.DefaultFilename.
//
// The returned error, if non-nil, will match serr.ErrSyntax if src is not
// valid Python, in which case errors.As can extract the *rewrite.SyntaxError.
func (svc *Service) Rewrite(ctx context.Context, src, filename string) (string, error) {
	if filename == "" {
		filename = rewrite.DefaultFilename
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	out, err := rewrite.RewriteFile(src, filename)
	if err != nil {
		var se *rewrite.SyntaxError
		if errors.As(err, &se) {
			return "", syntaxError{se}
		}
		return "", err
	}
	return out, nil
}

// Check returns an error matching serr.ErrSyntax if src would not rewrite.
func (svc *Service) Check(ctx context.Context, src, filename string) error {
	if filename == "" {
		filename = rewrite.DefaultFilename
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := rewrite.Check(src, filename)
	var se *rewrite.SyntaxError
	if errors.As(err, &se) {
		return syntaxError{se}
	}
	return err
}

// syntaxError is a *rewrite.SyntaxError that also matches serr.ErrSyntax.
type syntaxError struct {
	*rewrite.SyntaxError
}

func (e syntaxError) Unwrap() []error {
	return []error{e.SyntaxError, serr.ErrSyntax}
}
