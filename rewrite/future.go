package rewrite

import (
	"io"

	"github.com/dekarrin/pastprint/internal/pytoken"
)

// futureFeatures returns the names imported from __future__ at the top of
// src. Only an optional docstring, comments, and blank lines may come before
// the imports. Running out of tokens ends the scan; a tokenizer error does
// not and is returned.
func futureFeatures(src string) (map[string]bool, error) {
	features := map[string]bool{}
	tz := pytoken.New(src)

	// newlines and comments inside a parenthesized import list are skipped
	advance := func() (pytoken.Token, error) {
		for {
			tok, err := tz.Next()
			if err != nil || (tok.Kind != pytoken.NL && tok.Kind != pytoken.Comment) {
				return tok, err
			}
		}
	}

	haveDocstring := false
	for {
		tok, err := advance()
		if err != nil {
			return features, eofIsNil(err)
		}

		switch {
		case tok.Kind == pytoken.Newline:
			continue
		case tok.Kind == pytoken.String:
			if haveDocstring {
				return features, nil
			}
			haveDocstring = true
			continue
		case tok.Kind != pytoken.Name || tok.Value != "from":
			return features, nil
		}

		if tok, err = advance(); err != nil {
			return features, eofIsNil(err)
		}
		if tok.Kind != pytoken.Name || tok.Value != "__future__" {
			return features, nil
		}
		if tok, err = advance(); err != nil {
			return features, eofIsNil(err)
		}
		if tok.Kind != pytoken.Name || tok.Value != "import" {
			return features, nil
		}

		if tok, err = advance(); err != nil {
			return features, eofIsNil(err)
		}
		if tok.Kind == pytoken.Op && tok.Value == "(" {
			if tok, err = advance(); err != nil {
				return features, eofIsNil(err)
			}
		}
		for tok.Kind == pytoken.Name {
			features[tok.Value] = true
			if tok, err = advance(); err != nil {
				return features, eofIsNil(err)
			}
			if tok.Kind != pytoken.Op || tok.Value != "," {
				break
			}
			if tok, err = advance(); err != nil {
				return features, eofIsNil(err)
			}
		}
	}
}

func eofIsNil(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}
