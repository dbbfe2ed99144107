// Package loader reads Python module files and produces the source the host
// interpreter should compile, rewriting print statements on the way.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dekarrin/pastprint/internal/cache"
	"github.com/dekarrin/pastprint/rewrite"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("pastprint.loader")

// ErrModuleNotFound is returned by Find when no file provides the module.
var ErrModuleNotFound = errors.New("module not found")

// Policy decides which files are rewritten.
type Policy int

const (
	// PolicyAlways rewrites every file.
	PolicyAlways Policy = iota

	// PolicyOptIn rewrites only files that contain OptInStatement.
	PolicyOptIn
)

// OptInStatement marks a file for rewriting under PolicyOptIn. It is turned
// into a comment in the output.
const OptInStatement = "from __past__ import print_statement"

var optInLine = regexp.MustCompile(`(?m)^from[ \t]+__past__[ \t]+import[ \t]+print_statement[ \t]*(?:#.*)?$`)

func (p Policy) String() string {
	switch p {
	case PolicyAlways:
		return "always"
	case PolicyOptIn:
		return "opt-in"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses the name of a Policy as returned by its String method.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case PolicyAlways.String():
		return PolicyAlways, nil
	case PolicyOptIn.String(), "optin":
		return PolicyOptIn, nil
	default:
		return PolicyAlways, fmt.Errorf("policy not one of 'always' or 'opt-in': %q", s)
	}
}

// Loader turns module files into source text. The zero value rewrites every
// file and caches nothing.
type Loader struct {
	Policy Policy

	// Cache, if not nil, holds earlier results keyed by path and content.
	Cache cache.Store
}

// Source is Transform with a background context. Its signature matches
// hook.SourceFunc.
func (ld *Loader) Source(path string, data []byte) (string, error) {
	return ld.Transform(context.Background(), path, data)
}

// Transform decodes data, the contents of the file at path, and returns the
// source to compile. Syntax errors are returned as *rewrite.SyntaxError
// naming path.
func (ld *Loader) Transform(ctx context.Context, path string, data []byte) (string, error) {
	src, err := Decode(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	if ld.Policy == PolicyOptIn {
		var marked bool
		src, marked = stripOptIn(src)
		if !marked {
			log.Debugf("%s: not marked for rewriting", path)
			return src, nil
		}
	}

	digest := cache.Digest(ld.Policy.String(), data)
	if ld.Cache != nil {
		e, err := ld.Cache.Get(ctx, path, digest)
		if err == nil {
			log.Debugf("%s: using cached rewrite", path)
			return e.Result, nil
		} else if !errors.Is(err, cache.ErrNotFound) {
			log.Warningf("%s: reading cache: %s", path, err)
		}
	}

	out, err := rewrite.RewriteFile(src, path)
	if err != nil {
		return "", err
	}

	if ld.Cache != nil {
		_, err := ld.Cache.Put(ctx, cache.Entry{Path: path, Digest: digest, Result: out})
		if err != nil {
			log.Warningf("%s: writing cache: %s", path, err)
		}
	}

	return out, nil
}

// Load reads the file at path and returns the result of Transform on it.
func (ld *Loader) Load(ctx context.Context, path string) (string, error) {
	log.Infof("loading %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ld.Transform(ctx, path, data)
}

// Find returns the path of the file that provides the dotted module name,
// looking in each directory of searchPath in order. A package's __init__.py
// is preferred over a module file of the same name.
func (ld *Loader) Find(module string, searchPath []string) (string, error) {
	if module == "" {
		return "", fmt.Errorf("empty module name")
	}
	parts := strings.Split(module, ".")
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("%q: not a valid module name", module)
		}
	}
	rel := filepath.Join(parts...)

	for _, dir := range searchPath {
		candidates := []string{
			filepath.Join(dir, rel, "__init__.py"),
			filepath.Join(dir, rel+".py"),
		}
		for _, c := range candidates {
			info, err := os.Stat(c)
			if err == nil && info.Mode().IsRegular() {
				return c, nil
			}
		}
	}

	return "", fmt.Errorf("%s: %w", module, ErrModuleNotFound)
}

// stripOptIn comments out every OptInStatement line in src. It returns
// whether there was one.
func stripOptIn(src string) (string, bool) {
	marked := false
	out := optInLine.ReplaceAllStringFunc(src, func(line string) string {
		marked = true
		return "# " + line
	})
	return out, marked
}
