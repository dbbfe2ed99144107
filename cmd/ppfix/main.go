/*
Ppfix rewrites Python source files so that legacy print statements become
calls to the print function.

Usage:

	ppfix [flags] PATH...

Each PATH is a file or a directory. Directories are searched for files ending
in ".py". By default the rewritten source of each file is written to stdout.

The flags are:

	-v, --version
		Give the current version of pastprint and then exit.

	-w, --write
		Write the result back to each file instead of to stdout. Files that
		would not change are left alone.

	-o, --out OUTDIR
		Write the result for every file under OUTDIR. A directory PATH is
		mirrored into OUTDIR; a file PATH is written to OUTDIR with its base
		name.

	--check
		Write nothing. Exit with status 1 if any file would be changed, listing
		the files that would be.

	--policy POLICY
		Which files to rewrite. "always" rewrites every file. "opt-in" only
		rewrites files containing the line
		"from __past__ import print_statement". Defaults to "always".

	--cache DRIVER[:PARAMS]
		Keep rewrite results in the given DB so unchanged files are not parsed
		again. DRIVER must be one of: inmem, sqlite. sqlite needs the path to
		the data directory, such as sqlite:path/to/db_dir.

Files that contain syntax errors are reported on stderr in the same format
Python uses, and ppfix exits with status 2 after processing all other files.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dekarrin/pastprint/internal/config"
	"github.com/dekarrin/pastprint/internal/loader"
	"github.com/dekarrin/pastprint/internal/version"
	"github.com/dekarrin/pastprint/rewrite"
	"github.com/spf13/pflag"

	_ "github.com/tliron/commonlog/simple"
)

const (
	// ExitSuccess indicates every file was processed and, with --check,
	// nothing would change.
	ExitSuccess = iota

	// ExitChanged indicates that with --check, at least one file would
	// change.
	ExitChanged

	// ExitError indicates a file could not be processed or the arguments were
	// bad.
	ExitError
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	write  bool
	outDir string
	check  bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("ppfix", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	flagVersion := flags.BoolP("version", "v", false, "Give the current version of pastprint and then exit.")
	flagWrite := flags.BoolP("write", "w", false, "Write the result back to each file.")
	flagOut := flags.StringP("out", "o", "", "Write the results under the given directory.")
	flagCheck := flags.Bool("check", false, "Exit with status 1 if any file would be changed.")
	flagPolicy := flags.String("policy", loader.PolicyAlways.String(), "Rewrite every file (always) or only marked files (opt-in).")
	flagCache := flags.String("cache", "", "Cache rewrite results in the given DB.")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(stderr, "%s\nDo -h for help.\n", err)
		return ExitError
	}

	if *flagVersion {
		fmt.Fprintf(stdout, "%s\n", version.Current)
		return ExitSuccess
	}

	paths := flags.Args()
	if len(paths) < 1 {
		fmt.Fprintf(stderr, "No paths given\nDo -h for help.\n")
		return ExitError
	}

	modes := 0
	for _, set := range []bool{*flagWrite, *flagOut != "", *flagCheck} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		fmt.Fprintf(stderr, "Only one of --write, --out, and --check may be given\nDo -h for help.\n")
		return ExitError
	}

	policy, err := loader.ParsePolicy(*flagPolicy)
	if err != nil {
		fmt.Fprintf(stderr, "%s\nDo -h for help.\n", err)
		return ExitError
	}
	ld := &loader.Loader{Policy: policy}

	if *flagCache != "" {
		db, err := config.ParseDBConnString(*flagCache)
		if err != nil {
			fmt.Fprintf(stderr, "Not a valid DB string: %s\nDo -h for help.\n", err)
			return ExitError
		}
		ld.Cache, err = db.OpenCache()
		if err != nil {
			fmt.Fprintf(stderr, "Could not open cache: %s\n", err)
			return ExitError
		}
		defer ld.Cache.Close()
	}

	opts := options{write: *flagWrite, outDir: *flagOut, check: *flagCheck}

	code := ExitSuccess
	for _, p := range paths {
		var pathCode int
		if opts.outDir != "" {
			pathCode = fixInto(ctx, ld, p, opts.outDir, stderr)
		} else {
			pathCode = fixPath(ctx, ld, p, opts, stdout, stderr)
		}
		if pathCode > code {
			code = pathCode
		}
		if ctx.Err() != nil {
			break
		}
	}
	return code
}

// fixInto handles a PATH when --out is given.
func fixInto(ctx context.Context, ld *loader.Loader, path, outDir string, stderr io.Writer) int {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return ExitError
	}

	if !info.IsDir() {
		out, _, err := fixFile(ctx, ld, path)
		if err != nil {
			reportError(stderr, err)
			return ExitError
		}
		if err := os.MkdirAll(outDir, 0770); err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return ExitError
		}
		if err := os.WriteFile(filepath.Join(outDir, filepath.Base(path)), []byte(out), 0660); err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return ExitError
		}
		return ExitSuccess
	}

	report, err := ld.Tree(ctx, path, outDir)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return ExitError
	}
	failed := report.Failed()
	for _, f := range failed {
		reportError(stderr, f.Err)
	}
	if len(failed) > 0 {
		return ExitError
	}
	return ExitSuccess
}

// fixPath handles a PATH when --out is not given.
func fixPath(ctx context.Context, ld *loader.Loader, path string, opts options, stdout, stderr io.Writer) int {
	files, err := pythonFiles(path)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return ExitError
	}

	code := ExitSuccess
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}

		out, changed, err := fixFile(ctx, ld, f)
		if err != nil {
			reportError(stderr, err)
			code = ExitError
			continue
		}

		switch {
		case opts.check:
			if changed {
				fmt.Fprintf(stdout, "would rewrite %s\n", f)
				if code < ExitChanged {
					code = ExitChanged
				}
			}
		case opts.write:
			if !changed {
				continue
			}
			info, err := os.Stat(f)
			if err != nil {
				fmt.Fprintf(stderr, "%s\n", err)
				code = ExitError
				continue
			}
			if err := os.WriteFile(f, []byte(out), info.Mode().Perm()); err != nil {
				fmt.Fprintf(stderr, "%s\n", err)
				code = ExitError
			}
		default:
			if _, err := io.WriteString(stdout, out); err != nil {
				fmt.Fprintf(stderr, "%s\n", err)
				return ExitError
			}
		}
	}
	return code
}

// fixFile returns the rewritten source of the file at path and whether it
// differs from the file's decoded source.
func fixFile(ctx context.Context, ld *loader.Loader, path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	src, err := loader.Decode(data)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", path, err)
	}
	out, err := ld.Transform(ctx, path, data)
	if err != nil {
		return "", false, err
	}
	return out, out != src, nil
}

// pythonFiles returns path itself if it is a file, or every .py file under it
// if it is a directory.
func pythonFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".py") {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func reportError(w io.Writer, err error) {
	var se *rewrite.SyntaxError
	if errors.As(err, &se) {
		fmt.Fprintf(w, "%s\n", se.Traceback())
		return
	}
	fmt.Fprintf(w, "%s\n", err)
}
