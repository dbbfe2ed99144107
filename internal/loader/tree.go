package loader

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileResult is what happened to one file during Tree.
type FileResult struct {
	// Path is relative to the source directory.
	Path string

	// Changed is whether the written source differs from the original.
	Changed bool

	// Err is set if the file could not be rewritten. Nothing is written for
	// it.
	Err error
}

// Report lists the files Tree processed, in walk order.
type Report struct {
	Files []FileResult
}

// Changed returns the number of files whose source was changed.
func (r Report) Changed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil && f.Changed {
			n++
		}
	}
	return n
}

// Failed returns the results of the files that could not be rewritten.
func (r Report) Failed() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// Tree rewrites every .py file under srcDir into the same relative location
// under dstDir, creating directories as needed. A file that fails to rewrite
// is recorded in the Report and the walk goes on; the returned error is only
// for problems with the walk itself or with writing output.
func (ld *Loader) Tree(ctx context.Context, srcDir, dstDir string) (Report, error) {
	var report Report

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			report.Files = append(report.Files, FileResult{Path: rel, Err: err})
			return nil
		}

		out, err := ld.Transform(ctx, path, data)
		if err != nil {
			report.Files = append(report.Files, FileResult{Path: rel, Err: err})
			return nil
		}

		dst := filepath.Join(dstDir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0770); err != nil {
			return err
		}
		if err := os.WriteFile(dst, []byte(out), 0660); err != nil {
			return err
		}

		report.Files = append(report.Files, FileResult{Path: rel, Changed: out != string(data)})
		return nil
	})

	return report, err
}
