// Package preflight checks a selection against the filesystem before a
// deletion script is written for it. It only stats; it never deletes.
package preflight

import (
	"errors"
	"fmt"
	"os"

	"large-file-man/internal/selection"
	"large-file-man/internal/store"
)

// ErrNotRegular marks a selected path that is no longer a regular file.
var ErrNotRegular = errors.New("not a regular file")

type Target struct {
	Path     string
	Size     int64 // size on disk now
	Recorded int64 // size in the inventory, -1 when the path is not in it
}

// Changed reports whether the file size moved since the inventory was taken.
func (t Target) Changed() bool { return t.Recorded >= 0 && t.Recorded != t.Size }

type Failure struct {
	Path string
	Err  error
}

type Summary struct {
	Targets []Target  // still present, in selection order
	Missing []Failure // gone or no longer regular files
	Bytes   int64     // total size of Targets
}

// Check stats every path of sel. entries, usually the loaded inventory,
// supplies the recorded sizes.
func Check(sel selection.Set, entries []store.Entry) Summary {
	recorded := make(map[string]int64, len(entries))
	for _, e := range entries {
		recorded[e.Path] = e.Size
	}

	sum := Summary{}
	for _, p := range sel.Paths() {
		info, err := os.Lstat(p)
		if err == nil && !info.Mode().IsRegular() {
			err = fmt.Errorf("%s: %w", info.Mode().Type(), ErrNotRegular)
		}
		if err != nil {
			sum.Missing = append(sum.Missing, Failure{Path: p, Err: err})
			continue
		}
		rec, ok := recorded[p]
		if !ok {
			rec = -1
		}
		sum.Targets = append(sum.Targets, Target{Path: p, Size: info.Size(), Recorded: rec})
		sum.Bytes += info.Size()
	}
	return sum
}
