package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// TimeLayout is the second-resolution timestamp format used in inventories.
const TimeLayout = "2006-01-02 15:04:05"

// ErrDirectoryNotFound is matched by DirectoryNotFoundError.
var ErrDirectoryNotFound = errors.New("directory not found")

// DirectoryNotFoundError is returned when the scan root is missing or is not
// a directory. Nothing is scanned in that case.
type DirectoryNotFoundError struct {
	Path string
	Err  error
}

func (e *DirectoryNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("directory not found: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("directory not found: %s", e.Path)
}

func (e *DirectoryNotFoundError) Is(target error) bool { return target == ErrDirectoryNotFound }

func (e *DirectoryNotFoundError) Unwrap() error { return e.Err }

// FileRecord describes one regular file found during a scan.
type FileRecord struct {
	Name       string
	FullPath   string // absolute, symlink-resolved; unique within an inventory
	SizeBytes  int64
	ModifiedAt time.Time // truncated to the second
}

// ModifiedString renders ModifiedAt with TimeLayout in local time.
func (r FileRecord) ModifiedString() string {
	return r.ModifiedAt.Local().Format(TimeLayout)
}

// Inventory is the outcome of one scan. Files are in traversal order.
type Inventory struct {
	Root    string
	Files   []FileRecord
	Skipped error // *multierror.Error of per-entry failures, nil when none
}

// SkippedCount reports how many entries were skipped because of errors.
func (inv Inventory) SkippedCount() int {
	var merr *multierror.Error
	if errors.As(inv.Skipped, &merr) {
		return merr.Len()
	}
	if inv.Skipped != nil {
		return 1
	}
	return 0
}

// Options defines scanning behavior.
type Options struct {
	// FollowSymlinks makes symlinked files count under their resolved path and
	// symlinked directories get descended into (each real directory once).
	// When false every symlink is ignored.
	FollowSymlinks bool
	// Excludes are doublestar globs matched against full path and base name.
	Excludes []string
	// Logger receives a warning per skipped entry. Defaults to the logrus
	// standard logger.
	Logger logrus.FieldLogger
}

type walker struct {
	ctx       context.Context
	opts      Options
	log       logrus.FieldLogger
	files     []FileRecord
	seenFiles map[string]struct{}
	seenDirs  map[string]struct{}
	skipped   *multierror.Error
}

// BuildInventory walks root recursively, in order and on the calling
// goroutine, and records every regular file under it. Entries that cannot be
// read are skipped and collected in Inventory.Skipped; the only errors
// returned are a bad root, a bad exclude pattern or ctx cancellation.
func BuildInventory(ctx context.Context, root string, opts Options) (Inventory, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, pat := range opts.Excludes {
		if !doublestar.ValidatePattern(pat) {
			return Inventory{}, fmt.Errorf("invalid exclude pattern %q", pat)
		}
	}

	resolved, err := resolveRoot(root)
	if err != nil {
		return Inventory{}, err
	}

	w := &walker{
		ctx:       ctx,
		opts:      opts,
		log:       opts.Logger,
		seenFiles: make(map[string]struct{}),
		seenDirs:  make(map[string]struct{}),
	}
	if w.log == nil {
		w.log = logrus.StandardLogger()
	}

	if err := w.walk(resolved); err != nil {
		return Inventory{}, err
	}
	return Inventory{Root: resolved, Files: w.files, Skipped: w.skipped.ErrorOrNil()}, nil
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		return "", &DirectoryNotFoundError{Path: root}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &DirectoryNotFoundError{Path: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &DirectoryNotFoundError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return "", &DirectoryNotFoundError{Path: abs, Err: errors.New("not a directory")}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &DirectoryNotFoundError{Path: abs, Err: err}
	}
	return resolved, nil
}

func (w *walker) walk(root string) error {
	w.seenDirs[root] = struct{}{}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := w.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// unreadable directory or vanished entry; keep going
			w.skip(path, err)
			return nil
		}
		if path != root && w.excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			if !w.opts.FollowSymlinks {
				return nil
			}
			return w.followLink(path)
		case d.IsDir():
			if path == root || !w.opts.FollowSymlinks {
				return nil
			}
			if _, ok := w.seenDirs[path]; ok {
				return filepath.SkipDir
			}
			w.seenDirs[path] = struct{}{}
			return nil
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				w.skip(path, err)
				return nil
			}
			w.add(path, info)
		}
		return nil
	})
}

func (w *walker) followLink(path string) error {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		w.skip(path, err)
		return nil
	}
	info, err := os.Stat(target)
	if err != nil {
		w.skip(path, err)
		return nil
	}
	if w.excluded(target) {
		return nil
	}
	switch {
	case info.IsDir():
		if _, ok := w.seenDirs[target]; ok {
			return nil
		}
		return w.walk(target)
	case info.Mode().IsRegular():
		w.add(target, info)
	}
	return nil
}

func (w *walker) add(path string, info fs.FileInfo) {
	if _, ok := w.seenFiles[path]; ok {
		return
	}
	w.seenFiles[path] = struct{}{}
	w.files = append(w.files, FileRecord{
		Name:       filepath.Base(path),
		FullPath:   path,
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime().Truncate(time.Second),
	})
}

func (w *walker) skip(path string, err error) {
	w.log.WithField("path", path).WithError(err).Warn("skipping unreadable entry")
	w.skipped = multierror.Append(w.skipped, fmt.Errorf("walk error at %s: %w", path, err))
}

func (w *walker) excluded(p string) bool {
	if len(w.opts.Excludes) == 0 {
		return false
	}
	base := filepath.Base(p)
	slashed := filepath.ToSlash(p)
	for _, pat := range w.opts.Excludes {
		if pat == "" {
			continue
		}
		if ok, _ := doublestar.Match(pat, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(pat, base); ok {
			return true
		}
	}
	return false
}
