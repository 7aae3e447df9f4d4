// Package selection holds the set of paths an operator picked for deletion.
package selection

import (
	"sort"

	"github.com/samber/lo"
)

// Set is a set of full paths. Create one with New; a nil Set reads as empty.
type Set map[string]struct{}

// New returns a set holding paths. Duplicates collapse.
func New(paths ...string) Set {
	s := make(Set, len(paths))
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

func (s Set) Add(path string) { s[path] = struct{}{} }

func (s Set) Remove(path string) { delete(s, path) }

// Toggle adds path when on is true and removes it otherwise, mirroring a
// checkbox state change.
func (s Set) Toggle(path string, on bool) {
	if on {
		s.Add(path)
		return
	}
	s.Remove(path)
}

func (s Set) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

func (s Set) Len() int { return len(s) }

// Paths returns the members sorted lexically.
func (s Set) Paths() []string {
	out := lo.Keys(s)
	sort.Strings(out)
	return out
}

// Clone returns an independent snapshot of s.
func (s Set) Clone() Set {
	return New(lo.Keys(s)...)
}
