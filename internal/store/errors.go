package store

import (
	"errors"
	"fmt"
)

// ErrSourceMissing is returned by Load, together with an empty result, when
// the inventory file does not exist. Callers decide whether that matters.
var ErrSourceMissing = errors.New("inventory file does not exist")

// FormatError reports inventory content that cannot be decoded.
type FormatError struct {
	Path  string
	Index int // element index, -1 for the document as a whole
	Err   error
}

func (e *FormatError) Error() string {
	where := "inventory"
	if e.Path != "" {
		where = e.Path
	}
	if e.Index >= 0 {
		return fmt.Sprintf("malformed %s: element %d: %v", where, e.Index, e.Err)
	}
	return fmt.Sprintf("malformed %s: %v", where, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// IOError reports a failure to create, read or write inventory files.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }
