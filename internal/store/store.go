// Package store reads and writes inventory files.
//
// Files are UTF-8 JSON arrays. Two element shapes are understood on read:
//
//	[["/path/to/file", 1234], ...]
//	[{"chemin_complet": "/path/to/file", "taille_octets": 1234, ...}, ...]
//
// Persist always writes the second shape; PersistPairs writes the first.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"large-file-man/internal/scanner"
	"large-file-man/pkg/utils"
)

// Object keys, shared with inventories produced by earlier tooling.
const (
	KeyName     = "Nom du fichier"
	KeyPath     = "chemin_complet"
	KeySize     = "taille_octets"
	KeyModified = "derniere_modification"

	altKeyPath = "full_path"
	altKeySize = "size_bytes"
)

// Entry is the normalized (path, size) view of one inventory element.
type Entry struct {
	Path string
	Size int64
}

type record struct {
	Name     string `json:"Nom du fichier"`
	FullPath string `json:"chemin_complet"`
	Size     int64  `json:"taille_octets"`
	Modified string `json:"derniere_modification"`
}

// Pairs projects records onto their (path, size) view.
func Pairs(records []scanner.FileRecord) []Entry {
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		out = append(out, Entry{Path: r.FullPath, Size: r.SizeBytes})
	}
	return out
}

// Persist writes records to dest as an array of objects, creating missing
// parent directories. Backslashes in the written path are doubled; records
// itself is not modified. The file is replaced atomically.
func Persist(records []scanner.FileRecord, dest string) error {
	out := make([]record, 0, len(records))
	for _, r := range records {
		out = append(out, record{
			Name:     r.Name,
			FullPath: escapePath(r.FullPath),
			Size:     r.SizeBytes,
			Modified: r.ModifiedString(),
		})
	}
	return writeJSON(dest, out)
}

// PersistPairs writes entries to dest as an array of [path, size] pairs.
func PersistPairs(entries []Entry, dest string) error {
	out := make([][2]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, [2]any{e.Path, e.Size})
	}
	return writeJSON(dest, out)
}

func writeJSON(dest string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "create directory", Path: dir, Err: err}
	}
	if err := utils.WriteFileAtomic(dest, buf.Bytes(), 0o644); err != nil {
		return &IOError{Op: "write", Path: dest, Err: err}
	}
	return nil
}

// Load reads an inventory file and returns its (path, size) pairs.
// A missing file yields an empty result and ErrSourceMissing.
func Load(src string) ([]Entry, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, ErrSourceMissing
		}
		return nil, &IOError{Op: "read", Path: src, Err: err}
	}
	entries, err := Decode(data)
	if err != nil {
		var ferr *FormatError
		if errors.As(err, &ferr) {
			ferr.Path = src
		}
		return nil, err
	}
	return entries, nil
}

type shape int

const (
	shapeUnknown shape = iota
	shapePairs
	shapeObjects
)

// Decode parses inventory content. The element shape is chosen once from the
// first element; an empty array or an unrecognized first element gives an
// empty result.
func Decode(data []byte) ([]Entry, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FormatError{Index: -1, Err: err}
	}
	if len(raw) == 0 {
		return []Entry{}, nil
	}

	var decode func(json.RawMessage) (Entry, error)
	switch shapeOf(raw[0]) {
	case shapePairs:
		decode = decodePair
	case shapeObjects:
		decode = decodeObject
	default:
		return []Entry{}, nil
	}

	out := make([]Entry, 0, len(raw))
	for i, m := range raw {
		e, err := decode(m)
		if err != nil {
			return nil, &FormatError{Index: i, Err: err}
		}
		out = append(out, e)
	}
	return out, nil
}

func shapeOf(m json.RawMessage) shape {
	trimmed := bytes.TrimLeft(m, " \t\r\n")
	if len(trimmed) == 0 {
		return shapeUnknown
	}
	switch trimmed[0] {
	case '[':
		return shapePairs
	case '{':
		return shapeObjects
	}
	return shapeUnknown
}

func decodePair(m json.RawMessage) (Entry, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(m, &pair); err != nil {
		return Entry{}, fmt.Errorf("expected [path, size]: %w", err)
	}
	if len(pair) != 2 {
		return Entry{}, fmt.Errorf("expected [path, size], got %d values", len(pair))
	}
	var e Entry
	if err := json.Unmarshal(pair[0], &e.Path); err != nil {
		return Entry{}, fmt.Errorf("path: %w", err)
	}
	size, err := parseSize(pair[1])
	if err != nil {
		return Entry{}, err
	}
	e.Size = size
	return e, nil
}

func decodeObject(m json.RawMessage) (Entry, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(m, &obj); err != nil {
		return Entry{}, fmt.Errorf("expected object: %w", err)
	}
	var e Entry
	if p, ok := firstKey(obj, KeyPath, altKeyPath); ok {
		var s *string
		if err := json.Unmarshal(p, &s); err != nil {
			return Entry{}, fmt.Errorf("%s: %w", KeyPath, err)
		}
		if s != nil {
			e.Path = unescapePath(*s)
		}
	}
	if sz, ok := firstKey(obj, KeySize, altKeySize); ok {
		size, err := parseSize(sz)
		if err != nil {
			return Entry{}, err
		}
		e.Size = size
	}
	return e, nil
}

func firstKey(obj map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func parseSize(m json.RawMessage) (int64, error) {
	if string(bytes.TrimSpace(m)) == "null" {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(m, &n); err != nil {
		return 0, fmt.Errorf("size: %w", err)
	}
	size, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != math.Trunc(f) || f > math.MaxInt64 {
			return 0, fmt.Errorf("size %s is not a whole number of bytes", n)
		}
		size = int64(f)
	}
	if size < 0 {
		return 0, fmt.Errorf("size %d is negative", size)
	}
	return size, nil
}

// escapePath doubles every backslash so Windows paths survive tools that
// unescape the stored string once more.
func escapePath(p string) string { return strings.ReplaceAll(p, `\`, `\\`) }

func unescapePath(p string) string { return strings.ReplaceAll(p, `\\`, `\`) }
