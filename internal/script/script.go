// Package script renders deletion scripts for a selection of files.
//
// A generated script prints a warning, asks twice for the confirmation token
// and only deletes when both answers match it exactly. Rendering never
// touches the filesystem; running the script is left to the operator.
package script

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"large-file-man/internal/selection"
	"large-file-man/pkg/utils"
)

// DefaultToken is the answer both confirmation prompts expect.
const DefaultToken = "OUI"

// BaseName is the suggested file name, without extension, for a script.
const BaseName = "supprime_fichiers"

// ErrEmptySelection is returned when there is nothing to delete.
var ErrEmptySelection = errors.New("no file selected")

// QuoteError reports a path that cannot be embedded safely in the script.
type QuoteError struct {
	Path string
	Err  error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("cannot quote path %q: %v", e.Path, e.Err)
}

func (e *QuoteError) Unwrap() error { return e.Err }

// Dialect selects the shell the script is written for.
type Dialect string

const (
	DialectPOSIX      Dialect = "sh"
	DialectPowerShell Dialect = "powershell"
)

// DefaultDialect is PowerShell on Windows and POSIX sh everywhere else.
func DefaultDialect() Dialect {
	if runtime.GOOS == "windows" {
		return DialectPowerShell
	}
	return DialectPOSIX
}

// ParseDialect accepts the dialect names and their usual aliases. An empty
// string selects DefaultDialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultDialect(), nil
	case "sh", "posix", "bash", "shell":
		return DialectPOSIX, nil
	case "powershell", "pwsh", "ps", "ps1":
		return DialectPowerShell, nil
	}
	return "", fmt.Errorf("unknown script dialect %q (want sh or powershell)", s)
}

// Ext is the file extension, with the dot, used for d.
func (d Dialect) Ext() string {
	if d == DialectPowerShell {
		return ".ps1"
	}
	return ".sh"
}

// DefaultFileName is the suggested script file name for d.
func DefaultFileName(d Dialect) string { return BaseName + d.Ext() }

// Options tunes Generate.
type Options struct {
	Dialect Dialect // empty means DefaultDialect
	Token   string  // empty means DefaultToken
}

// Prompts and messages written into the script.
const (
	msgBanner       = "Script pour supprimer des fichiers sans confirmation"
	msgWarning      = "Attention : cette suppression est définitive."
	msgFirstPrompt  = "Veuillez confirmer la suppression de tous ces fichiers : (%s)"
	msgSecondPrompt = "Etes-vous bien certain(e) ? (%s)"
	msgCancelled    = "Opération annulée..."
)

// Generate renders the deletion script for a snapshot of sel. It fails with
// ErrEmptySelection when sel is empty. Paths are emitted in lexical order.
func Generate(sel selection.Set, opts Options) (string, error) {
	paths := sel.Paths()
	if len(paths) == 0 {
		return "", ErrEmptySelection
	}
	if opts.Dialect == "" {
		opts.Dialect = DefaultDialect()
	}
	if opts.Token == "" {
		opts.Token = DefaultToken
	}

	switch opts.Dialect {
	case DialectPOSIX:
		return renderPOSIX(paths, opts.Token)
	case DialectPowerShell:
		return renderPowerShell(paths, opts.Token)
	}
	return "", fmt.Errorf("unknown script dialect %q", opts.Dialect)
}

// WriteFile stores a rendered script at dest, replacing it atomically. POSIX
// scripts are made executable.
func WriteFile(dest, text string, d Dialect) error {
	perm := os.FileMode(0o644)
	if d == DialectPOSIX {
		perm = 0o755
	}
	if err := utils.WriteFileAtomic(dest, []byte(text), perm); err != nil {
		return fmt.Errorf("write script %s: %w", dest, err)
	}
	return nil
}

// shQuote always yields a quoted word; syntax.Quote leaves plain words bare.
func shQuote(s string) (string, error) {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "", err
	}
	if q == s {
		return "'" + s + "'", nil
	}
	return q, nil
}

func renderPOSIX(paths []string, token string) (string, error) {
	quoted := make([]string, 0, len(paths))
	for _, p := range paths {
		q, err := shQuote(p)
		if err != nil {
			return "", &QuoteError{Path: p, Err: err}
		}
		quoted = append(quoted, q)
	}
	tok, err := shQuote(token)
	if err != nil {
		return "", fmt.Errorf("confirmation token: %w", err)
	}
	lit := func(s string) string {
		q, _ := shQuote(s)
		return q
	}

	w := &writer{eol: "\n"}
	w.Line("#!/bin/sh")
	w.Linef("# %d file(s) selected for deletion", len(paths))
	w.Line("echo " + lit(msgBanner))
	w.Line("echo " + lit(msgWarning))
	w.Linef("printf '%%s ' %s", lit(fmt.Sprintf(msgFirstPrompt, token)))
	w.Line("IFS= read -r reponse")
	w.Linef(`if [ "$reponse" = %s ]; then`, tok)
	w.Indent()
	w.Linef("printf '%%s ' %s", lit(fmt.Sprintf(msgSecondPrompt, token)))
	w.Line("IFS= read -r confirmation")
	w.Linef(`if [ "$confirmation" = %s ]; then`, tok)
	w.Indent()
	for _, q := range quoted {
		w.Line("rm -f -- " + q)
	}
	w.Unindent()
	w.Line("else")
	w.Indent()
	w.Line("echo " + lit(msgCancelled))
	w.Unindent()
	w.Line("fi")
	w.Unindent()
	w.Line("else")
	w.Indent()
	w.Line("echo " + lit(msgCancelled))
	w.Unindent()
	w.Line("fi")
	return w.String(), nil
}

// psQuote wraps text in a PowerShell single-quoted literal. Every character
// PowerShell accepts as a single quote is doubled; nothing else is special.
func psQuote(text string) (string, error) {
	if strings.ContainsRune(text, 0) {
		return "", errors.New("null byte")
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range text {
		switch r {
		case '\'', '‘', '’', '‚', '‛':
			b.WriteRune(r)
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String(), nil
}

func renderPowerShell(paths []string, token string) (string, error) {
	quoted := make([]string, 0, len(paths))
	for _, p := range paths {
		q, err := psQuote(p)
		if err != nil {
			return "", &QuoteError{Path: p, Err: err}
		}
		quoted = append(quoted, q)
	}
	tok, err := psQuote(token)
	if err != nil {
		return "", fmt.Errorf("confirmation token: %w", err)
	}
	lit := func(s string) string {
		q, _ := psQuote(s)
		return q
	}

	w := &writer{eol: "\r\n"}
	// Windows PowerShell reads BOM-less scripts in the ANSI code page
	w.WriteString("\xef\xbb\xbf")
	w.Linef("# %d file(s) selected for deletion", len(paths))
	w.Line("Write-Output " + lit(msgBanner))
	w.Line("Write-Output " + lit(msgWarning))
	w.Line("$reponse = Read-Host " + lit(fmt.Sprintf(msgFirstPrompt, token)))
	w.Linef("if ($reponse -ceq %s) {", tok)
	w.Indent()
	w.Line("$confirmation = Read-Host " + lit(fmt.Sprintf(msgSecondPrompt, token)))
	w.Linef("if ($confirmation -ceq %s) {", tok)
	w.Indent()
	for _, q := range quoted {
		w.Linef("Remove-Item -LiteralPath %s -Force", q)
	}
	w.Unindent()
	w.Line("} else {")
	w.Indent()
	w.Line("Write-Output " + lit(msgCancelled))
	w.Unindent()
	w.Line("}")
	w.Unindent()
	w.Line("} else {")
	w.Indent()
	w.Line("Write-Output " + lit(msgCancelled))
	w.Unindent()
	w.Line("}")
	return w.String(), nil
}
