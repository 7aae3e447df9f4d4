package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"large-file-man/internal/config"
	"large-file-man/internal/preflight"
	"large-file-man/internal/script"
	"large-file-man/internal/selection"
	"large-file-man/internal/store"
	"large-file-man/pkg/utils"
)

type scriptFlags struct {
	from   string
	all    bool
	output string
}

func newScriptCmd(a *app) *cobra.Command {
	var f scriptFlags
	cmd := &cobra.Command{
		Use:   "script [PATH...]",
		Short: "Write a deletion script for the given files without the selection screen",
		Long: `Build a selection from PATH arguments, from --from (one path per line,
"-" for standard input) or from the whole inventory with --all, and write a
deletion script for it. The script asks twice for the confirmation token
before deleting anything; it is not run.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.bindFlags(cmd, map[string]string{
				config.KeyDialect: "dialect",
				config.KeyToken:   "token",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScript(args, f)
		},
	}
	cmd.Flags().StringVarP(&f.from, "from", "f", "", "file listing the paths to delete, one per line (- for stdin)")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "select every file of the inventory")
	addScriptFlags(cmd, &f.output)
	return cmd
}

func (a *app) runScript(args []string, f scriptFlags) error {
	settings := config.Load(a.v, a.log)
	dialect, err := script.ParseDialect(settings.Dialect)
	if err != nil {
		return err
	}

	entries, err := store.Load(settings.InventoryPath)
	switch {
	case errors.Is(err, store.ErrSourceMissing):
		a.log.WithField("inventory", settings.InventoryPath).Warn("no inventory yet, run scan first")
	case err != nil:
		return err
	}

	sel := selection.New()
	if f.all {
		for _, e := range entries {
			sel.Add(e.Path)
		}
	}
	listed := append([]string{}, args...)
	if f.from != "" {
		more, err := a.readPathList(f.from)
		if err != nil {
			return err
		}
		listed = append(listed, more...)
	}
	for _, p := range listed {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		sel.Add(abs)
	}

	text, err := script.Generate(sel, script.Options{Dialect: dialect, Token: settings.Token})
	if err != nil {
		if errors.Is(err, script.ErrEmptySelection) {
			fmt.Fprintln(a.out, "Aucun fichier sélectionné !")
		}
		return err
	}

	check := preflight.Check(sel, entries)
	dest := f.output
	if dest == "" {
		dest = filepath.Join(filepath.Dir(settings.InventoryPath), script.DefaultFileName(dialect))
	}
	if err := script.WriteFile(dest, text, dialect); err != nil {
		return err
	}

	a.reportPreflight(check)
	fmt.Fprintf(a.out, "Script généré : %s\n", dest)
	fmt.Fprintf(a.out, "%d fichier(s), %s à libérer. Le script n'a pas été exécuté.\n",
		len(check.Targets), utils.HumanizeBytes(check.Bytes))
	return nil
}

func (a *app) reportPreflight(check preflight.Summary) {
	for _, m := range check.Missing {
		a.log.WithField("path", m.Path).WithError(m.Err).Warn("selected file is not deletable as listed")
	}
	changed := lo.Filter(check.Targets, func(t preflight.Target, _ int) bool { return t.Changed() })
	for _, t := range changed {
		a.log.WithFields(logrus.Fields{
			"path":     t.Path,
			"recorded": t.Recorded,
			"now":      t.Size,
		}).Warn("file size changed since the scan")
	}
	unknown := lo.CountBy(check.Targets, func(t preflight.Target) bool { return t.Recorded < 0 })
	if unknown > 0 {
		a.log.WithField("count", unknown).Info("some selected files are not in the inventory")
	}
}

// readPathList reads one path per line from name, or from standard input
// when name is "-". Blank lines are ignored.
func (a *app) readPathList(name string) ([]string, error) {
	var r io.Reader = a.in
	if name != "-" {
		file, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open path list: %w", err)
		}
		defer file.Close()
		r = file
	}

	var paths []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		paths = append(paths, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read path list: %w", err)
	}
	return paths, nil
}
