package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"large-file-man/internal/config"
	"large-file-man/internal/ranker"
	"large-file-man/internal/scanner"
	"large-file-man/internal/store"
	"large-file-man/pkg/utils"
)

type scanFlags struct {
	format      string
	jsonOut     bool
	interactive bool
}

func newScanCmd(a *app) *cobra.Command {
	var f scanFlags
	cmd := &cobra.Command{
		Use:   "scan [ROOT]",
		Short: "Inventory ROOT and store its largest files",
		Long: `Walk ROOT recursively, keep the files at least --min-size-mb large,
largest first, at most --max-count of them, and write them to the inventory
file. ROOT is asked for on standard input when omitted.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.bindFlags(cmd, map[string]string{
				config.KeyMinSizeMB:      "min-size-mb",
				config.KeyMaxCount:       "max-count",
				config.KeyFollowSymlinks: "follow-symlinks",
				config.KeyExcludes:       "exclude",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd.Context(), args, f)
		},
	}

	flags := cmd.Flags()
	flags.String("min-size-mb", strconv.FormatFloat(config.DefaultMinSizeMB, 'f', -1, 64), "minimum file size in MB (1 MB = 1048576 bytes)")
	flags.String("max-count", strconv.Itoa(config.DefaultMaxCount), "maximum number of files to keep")
	flags.BoolP("follow-symlinks", "L", false, "follow symbolic links to files and directories")
	flags.StringArrayP("exclude", "x", nil, "glob pattern to skip, matched against full path or base name (repeatable)")
	flags.StringVar(&f.format, "format", "objects", "inventory record shape: objects or pairs")
	flags.BoolVar(&f.jsonOut, "json", false, "print a JSON summary instead of the table")
	flags.BoolVarP(&f.interactive, "interactive", "i", false, "ask for the thresholds on standard input")
	return cmd
}

func (a *app) runScan(ctx context.Context, args []string, f scanFlags) error {
	if f.format != "objects" && f.format != "pairs" {
		return fmt.Errorf("unknown inventory format %q (want objects or pairs)", f.format)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	in := bufio.NewReader(a.in)
	var root string
	if len(args) == 1 {
		root = args[0]
	} else {
		root = ask(in, a.out, "-> Entrez le chemin du repertoire à analyser : ")
	}

	settings := config.Load(a.v, a.log)
	if f.interactive {
		if s := ask(in, a.out, fmt.Sprintf("-> Taille minimale des fichiers en Mo (ex: %v) : ", settings.MinSizeMB)); s != "" {
			settings.MinSizeMB = config.ParseMinSizeMB(s, a.log)
		}
		if s := ask(in, a.out, fmt.Sprintf("-> Nombre maximum de fichiers à conserver (ex: %d) : ", settings.MaxCount)); s != "" {
			settings.MaxCount = config.ParseMaxCount(s, a.log)
		}
	}

	log := a.log.WithField("root", root)
	log.Debug("building inventory")
	inv, err := scanner.BuildInventory(ctx, root, scanner.Options{
		FollowSymlinks: settings.FollowSymlinks,
		Excludes:       settings.Excludes,
		Logger:         a.log,
	})
	if err != nil {
		return err
	}
	if n := inv.SkippedCount(); n > 0 {
		log.WithField("skipped", n).Warn("some entries could not be read")
	}

	kept := ranker.RankAndFilter(inv.Files, utils.MegabytesToBytes(settings.MinSizeMB), settings.MaxCount)

	if f.format == "pairs" {
		err = store.PersistPairs(store.Pairs(kept), settings.InventoryPath)
	} else {
		err = store.Persist(kept, settings.InventoryPath)
	}
	if err != nil {
		return err
	}

	sum := newScanSummary(inv, kept, settings)
	if f.jsonOut {
		return sum.writeJSON(a.out)
	}
	sum.render(a.out)
	return nil
}

// ask prints prompt and returns the next trimmed input line, or "" at EOF.
func ask(in *bufio.Reader, out io.Writer, prompt string) string {
	fmt.Fprint(out, prompt)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
