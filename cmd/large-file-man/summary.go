package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"

	"large-file-man/internal/config"
	"large-file-man/internal/scanner"
	"large-file-man/pkg/utils"
)

const previewCount = 5

type sampleFile struct {
	Path string `json:"path"`
	Size int64  `json:"size_bytes"`
}

type scanSummary struct {
	Root      string       `json:"root"`
	Found     int          `json:"found"`
	Kept      int          `json:"kept"`
	Skipped   int          `json:"skipped"`
	MinSizeMB float64      `json:"min_size_mb"`
	MaxCount  int          `json:"max_count"`
	Inventory string       `json:"inventory"`
	Preview   []sampleFile `json:"preview"`
}

func newScanSummary(inv scanner.Inventory, kept []scanner.FileRecord, s config.Settings) scanSummary {
	preview := lo.Map(lo.Slice(kept, 0, previewCount), func(f scanner.FileRecord, _ int) sampleFile {
		return sampleFile{Path: f.FullPath, Size: f.SizeBytes}
	})
	return scanSummary{
		Root:      inv.Root,
		Found:     len(inv.Files),
		Kept:      len(kept),
		Skipped:   inv.SkippedCount(),
		MinSizeMB: s.MinSizeMB,
		MaxCount:  s.MaxCount,
		Inventory: s.InventoryPath,
		Preview:   preview,
	}
}

func (s scanSummary) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func (s scanSummary) render(w io.Writer) {
	fmt.Fprintf(w, "=> Nombre total de fichiers trouves : %d\n", s.Found)
	fmt.Fprintf(w, "=> Nombre de fichiers après filtrage : %d\n", s.Kept)
	if s.Kept == 0 {
		fmt.Fprintln(w, "! Aucun fichier ne correspond aux critères de filtrage.")
	}
	fmt.Fprintf(w, "[OK] Fichier JSON genere ici : %s\n", s.Inventory)
	if len(s.Preview) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Aperçu des fichiers retenus")
	t.AppendHeader(table.Row{"#", "Chemin", "Taille", "Octets"})
	t.AppendRows(lo.Map(s.Preview, func(f sampleFile, i int) table.Row {
		return table.Row{i + 1, f.Path, utils.HumanizeBytes(f.Size), f.Size}
	}))
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}
