// Package ranker orders an inventory by size and bounds it.
package ranker

import (
	"sort"

	"large-file-man/internal/scanner"
)

// Rank returns a copy of files sorted by size, largest first. Equal sizes keep
// their discovery order.
func Rank(files []scanner.FileRecord) []scanner.FileRecord {
	out := make([]scanner.FileRecord, len(files))
	copy(out, files)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SizeBytes > out[j].SizeBytes
	})
	return out
}

// Filter keeps records of at least minSizeBytes and caps the result at
// maxCount. The cap applies to qualifying records only.
func Filter(ranked []scanner.FileRecord, minSizeBytes int64, maxCount int) []scanner.FileRecord {
	if maxCount <= 0 {
		return []scanner.FileRecord{}
	}
	out := make([]scanner.FileRecord, 0, min(maxCount, len(ranked)))
	for _, r := range ranked {
		if len(out) == maxCount {
			break
		}
		if r.SizeBytes >= minSizeBytes {
			out = append(out, r)
		}
	}
	return out
}

// RankAndFilter sorts files by size descending, drops those smaller than
// minSizeBytes and keeps at most maxCount of the rest. The input is not
// modified.
func RankAndFilter(files []scanner.FileRecord, minSizeBytes int64, maxCount int) []scanner.FileRecord {
	return Filter(Rank(files), minSizeBytes, maxCount)
}
