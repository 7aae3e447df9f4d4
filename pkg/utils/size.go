package utils

import (
	"fmt"
	"math"
)

// BytesPerMB is the factor applied to every megabyte threshold.
const BytesPerMB = 1024 * 1024

var units = []struct {
	size  int64
	long  string
	short string
}{
	{1 << 40, "TB", "T"},
	{1 << 30, "GB", "G"},
	{1 << 20, "MB", "M"},
	{1 << 10, "KB", "K"},
}

// HumanizeBytes formats a byte count into a readable string, e.g. "15.00 MB".
func HumanizeBytes(b int64) string {
	for _, u := range units {
		if b >= u.size {
			return fmt.Sprintf("%.2f %s", float64(b)/float64(u.size), u.long)
		}
	}
	return fmt.Sprintf("%d B", b)
}

// HumanizeBytesCompact formats a byte count without a space, e.g. 1536 -> "1.50K".
func HumanizeBytesCompact(b int64) string {
	for _, u := range units {
		if b >= u.size {
			return fmt.Sprintf("%.2f%s", float64(b)/float64(u.size), u.short)
		}
	}
	return fmt.Sprintf("%dB", b)
}

// MegabytesToBytes converts a (possibly fractional) megabyte amount to bytes,
// truncating toward zero. Negative and NaN inputs give 0.
func MegabytesToBytes(mb float64) int64 {
	if math.IsNaN(mb) || mb <= 0 {
		return 0
	}
	b := mb * BytesPerMB
	if b >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(b)
}
