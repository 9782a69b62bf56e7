package main

import (
	"fmt"
	"strconv"
)

const (
	kib = 1 << 10
	mib = 1 << 20
	gib = 1 << 30
)

// formatBytes renders b for the dashboard. Thresholds are powers of 1024
// while the labels read GB/MB/KB; clients already parse these strings, so
// the labels stay as they are.
func formatBytes(b uint64) string {
	switch {
	case b >= gib:
		return fmt.Sprintf("%.2f GB", float64(b)/gib)
	case b >= mib:
		return fmt.Sprintf("%.2f MB", float64(b)/mib)
	case b >= kib:
		return fmt.Sprintf("%.2f KB", float64(b)/kib)
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}

func formatCelsius(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 32) + " °C"
}
