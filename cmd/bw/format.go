package main

import (
	"fmt"
	"strings"
)

// formatCurrency renders a dollar amount with comma separators
// (e.g. 15000000 -> "$15,000,000").
func formatCurrency(v float64) string {
	if v < 0 {
		return "-" + formatCurrency(-v)
	}
	s := fmt.Sprintf("%d", int64(v+0.5))
	if len(s) <= 3 {
		return "$" + s
	}

	var b strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		b.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return "$" + b.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
