package utils

import (
	"fmt"
	"math"
	"strings"
	"time"
)

func AssertInvariant(condition bool, message string) {
	if !condition {
		panic("invariant violated - " + message)
	}
}

// Truncate bounds text to maxRunes runes, marking cut text with an ellipsis
func Truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes <= 1 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-1]) + "…"
}

// FormatRetryAfter renders a wait duration as "W days X hours Y minutes Z seconds",
// omitting zero parts. Sub-second waits round up to one second.
func FormatRetryAfter(d time.Duration) string {
	totalSeconds := int64(math.Ceil(d.Seconds()))
	if totalSeconds < 1 {
		totalSeconds = 1
	}

	days := totalSeconds / 86400
	hours := (totalSeconds / 3600) % 24
	minutes := (totalSeconds / 60) % 60
	seconds := totalSeconds % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d days", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d hours", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minutes", minutes))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%d seconds", seconds))
	}
	return strings.Join(parts, " ")
}

// Capitalize upper-cases the first rune of s
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
