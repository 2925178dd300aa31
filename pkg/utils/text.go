// Package utils provides shared helpers for text, vector math, and logging.
package utils

// Truncate shortens s to at most max bytes, appending "..." when anything
// was cut. A max of zero or less disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
