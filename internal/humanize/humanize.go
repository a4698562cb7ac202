// Package humanize formats byte counts the way progress text is shown
// to the user (spec.md Glossary: "Human-readable size").
package humanize

import "fmt"

var suffixes = []string{"B", "KB", "MB", "GB", "TB"}

// Bytes renders n as a decimal number with one fractional digit and
// the largest suffix for which the value is still >= 1, base 1024.
func Bytes(n uint64) string {
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(suffixes)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.1f%s", v, suffixes[i])
}
