package game

import (
	"strings"

	"golang.org/x/text/cases"
)

// NameKey folds a room name into its case-insensitive registry key.
func NameKey(name string) string {
	// Casers carry state and must not be shared across goroutines.
	return cases.Fold().String(strings.TrimSpace(name))
}
