// Package lib has no main and no function matching the default entry.
package lib

// Helper is exported but the analysis still needs an entry to start from.
func Helper() int {
	return 42
}
