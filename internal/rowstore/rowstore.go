// Package rowstore provides access to the tabbed row storage backing the
// site: class tabs with student rows plus the append-only guestbook log.
// Rows are positional string cells; schema interpretation belongs to callers.
package rowstore

import "context"

// Store is the narrow contract services use to read and write tabs.
type Store interface {
	// FindRow scans column col of tab for an exact whole-cell match and
	// returns the first matching row. A missing tab is skipped, not an
	// error: the second return is false when nothing matched.
	FindRow(ctx context.Context, tab string, col int, value string) ([]string, bool, error)

	// ReadTail returns up to n of the newest data rows of tab in append
	// order, excluding the header. A missing or header-only tab yields an
	// empty result and nil error.
	ReadTail(ctx context.Context, tab string, n int) ([][]string, error)

	// Append adds row as the newest entry of tab, creating the tab with
	// the given header row first if it does not exist yet.
	Append(ctx context.Context, tab string, header, row []string) error
}
