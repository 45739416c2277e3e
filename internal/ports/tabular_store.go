package ports

import "context"

// TabularStore is the system of record: an append-only sheet whose first
// row is the header.
type TabularStore interface {
	// FetchRows returns every row in the configured range, header first.
	FetchRows(ctx context.Context) ([][]string, error)
	// AppendRow adds one row after the current last row using the store's
	// own append primitive. It never overwrites existing rows.
	AppendRow(ctx context.Context, row []string) error
	// Location identifies the backing sheet; it keys the snapshot cache.
	Location() string
}
