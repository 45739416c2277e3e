package intake

import (
	"fmt"
	"strings"
	"time"

	"kiccms/internal/errs"
)

// Snapshot is a read-only copy of every row at fetch time.
type Snapshot struct {
	Header    []string
	Rows      [][]string
	Records   []Record
	FetchedAt time.Time
}

// NewSnapshot builds a Snapshot from raw store values where values[0] is the
// header row. A header-only store yields an empty, valid snapshot. Blank
// rows are skipped and short rows are padded to the header width.
func NewSnapshot(layout Layout, values [][]string, fetchedAt time.Time) (Snapshot, error) {
	if len(values) == 0 {
		return Snapshot{}, errs.E(errs.KindSchema, ErrHeaderMissing)
	}
	if err := layout.ValidateHeader(values[0]); err != nil {
		return Snapshot{}, err
	}

	header := make([]string, len(values[0]))
	for i, label := range values[0] {
		header[i] = strings.TrimSpace(label)
	}

	snapshot := Snapshot{
		Header:    header,
		Rows:      make([][]string, 0, len(values)-1),
		Records:   make([]Record, 0, len(values)-1),
		FetchedAt: fetchedAt,
	}
	for index, raw := range values[1:] {
		if isBlankRow(raw) {
			continue
		}
		if len(raw) > len(header) {
			// index+2: one for the header row, one for 1-based sheet rows.
			return Snapshot{}, errs.E(errs.KindSchema, fmt.Errorf("%w: sheet row %d has %d cells, header has %d", ErrRowTooWide, index+2, len(raw), len(header)))
		}

		row := make([]string, len(header))
		copy(row, raw)
		snapshot.Rows = append(snapshot.Rows, row)
		snapshot.Records = append(snapshot.Records, layout.Decode(row))
	}
	return snapshot, nil
}

func (s Snapshot) Len() int {
	return len(s.Rows)
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Rows) == 0
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
