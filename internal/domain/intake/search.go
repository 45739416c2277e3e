package intake

import "strings"

// Search keeps the rows where query is a case-sensitive substring of at
// least one cell. An empty query returns the snapshot unchanged. Row order
// is preserved.
func Search(snapshot Snapshot, query string) Snapshot {
	if query == "" {
		return snapshot
	}

	out := Snapshot{
		Header:    snapshot.Header,
		Rows:      make([][]string, 0),
		Records:   make([]Record, 0),
		FetchedAt: snapshot.FetchedAt,
	}
	for i, row := range snapshot.Rows {
		if !rowContains(row, query) {
			continue
		}
		out.Rows = append(out.Rows, row)
		if i < len(snapshot.Records) {
			out.Records = append(out.Records, snapshot.Records[i])
		}
	}
	return out
}

func rowContains(row []string, query string) bool {
	for _, cell := range row {
		if strings.Contains(cell, query) {
			return true
		}
	}
	return false
}
