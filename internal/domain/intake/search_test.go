package intake

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func rowsSnapshot(header []string, rows ...[]string) Snapshot {
	return Snapshot{Header: header, Rows: rows}
}

func TestSearchMatchesSubstringInAnyColumn(t *testing.T) {
	snapshot := rowsSnapshot(
		[]string{"receipt_number", "company"},
		[]string{"1", "Acme"},
		[]string{"2", "Beta"},
	)

	got := Search(snapshot, "Be")
	want := [][]string{{"2", "Beta"}}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Fatalf("Search() rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(snapshot.Header, got.Header); diff != "" {
		t.Fatalf("Search() header mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchEmptyQueryReturnsEverything(t *testing.T) {
	snapshot := rowsSnapshot(
		[]string{"receipt_number", "company"},
		[]string{"1", "Acme"},
		[]string{"2", "Beta"},
	)

	got := Search(snapshot, "")
	if diff := cmp.Diff(snapshot, got); diff != "" {
		t.Fatalf("Search(\"\") mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchIsCaseSensitive(t *testing.T) {
	snapshot := rowsSnapshot(
		[]string{"receipt_number", "company"},
		[]string{"1", "Acme"},
		[]string{"2", "ACME Labs"},
	)

	got := Search(snapshot, "Acme")
	if diff := cmp.Diff([][]string{{"1", "Acme"}}, got.Rows); diff != "" {
		t.Fatalf("Search() rows mismatch (-want +got):\n%s", diff)
	}
	if got := Search(snapshot, "acme"); got.Len() != 0 {
		t.Fatalf("Search(acme) len = %d, want 0", got.Len())
	}
}

func TestSearchPreservesOrderAndKeepsRecordsAligned(t *testing.T) {
	layout := DefaultLayout()
	values := [][]string{
		layout.Header(),
		{"10", "Gamma", "scope", "S-1", "shipped", "none", ""},
		{"11", "Delta", "probe", "S-2", "in calibration", "none", ""},
		{"12", "Gamma", "meter", "S-3", "shipped", "none", ""},
	}
	snapshot, err := NewSnapshot(layout, values, fixedTime)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}

	got := Search(snapshot, "Gamma")
	if got.Len() != 2 {
		t.Fatalf("Search() len = %d, want 2", got.Len())
	}
	if got.Records[0].ReceiptNumber != "10" || got.Records[1].ReceiptNumber != "12" {
		t.Fatalf("Search() records = %+v", got.Records)
	}
	for i, row := range got.Rows {
		if row[0] != got.Records[i].ReceiptNumber {
			t.Fatalf("row %d = %v, record = %+v", i, row, got.Records[i])
		}
	}
}

// Every returned row contains the query and every dropped row does not.
func TestSearchSubsetProperty(t *testing.T) {
	snapshot := rowsSnapshot(
		[]string{"a", "b", "c"},
		[]string{"alpha", "beta", "gamma"},
		[]string{"delta", "", "epsilon"},
		[]string{"", "", ""},
		[]string{"zeta", "eta", "theta"},
		[]string{"ta", "at", "a t"},
	)
	queries := []string{"a", "ta", "eta", " ", "x", "alpha", "t", "ps"}

	for _, query := range queries {
		got := Search(snapshot, query)
		kept := make(map[int]bool)
		next := 0
		for i, row := range snapshot.Rows {
			if next < len(got.Rows) && cmp.Equal(row, got.Rows[next]) {
				kept[i] = true
				next++
			}
		}
		if next != len(got.Rows) {
			t.Fatalf("query %q: result is not an ordered subset of the snapshot", query)
		}

		for i, row := range snapshot.Rows {
			matches := false
			for _, cell := range row {
				if strings.Contains(cell, query) {
					matches = true
				}
			}
			if matches != kept[i] {
				t.Fatalf("query %q row %v: matches=%v kept=%v", query, row, matches, kept[i])
			}
		}
	}
}
