package intake

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"kiccms/internal/errs"
)

var fixedTime = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func TestNewSnapshotHeaderOnlyIsEmptyAndValid(t *testing.T) {
	layout := DefaultLayout()

	snapshot, err := NewSnapshot(layout, [][]string{layout.Header()}, fixedTime)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	if !snapshot.IsEmpty() || snapshot.Len() != 0 {
		t.Fatalf("snapshot len = %d, want 0", snapshot.Len())
	}
	if !snapshot.FetchedAt.Equal(fixedTime) {
		t.Fatalf("FetchedAt = %v", snapshot.FetchedAt)
	}
}

func TestNewSnapshotMissingHeaderIsSchemaError(t *testing.T) {
	layout := DefaultLayout()

	testCases := []struct {
		name   string
		values [][]string
		want   error
	}{
		{name: "no rows", values: nil, want: ErrHeaderMissing},
		{name: "empty header", values: [][]string{{}}, want: ErrHeaderMissing},
		{name: "blank header", values: [][]string{{"", " "}}, want: ErrHeaderMissing},
		{name: "blank label", values: [][]string{{"Receipt Number", "", "Status"}}, want: ErrHeaderMalformed},
		{name: "duplicate label", values: [][]string{{"Company", "Company"}}, want: ErrHeaderMalformed},
		{name: "wrong order", values: [][]string{{"Company", "Receipt Number", "Device Name", "Device Serial", "Status", "Report Link", "Timestamp"}}, want: ErrHeaderMismatch},
		{name: "missing column", values: [][]string{{"Receipt Number", "Company"}}, want: ErrHeaderMismatch},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := NewSnapshot(layout, testCase.values, fixedTime)
			if !errors.Is(err, testCase.want) {
				t.Fatalf("NewSnapshot() error = %v, want %v", err, testCase.want)
			}
			if !errs.IsSchema(err) {
				t.Fatalf("NewSnapshot() kind = %v, want schema", errs.KindOf(err))
			}
		})
	}
}

func TestNewSnapshotPadsShortRowsAndSkipsBlankRows(t *testing.T) {
	layout := DefaultLayout()
	values := [][]string{
		{" Receipt Number ", "Company", "Device Name", "Device Serial", "Status", "Report Link", "Timestamp"},
		{"1", "Acme"},
		{},
		{"", "  "},
		{"2", "Beta", "scope", "", "shipped", "https://example.test/r/2"},
	}

	snapshot, err := NewSnapshot(layout, values, fixedTime)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}

	wantRows := [][]string{
		{"1", "Acme", "", "", "", "", ""},
		{"2", "Beta", "scope", "", "shipped", "https://example.test/r/2", ""},
	}
	if diff := cmp.Diff(wantRows, snapshot.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(layout.Header(), snapshot.Header); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}

	wantRecords := []Record{
		{ReceiptNumber: "1", Company: "Acme"},
		{ReceiptNumber: "2", Company: "Beta", DeviceName: "scope", Status: "shipped", ReportLink: "https://example.test/r/2"},
	}
	if diff := cmp.Diff(wantRecords, snapshot.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestNewSnapshotRejectsRowsWiderThanHeader(t *testing.T) {
	layout := DefaultLayout()
	wide := append(layout.Row(Record{ReceiptNumber: "1", Company: "Acme"}), "stray")

	_, err := NewSnapshot(layout, [][]string{layout.Header(), wide}, fixedTime)
	if !errors.Is(err, ErrRowTooWide) {
		t.Fatalf("NewSnapshot() error = %v, want ErrRowTooWide", err)
	}
	if !errs.IsSchema(err) {
		t.Fatalf("kind = %v, want schema", errs.KindOf(err))
	}
}
