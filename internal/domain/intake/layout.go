package intake

import (
	"fmt"
	"strings"

	"kiccms/internal/errs"
)

const DefaultTopK = 10

// Column binds a record field to its header label in the spreadsheet.
type Column struct {
	Field Field
	Label string
}

// Layout is the fixed column order shared by appends and reads. Header and
// Row are derived from the same column list, so append order always
// matches header order.
type Layout struct {
	Columns    []Column
	Statuses   []string
	GroupField Field
	TopK       int
}

func DefaultStatuses() []string {
	return []string{"awaiting intake", "in calibration", "calibration complete", "shipped"}
}

func DefaultLayout() Layout {
	return Layout{
		Columns: []Column{
			{Field: FieldReceiptNumber, Label: "Receipt Number"},
			{Field: FieldCompany, Label: "Company"},
			{Field: FieldDeviceName, Label: "Device Name"},
			{Field: FieldDeviceSerial, Label: "Device Serial"},
			{Field: FieldStatus, Label: "Status"},
			{Field: FieldReportLink, Label: "Report Link"},
			{Field: FieldTimestamp, Label: "Timestamp"},
		},
		Statuses:   DefaultStatuses(),
		GroupField: FieldCompany,
		TopK:       DefaultTopK,
	}
}

func (l Layout) Validate() error {
	if len(l.Columns) == 0 {
		return invalidLayout("at least one column is required")
	}

	fields := make(map[Field]struct{}, len(l.Columns))
	labels := make(map[string]struct{}, len(l.Columns))
	for index, column := range l.Columns {
		if _, err := ParseField(string(column.Field)); err != nil {
			return errs.E(errs.KindValidation, fmt.Errorf("%w: column %d: %w", ErrInvalidLayout, index+1, err))
		}
		if _, dup := fields[column.Field]; dup {
			return invalidLayout(fmt.Sprintf("field %q appears twice", column.Field))
		}
		fields[column.Field] = struct{}{}

		label := strings.TrimSpace(column.Label)
		if label == "" {
			return invalidLayout(fmt.Sprintf("column %d (%s) has no label", index+1, column.Field))
		}
		if _, dup := labels[label]; dup {
			return invalidLayout(fmt.Sprintf("label %q appears twice", label))
		}
		labels[label] = struct{}{}
	}

	for _, required := range requiredFields {
		if _, ok := fields[required]; !ok {
			return invalidLayout(fmt.Sprintf("field %q is required", required))
		}
	}

	if len(l.Statuses) == 0 {
		return invalidLayout("at least one status is required")
	}
	seen := make(map[string]struct{}, len(l.Statuses))
	for _, status := range l.Statuses {
		trimmed := strings.TrimSpace(status)
		if trimmed == "" {
			return invalidLayout("statuses must not be blank")
		}
		if _, dup := seen[trimmed]; dup {
			return invalidLayout(fmt.Sprintf("status %q appears twice", trimmed))
		}
		seen[trimmed] = struct{}{}
	}

	if _, ok := fields[l.GroupField]; !ok {
		return invalidLayout(fmt.Sprintf("group field %q is not a column", l.GroupField))
	}
	if l.TopK <= 0 {
		return invalidLayout("top_k must be positive")
	}
	return nil
}

func invalidLayout(msg string) error {
	return errs.E(errs.KindValidation, fmt.Errorf("%w: %s", ErrInvalidLayout, msg))
}

// Header returns the labels in append order.
func (l Layout) Header() []string {
	out := make([]string, len(l.Columns))
	for i, column := range l.Columns {
		out[i] = strings.TrimSpace(column.Label)
	}
	return out
}

// Row renders the record in append order.
func (l Layout) Row(record Record) []string {
	out := make([]string, len(l.Columns))
	for i, column := range l.Columns {
		out[i] = record.Value(column.Field)
	}
	return out
}

func (l Layout) Has(field Field) bool {
	return l.ColumnIndex(field) >= 0
}

func (l Layout) ColumnIndex(field Field) int {
	for i, column := range l.Columns {
		if column.Field == field {
			return i
		}
	}
	return -1
}

func (l Layout) Label(field Field) string {
	if idx := l.ColumnIndex(field); idx >= 0 {
		return strings.TrimSpace(l.Columns[idx].Label)
	}
	return string(field)
}

// DefaultStatus is the status assigned when none is given.
func (l Layout) DefaultStatus() string {
	if len(l.Statuses) == 0 {
		return ""
	}
	return strings.TrimSpace(l.Statuses[0])
}

// NormalizeStatus maps blank input to the default status and rejects values
// outside the layout's status list.
func (l Layout) NormalizeStatus(status string) (string, error) {
	trimmed := strings.TrimSpace(status)
	if trimmed == "" {
		return l.DefaultStatus(), nil
	}
	for _, allowed := range l.Statuses {
		if strings.TrimSpace(allowed) == trimmed {
			return trimmed, nil
		}
	}
	return "", errs.E(errs.KindValidation, fmt.Errorf("%w: %q", ErrInvalidStatus, status))
}

// ValidateHeader checks a fetched header row against the layout, label by
// label and position by position.
func (l Layout) ValidateHeader(header []string) error {
	if len(header) == 0 {
		return errs.E(errs.KindSchema, ErrHeaderMissing)
	}

	blank := 0
	seen := make(map[string]int, len(header))
	for index, raw := range header {
		label := strings.TrimSpace(raw)
		if label == "" {
			blank++
			continue
		}
		if first, dup := seen[label]; dup {
			return errs.E(errs.KindSchema, fmt.Errorf("%w: label %q in columns %d and %d", ErrHeaderMalformed, label, first+1, index+1))
		}
		seen[label] = index
	}
	if blank == len(header) {
		return errs.E(errs.KindSchema, ErrHeaderMissing)
	}
	if blank > 0 {
		return errs.E(errs.KindSchema, fmt.Errorf("%w: %d blank labels", ErrHeaderMalformed, blank))
	}

	want := l.Header()
	if len(header) != len(want) {
		return errs.E(errs.KindSchema, fmt.Errorf("%w: got %d columns, want %d", ErrHeaderMismatch, len(header), len(want)))
	}
	for i := range want {
		if got := strings.TrimSpace(header[i]); got != want[i] {
			return errs.E(errs.KindSchema, fmt.Errorf("%w: column %d is %q, want %q", ErrHeaderMismatch, i+1, got, want[i]))
		}
	}
	return nil
}

// Decode maps a padded row back to a Record using column positions.
func (l Layout) Decode(row []string) Record {
	var record Record
	for i, column := range l.Columns {
		if i < len(row) {
			record.set(column.Field, row[i])
		}
	}
	return record
}
