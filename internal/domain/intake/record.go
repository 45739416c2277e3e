package intake

import (
	"fmt"
	"strings"
)

// Field names one attribute of a Record. The set is fixed; layouts only
// choose which fields become columns and in which order.
type Field string

const (
	FieldReceiptNumber Field = "receipt_number"
	FieldCompany       Field = "company"
	FieldDeviceName    Field = "device_name"
	FieldDeviceSerial  Field = "device_serial"
	FieldStatus        Field = "status"
	FieldReportLink    Field = "report_link"
	FieldTimestamp     Field = "timestamp"
)

// NoReportLink is stored in the report link column when nothing was attached.
const NoReportLink = "none"

var allFields = []Field{
	FieldReceiptNumber,
	FieldCompany,
	FieldDeviceName,
	FieldDeviceSerial,
	FieldStatus,
	FieldReportLink,
	FieldTimestamp,
}

// requiredFields must be columns in every layout.
var requiredFields = []Field{
	FieldReceiptNumber,
	FieldCompany,
	FieldStatus,
	FieldReportLink,
}

// AllFields returns the canonical field order.
func AllFields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

func ParseField(raw string) (Field, error) {
	normalized := Field(strings.ToLower(strings.TrimSpace(raw)))
	for _, field := range allFields {
		if field == normalized {
			return field, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, raw)
}

// Record is one intake entry, i.e. one spreadsheet row.
type Record struct {
	ReceiptNumber string `json:"receipt_number" yaml:"receipt_number"`
	Company       string `json:"company" yaml:"company"`
	DeviceName    string `json:"device_name,omitempty" yaml:"device_name,omitempty"`
	DeviceSerial  string `json:"device_serial,omitempty" yaml:"device_serial,omitempty"`
	Status        string `json:"status" yaml:"status"`
	ReportLink    string `json:"report_link" yaml:"report_link"`
	Timestamp     string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

func (r Record) Value(field Field) string {
	switch field {
	case FieldReceiptNumber:
		return r.ReceiptNumber
	case FieldCompany:
		return r.Company
	case FieldDeviceName:
		return r.DeviceName
	case FieldDeviceSerial:
		return r.DeviceSerial
	case FieldStatus:
		return r.Status
	case FieldReportLink:
		return r.ReportLink
	case FieldTimestamp:
		return r.Timestamp
	default:
		return ""
	}
}

func (r *Record) set(field Field, value string) {
	switch field {
	case FieldReceiptNumber:
		r.ReceiptNumber = value
	case FieldCompany:
		r.Company = value
	case FieldDeviceName:
		r.DeviceName = value
	case FieldDeviceSerial:
		r.DeviceSerial = value
	case FieldStatus:
		r.Status = value
	case FieldReportLink:
		r.ReportLink = value
	case FieldTimestamp:
		r.Timestamp = value
	}
}
