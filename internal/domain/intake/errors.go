package intake

import "errors"

var (
	ErrReceiptNumberRequired = errors.New("receipt number is required")
	ErrCompanyRequired       = errors.New("company is required")
	ErrInvalidStatus         = errors.New("invalid status")

	ErrHeaderMissing   = errors.New("header row is missing")
	ErrHeaderMalformed = errors.New("header row is malformed")
	ErrHeaderMismatch  = errors.New("header row does not match layout")
	ErrRowTooWide      = errors.New("row has more cells than the header")

	ErrInvalidLayout = errors.New("invalid layout")
	ErrUnknownField  = errors.New("unknown field")
)
