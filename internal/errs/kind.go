package errs

import "errors"

// Kind classifies a failure by how the interaction boundary should react.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation means the user must correct input; nothing was written.
	KindValidation
	// KindAuth means credentials are missing or were rejected by a store.
	KindAuth
	// KindTransport means a store was unreachable or failed; the user may retry.
	KindTransport
	// KindSchema means the header row is missing or does not match the layout.
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindTransport:
		return "transport"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// KindError attaches a Kind to an error without changing its message.
type KindError struct {
	Kind Kind
	err  error
}

func (e *KindError) Error() string { return e.err.Error() }
func (e *KindError) Unwrap() error { return e.err }

// E tags err with kind. The outermost kind wins when tagged twice.
func E(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, err: err}
}

// KindOf returns the first kind found in the chain.
func KindOf(err error) Kind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsAuth(err error) bool       { return KindOf(err) == KindAuth }
func IsTransport(err error) bool  { return KindOf(err) == KindTransport }
func IsSchema(err error) bool     { return KindOf(err) == KindSchema }
