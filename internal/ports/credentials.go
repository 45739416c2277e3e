package ports

import "context"

// Capability is an opaque authorization handle for the remote stores.
// Infrastructure controls the concrete type.
type Capability interface{}

// CredentialProvider hands out an authorized capability or fails with an
// auth-kind error.
type CredentialProvider interface {
	Authorize(ctx context.Context) (Capability, error)
	Method() string
}
