package backend

import "fmt"

// ErrUnsupportedOperation indicates a feature was requested against a
// backend that does not support it. Raised before any expensive work starts.
type ErrUnsupportedOperation struct {
	Backend   string
	Operation string
}

func (e *ErrUnsupportedOperation) Error() string {
	return fmt.Sprintf("backend %s does not support %s", e.Backend, e.Operation)
}

// ErrMissingBaseLayer indicates base-layer reuse was requested but the
// exported base-layer file does not exist yet.
type ErrMissingBaseLayer struct {
	Path string
}

func (e *ErrMissingBaseLayer) Error() string {
	return fmt.Sprintf("base layer file does not exist: %s", e.Path)
}
