package mes

import "errors"

//////
// Error values.
//////

// Sentinel errors returned by the generation pipeline. All errors are raised
// synchronously at the point of detection; validation runs before any
// expensive sampling or model work, and there is no automatic retry in this
// package. Callers should test with errors.Is.
var (
	// ErrUnsupportedConfiguration is returned when the request asks for
	// something this package deliberately does not support: linear or outcome
	// constraints, more than one objective outcome, or an unknown local
	// solver method. These are permanent failures; the caller must change
	// the request.
	ErrUnsupportedConfiguration = errors.New("mes: unsupported configuration")

	// ErrInvalidFidelityConfig is returned when the fidelity configuration is
	// inconsistent: a fidelity feature index without a target value, an index
	// outside the search-space dimensionality, or a fidelity-weight key set
	// that does not exactly match the fidelity-feature key set. Mismatched
	// key sets are a configuration error, never a silent default.
	ErrInvalidFidelityConfig = errors.New("mes: invalid fidelity configuration")

	// ErrShapeMismatch is returned when a vector or matrix argument has the
	// wrong length for the model or search space it is used with. It signals
	// a programming error at the call site, not a retryable condition.
	ErrShapeMismatch = errors.New("mes: shape mismatch")
)
