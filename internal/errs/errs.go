// Package errs defines the sentinel error kinds surfaced by FMM
// construction. Evaluation is infallible once construction succeeds; every
// error below is either a programming error in the caller's configuration
// or a data pathology it must resolve. Nothing here is retried.
package errs

import "errors"

// Sentinel error kinds, wrapped with context via fmt.Errorf("...: %w", ...)
// at the call site.
var (
	// ErrInvalidConfig reports a bad builder parameter (order, ncrit, depth).
	ErrInvalidConfig = errors.New("invalid config")

	// ErrNoPoints reports an empty source or target point set.
	ErrNoPoints = errors.New("no points")

	// ErrInvalidOrder reports an expansion order too small to discretise a surface.
	ErrInvalidOrder = errors.New("invalid expansion order")

	// ErrSingularOperator reports that a check-to-equivalent Gram matrix has
	// no singular values above tolerance.
	ErrSingularOperator = errors.New("singular operator")

	// ErrBlasError reports a failure from the dense linear-algebra backend.
	ErrBlasError = errors.New("blas error")

	// ErrFftError reports a failure from the FFT backend.
	ErrFftError = errors.New("fft error")

	// ErrUnsupported reports a request the core cannot satisfy, e.g. a
	// non-homogeneous kernel paired with the homogeneous SVD M2L scaling.
	ErrUnsupported = errors.New("unsupported")
)
