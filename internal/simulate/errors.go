package simulate

import "errors"

var (
	// ErrConfig reports an unusable simulation configuration.
	ErrConfig = errors.New("invalid simulation config")
	// ErrStatus reports an unexpected HTTP status from the service.
	ErrStatus = errors.New("unexpected status")
	// ErrMismatch reports that published results differ from the local recomputation.
	ErrMismatch = errors.New("results mismatch")
)
