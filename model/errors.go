package model

import (
	"github.com/pkg/errors"
)

// Error kinds surfaced to callers. Call sites wrap these with context, so use
// errors.Cause (or errors.Is) to test for them.
var (
	// ErrConfiguration marks malformed or inconsistent construction input.
	// It is raised before any state is built and is never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrNumericalInstability marks a degenerate eigenvalue range or a
	// non-invertible I - Rho*M.
	ErrNumericalInstability = errors.New("numerical instability")
)

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}
