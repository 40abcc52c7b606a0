//go:build !linux

package platform

import (
	"errors"
	"time"
)

// ThreadCPUTime reports per-thread CPU time where the OS exposes it.
// This platform does not.
func ThreadCPUTime() (time.Duration, error) {
	return 0, errors.ErrUnsupported
}
