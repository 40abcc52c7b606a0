//go:build linux

package platform

import (
	"time"

	"golang.org/x/sys/unix"
)

// ThreadCPUTime returns the CPU time consumed by the calling thread,
// user plus system. The caller must be locked to its OS thread for the
// reading to be attributable.
func ThreadCPUTime() (time.Duration, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_THREAD, &ru); err != nil {
		return 0, err
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano()), nil
}
