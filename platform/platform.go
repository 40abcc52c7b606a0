// Package platform wraps the few OS facilities the scheduler needs:
// processor counts and per-thread CPU time for worker profiling.
package platform

import "runtime"

// NumProcessors returns the number of processors available to this
// process, honoring CPU affinity in place when the process started.
func NumProcessors() int {
	return runtime.NumCPU()
}
