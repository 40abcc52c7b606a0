package core

import (
	"math"
	"sync/atomic"
	"time"
)

// The granularity state of a task is a single uint64 so that concurrent
// workers can read and revise it with plain atomic loads and a CAS, never
// a lock:
//
//	bits 63..32  nmax  (int32)   largest chunk ever assigned
//	bits 31..0   C     (float32) measured cost per iteration, nanoseconds
//
// C is stored via its IEEE-754 bit pattern so a pack/unpack round trip is
// exact.

func packGrain(c float32, nmax int32) uint64 {
	return uint64(uint32(nmax))<<32 | uint64(math.Float32bits(c))
}

func grainC(w uint64) float32 {
	return math.Float32frombits(uint32(w))
}

func grainNmax(w uint64) int32 {
	return int32(uint32(w >> 32))
}

// chunkFor computes how many iterations a subtask should get so that it
// runs for roughly kappa, given a measured per-iteration cost. Returns 0
// when there is no cost estimate yet (cold start).
//
// The result is clamped to [1, iterations] and, when nmax is set, to at
// most nmax.
func chunkFor(kappa time.Duration, w uint64, iterations int64) int64 {
	c := grainC(w)
	if !(c > 0) {
		return 0
	}
	chunk := int64(float64(kappa.Nanoseconds()) / float64(c))
	if chunk < 1 {
		chunk = 1
	}
	if nmax := int64(grainNmax(w)); nmax > 0 && chunk > nmax {
		chunk = nmax
	}
	if chunk > iterations {
		chunk = iterations
	}
	return chunk
}

// reviseGrainC publishes a new cost estimate, keeping the current nmax.
// Lost races just mean another worker published a fresher estimate.
func reviseGrainC(g *atomic.Uint64, c float32) {
	for {
		old := g.Load()
		next := packGrain(c, grainNmax(old))
		if old == next || g.CompareAndSwap(old, next) {
			return
		}
	}
}

// raiseGrainNmax records that a chunk of the given size was assigned,
// growing nmax monotonically.
func raiseGrainNmax(g *atomic.Uint64, chunk int64) {
	if chunk > math.MaxInt32 {
		chunk = math.MaxInt32
	}
	for {
		old := g.Load()
		if int64(grainNmax(old)) >= chunk {
			return
		}
		next := packGrain(grainC(old), int32(chunk))
		if g.CompareAndSwap(old, next) {
			return
		}
	}
}
