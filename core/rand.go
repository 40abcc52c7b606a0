package core

// randState is a small linear congruential generator used to pick steal
// victims. Each worker owns one, seeded with its id, so victim selection
// needs no shared state and no synchronization.
//
// The constants are the classic msvc LCG; the output is the middle 15
// bits, giving values in [0, 32767].
type randState struct {
	seed uint32
}

func newRandState(seed uint32) randState {
	return randState{seed: seed}
}

// next advances the generator and returns a value in [0, 32767].
func (r *randState) next() int32 {
	r.seed = r.seed*214013 + 2531011
	return int32((r.seed >> 16) & 0x7fff)
}

// pick returns a value in [0, n). n must be positive.
func (r *randState) pick(n int) int {
	return int(r.next()) % n
}
