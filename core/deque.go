package core

import "sync/atomic"

const minDequeCapacity = 8

type cacheLinePad [64]byte

// ring is the deque's circular storage. A ring is never written behind
// the owner's back: growing allocates a fresh ring, copies the live
// range and atomically swaps the pointer, leaving the old ring to the
// garbage collector. Capacity is a power of two so indexing is a mask.
type ring struct {
	mask  int64
	slots []atomic.Pointer[subtask]
}

func newRing(capacity int64) *ring {
	return &ring{
		mask:  capacity - 1,
		slots: make([]atomic.Pointer[subtask], capacity),
	}
}

func (r *ring) cap() int64 { return int64(len(r.slots)) }

func (r *ring) get(i int64) *subtask { return r.slots[i&r.mask].Load() }

func (r *ring) put(i int64, st *subtask) { r.slots[i&r.mask].Store(st) }

// grow returns a ring of twice the capacity holding the live range
// [top, bottom).
func (r *ring) grow(top, bottom int64) *ring {
	next := newRing(r.cap() * 2)
	for i := top; i < bottom; i++ {
		next.put(i, r.get(i))
	}
	return next
}

// deque is a lock-free work-stealing deque (Chase-Lev). The owning
// worker pushes and pops at the bottom, LIFO; thieves steal from the
// top, FIFO, racing through a CAS on top. top and bottom sit on their
// own cache lines so thieves hammering top do not invalidate the
// owner's line.
//
// Go's atomics are sequentially consistent, which covers the fence the
// original algorithm needs between the bottom move and the top read.
type deque struct {
	_      cacheLinePad
	top    atomic.Int64
	_      cacheLinePad
	bottom atomic.Int64
	_      cacheLinePad
	buf    atomic.Pointer[ring]
	dead   atomic.Bool
}

func newDeque(capacity int64) *deque {
	c := int64(minDequeCapacity)
	for c < capacity {
		c <<= 1
	}
	d := &deque{}
	d.buf.Store(newRing(c))
	return d
}

// pushBottom appends a subtask at the owner end. Only the owning worker
// may call it. Pushing onto a dead deque is refused.
func (d *deque) pushBottom(st *subtask) error {
	if d.dead.Load() {
		return ErrDequeDead
	}
	b := d.bottom.Load()
	t := d.top.Load()
	buf := d.buf.Load()
	if b-t >= buf.cap() {
		buf = buf.grow(t, b)
		d.buf.Store(buf)
	}
	buf.put(b, st)
	d.bottom.Store(b + 1)
	return nil
}

// popBottom removes the newest subtask. Only the owning worker may call
// it. When one element remains the owner races thieves for it with a
// CAS on top; losing means a thief got it. Works on a dead deque so
// shutdown can drain.
func (d *deque) popBottom() *subtask {
	b := d.bottom.Load() - 1
	buf := d.buf.Load()
	d.bottom.Store(b)
	t := d.top.Load()
	if t > b {
		// Already empty. Put bottom back.
		d.bottom.Store(b + 1)
		return nil
	}
	st := buf.get(b)
	if t == b {
		// Last element: claim it against concurrent steals.
		if !d.top.CompareAndSwap(t, t+1) {
			st = nil
		}
		d.bottom.Store(b + 1)
	}
	return st
}

// stealTop removes the oldest subtask on behalf of a thief. Safe to call
// from any worker; a failed CAS means another thief or the owner won the
// element, and the caller should treat the attempt as a miss. Works on a
// dead deque so shutdown can drain.
func (d *deque) stealTop() *subtask {
	t := d.top.Load()
	b := d.bottom.Load()
	if t >= b {
		return nil
	}
	// Read the slot before claiming it: after the CAS the owner may
	// reuse it.
	st := d.buf.Load().get(t)
	if !d.top.CompareAndSwap(t, t+1) {
		return nil
	}
	return st
}

// size is a racy snapshot; it may be stale by the time it returns.
func (d *deque) size() int64 {
	b := d.bottom.Load()
	t := d.top.Load()
	if b < t {
		return 0
	}
	return b - t
}

func (d *deque) empty() bool { return d.size() == 0 }

// markDead refuses future pushes. Existing elements stay poppable and
// stealable until drained.
func (d *deque) markDead() { d.dead.Store(true) }

func (d *deque) isDead() bool { return d.dead.Load() }
