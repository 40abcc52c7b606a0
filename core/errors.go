package core

import "errors"

// Sentinel errors returned by the scheduler and its queues.
var (
	// ErrDequeDead is returned when new work is pushed onto a deque that
	// has been marked dead during shutdown. Pops and steals keep draining
	// a dead deque; only pushes are refused.
	ErrDequeDead = errors.New("work deque is dead")

	// ErrSchedulerClosed is returned when a task is submitted after
	// Shutdown has been called.
	ErrSchedulerClosed = errors.New("scheduler is closed")

	// ErrNilTaskFunc is returned when a task has no body to run.
	ErrNilTaskFunc = errors.New("task has no function")

	// ErrNegativeIterations is returned when a task declares a negative
	// iteration count.
	ErrNegativeIterations = errors.New("task has negative iteration count")
)
