package core

// subtask is the unit of work that moves through the deques: one slice
// [start, end) of a task's iteration range. Subtasks are created by the
// scheduler when a run is submitted and by thieves when they split a
// chunkable subtask they stole.
type subtask struct {
	fn    SubtaskFunc
	start int64
	end   int64

	// id is unique within the run. The initial partition uses ids
	// 0..NSubtasks-1 in range order; split halves get fresh ids past
	// that. Static runs never split, so their ids stay dense.
	id   int
	name string

	// chunkable marks subtasks thieves may split. chunk is the size the
	// controller assigned at creation; it doubles as the split
	// threshold until a live cost estimate exists.
	chunkable bool
	chunk     int64

	// from is the worker whose deque first held this subtask.
	from int

	rs *runState
}

func (st *subtask) remaining() int64 {
	return st.end - st.start
}

// splitOff carves the upper half [mid, end) into a new subtask and
// shrinks st to [start, mid). The caller owns st exclusively.
func (st *subtask) splitOff(mid int64, id int) *subtask {
	upper := &subtask{
		fn:        st.fn,
		start:     mid,
		end:       st.end,
		id:        id,
		name:      st.name,
		chunkable: st.chunkable,
		chunk:     st.chunk,
		from:      st.from,
		rs:        st.rs,
	}
	st.end = mid
	return upper
}

// planPartition decides how many subtasks a run gets and how the
// iteration range is spread over them.
//
// Static runs get one subtask per worker. Dynamic runs derive the count
// from the chunk the granularity controller suggests; with no cost
// history yet (chunk == 0) they fall back to one per worker and let
// thief splitting find the right size. Every partition satisfies the
// SchedulingInfo invariant, spreading the remainder one iteration each
// over the leading subtasks.
func planPartition(mode ScheduleMode, iterations int64, workers int, chunk int64) SchedulingInfo {
	if iterations <= 0 {
		return SchedulingInfo{Mode: mode}
	}

	var nsubtasks int64
	switch {
	case mode == ScheduleStatic || chunk <= 0:
		nsubtasks = int64(workers)
	default:
		nsubtasks = iterations / chunk
	}
	if nsubtasks > iterations {
		nsubtasks = iterations
	}
	if nsubtasks < 1 {
		nsubtasks = 1
	}

	return SchedulingInfo{
		NSubtasks:      int(nsubtasks),
		IterPerSubtask: iterations / nsubtasks,
		Remainder:      iterations % nsubtasks,
		Mode:           mode,
	}
}

// buildSubtasks materializes the partition as subtasks ready to push.
// Subtask i covers IterPerSubtask iterations, plus one extra for the
// first Remainder subtasks, in ascending range order.
func buildSubtasks(fn SubtaskFunc, name string, info SchedulingInfo, chunkable bool, from int, rs *runState) []*subtask {
	subtasks := make([]*subtask, info.NSubtasks)
	start := int64(0)
	for i := range subtasks {
		n := info.IterPerSubtask
		if int64(i) < info.Remainder {
			n++
		}
		subtasks[i] = &subtask{
			fn:        fn,
			start:     start,
			end:       start + n,
			id:        i,
			name:      name,
			chunkable: chunkable,
			chunk:     info.IterPerSubtask,
			from:      from,
			rs:        rs,
		}
		start += n
	}
	return subtasks
}
