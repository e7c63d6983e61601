// Package parallel provides the worker pool that executes pbmpm work off the
// caller's goroutine.
//
// Two patterns are supported:
//
//   - Dispatch runs a fixed number of independent work-groups and returns
//     once every group has finished. The emulated GPU device issues one
//     Dispatch per compute kernel, so the return acts as the barrier
//     between pipeline stages.
//   - Go schedules a single task and returns a channel that is closed when
//     it completes. The CPU backend runs one whole physics step this way
//     on a single-worker pool.
//
// Thread safety: WorkerPool is safe for concurrent use.
package parallel
