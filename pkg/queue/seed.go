package queue

import "time"

// randSeed isolates the one non-deterministic call in this package so tests
// can exercise DequeueNext's shuffle path deterministically by constructing
// a Queue directly and swapping rng if needed.
func randSeed() int64 {
	return time.Now().UnixNano()
}
