package persistence

import "time"

// PoolStats is a point-in-time snapshot of a connection pool.
// MaxOpen is 0 for an unbounded pool.
type PoolStats struct {
	MaxOpen      int
	Open         int
	InUse        int
	Idle         int
	WaitCount    int64
	WaitDuration time.Duration
}
