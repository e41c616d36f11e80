// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated timing for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Counters tracks debate lifecycle event counts.
type Counters struct {
	SessionsCreated   int64 `json:"sessions_created"`
	SessionsCompleted int64 `json:"sessions_completed"`
	SessionsFailed    int64 `json:"sessions_failed"`
	SessionsCancelled int64 `json:"sessions_cancelled"`
	MessagesAppended  int64 `json:"messages_appended"`
}

// Snapshot represents the full engine statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Counters      Counters           `json:"counters"`
	Generate      *OperationSnapshot `json:"generate,omitempty"`
	Classify      *OperationSnapshot `json:"classify,omitempty"`
	Append        *OperationSnapshot `json:"append,omitempty"`
}

// Operation names for the collector.
const (
	opGenerate = "generate"
	opClassify = "classify"
	opAppend   = "append"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	counters  Counters
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

func (c *Collector) recordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordGenerate records timing for a generator call.
func (c *Collector) RecordGenerate(d time.Duration) { c.recordTiming(opGenerate, d) }

// RecordClassify records timing for a classifier call.
func (c *Collector) RecordClassify(d time.Duration) { c.recordTiming(opClassify, d) }

// RecordAppend records timing for a store append.
func (c *Collector) RecordAppend(d time.Duration) { c.recordTiming(opAppend, d) }

// IncSessionsCreated increments the created-session counter.
func (c *Collector) IncSessionsCreated() { c.inc(&c.counters.SessionsCreated) }

// IncSessionsCompleted increments the completed-session counter.
func (c *Collector) IncSessionsCompleted() { c.inc(&c.counters.SessionsCompleted) }

// IncSessionsFailed increments the failed-session counter.
func (c *Collector) IncSessionsFailed() { c.inc(&c.counters.SessionsFailed) }

// IncSessionsCancelled increments the cancelled-session counter.
func (c *Collector) IncSessionsCancelled() { c.inc(&c.counters.SessionsCancelled) }

// IncMessagesAppended increments the appended-message counter.
func (c *Collector) IncMessagesAppended() { c.inc(&c.counters.MessagesAppended) }

func (c *Collector) inc(counter *int64) {
	c.mu.Lock()
	*counter++
	c.mu.Unlock()
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Counters:      c.counters,
		Generate:      snapshotOp(c.ops[opGenerate]),
		Classify:      snapshotOp(c.ops[opClassify]),
		Append:        snapshotOp(c.ops[opAppend]),
	}
}
