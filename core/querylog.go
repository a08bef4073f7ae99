package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bododesderio/leblango/db"
)

// searchLogWriter is the only storage capability the logger needs.
type searchLogWriter interface {
	InsertSearchLog(l *db.SearchLog) error
}

// queryLogger writes search analytics records off the request path. One
// worker goroutine drains a buffered channel; a full buffer drops the record
// and bumps a counter instead of blocking the handler.
type queryLogger struct {
	store   searchLogWriter
	ch      chan db.SearchLog
	done    chan struct{}
	pending atomic.Int64
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

func newQueryLogger(store searchLogWriter, buffer int) *queryLogger {
	if buffer <= 0 {
		buffer = 256
	}
	l := &queryLogger{
		store: store,
		ch:    make(chan db.SearchLog, buffer),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *queryLogger) run() {
	defer close(l.done)
	for rec := range l.ch {
		if err := l.store.InsertSearchLog(&rec); err != nil {
			Errorf("query log insert failed: %v", err)
		}
		l.pending.Add(-1)
	}
}

// Log enqueues one record and never blocks.
func (l *queryLogger) Log(rec db.SearchLog) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	l.pending.Add(1)
	select {
	case l.ch <- rec:
	default:
		l.pending.Add(-1)
		l.dropped.Add(1)
	}
}

// Dropped reports how many records were discarded on a full buffer.
func (l *queryLogger) Dropped() int64 {
	return l.dropped.Load()
}

// Flush waits until every enqueued record has been written.
func (l *queryLogger) Flush(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for l.pending.Load() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

// Close stops accepting records and drains the buffer.
func (l *queryLogger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()
	close(l.ch)
	<-l.done
}
