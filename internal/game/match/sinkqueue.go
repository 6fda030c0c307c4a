package match

import (
	"sync"

	"go.uber.org/zap"
)

// sinkQueue moves FrameSink I/O off the match goroutine. Frames are queued
// without bound and written in order by a single drain goroutine, so a slow
// sink never stalls a tick and a replay never loses a frame.
//
// Invariant: after the first write error no further frames reach the sink and
// Finish is not called on it.
type sinkQueue struct {
	sink   FrameSink
	logger *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Frame
	closed  bool
	failed  bool
	done    chan struct{}
}

// newSinkQueue starts draining into sink.
//
// Precondition: sink and logger must be non-nil.
func newSinkQueue(sink FrameSink, logger *zap.Logger) *sinkQueue {
	q := &sinkQueue{sink: sink, logger: logger, done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.drain()
	return q
}

// Enqueue queues f for writing. It never blocks on the sink.
func (q *sinkQueue) Enqueue(f Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.failed {
		return
	}
	q.pending = append(q.pending, f)
	q.cond.Signal()
}

func (q *sinkQueue) drain() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, f := range batch {
			if err := q.sink.WriteFrame(f); err != nil {
				q.logger.Warn("frame sink write failed", zap.Int64("tick", f.Snapshot.Tick), zap.Error(err))
				q.mu.Lock()
				q.failed = true
				q.pending = nil
				q.mu.Unlock()
				return
			}
		}
		if closed {
			return
		}
	}
}

// Finish waits for every queued frame to be written and then finishes the
// sink with r.
//
// Postcondition: Returns nil without touching the sink if a write failed.
func (q *sinkQueue) Finish(r Result) error {
	q.mu.Lock()
	q.closed = true
	q.cond.Signal()
	q.mu.Unlock()
	<-q.done

	q.mu.Lock()
	failed := q.failed
	q.mu.Unlock()
	if failed {
		return nil
	}
	return q.sink.Finish(r)
}
