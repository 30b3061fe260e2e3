// Package queue holds inbound records between webhook delivery and the next
// pull by the client.
package queue

import (
	"sync"

	"whatsrelay/pkg/whatsapp/types"
)

// Queue is an unbounded FIFO of inbound records. Append and Drain are
// mutually exclusive: every appended record is returned by exactly one Drain.
type Queue struct {
	mu      sync.Mutex
	records []types.InboundRecord
}

// New creates an empty queue
func New() *Queue {
	return &Queue{}
}

// Append adds records to the tail in order. Records passed in one call are
// never split across drains.
func (q *Queue) Append(records ...types.InboundRecord) {
	if len(records) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.records = append(q.records, records...)
}

// Drain returns everything queued so far and leaves the queue empty. The
// result is never nil.
func (q *Queue) Drain() []types.InboundRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.records
	q.records = nil

	if out == nil {
		return []types.InboundRecord{}
	}
	return out
}

// Len returns the number of records waiting for the next drain
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.records)
}
