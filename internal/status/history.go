package status

import "time"

// HistoryLen is how many inbound codes the tracker remembers.
const HistoryLen = 16

// CodeRecord is one inbound code and whether the node applied it.
type CodeRecord struct {
	At      time.Time
	Code    byte
	Applied bool
}

// codeRing is a fixed-capacity FIFO that overwrites the oldest record when full.
// Not safe for concurrent use; the Tracker lock guards it.
type codeRing struct {
	buf      []CodeRecord
	capacity int
	head     int // next write position
	count    int
}

func newCodeRing(capacity int) *codeRing {
	return &codeRing{
		buf:      make([]CodeRecord, capacity),
		capacity: capacity,
	}
}

func (r *codeRing) push(rec CodeRecord) {
	r.buf[r.head] = rec
	r.head = (r.head + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}
}

// list returns a copy of the records, oldest first.
func (r *codeRing) list() []CodeRecord {
	if r.count == 0 {
		return nil
	}

	result := make([]CodeRecord, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}
	return result
}

func (r *codeRing) len() int {
	return r.count
}
