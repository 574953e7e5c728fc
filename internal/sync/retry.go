package sync

import (
	"time"

	"receiptsync/internal/model"
)

// RetryQueue holds receipt groups whose delivery failed, in failure order.
// Owned exclusively by the engine; never touched concurrently. Entries at the
// attempt ceiling are frozen: skipped by Pending but still counted by Failed,
// until a later dedup check proves the receipt was ingested by another path.
type RetryQueue struct {
	maxAttempts int
	entries     []*model.RetryEntry
	index       map[string]*model.RetryEntry
}

func NewRetryQueue(maxAttempts int) *RetryQueue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &RetryQueue{
		maxAttempts: maxAttempts,
		index:       make(map[string]*model.RetryEntry),
	}
}

// Fail records a failed delivery attempt for the group: a new entry on first
// failure, attempts+1 on subsequent ones.
func (q *RetryQueue) Fail(g model.ReceiptGroup, errMsg string, now time.Time) {
	if e, ok := q.index[g.ReceiptNo]; ok {
		e.Attempts++
		e.LastError = errMsg
		e.LastAttemptAt = now
		return
	}
	e := &model.RetryEntry{
		ReceiptNo:     g.ReceiptNo,
		Group:         g,
		LastError:     errMsg,
		Attempts:      1,
		LastAttemptAt: now,
	}
	q.entries = append(q.entries, e)
	q.index[g.ReceiptNo] = e
}

// Remove drops an entry after a successful (or proven redundant) delivery.
func (q *RetryQueue) Remove(receiptNo string) {
	if _, ok := q.index[receiptNo]; !ok {
		return
	}
	delete(q.index, receiptNo)
	// Rebuild rather than delete-in-place: the drain loop iterates a snapshot
	// of Pending, so mutating the backing slice mid-iteration must stay safe.
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.ReceiptNo != receiptNo {
			kept = append(kept, e)
		}
	}
	q.entries = kept
}

// Pending returns a snapshot of entries still eligible for re-attempt.
func (q *RetryQueue) Pending() []*model.RetryEntry {
	out := make([]*model.RetryEntry, 0, len(q.entries))
	for _, e := range q.entries {
		if e.Attempts < q.maxAttempts {
			out = append(out, e)
		}
	}
	return out
}

// Frozen returns a snapshot of entries at the attempt ceiling.
func (q *RetryQueue) Frozen() []*model.RetryEntry {
	out := make([]*model.RetryEntry, 0, len(q.entries))
	for _, e := range q.entries {
		if e.Attempts >= q.maxAttempts {
			out = append(out, e)
		}
	}
	return out
}

// Size counts entries still eligible for retry.
func (q *RetryQueue) Size() int { return len(q.Pending()) }

// Failed counts every entry, frozen ones included.
func (q *RetryQueue) Failed() int { return len(q.entries) }
