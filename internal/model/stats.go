package model

import "time"

// SyncStats are the cumulative sync counters. Owned exclusively by the engine,
// mutated only inside a cycle; callers always receive a snapshot copy.
type SyncStats struct {
	TotalSynced  int64     `json:"totalSynced"`
	TotalFailed  int64     `json:"totalFailed"`
	LastError    string    `json:"lastError,omitempty"`
	LastSyncTime time.Time `json:"lastSyncTime"`
	// QueueSize counts retry entries still eligible for re-attempt;
	// FailedCount also includes entries frozen at the retry ceiling.
	QueueSize   int `json:"queueSize"`
	FailedCount int `json:"failedCount"`
}

// RetryEntry holds a receipt group whose delivery failed, awaiting re-attempt
// on a later cycle. Once Attempts reaches the configured ceiling the entry is
// frozen: kept for the failed count, excluded from further attempts.
type RetryEntry struct {
	ReceiptNo     string
	Group         ReceiptGroup
	LastError     string
	Attempts      int
	LastAttemptAt time.Time
}
