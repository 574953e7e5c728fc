package sync

import "receiptsync/internal/model"

// Engine status values surfaced to observers and the shell API.
const (
	StatusIdle    = "idle"
	StatusSyncing = "syncing"
	StatusError   = "error"
)

// Observer receives engine notifications after each cycle transition. The
// desktop shell subscribes to drive its tray icon and tooltip; the engine
// itself has no UI knowledge. Callbacks run on the sync goroutine — keep them
// cheap.
type Observer interface {
	OnStatus(status string)
	OnStats(stats model.SyncStats)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) OnStatus(string)         {}
func (NopObserver) OnStats(model.SyncStats) {}
