package dto

import "receiptsync/internal/model"

// StatsResponse is the shell API's stats snapshot.
type StatsResponse struct {
	Status string          `json:"status"` // idle | syncing | error
	Stats  model.SyncStats `json:"stats"`
}

// ManualSyncResponse is the result of a single-receipt manual sync.
type ManualSyncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
