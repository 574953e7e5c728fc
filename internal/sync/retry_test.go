package sync

import (
	"testing"
	"time"

	"receiptsync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryQueue_FailCreatesThenIncrements(t *testing.T) {
	q := NewRetryQueue(3)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	g := group("ANN/S/1", at)

	q.Fail(g, "timeout", at)
	require.Len(t, q.Pending(), 1)
	assert.Equal(t, 1, q.Pending()[0].Attempts)
	assert.Equal(t, "timeout", q.Pending()[0].LastError)

	q.Fail(g, "refused", at.Add(time.Minute))
	require.Len(t, q.Pending(), 1)
	assert.Equal(t, 2, q.Pending()[0].Attempts)
	assert.Equal(t, "refused", q.Pending()[0].LastError)
	assert.Equal(t, 1, q.Size())
}

func TestRetryQueue_FreezesAtCeiling(t *testing.T) {
	q := NewRetryQueue(3)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	g := group("ANN/S/1", at)

	q.Fail(g, "e1", at)
	q.Fail(g, "e2", at)
	q.Fail(g, "e3", at)

	assert.Empty(t, q.Pending())
	require.Len(t, q.Frozen(), 1)
	assert.Equal(t, 3, q.Frozen()[0].Attempts)

	// frozen entries leave the retry size but stay in the failed count
	assert.Equal(t, 0, q.Size())
	assert.Equal(t, 1, q.Failed())
}

func TestRetryQueue_RemoveClearsBothCounts(t *testing.T) {
	q := NewRetryQueue(3)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	q.Fail(group("ANN/S/1", at), "e", at)
	q.Fail(group("ANN/S/2", at), "e", at)

	q.Remove("ANN/S/1")
	assert.Equal(t, 1, q.Size())
	assert.Equal(t, 1, q.Failed())
	require.Len(t, q.Pending(), 1)
	assert.Equal(t, "ANN/S/2", q.Pending()[0].ReceiptNo)

	// removing an unknown receipt is a no-op
	q.Remove("ANN/S/404")
	assert.Equal(t, 1, q.Failed())
}

func TestRetryQueue_RemoveWhileIteratingPendingSnapshot(t *testing.T) {
	q := NewRetryQueue(3)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, no := range []string{"ANN/S/1", "ANN/S/2", "ANN/S/3"} {
		q.Fail(group(no, at), "e", at)
	}

	var seen []string
	for _, e := range q.Pending() {
		seen = append(seen, e.ReceiptNo)
		q.Remove(e.ReceiptNo)
	}
	assert.Equal(t, []string{"ANN/S/1", "ANN/S/2", "ANN/S/3"}, seen)
	assert.Zero(t, q.Failed())
}

func TestRetryQueue_ZeroMaxAttemptsFallsBackToDefault(t *testing.T) {
	q := NewRetryQueue(0)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	g := group("ANN/S/1", at)

	q.Fail(g, "e", at)
	q.Fail(g, "e", at)
	assert.Len(t, q.Pending(), 1)
	q.Fail(g, "e", at)
	assert.Empty(t, q.Pending())
	assert.Len(t, q.Frozen(), 1)
}

func TestRetryQueue_FrozenRecoverableEntryKeepsGroup(t *testing.T) {
	q := NewRetryQueue(1)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	g := model.ReceiptGroup{
		ReceiptNo: "ANN/S/1",
		Legs:      []model.RawReceiptLeg{{ReceiptNo: "ANN/S/1", Date: at, SourceRowID: "row-9"}},
	}

	q.Fail(g, "e", at)
	frozen := q.Frozen()
	require.Len(t, frozen, 1)
	// the dedup recovery path needs the original group to advance the cursor
	assert.Equal(t, "row-9", frozen[0].Group.SourceRowID())
}
