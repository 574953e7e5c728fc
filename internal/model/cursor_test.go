package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorAdvance_FromEmpty(t *testing.T) {
	var c Cursor
	require.True(t, c.Empty())

	next, moved := c.Advance("ANN/S/100", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	require.True(t, moved)
	assert.Equal(t, "ANN/S/100", next.LastSyncedReceiptNo)
	assert.False(t, next.Empty())
}

func TestCursorAdvance_NewerDate(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := Cursor{LastSyncedReceiptNo: "ANN/S/100", LastSyncedReceiptDate: base}

	next, moved := c.Advance("ANN/S/101", base.Add(time.Minute))
	require.True(t, moved)
	assert.Equal(t, "ANN/S/101", next.LastSyncedReceiptNo)
}

func TestCursorAdvance_NeverRegresses(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := Cursor{LastSyncedReceiptNo: "ANN/S/100", LastSyncedReceiptDate: base}

	next, moved := c.Advance("ANN/S/99", base.Add(-time.Hour))
	assert.False(t, moved)
	assert.Equal(t, c, next)
}

func TestCursorAdvance_SameDateTieBreaksOnSuffix(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := Cursor{LastSyncedReceiptNo: "ANN/S/100", LastSyncedReceiptDate: base}

	// higher suffix at the same timestamp moves the cursor
	next, moved := c.Advance("ANN/S/101", base)
	require.True(t, moved)
	assert.Equal(t, "ANN/S/101", next.LastSyncedReceiptNo)

	// lower suffix at the same timestamp does not
	_, moved = next.Advance("ANN/S/100", base)
	assert.False(t, moved)

	// same receipt replayed is a no-op
	_, moved = next.Advance("ANN/S/101", base)
	assert.False(t, moved)
}

func TestCursorAdvance_UnparseableSuffixAtSameDate(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := Cursor{LastSyncedReceiptNo: "ANN/S/100", LastSyncedReceiptDate: base}

	// no defined ordering — the cursor stays put rather than guessing
	_, moved := c.Advance("ANN/S/ABC", base)
	assert.False(t, moved)
}

func TestReceiptNoSuffix(t *testing.T) {
	n, ok := ReceiptNoSuffix("ANN/S/123")
	require.True(t, ok)
	assert.Equal(t, int64(123), n)

	// a bare number is its own suffix
	n, ok = ReceiptNoSuffix("456")
	require.True(t, ok)
	assert.Equal(t, int64(456), n)

	_, ok = ReceiptNoSuffix("ANN/S/")
	assert.False(t, ok)

	_, ok = ReceiptNoSuffix("ANN/S/12A")
	assert.False(t, ok)

	_, ok = ReceiptNoSuffix("")
	assert.False(t, ok)
}

func TestCursorWatermark(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := Cursor{LastSyncedReceiptNo: "ANN/S/100", LastSyncedReceiptDate: base}

	wm := c.Watermark()
	assert.Equal(t, "ANN/S/100", wm.ReceiptNo)
	assert.Equal(t, base, wm.Date)
}
