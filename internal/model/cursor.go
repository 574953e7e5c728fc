package model

import (
	"strconv"
	"strings"
	"time"
)

// Cursor is the persisted sync watermark. A write only happens when the
// candidate receipt is strictly newer (by date, tie-broken by the numeric
// receipt-number suffix), so the cursor never regresses — even when a cycle
// partially fails.
type Cursor struct {
	LastSyncedReceiptNo   string
	LastSyncedReceiptDate time.Time
}

// Empty reports whether the cursor has never been advanced.
func (c Cursor) Empty() bool {
	return c.LastSyncedReceiptNo == "" && c.LastSyncedReceiptDate.IsZero()
}

// Advance returns an updated cursor if (receiptNo, date) is strictly newer,
// or the receiver unchanged. The bool reports whether it moved.
func (c Cursor) Advance(receiptNo string, date time.Time) (Cursor, bool) {
	if c.Empty() {
		return Cursor{LastSyncedReceiptNo: receiptNo, LastSyncedReceiptDate: date}, true
	}
	if date.After(c.LastSyncedReceiptDate) {
		return Cursor{LastSyncedReceiptNo: receiptNo, LastSyncedReceiptDate: date}, true
	}
	if date.Equal(c.LastSyncedReceiptDate) {
		cur, curOK := ReceiptNoSuffix(c.LastSyncedReceiptNo)
		cand, candOK := ReceiptNoSuffix(receiptNo)
		if curOK && candOK && cand > cur {
			return Cursor{LastSyncedReceiptNo: receiptNo, LastSyncedReceiptDate: date}, true
		}
	}
	return c, false
}

// Watermark bounds an incremental fetch: adapters must return only rows
// strictly newer than it. Date may be zero when only the receipt number is
// known (server-resolved watermark); the adapter then resolves the bound
// itself or returns nothing — never an unbounded scan.
type Watermark struct {
	ReceiptNo string
	Date      time.Time
}

// Watermark converts a persisted cursor into a fetch watermark.
func (c Cursor) Watermark() Watermark {
	return Watermark{ReceiptNo: c.LastSyncedReceiptNo, Date: c.LastSyncedReceiptDate}
}

// ReceiptNoSuffix parses the numeric suffix after the last '/' of a
// slash-delimited receipt number ("ANN/S/123" → 123). Receipt numbers without
// a parseable suffix have no defined ordering and are rejected upstream.
func ReceiptNoSuffix(receiptNo string) (int64, bool) {
	s := receiptNo
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
