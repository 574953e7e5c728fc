package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"receiptsync/internal/model"
	"receiptsync/internal/syncerr"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDeduper answers existence checks from a fixed set, or fails wholesale.
type stubDeduper struct {
	existing map[string]bool
	err      error
	calls    int
}

func (d *stubDeduper) Exists(_ context.Context, receiptNo string) (bool, error) {
	d.calls++
	if d.err != nil {
		return false, d.err
	}
	return d.existing[receiptNo], nil
}

var _ Deduper = (*stubDeduper)(nil)

func group(receiptNo string, date time.Time) model.ReceiptGroup {
	return model.ReceiptGroup{
		ReceiptNo: receiptNo,
		Legs:      []model.RawReceiptLeg{{ReceiptNo: receiptNo, Date: date}},
	}
}

func TestFilter_InvalidPrefixRejected(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f := NewFilter([]string{"ANN/S/"}, time.Time{}, &stubDeduper{})

	res := f.Apply(context.Background(), []model.ReceiptGroup{
		group("ANN/S/1", at),
		group("XYZ/S/2", at),
	}, zerolog.Nop())

	require.Len(t, res.Passed, 1)
	assert.Equal(t, "ANN/S/1", res.Passed[0].ReceiptNo)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, syncerr.ReasonInvalidPrefix, res.Rejected[0].Reason)
}

func TestFilter_EmptyPrefixListAcceptsAll(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f := NewFilter(nil, time.Time{}, &stubDeduper{})

	res := f.Apply(context.Background(), []model.ReceiptGroup{group("WHATEVER/9", at)}, zerolog.Nop())
	assert.Len(t, res.Passed, 1)
}

func TestFilter_BeforeCutoffRejected(t *testing.T) {
	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := NewFilter(nil, cutoff, &stubDeduper{})

	res := f.Apply(context.Background(), []model.ReceiptGroup{
		group("ANN/S/1", cutoff.Add(-time.Hour)),
		group("ANN/S/2", cutoff), // exactly at the cutoff passes
		group("ANN/S/3", cutoff.Add(time.Hour)),
	}, zerolog.Nop())

	assert.Len(t, res.Passed, 2)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "ANN/S/1", res.Rejected[0].Group.ReceiptNo)
	assert.Equal(t, syncerr.ReasonBeforeCutoff, res.Rejected[0].Reason)
}

func TestFilter_MalformedReceiptNoRejected(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	dedup := &stubDeduper{}
	f := NewFilter(nil, time.Time{}, dedup)

	res := f.Apply(context.Background(), []model.ReceiptGroup{group("ANN/S/ABC", at)}, zerolog.Nop())

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, syncerr.ReasonMalformedReceiptNo, res.Rejected[0].Reason)
	// rejected before the remote check — no dedup traffic for junk rows
	assert.Zero(t, dedup.calls)
}

func TestFilter_DedupFailureRejectsFailSafe(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f := NewFilter(nil, time.Time{}, &stubDeduper{err: errors.New("ledger down")})

	res := f.Apply(context.Background(), []model.ReceiptGroup{group("ANN/S/1", at)}, zerolog.Nop())

	assert.Empty(t, res.Passed)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, syncerr.ReasonDedupCheckFailed, res.Rejected[0].Reason)
}

func TestFilter_ExistingReceiptIsAlreadySynced(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f := NewFilter(nil, time.Time{}, &stubDeduper{existing: map[string]bool{"ANN/S/1": true}})

	res := f.Apply(context.Background(), []model.ReceiptGroup{
		group("ANN/S/1", at),
		group("ANN/S/2", at),
	}, zerolog.Nop())

	require.Len(t, res.AlreadySynced, 1)
	assert.Equal(t, "ANN/S/1", res.AlreadySynced[0].ReceiptNo)
	require.Len(t, res.Passed, 1)
	assert.Equal(t, "ANN/S/2", res.Passed[0].ReceiptNo)
	assert.Empty(t, res.Rejected)
}

func TestFilter_RejectionDoesNotAffectNeighbors(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f := NewFilter([]string{"ANN/"}, time.Time{}, &stubDeduper{})

	groups := make([]model.ReceiptGroup, 0, 10)
	for i := 1; i <= 9; i++ {
		groups = append(groups, group(fmt.Sprintf("ANN/S/%d", i), at))
		if i == 5 {
			groups = append(groups, group("BAD/S/99", at))
		}
	}

	res := f.Apply(context.Background(), groups, zerolog.Nop())
	assert.Len(t, res.Passed, 9)
	assert.Len(t, res.Rejected, 1)
}
