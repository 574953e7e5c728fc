package sync

import (
	"context"
	"strings"
	"time"

	"receiptsync/internal/model"
	"receiptsync/internal/syncerr"

	"github.com/rs/zerolog"
)

// Deduper answers remote existence checks. Satisfied by ledger.Client.
type Deduper interface {
	Exists(ctx context.Context, receiptNo string) (bool, error)
}

// Filter is the validation gate applied to grouped receipts before
// transformation. All rules inspect the group's representative leg.
type Filter struct {
	prefixes []string
	cutoff   time.Time
	dedup    Deduper
}

func NewFilter(prefixes []string, cutoff time.Time, dedup Deduper) *Filter {
	return &Filter{prefixes: prefixes, cutoff: cutoff, dedup: dedup}
}

// Rejection records a dropped group and why.
type Rejection struct {
	Group  model.ReceiptGroup
	Reason syncerr.RejectReason
}

// FilterResult partitions the input groups. AlreadySynced groups were found on
// the ledger by the dedup check: the cursor advances for them, but they are
// neither delivered nor counted as success or failure.
type FilterResult struct {
	Passed        []model.ReceiptGroup
	AlreadySynced []model.ReceiptGroup
	Rejected      []Rejection
}

// Apply runs every group through the rule chain, in input order. Rejections
// are logged and dropped; they never abort the cycle.
func (f *Filter) Apply(ctx context.Context, groups []model.ReceiptGroup, logger zerolog.Logger) FilterResult {
	var res FilterResult
	for _, g := range groups {
		switch reason, already := f.check(ctx, g); {
		case already:
			res.AlreadySynced = append(res.AlreadySynced, g)
		case reason != "":
			logger.Info().
				Str("receipt_no", g.ReceiptNo).
				Str("reason", string(reason)).
				Msg("receipt rejected by filter")
			res.Rejected = append(res.Rejected, Rejection{Group: g, Reason: reason})
		default:
			res.Passed = append(res.Passed, g)
		}
	}
	return res
}

// Check validates a single group (manual sync path).
func (f *Filter) Check(ctx context.Context, g model.ReceiptGroup) (syncerr.RejectReason, bool) {
	return f.check(ctx, g)
}

func (f *Filter) check(ctx context.Context, g model.ReceiptGroup) (reason syncerr.RejectReason, alreadySynced bool) {
	rep := g.Rep()

	// Receipt numbers without a numeric suffix cannot be ordered against the
	// cursor; reject them explicitly instead of comparing undefined.
	if _, ok := model.ReceiptNoSuffix(rep.ReceiptNo); !ok {
		return syncerr.ReasonMalformedReceiptNo, false
	}

	if !f.prefixAllowed(rep.ReceiptNo) {
		return syncerr.ReasonInvalidPrefix, false
	}

	if !f.cutoff.IsZero() && rep.Date.Before(f.cutoff) {
		return syncerr.ReasonBeforeCutoff, false
	}

	exists, err := f.dedup.Exists(ctx, rep.ReceiptNo)
	if err != nil {
		// Can't prove the receipt is absent — rejecting is the safe side of
		// a possible duplicate write.
		return syncerr.ReasonDedupCheckFailed, false
	}
	if exists {
		return "", true
	}
	return "", false
}

func (f *Filter) prefixAllowed(receiptNo string) bool {
	if len(f.prefixes) == 0 {
		return true
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(receiptNo, p) {
			return true
		}
	}
	return false
}
