package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"receiptsync/internal/config"
	"receiptsync/internal/dto"
	"receiptsync/internal/infra"
	"receiptsync/internal/ledger"
	"receiptsync/internal/model"
	"receiptsync/internal/source"
	"receiptsync/internal/state"
	"receiptsync/internal/syncerr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// startupDelay defers the first cycle so the agent doesn't hammer the POS
// database while the machine is still booting tills and services.
const startupDelay = 10 * time.Second

// Deps holds everything the engine needs. A struct because seven collaborators
// is too many for positional parameters.
type Deps struct {
	Config   *config.Config
	Source   source.ReceiptSource
	Ledger   ledger.Ledger
	Store    state.Store
	Breaker  *infra.CircuitBreaker
	Observer Observer // nil means no notifications
}

// Engine orchestrates the sync cycle: drain retries, resolve the watermark,
// fetch, group, filter, transform, deliver, advance the cursor. Exactly one
// cycle runs at a time; the syncing flag is the sole concurrency guard, so
// per-cycle state needs no locking. The mutex only protects the cursor/stats
// snapshot read by external callers.
type Engine struct {
	cfg     *config.Config
	src     source.ReceiptSource
	ldg     ledger.Ledger
	store   state.Store
	breaker *infra.CircuitBreaker
	obs     Observer

	filter  *Filter
	tr      *Transformer
	retries *RetryQueue

	syncing atomic.Bool
	stopCh  chan struct{}
	stopped sync.Once

	mu     sync.Mutex
	cursor model.Cursor
	stats  model.SyncStats
	status string
}

// New builds the engine and restores the persisted cursor and counters.
func New(ctx context.Context, d Deps) (*Engine, error) {
	if d.Observer == nil {
		d.Observer = NopObserver{}
	}

	cursor, err := d.Store.LoadCursor(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cursor: %w", err)
	}
	stats, err := d.Store.LoadStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	e := &Engine{
		cfg:     d.Config,
		src:     d.Source,
		ldg:     d.Ledger,
		store:   d.Store,
		breaker: d.Breaker,
		obs:     d.Observer,
		filter:  NewFilter(d.Config.PrefixList(), d.Config.CutoffDate(), d.Ledger),
		tr:      NewTransformer(d.Config.DateOffsetMinutes, "INR", d.Config.StoreID),
		retries: NewRetryQueue(d.Config.SyncRetryAttempts),
		stopCh:  make(chan struct{}),
		cursor:  cursor,
		stats:   stats,
		status:  StatusIdle,
	}
	return e, nil
}

// ── Scheduler ─────────────────────────────────────────────────────────────────

// Start launches the periodic scheduler: one delayed initial cycle, then one
// cycle per interval tick. Respects ctx and Stop for shutdown. A disabled
// sync config makes this a logged no-op.
func (e *Engine) Start(ctx context.Context) {
	if !e.cfg.SyncEnabled {
		log.Info().Msg("sync is disabled, scheduler not started")
		return
	}

	interval := time.Duration(e.cfg.SyncIntervalMinutes) * time.Minute
	log.Info().
		Dur("interval", interval).
		Str("vendor", e.src.Vendor()).
		Msg("sync scheduler started")

	go func() {
		select {
		case <-time.After(startupDelay):
			e.runCycle(ctx)
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.runCycle(ctx)
			case <-ctx.Done():
				log.Info().Msg("sync scheduler shutting down")
				return
			case <-e.stopCh:
				log.Info().Msg("sync scheduler stopped")
				return
			}
		}
	}()
}

// Stop halts the scheduler. A cycle already in flight runs to completion;
// there is no mid-cycle cancellation.
func (e *Engine) Stop() {
	e.stopped.Do(func() { close(e.stopCh) })
}

// ForceSyncNow runs a cycle immediately. A cycle already in flight makes this
// a logged no-op — the request is dropped, not queued.
func (e *Engine) ForceSyncNow(ctx context.Context) bool {
	return e.runCycle(ctx)
}

// Syncing reports whether a cycle is currently in flight.
func (e *Engine) Syncing() bool { return e.syncing.Load() }

// Status returns the last observed engine status.
func (e *Engine) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Stats returns a snapshot copy of the cumulative counters. The queue counts
// are folded into the stats under the mutex whenever the queue changes, so
// this never touches the queue itself — the queue belongs to the cycle
// goroutine alone.
func (e *Engine) Stats() model.SyncStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Cursor returns a snapshot of the sync cursor.
func (e *Engine) Cursor() model.Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// ── Cycle ─────────────────────────────────────────────────────────────────────

// runCycle executes one full sync cycle. Returns false when another cycle
// held the guard.
func (e *Engine) runCycle(ctx context.Context) bool {
	if !e.syncing.CompareAndSwap(false, true) {
		log.Info().Msg("sync already in progress, skipping")
		return false
	}
	defer e.syncing.Store(false)

	cycleID := uuid.NewString()[:8]
	logger := log.With().Str("cycle", cycleID).Logger()
	e.setStatus(StatusSyncing)

	logger.Info().Msg("sync cycle started")

	// Retries first, so stale groups never wait behind a fresh batch
	e.drainRetries(ctx, logger)

	wm, ok := e.resolveWatermark(ctx, logger)
	if !ok {
		// Fails closed: without any watermark a fetch could scan an
		// unbounded table on a first run.
		logger.Info().Msg("no watermark resolvable, cycle is a no-op")
		e.finishCycle(ctx, logger, "")
		return true
	}

	legs, err := e.src.FetchRecent(ctx, wm, e.cfg.SyncBatchSize)
	if err != nil {
		// Source down — abort the whole cycle, cursor untouched
		logger.Error().Err(err).Msg("receipt source unavailable, aborting cycle")
		e.failCycle(ctx, logger, err)
		return true
	}

	groups := Group(legs)
	logger.Info().
		Int("legs", len(legs)).
		Int("groups", len(groups)).
		Msg("fetched receipts")

	res := e.filter.Apply(ctx, groups, logger)

	for _, g := range res.AlreadySynced {
		logger.Info().Str("receipt_no", g.ReceiptNo).Msg("already on ledger, advancing cursor")
		e.advanceCursor(ctx, g, logger)
	}

	succeeded, failed := 0, 0
	for _, g := range res.Passed {
		switch e.processGroup(ctx, g, logger) {
		case groupSynced:
			succeeded++
		case groupFailed:
			failed++
		}
	}

	e.mu.Lock()
	e.stats.TotalSynced += int64(succeeded)
	e.stats.TotalFailed += int64(failed)
	e.mu.Unlock()

	logger.Info().
		Int("succeeded", succeeded).
		Int("failed", failed).
		Int("rejected", len(res.Rejected)).
		Int("duplicates", len(res.AlreadySynced)).
		Msg("sync cycle completed")

	e.finishCycle(ctx, logger, "")
	return true
}

type groupOutcome int

const (
	groupFailed groupOutcome = iota
	groupSynced
	// groupDuplicate: delivery resolved via the already-exists sentinel —
	// cursor advanced, not counted as synced or failed.
	groupDuplicate
)

// processGroup fetches items, transforms and delivers one receipt group.
// Failures are isolated: they enqueue a retry and never block other groups.
func (e *Engine) processGroup(ctx context.Context, g model.ReceiptGroup, logger zerolog.Logger) groupOutcome {
	items, err := e.src.FetchItems(ctx, g.SourceRowID())
	if err != nil {
		// The cursor may already be past this receipt next cycle, so the
		// retry queue is the only recovery path — enqueue like a delivery
		// failure.
		logger.Warn().Err(err).Str("receipt_no", g.ReceiptNo).Msg("item fetch failed")
		e.enqueueRetry(g, err.Error())
		return groupFailed
	}

	payload := e.tr.Transform(g, items)

	outcome, err := e.deliver(ctx, payload)
	switch outcome {
	case deliverCreated:
		logger.Info().Str("receipt_no", g.ReceiptNo).Msg("receipt synced")
		e.advanceCursor(ctx, g, logger)
		return groupSynced
	case deliverExists:
		logger.Info().Str("receipt_no", g.ReceiptNo).Msg("ledger reports receipt already exists")
		e.advanceCursor(ctx, g, logger)
		return groupDuplicate
	default:
		logger.Warn().Err(err).Str("receipt_no", g.ReceiptNo).Msg("delivery failed, queued for retry")
		e.enqueueRetry(g, err.Error())
		return groupFailed
	}
}

type deliverOutcome int

const (
	deliverFailed deliverOutcome = iota
	deliverCreated
	deliverExists
)

// deliver POSTs the payload through the circuit breaker. A tripped breaker is
// a network-class failure — it lands in the retry queue like any other.
func (e *Engine) deliver(ctx context.Context, payload *dto.DeliveryPayload) (deliverOutcome, error) {
	var resp *dto.CreateReceiptResponse
	err := e.breaker.Execute(func() error {
		r, err := e.ldg.Create(ctx, payload)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		if errors.Is(err, infra.ErrCircuitOpen) {
			err = &syncerr.DeliveryError{Class: syncerr.DeliveryNetwork, Err: err}
		}
		return deliverFailed, err
	}

	if resp.Created {
		return deliverCreated, nil
	}
	if ledger.AlreadyExists(resp) {
		return deliverExists, nil
	}
	// Accepted but not created and not the known sentinel — treat as an
	// application-level failure so it gets retried, not silently dropped.
	return deliverFailed, &syncerr.DeliveryError{
		Class: syncerr.DeliveryHTTP,
		Body:  resp.Message,
		Err:   fmt.Errorf("ledger did not create receipt: %s", resp.Message),
	}
}

// drainRetries re-attempts queued groups, strictly before any new fetch.
// Frozen entries only get an existence probe: when another client delivered
// the receipt in the meantime, dedup clears them out.
func (e *Engine) drainRetries(ctx context.Context, logger zerolog.Logger) {
	pending := e.retries.Pending()
	frozen := e.retries.Frozen()
	if len(pending) == 0 && len(frozen) == 0 {
		return
	}
	logger.Info().
		Int("pending", len(pending)).
		Int("frozen", len(frozen)).
		Msg("draining retry queue")

	for _, entry := range pending {
		switch e.processGroup(ctx, entry.Group, logger) {
		case groupSynced:
			e.removeRetry(entry.ReceiptNo)
			e.mu.Lock()
			e.stats.TotalSynced++
			e.mu.Unlock()
			logger.Info().
				Str("receipt_no", entry.ReceiptNo).
				Int("attempts", entry.Attempts).
				Msg("retry succeeded")
		case groupDuplicate:
			e.removeRetry(entry.ReceiptNo)
		}
	}

	for _, entry := range frozen {
		exists, err := e.ldg.Exists(ctx, entry.ReceiptNo)
		if err != nil || !exists {
			continue
		}
		logger.Info().
			Str("receipt_no", entry.ReceiptNo).
			Msg("frozen retry entry found on ledger, dropping")
		e.advanceCursor(ctx, entry.Group, logger)
		e.removeRetry(entry.ReceiptNo)
	}
}

// ── Retry queue bookkeeping ───────────────────────────────────────────────────
//
// The queue is only ever touched by the cycle goroutine, but the queue counts
// are surfaced through Stats() to concurrent readers. Every mutation goes
// through these two helpers so the counts in e.stats stay current under e.mu.

func (e *Engine) enqueueRetry(g model.ReceiptGroup, errMsg string) {
	e.retries.Fail(g, errMsg, time.Now())
	e.syncQueueCounts()
}

func (e *Engine) removeRetry(receiptNo string) {
	e.retries.Remove(receiptNo)
	e.syncQueueCounts()
}

func (e *Engine) syncQueueCounts() {
	size, failed := e.retries.Size(), e.retries.Failed()
	e.mu.Lock()
	e.stats.QueueSize = size
	e.stats.FailedCount = failed
	e.mu.Unlock()
}

// ── Watermark & cursor ────────────────────────────────────────────────────────

// resolveWatermark prefers the ledger's most recent receipt (authoritative
// across clients) and falls back to the local cursor. Remote errors are
// logged and swallowed. No watermark at all → fail closed.
func (e *Engine) resolveWatermark(ctx context.Context, logger zerolog.Logger) (model.Watermark, bool) {
	cursor := e.Cursor()

	remote, err := e.ldg.Recent(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("server watermark fetch failed, using local cursor")
	} else if remote != "" {
		if err := e.store.SaveLastServerReceipt(ctx, remote); err != nil {
			logger.Warn().Err(err).Msg("persisting server receipt number failed")
		}
		if remote == cursor.LastSyncedReceiptNo {
			// Same position — the local cursor also knows the date
			return cursor.Watermark(), true
		}
		logger.Info().Str("receipt_no", remote).Msg("using server-side watermark")
		return model.Watermark{ReceiptNo: remote}, true
	}

	if cursor.Empty() {
		return model.Watermark{}, false
	}
	return cursor.Watermark(), true
}

// advanceCursor moves the cursor monotonically and persists it immediately —
// after every successful or skipped-as-duplicate group, not at cycle end, so
// a crash mid-cycle never replays more than the in-flight group.
func (e *Engine) advanceCursor(ctx context.Context, g model.ReceiptGroup, logger zerolog.Logger) {
	rep := g.Rep()

	e.mu.Lock()
	next, moved := e.cursor.Advance(g.ReceiptNo, rep.Date)
	if moved {
		e.cursor = next
	}
	e.mu.Unlock()

	if !moved {
		return
	}
	if err := e.store.SaveCursor(ctx, next); err != nil {
		logger.Error().Err(err).Str("receipt_no", g.ReceiptNo).Msg("cursor persist failed")
	}
}

// ── Cycle bookkeeping ─────────────────────────────────────────────────────────

func (e *Engine) finishCycle(ctx context.Context, logger zerolog.Logger, lastError string) {
	e.mu.Lock()
	e.stats.LastSyncTime = time.Now().UTC()
	e.stats.LastError = lastError
	stats := e.stats
	e.mu.Unlock()

	if err := e.store.SaveStats(ctx, stats); err != nil {
		logger.Error().Err(err).Msg("stats persist failed")
	}

	e.setStatus(StatusIdle)
	e.obs.OnStats(e.Stats())
}

func (e *Engine) failCycle(ctx context.Context, logger zerolog.Logger, cause error) {
	e.mu.Lock()
	e.stats.LastError = cause.Error()
	stats := e.stats
	e.mu.Unlock()

	if err := e.store.SaveStats(ctx, stats); err != nil {
		logger.Error().Err(err).Msg("stats persist failed")
	}

	e.setStatus(StatusError)
	e.obs.OnStats(e.Stats())
}

func (e *Engine) setStatus(status string) {
	e.mu.Lock()
	e.status = status
	e.mu.Unlock()
	e.obs.OnStatus(status)
}

// ── Manual single-receipt sync ────────────────────────────────────────────────

// ForceManualSync targets exactly one receipt number, bypassing the bulk
// fetch but still passing through filter, transform and delivery. Dropped
// when a cycle is in flight.
func (e *Engine) ForceManualSync(ctx context.Context, receiptNo string) dto.ManualSyncResponse {
	if !e.syncing.CompareAndSwap(false, true) {
		return dto.ManualSyncResponse{Success: false, Message: "sync already in progress"}
	}
	defer e.syncing.Store(false)

	logger := log.With().Str("manual_receipt", receiptNo).Logger()

	legs, err := e.src.FetchSingle(ctx, receiptNo)
	if err != nil {
		return dto.ManualSyncResponse{Success: false, Message: err.Error()}
	}
	if len(legs) == 0 {
		return dto.ManualSyncResponse{Success: false, Message: "receipt not found in source database"}
	}

	groups := Group(legs)
	g := groups[0]

	reason, alreadySynced := e.filter.Check(ctx, g)
	if alreadySynced {
		e.advanceCursor(ctx, g, logger)
		return dto.ManualSyncResponse{Success: true, Message: "receipt already on ledger"}
	}
	if reason != "" {
		return dto.ManualSyncResponse{Success: false, Message: "receipt rejected: " + string(reason)}
	}

	items, err := e.src.FetchItems(ctx, g.SourceRowID())
	if err != nil {
		return dto.ManualSyncResponse{Success: false, Message: err.Error()}
	}

	outcome, err := e.deliver(ctx, e.tr.Transform(g, items))
	switch outcome {
	case deliverCreated:
		e.advanceCursor(ctx, g, logger)
		e.mu.Lock()
		e.stats.TotalSynced++
		stats := e.stats
		e.mu.Unlock()
		if err := e.store.SaveStats(ctx, stats); err != nil {
			logger.Error().Err(err).Msg("stats persist failed")
		}
		e.obs.OnStats(e.Stats())
		return dto.ManualSyncResponse{Success: true, Message: "receipt synced"}
	case deliverExists:
		e.advanceCursor(ctx, g, logger)
		return dto.ManualSyncResponse{Success: true, Message: "receipt already on ledger"}
	default:
		return dto.ManualSyncResponse{Success: false, Message: err.Error()}
	}
}
