package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/catsync/backend/internal/domain/catalog"
	syncdomain "github.com/catsync/backend/internal/domain/sync"
	"github.com/catsync/backend/internal/domain/vendor"
	"github.com/catsync/backend/internal/infrastructure/vendorfeed"
)

// ErrVendorInactive is returned when a sync is requested for a vendor whose
// definition is disabled.
var ErrVendorInactive = errors.New("vendor is not active")

// CredentialSource yields decrypted credential fields for a pair. It is
// satisfied by the credential vault service.
type CredentialSource interface {
	Plaintext(ctx context.Context, tenantID uuid.UUID, vendorCode string) (vendor.Credentials, error)
}

// ChangeDetector decides whether a fetched feed differs from the last fully
// imported one.
type ChangeDetector interface {
	HasChanged(ctx context.Context, tenantID uuid.UUID, vendorCode string, data []byte) (bool, string, error)
}

// OrchestratorParams bundles the collaborators of the orchestrator.
type OrchestratorParams struct {
	Definitions vendor.DefinitionRepository
	Credentials CredentialSource
	Registry    vendor.HandlerRegistry
	Runs        syncdomain.RunRepository
	Snapshots   syncdomain.SnapshotRepository
	Mappings    catalog.VendorProductMappingRepository
	Detector    ChangeDetector
	Importer    *FeedImporter
	Merger      *MergeService
	Retry       vendorfeed.RetryPolicy
	// StuckRunThreshold is the fallback age past which an in_progress run is
	// considered abandoned; per-vendor staleness thresholds take precedence
	// for the pair being started.
	StuckRunThreshold time.Duration
	Logger            *zap.Logger
}

// ---------------------------------------------------------------------------
// SyncOrchestrator
// ---------------------------------------------------------------------------

// SyncOrchestrator drives one vendor feed synchronization end to end:
// fetch, change detection, import, master record merge, and run finalization.
// At most one run per (tenant, vendor) pair is in flight at a time; the
// claim is made atomically through the run repository.
type SyncOrchestrator struct {
	defs      vendor.DefinitionRepository
	creds     CredentialSource
	registry  vendor.HandlerRegistry
	runs      syncdomain.RunRepository
	snapshots syncdomain.SnapshotRepository
	mappings  catalog.VendorProductMappingRepository
	detector  ChangeDetector
	importer  *FeedImporter
	merger    *MergeService
	retry     vendorfeed.RetryPolicy
	stuckAge  time.Duration
	logger    *zap.Logger
}

// NewSyncOrchestrator creates a new SyncOrchestrator
func NewSyncOrchestrator(p OrchestratorParams) *SyncOrchestrator {
	stuckAge := p.StuckRunThreshold
	if stuckAge <= 0 {
		stuckAge = vendor.DefaultStalenessThreshold
	}
	return &SyncOrchestrator{
		defs:      p.Definitions,
		creds:     p.Credentials,
		registry:  p.Registry,
		runs:      p.Runs,
		snapshots: p.Snapshots,
		mappings:  p.Mappings,
		detector:  p.Detector,
		importer:  p.Importer,
		merger:    p.Merger,
		retry:     p.Retry,
		stuckAge:  stuckAge,
		logger:    p.Logger.Named("orchestrator"),
	}
}

// Run executes one synchronization attempt for the pair. It returns the
// finished run record; pipeline failures finish the run as error and are
// also returned to the caller. A concurrent run for the same pair yields
// ErrRunConflict without creating side effects beyond the rejected record.
func (o *SyncOrchestrator) Run(ctx context.Context, tenantID uuid.UUID, vendorCode string, mode syncdomain.TriggerMode) (*syncdomain.SyncRun, error) {
	if !mode.IsValid() {
		return nil, syncdomain.ErrInvalidMode
	}

	def, err := o.defs.FindByCode(ctx, vendorCode)
	if err != nil {
		return nil, err
	}
	if !def.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrVendorInactive, vendorCode)
	}

	if err := o.recoverStuckForPair(ctx, tenantID, def); err != nil {
		return nil, err
	}

	run, err := syncdomain.NewSyncRun(tenantID, vendorCode, mode)
	if err != nil {
		return nil, err
	}
	if err := o.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("creating run record: %w", err)
	}
	if err := o.runs.TryStart(ctx, run); err != nil {
		return run, err
	}

	logger := o.logger.With(
		zap.String("run_id", run.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("vendor_code", vendorCode),
		zap.String("mode", string(mode)))
	logger.Info("sync run started")

	counts, err := o.execute(ctx, logger, run, def)
	if err != nil {
		return o.finishFailed(run, logger, err)
	}
	if err := run.Succeed(counts); err != nil {
		return run, err
	}
	if err := o.runs.Update(context.WithoutCancel(ctx), run); err != nil {
		return run, fmt.Errorf("persisting finished run: %w", err)
	}
	logger.Info("sync run finished",
		zap.Int("seen", counts.Seen),
		zap.Int("created", counts.Created),
		zap.Int("updated", counts.Updated),
		zap.Int("skipped", counts.Skipped),
		zap.Int("failed", counts.Failed))
	return run, nil
}

// execute performs the pipeline stages after the run has been claimed.
func (o *SyncOrchestrator) execute(ctx context.Context, logger *zap.Logger, run *syncdomain.SyncRun, def *vendor.VendorDefinition) (syncdomain.RunCounts, error) {
	var zero syncdomain.RunCounts

	creds, err := o.creds.Plaintext(ctx, run.TenantID, def.Code)
	if err != nil {
		return zero, fmt.Errorf("loading credentials: %w", err)
	}
	handler, err := o.registry.Get(def.Code)
	if err != nil {
		return zero, err
	}

	var data []byte
	err = o.retry.Do(ctx, logger, func(ctx context.Context) error {
		var fetchErr error
		data, fetchErr = handler.FetchFeed(ctx, def, creds)
		return fetchErr
	})
	if err != nil {
		return zero, fmt.Errorf("fetching feed: %w", err)
	}
	logger.Debug("feed fetched", zap.Int("bytes", len(data)))

	changed, feedHash, err := o.detector.HasChanged(ctx, run.TenantID, def.Code, data)
	if err != nil {
		return zero, fmt.Errorf("checking feed for changes: %w", err)
	}
	if !changed && run.Mode != syncdomain.TriggerModeForced {
		logger.Info("feed unchanged since last import, skipping",
			zap.String("feed_hash", feedHash))
		return zero, nil
	}

	rows, parseErrs, err := handler.ParseRows(def, data)
	if err != nil {
		return zero, fmt.Errorf("parsing feed: %w", err)
	}

	result, err := o.importer.Import(ctx, run.TenantID, def, rows, parseErrs, run.ID)
	if err != nil {
		return zero, err
	}
	if result.TotalErrors > 0 {
		logger.Warn("feed rows rejected during import",
			zap.Int("failed", result.Counts.Failed),
			zap.Int("reported", len(result.Errors)),
			zap.Bool("truncated", result.Truncated))
	}

	affected := result.AffectedUniversalIDs
	if run.Mode == syncdomain.TriggerModeFull {
		withdrawn, err := o.mappings.DeactivateMissing(ctx, run.TenantID, def.Code, run.ID)
		if err != nil {
			return zero, fmt.Errorf("deactivating missing mappings: %w", err)
		}
		if len(withdrawn) > 0 {
			logger.Info("mappings withdrawn from feed", zap.Int("count", len(withdrawn)))
			affected = mergeIDs(affected, withdrawn)
		}
	}

	if err := o.merger.RecomputeProducts(ctx, affected); err != nil {
		return zero, err
	}

	// The snapshot hash only advances once every row of the feed has been
	// applied; a partially failed feed is re-detected as changed next run.
	if result.Complete {
		snapshot := syncdomain.NewFeedSnapshot(run.TenantID, def.Code, feedHash)
		if err := o.snapshots.Save(ctx, snapshot); err != nil {
			return zero, fmt.Errorf("recording feed snapshot: %w", err)
		}
	}
	return result.Counts, nil
}

// finishFailed records the terminal error state, distinguishing cooperative
// cancellation from genuine failures. Persistence of the terminal state
// deliberately ignores the (possibly cancelled) request context.
func (o *SyncOrchestrator) finishFailed(run *syncdomain.SyncRun, logger *zap.Logger, cause error) (*syncdomain.SyncRun, error) {
	message := cause.Error()
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		message = "cancelled: " + message
	}
	if err := run.Fail(message); err != nil {
		return run, err
	}
	if err := o.runs.Update(context.Background(), run); err != nil {
		logger.Error("failed to persist run failure", zap.Error(err))
	}
	logger.Error("sync run failed", zap.String("reason", message))
	return run, cause
}

// recoverStuckForPair force-fails an in_progress run for the pair that has
// outlived the vendor's staleness threshold, freeing the slot for this
// attempt. A healthy in_progress run is left alone; TryStart will reject us.
func (o *SyncOrchestrator) recoverStuckForPair(ctx context.Context, tenantID uuid.UUID, def *vendor.VendorDefinition) error {
	current, err := o.runs.FindInProgress(ctx, tenantID, def.Code)
	if err != nil {
		if errors.Is(err, syncdomain.ErrRunNotFound) {
			return nil
		}
		return err
	}
	if current == nil || !current.IsStuck(def.Staleness(), time.Now()) {
		return nil
	}
	reason := fmt.Sprintf("interrupted: run exceeded the %s staleness threshold", def.Staleness())
	if err := current.MarkInterrupted(reason); err != nil {
		return err
	}
	if err := o.runs.Update(ctx, current); err != nil {
		return fmt.Errorf("recovering stuck run %s: %w", current.ID, err)
	}
	o.logger.Warn("recovered stuck sync run",
		zap.String("run_id", current.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("vendor_code", def.Code),
		zap.String("reason", reason))
	return nil
}

// RecoverStuckRuns sweeps every in_progress run older than the configured
// threshold and force-fails it. The scheduler calls this periodically so
// crashed runs do not hold their pair's slot forever.
func (o *SyncOrchestrator) RecoverStuckRuns(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-o.stuckAge)
	stuck, err := o.runs.FindStuck(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for i := range stuck {
		run := &stuck[i]
		reason := fmt.Sprintf("interrupted: run exceeded the %s staleness threshold", o.stuckAge)
		if err := run.MarkInterrupted(reason); err != nil {
			continue
		}
		if err := o.runs.Update(ctx, run); err != nil {
			return recovered, fmt.Errorf("recovering stuck run %s: %w", run.ID, err)
		}
		o.logger.Warn("recovered stuck sync run",
			zap.String("run_id", run.ID.String()),
			zap.String("tenant_id", run.TenantID.String()),
			zap.String("vendor_code", run.VendorCode))
		recovered++
	}
	return recovered, nil
}

// History returns recent runs for a pair, newest first.
func (o *SyncOrchestrator) History(ctx context.Context, tenantID uuid.UUID, vendorCode string, limit int) ([]syncdomain.SyncRun, error) {
	return o.runs.ListForVendor(ctx, tenantID, vendorCode, limit)
}

// mergeIDs unions two universal identifier lists, keeping the result sorted
// for deterministic merge order.
func mergeIDs(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		set[id] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
