// Package scheduler triggers periodic feed synchronization for every
// (tenant, vendor) pair with a usable credential, and sweeps stuck runs.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	syncapp "github.com/catsync/backend/internal/application/sync"
	syncdomain "github.com/catsync/backend/internal/domain/sync"
	"github.com/catsync/backend/internal/domain/vendor"
)

// SyncRunner starts one synchronization attempt for a pair.
type SyncRunner interface {
	Run(ctx context.Context, tenantID uuid.UUID, vendorCode string, mode syncdomain.TriggerMode) (*syncdomain.SyncRun, error)
	RecoverStuckRuns(ctx context.Context) (int, error)
}

// Config holds scheduler configuration
type Config struct {
	// Interval is how often the scheduler plans a sweep
	Interval time.Duration
	// MaxConcurrentRuns bounds how many vendor syncs execute at once
	MaxConcurrentRuns int
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Interval:          15 * time.Minute,
		MaxConcurrentRuns: 4,
	}
}

// SyncScheduler drives incremental syncs on a fixed interval. Pairs whose
// vendor is inactive or whose run slot is busy are skipped; a skipped pair is
// simply picked up on a later sweep.
type SyncScheduler struct {
	config Config
	runner SyncRunner
	defs   vendor.DefinitionRepository
	creds  vendor.CredentialRepository
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a new SyncScheduler
func NewSyncScheduler(
	config Config,
	runner SyncRunner,
	defs vendor.DefinitionRepository,
	creds vendor.CredentialRepository,
	logger *zap.Logger,
) *SyncScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.MaxConcurrentRuns <= 0 {
		config.MaxConcurrentRuns = DefaultConfig().MaxConcurrentRuns
	}
	return &SyncScheduler{
		config: config,
		runner: runner,
		defs:   defs,
		creds:  creds,
		logger: logger.Named("scheduler"),
	}
}

// Start starts the scheduling loop
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("sync scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("max_concurrent_runs", s.config.MaxConcurrentRuns))
	return nil
}

// Stop stops the scheduling loop and waits for in-flight syncs
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sync scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SyncScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one scheduling pass: recover stuck runs, then trigger an
// incremental sync for every eligible (tenant, vendor) pair.
func (s *SyncScheduler) Sweep(ctx context.Context) {
	if recovered, err := s.runner.RecoverStuckRuns(ctx); err != nil {
		s.logger.Error("stuck run sweep failed", zap.Error(err))
	} else if recovered > 0 {
		s.logger.Info("stuck runs recovered", zap.Int("count", recovered))
	}

	pairs, err := s.planPairs(ctx)
	if err != nil {
		s.logger.Error("sweep planning failed", zap.Error(err))
		return
	}
	if len(pairs) == 0 {
		return
	}

	sem := make(chan struct{}, s.config.MaxConcurrentRuns)
	var wg sync.WaitGroup
	for _, p := range pairs {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(p syncPair) {
			defer wg.Done()
			defer func() { <-sem }()
			s.runOne(ctx, p)
		}(p)
	}
	wg.Wait()
}

type syncPair struct {
	tenantID   uuid.UUID
	vendorCode string
}

// planPairs joins usable credentials with active vendor definitions.
func (s *SyncScheduler) planPairs(ctx context.Context) ([]syncPair, error) {
	defs, err := s.defs.FindAllActive(ctx)
	if err != nil {
		return nil, err
	}
	active := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		active[def.Code] = struct{}{}
	}

	creds, err := s.creds.FindAllUsable(ctx)
	if err != nil {
		return nil, err
	}

	pairs := make([]syncPair, 0, len(creds))
	for _, cred := range creds {
		if _, ok := active[cred.VendorCode]; !ok {
			continue
		}
		pairs = append(pairs, syncPair{tenantID: cred.TenantID, vendorCode: cred.VendorCode})
	}
	return pairs, nil
}

func (s *SyncScheduler) runOne(ctx context.Context, p syncPair) {
	run, err := s.runner.Run(ctx, p.tenantID, p.vendorCode, syncdomain.TriggerModeIncremental)
	switch {
	case err == nil:
		s.logger.Debug("scheduled sync finished",
			zap.String("tenant_id", p.tenantID.String()),
			zap.String("vendor_code", p.vendorCode),
			zap.Int("seen", run.Counts.Seen))
	case errors.Is(err, syncdomain.ErrRunConflict):
		// Another trigger beat us to the slot.
		s.logger.Debug("scheduled sync skipped, run in progress",
			zap.String("tenant_id", p.tenantID.String()),
			zap.String("vendor_code", p.vendorCode))
	case errors.Is(err, syncapp.ErrVendorInactive):
		s.logger.Debug("scheduled sync skipped, vendor inactive",
			zap.String("vendor_code", p.vendorCode))
	default:
		s.logger.Warn("scheduled sync failed",
			zap.String("tenant_id", p.tenantID.String()),
			zap.String("vendor_code", p.vendorCode),
			zap.Error(err))
	}
}
