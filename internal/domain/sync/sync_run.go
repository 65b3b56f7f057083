package sync

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrRunNotFound     = errors.New("sync: sync run not found")
	ErrRunNotIdle      = errors.New("sync: run has already been started")
	ErrRunNotRunning   = errors.New("sync: run is not in progress")
	ErrRunConflict     = errors.New("sync: another run is already in progress for this tenant and vendor")
	ErrInvalidMode     = errors.New("sync: invalid trigger mode")
	ErrSnapshotMissing = errors.New("sync: no feed snapshot recorded")
)

// ---------------------------------------------------------------------------
// RunStatus
// ---------------------------------------------------------------------------

// RunStatus is the state of one sync attempt. The legal transitions are
// idle → in_progress → success and idle → in_progress → error; both terminal
// states permit a fresh run to start.
type RunStatus string

const (
	RunStatusIdle       RunStatus = "idle"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusSuccess    RunStatus = "success"
	RunStatusError      RunStatus = "error"
)

// IsValid returns true if the status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusIdle, RunStatusInProgress, RunStatusSuccess, RunStatusError:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for final states
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSuccess || s == RunStatusError
}

// String returns the string representation of RunStatus
func (s RunStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// TriggerMode
// ---------------------------------------------------------------------------

// TriggerMode selects how a sync run treats the prior state. incremental skips
// the import when the feed hash is unchanged; full additionally deactivates
// mappings absent from the feed; forced bypasses the change check entirely.
type TriggerMode string

const (
	TriggerModeIncremental TriggerMode = "incremental"
	TriggerModeFull        TriggerMode = "full"
	TriggerModeForced      TriggerMode = "forced"
)

// IsValid returns true if the mode is valid
func (m TriggerMode) IsValid() bool {
	switch m {
	case TriggerModeIncremental, TriggerModeFull, TriggerModeForced:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// RunCounts
// ---------------------------------------------------------------------------

// RunCounts carries the per-run record tallies surfaced to callers. A run
// that imported most rows with a few failures is still a success; the counts
// tell the full story.
type RunCounts struct {
	Seen    int `json:"seen"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ---------------------------------------------------------------------------
// SyncRun
// ---------------------------------------------------------------------------

// SyncRun is one attempt to synchronize one vendor's feed for one tenant.
// Runs are append/update-only audit records: one row per attempt, never
// deleted. The invariant that at most one run per (tenant, vendor) may be
// in_progress at a time is enforced by the repository's atomic conditional
// start, not by this entity.
type SyncRun struct {
	// ID is the unique identifier of the run
	ID uuid.UUID
	// TenantID is the tenant being synced
	TenantID uuid.UUID
	// VendorCode is the vendor being synced
	VendorCode string
	// Mode is the trigger mode for this attempt
	Mode TriggerMode
	// Status is the current state
	Status RunStatus
	// Counts carries the record tallies
	Counts RunCounts
	// ErrorMessage is set on terminal error
	ErrorMessage string
	// StartedAt is when the run entered in_progress
	StartedAt *time.Time
	// FinishedAt is when the run reached a terminal state
	FinishedAt *time.Time
	// CreatedAt is when the run record was created
	CreatedAt time.Time
	// UpdatedAt is when the run record was last updated
	UpdatedAt time.Time
}

// NewSyncRun creates an idle run record for one attempt
func NewSyncRun(tenantID uuid.UUID, vendorCode string, mode TriggerMode) (*SyncRun, error) {
	if !mode.IsValid() {
		return nil, ErrInvalidMode
	}
	now := time.Now()
	return &SyncRun{
		ID:         uuid.New(),
		TenantID:   tenantID,
		VendorCode: vendorCode,
		Mode:       mode,
		Status:     RunStatusIdle,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Start transitions the run into in_progress
func (r *SyncRun) Start() error {
	if r.Status != RunStatusIdle {
		return ErrRunNotIdle
	}
	now := time.Now()
	r.Status = RunStatusInProgress
	r.StartedAt = &now
	r.UpdatedAt = now
	return nil
}

// Succeed finishes the run with its counts. Partial row failures do not
// demote a run to error; they are reported through the counts.
func (r *SyncRun) Succeed(counts RunCounts) error {
	if r.Status != RunStatusInProgress {
		return ErrRunNotRunning
	}
	now := time.Now()
	r.Status = RunStatusSuccess
	r.Counts = counts
	r.ErrorMessage = ""
	r.FinishedAt = &now
	r.UpdatedAt = now
	return nil
}

// Fail finishes the run with a terminal error message
func (r *SyncRun) Fail(message string) error {
	if r.Status != RunStatusInProgress {
		return ErrRunNotRunning
	}
	now := time.Now()
	r.Status = RunStatusError
	r.ErrorMessage = message
	r.FinishedAt = &now
	r.UpdatedAt = now
	return nil
}

// MarkInterrupted is the watchdog transition for stuck runs: a run still
// in_progress past the vendor's staleness threshold is force-failed with a
// reason noting the interruption. Recovery never retries automatically; the
// next trigger performs the actual retry.
func (r *SyncRun) MarkInterrupted(reason string) error {
	if r.Status != RunStatusInProgress {
		return ErrRunNotRunning
	}
	now := time.Now()
	r.Status = RunStatusError
	r.ErrorMessage = reason
	r.FinishedAt = &now
	r.UpdatedAt = now
	return nil
}

// IsStuck reports whether an in_progress run has exceeded the staleness
// threshold measured from its start time.
func (r *SyncRun) IsStuck(threshold time.Duration, now time.Time) bool {
	if r.Status != RunStatusInProgress || r.StartedAt == nil {
		return false
	}
	return now.Sub(*r.StartedAt) > threshold
}
