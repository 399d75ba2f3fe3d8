// AngelaMos | 2026
// reconciler.go

package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pamojakenya/backend/internal/metrics"
)

// Reconciler periodically recomputes every member so a stored aggregate
// that drifted from history is repaired and reported.
type Reconciler struct {
	svc      *Service
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron

	mu      sync.Mutex
	lastRun ReconcileReport
}

type ReconcileReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Checked   int           `json:"checked"`
	Drifted   int           `json:"drifted"`
	Failed    int           `json:"failed"`
}

func NewReconciler(svc *Service, schedule string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		svc:      svc,
		schedule: schedule,
		logger:   logger.With("component", "reconciler"),
	}
}

// Start registers the job and starts the scheduler. Overlapping runs are
// skipped rather than queued.
func (r *Reconciler) Start(ctx context.Context) error {
	cl := cronLogger{r.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(r.schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("reconcile run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reconciler: %w", err)
	}

	r.cron = c
	c.Start()

	r.logger.Info("reconciler scheduled", "schedule", r.schedule)
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (r *Reconciler) Stop(ctx context.Context) error {
	if r.cron == nil {
		return nil
	}

	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce recomputes every member under its row lock. Individual failures
// are counted and logged; the run continues.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{StartedAt: time.Now().UTC()}

	ids, err := r.svc.readM.ListIDs(ctx)
	if err != nil {
		metrics.ObserveReconcile(err)
		return report, fmt.Errorf("list members: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			metrics.ObserveReconcile(err)
			return report, err
		}

		report.Checked++

		snap, changed, err := r.svc.recompute(ctx, id)
		if err != nil {
			report.Failed++
			r.logger.ErrorContext(ctx, "recompute failed", "member_id", id, "error", err)
			continue
		}

		if changed {
			report.Drifted++
			metrics.ObserveDrift()
			r.logger.WarnContext(ctx, "member aggregate drifted from history",
				"member_id", id,
				"shares_owned", snap.SharesOwned,
				"membership_status", snap.MembershipStatus,
			)
		}
	}

	report.Duration = time.Since(report.StartedAt)

	var runErr error
	if report.Failed > 0 {
		runErr = fmt.Errorf("%d of %d members failed to reconcile", report.Failed, report.Checked)
	}
	metrics.ObserveReconcile(runErr)

	r.mu.Lock()
	r.lastRun = report
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "reconcile finished",
		"checked", report.Checked,
		"drifted", report.Drifted,
		"failed", report.Failed,
		"duration", report.Duration,
	)

	return report, nil
}

// LastRun reports the most recent completed run.
func (r *Reconciler) LastRun() ReconcileReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
