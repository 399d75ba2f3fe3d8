// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/ledger"
	"github.com/pamojakenya/backend/internal/member"
)

type DatabasePool interface {
	Ping(ctx context.Context) error
	Stats() sql.DBStats
}

type RedisPool interface {
	Ping(ctx context.Context) error
	PoolStats() *redis.PoolStats
}

type MembershipCounter interface {
	Overview(ctx context.Context) ([]member.StatusCount, error)
}

type NotificationQueue interface {
	Pending() int
}

// Reconciler is the drift sweep as seen from the ops endpoints.
type Reconciler interface {
	RunOnce(ctx context.Context) (ledger.ReconcileReport, error)
	LastRun() ledger.ReconcileReport
}

// HandlerConfig wires the ops endpoints. Any field may be nil; the
// matching section is then left out of the overview.
type HandlerConfig struct {
	Database   DatabasePool
	Redis      RedisPool
	Members    MembershipCounter
	Queue      NotificationQueue
	Reconciler Reconciler
}

type Handler struct {
	cfg HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/admin/stats", h.Overview)
		r.Get("/admin/stats/membership", h.Membership)
		r.Post("/admin/reconcile", h.Reconcile)
	})
}

// Overview gathers the cooperative totals and the infrastructure state in
// one call for the admin console header.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := OpsOverview{Runtime: readRuntime()}

	// Each reader records its own failure and never returns an error.
	var g errgroup.Group
	if h.cfg.Members != nil {
		g.Go(func() error {
			if counts, err := h.cfg.Members.Overview(ctx); err == nil {
				out.Membership = summarizeMembership(counts)
			}
			return nil
		})
	}
	if h.cfg.Database != nil {
		g.Go(func() error {
			out.Database = databaseStatus(ctx, h.cfg.Database)
			return nil
		})
	}
	if h.cfg.Redis != nil {
		g.Go(func() error {
			out.Redis = redisStatus(ctx, h.cfg.Redis)
			return nil
		})
	}
	_ = g.Wait()

	if h.cfg.Queue != nil {
		out.Notifications = &QueueStatus{Pending: h.cfg.Queue.Pending()}
	}
	if h.cfg.Reconciler != nil {
		if last := h.cfg.Reconciler.LastRun(); !last.StartedAt.IsZero() {
			out.LastReconcile = &last
		}
	}

	core.OK(w, out)
}

func (h *Handler) Membership(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Members == nil {
		core.OK(w, summarizeMembership(nil))
		return
	}

	counts, err := h.cfg.Members.Overview(r.Context())
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, summarizeMembership(counts))
}

// Reconcile runs one drift sweep immediately and returns its report.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Reconciler == nil {
		core.NotFound(w, "reconciler")
		return
	}

	report, err := h.cfg.Reconciler.RunOnce(r.Context())
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, report)
}

func summarizeMembership(counts []member.StatusCount) *MembershipOverview {
	mo := &MembershipOverview{ByStatus: counts}
	if mo.ByStatus == nil {
		mo.ByStatus = []member.StatusCount{}
	}
	for _, c := range counts {
		mo.Members += c.Members
		mo.Shares += c.Shares
		if c.MembershipStatus == member.StatusActive {
			mo.Active = c.Members
		}
	}
	return mo
}

func databaseStatus(ctx context.Context, db DatabasePool) *PoolStatus {
	s := db.Stats()
	return &PoolStatus{
		Healthy: db.Ping(ctx) == nil,
		Open:    s.OpenConnections,
		InUse:   s.InUse,
		Idle:    s.Idle,
		Waits:   s.WaitCount,
		WaitFor: s.WaitDuration.String(),
	}
}

func redisStatus(ctx context.Context, rdb RedisPool) *PoolStatus {
	s := rdb.PoolStats()
	return &PoolStatus{
		Healthy:  rdb.Ping(ctx) == nil,
		Open:     int(s.TotalConns),
		Idle:     int(s.IdleConns),
		Timeouts: int64(s.Timeouts),
	}
}

func readRuntime() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RuntimeStats{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		HeapBytes:  mem.HeapAlloc,
		NumGC:      mem.NumGC,
	}
}

type OpsOverview struct {
	Membership    *MembershipOverview     `json:"membership,omitempty"`
	Notifications *QueueStatus            `json:"notifications,omitempty"`
	LastReconcile *ledger.ReconcileReport `json:"last_reconcile,omitempty"`
	Database      *PoolStatus             `json:"database,omitempty"`
	Redis         *PoolStatus             `json:"redis,omitempty"`
	Runtime       RuntimeStats            `json:"runtime"`
}

type MembershipOverview struct {
	Members  int                  `json:"members"`
	Active   int                  `json:"active"`
	Shares   int                  `json:"shares"`
	ByStatus []member.StatusCount `json:"by_status"`
}

type QueueStatus struct {
	Pending int `json:"pending"`
}

type PoolStatus struct {
	Healthy  bool   `json:"healthy"`
	Open     int    `json:"open"`
	InUse    int    `json:"in_use,omitempty"`
	Idle     int    `json:"idle"`
	Waits    int64  `json:"waits,omitempty"`
	WaitFor  string `json:"wait_for,omitempty"`
	Timeouts int64  `json:"timeouts,omitempty"`
}

type RuntimeStats struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	HeapBytes  uint64 `json:"heap_bytes"`
	NumGC      uint32 `json:"num_gc"`
}
