// AngelaMos | 2026
// service.go

package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/member"
	"github.com/pamojakenya/backend/internal/metrics"
	"github.com/pamojakenya/backend/internal/notify"
	"github.com/pamojakenya/backend/internal/review"
)

// maxAmount is the largest value NUMERIC(12,2) holds.
var maxAmount = decimal.RequireFromString("9999999999.99")

// maxShares caps the shares one entry may move so balances stay within the
// INTEGER share columns.
const maxShares = 1_000_000

var errInsufficientShares = fmt.Errorf("insufficient shares: %w", core.ErrValidation)

// MemberStore is the slice of member persistence the ledger needs.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (*member.Member, error)
	GetForUpdate(ctx context.Context, id string) (*member.Member, error)
	UpdateAggregate(ctx context.Context, id string, agg member.Aggregate) error
	ListHolding(ctx context.Context, minShares int) ([]member.Member, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// Notifier receives events after their transaction commits.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

type ProofStore interface {
	Save(ctx context.Context, prefix, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Stores builds repositories bound to either the pool or a transaction.
type Stores struct {
	Entries func(core.DBTX) Repository
	Members func(core.DBTX) MemberStore
}

func SQLStores() Stores {
	return Stores{
		Entries: NewRepository,
		Members: func(db core.DBTX) MemberStore { return member.NewRepository(db) },
	}
}

type ServiceConfig struct {
	DB       core.DBTX
	Tx       core.Transactor
	Stores   Stores
	Proofs   ProofStore
	Notifier Notifier
	Policy   Policy
	Logger   *slog.Logger
	Clock    func() time.Time
}

type Service struct {
	tx       core.Transactor
	entries  func(core.DBTX) Repository
	members  func(core.DBTX) MemberStore
	read     Repository
	readM    MemberStore
	proofs   ProofStore
	notifier Notifier
	policy   Policy
	logger   *slog.Logger
	now      func() time.Time
	tracer   trace.Tracer
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Stores.Entries == nil || cfg.Stores.Members == nil {
		cfg.Stores = SQLStores()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Service{
		tx:       cfg.Tx,
		entries:  cfg.Stores.Entries,
		members:  cfg.Stores.Members,
		read:     cfg.Stores.Entries(cfg.DB),
		readM:    cfg.Stores.Members(cfg.DB),
		proofs:   cfg.Proofs,
		notifier: cfg.Notifier,
		policy:   cfg.Policy,
		logger:   cfg.Logger,
		now:      cfg.Clock,
		tracer:   otel.Tracer("github.com/pamojakenya/backend/internal/ledger"),
	}
}

func (s *Service) Policy() Policy {
	return s.policy
}

// Submit records a pending entry for memberID. Nothing on the member row
// changes until the entry is approved.
func (s *Service) Submit(
	ctx context.Context,
	memberID string,
	in SubmitInput,
) (*Entry, error) {
	if memberID == "" {
		return nil, fmt.Errorf("submit entry: %w", core.ErrUnauthorized)
	}

	if err := s.validateSubmission(in); err != nil {
		return nil, err
	}

	if _, err := s.readM.GetByID(ctx, memberID); err != nil {
		return nil, fmt.Errorf("submit entry: %w", err)
	}

	now := s.now().UTC()
	e := &Entry{
		ID:              uuid.New().String(),
		MemberID:        memberID,
		Kind:            in.Kind,
		Amount:          in.Amount,
		Method:          in.Method,
		TransactionID:   in.TransactionID,
		ReferenceID:     NewReferenceID(now),
		Description:     in.Description,
		Status:          review.StatusPending,
		SharesRequested: in.SharesRequested,
	}

	if in.Proof != nil && s.proofs != nil {
		ref, err := s.proofs.Save(ctx, "proofs/"+string(in.Kind), in.Proof.Filename, in.Proof.Body)
		if err != nil {
			return nil, fmt.Errorf("proof: %w", err)
		}
		e.ProofRef = &ref
	}

	if err := s.read.Create(ctx, e); err != nil {
		if e.ProofRef != nil {
			if delErr := s.proofs.Delete(ctx, *e.ProofRef); delErr != nil {
				s.logger.WarnContext(ctx, "orphaned proof document",
					"ref", *e.ProofRef, "error", delErr)
			}
		}
		return nil, err
	}

	metrics.ObserveSubmission(string(e.Kind))
	return e, nil
}

func (s *Service) validateSubmission(in SubmitInput) error {
	if !in.Amount.IsPositive() {
		return core.Validationf("amount must be greater than zero")
	}
	if in.Amount.GreaterThan(maxAmount) {
		return core.Validationf("amount must be at most %s", maxAmount.StringFixed(2))
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return core.Validationf("amount must have at most two decimal places")
	}

	if !in.Kind.Valid() {
		return core.Validationf("unknown entry kind %q", in.Kind)
	}
	if !in.Kind.Submittable() {
		return core.Validationf("%s entries cannot be submitted", in.Kind)
	}

	if !in.Method.Selectable() {
		return core.Validationf("unknown payment method %q", in.Method)
	}

	if in.Kind.RequiresProof() && in.Proof == nil {
		return core.Validationf("proof is required for %s", in.Kind)
	}

	if in.Kind == KindSharePurchase {
		implied := s.policy.ImpliedShares(in.Amount)
		if implied < 1 {
			return core.Validationf(
				"amount must cover at least one share at %s",
				s.policy.SharePrice.StringFixed(2),
			)
		}
		if in.SharesRequested != nil {
			if *in.SharesRequested < 1 {
				return core.Validationf("shares_requested must be greater than zero")
			}
			if in.Amount.LessThan(s.policy.Cost(*in.SharesRequested)) {
				return core.Validationf(
					"amount %s does not cover %d shares",
					in.Amount.StringFixed(2), *in.SharesRequested,
				)
			}
		}
	} else if in.SharesRequested != nil {
		return core.Validationf("shares_requested only applies to share purchases")
	}

	return nil
}

// Review applies an admin decision to a pending entry. The entry and the
// member are locked for the whole transition, and on approval the member
// aggregate is recomputed from history before commit. Exactly one
// notification is queued once the transaction has committed.
func (s *Service) Review(ctx context.Context, in ReviewInput) (*Entry, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Review", trace.WithAttributes(
		attribute.String("entry.id", in.EntryID),
		attribute.String("review.decision", string(in.Decision)),
	))
	defer span.End()

	if !in.Reviewer.IsAdmin {
		return nil, fmt.Errorf("review entry: %w", core.ErrForbidden)
	}

	start := time.Now()
	kind := "unknown"

	var (
		entry *Entry
		owner *member.Member
		snap  Snapshot
	)

	err := s.tx.InTx(ctx, func(tx core.DBTX) error {
		entries := s.entries(tx)
		members := s.members(tx)

		e, err := entries.GetForUpdate(ctx, in.EntryID)
		if err != nil {
			return err
		}
		kind = string(e.Kind)

		stamp, err := review.Transition(e.Status, in.Decision, in.Reviewer, in.Notes, s.now())
		if err != nil {
			return err
		}

		m, err := members.GetForUpdate(ctx, e.MemberID)
		switch {
		case errors.Is(err, core.ErrNotFound) && stamp.Status == review.StatusRejected:
			// A closed account's entries may still be rejected.
			m = nil
		case errors.Is(err, core.ErrNotFound):
			return fmt.Errorf("entry owner has closed their account: %w", core.ErrStateConflict)
		case err != nil:
			return err
		}

		if stamp.Status == review.StatusApproved {
			if err := s.applyApproval(e, in); err != nil {
				return err
			}
		}
		e.applyStamp(stamp)

		if err := entries.MarkReviewed(ctx, e); err != nil {
			return err
		}

		if stamp.Status == review.StatusApproved {
			snap, _, err = s.recomputeLocked(ctx, entries, members, m)
			if err != nil {
				return err
			}
		} else if m != nil {
			snap = snapshotOf(m)
		}

		entry, owner = e, m
		return nil
	})

	metrics.ObserveReview(kind, string(in.Decision), err, time.Since(start))

	if err != nil {
		span.SetStatus(codes.Error, "review failed")
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("review entry: %w", err)
	}

	core.AddSpanEvent(ctx, "entry.reviewed",
		attribute.String("entry.kind", kind),
		attribute.String("entry.status", string(entry.Status)),
		attribute.Int("member.shares_owned", snap.SharesOwned),
	)

	if owner != nil {
		s.notifier.Notify(ctx, reviewEvent(entry, owner, in.Decision, snap))
	}

	return entry, nil
}

// applyApproval fills the per-kind columns an approval writes.
func (s *Service) applyApproval(e *Entry, in ReviewInput) error {
	switch e.Kind {
	case KindSharePurchase:
		shares := s.policy.ImpliedShares(e.Amount)
		if in.SharesAssigned != nil {
			shares = *in.SharesAssigned
		}
		if shares < 1 {
			return core.Validationf("shares_assigned must be greater than zero")
		}
		if shares > maxShares {
			return core.Validationf("shares_assigned must be at most %d", maxShares)
		}
		e.SharesAssigned = &shares

	case KindClaimPayout:
		approved := e.Amount
		if in.AmountApproved != nil {
			approved = *in.AmountApproved
		}
		if !approved.IsPositive() {
			return core.Validationf("amount_approved must be greater than zero")
		}
		if !approved.Equal(approved.Round(2)) || approved.GreaterThan(maxAmount) {
			return core.Validationf("amount_approved is out of range")
		}
		e.AmountApproved = decimal.NewNullDecimal(approved)

	default:
		if in.SharesAssigned != nil {
			return core.Validationf("shares_assigned only applies to share purchases")
		}
		if in.AmountApproved != nil {
			return core.Validationf("amount_approved only applies to claims")
		}
	}

	return nil
}

// Recompute re-derives memberID's aggregate from approved history under
// the member row lock and persists it when it differs.
func (s *Service) Recompute(ctx context.Context, memberID string) (Snapshot, error) {
	snap, _, err := s.recompute(ctx, memberID)
	return snap, err
}

func (s *Service) recompute(
	ctx context.Context,
	memberID string,
) (snap Snapshot, changed bool, err error) {
	err = s.tx.InTx(ctx, func(tx core.DBTX) error {
		members := s.members(tx)
		m, err := members.GetForUpdate(ctx, memberID)
		if err != nil {
			return err
		}
		snap, changed, err = s.recomputeLocked(ctx, s.entries(tx), members, m)
		return err
	})
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("recompute member: %w", err)
	}
	return snap, changed, nil
}

// recomputeLocked assumes m was read with GetForUpdate in the current
// transaction. It updates m in place.
func (s *Service) recomputeLocked(
	ctx context.Context,
	entries Repository,
	members MemberStore,
	m *member.Member,
) (Snapshot, bool, error) {
	approved, err := entries.ListApproved(ctx, m.ID)
	if err != nil {
		return Snapshot{}, false, err
	}

	snap := Recompute(s.policy, Basis{
		CurrentStatus:  m.MembershipStatus,
		MembershipType: m.MembershipType,
	}, approved)

	agg := snap.Aggregate()
	if agg.Equal(m.Aggregate()) {
		return snap, false, nil
	}

	if err := members.UpdateAggregate(ctx, m.ID, agg); err != nil {
		return Snapshot{}, false, err
	}
	m.SharesOwned = agg.SharesOwned
	m.MembershipStatus = agg.MembershipStatus
	m.ActivationDate = agg.ActivationDate

	return snap, true, nil
}

// Snapshot recomputes without locking or persisting. Dashboards use it to
// show what history implies even if the stored row lags.
func (s *Service) Snapshot(ctx context.Context, m *member.Member) (Snapshot, []Entry, error) {
	history, err := s.read.ListForMember(ctx, m.ID)
	if err != nil {
		return Snapshot{}, nil, err
	}

	snap := Recompute(s.policy, Basis{
		CurrentStatus:  m.MembershipStatus,
		MembershipType: m.MembershipType,
	}, history)

	return snap, history, nil
}

// DeductShares removes shares from one member by recording a system
// share_deduction entry and approving it in the same transaction. A
// deduction larger than the current balance is rejected.
func (s *Service) DeductShares(
	ctx context.Context,
	reviewer review.Reviewer,
	memberID string,
	shares int,
	reason string,
) (*Entry, Snapshot, error) {
	if err := checkDeduction(reviewer, shares); err != nil {
		return nil, Snapshot{}, err
	}
	return s.deduct(ctx, reviewer, memberID, shares, reason)
}

// DeductSharesFromAll deducts shares from every member holding at least
// that many. Each member is handled in its own transaction so one failure
// does not undo the others.
func (s *Service) DeductSharesFromAll(
	ctx context.Context,
	reviewer review.Reviewer,
	shares int,
	reason string,
) (DeductionResult, error) {
	result := DeductionResult{Shares: shares, Failures: []DeductionFailure{}}

	if err := checkDeduction(reviewer, shares); err != nil {
		return result, err
	}

	holders, err := s.readM.ListHolding(ctx, shares)
	if err != nil {
		return result, fmt.Errorf("deduct shares from all: %w", err)
	}

	for _, h := range holders {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		_, _, err := s.deduct(ctx, reviewer, h.ID, shares, reason)
		switch {
		case err == nil:
			result.Updated++
		case errors.Is(err, errInsufficientShares):
			result.Skipped++
		default:
			s.logger.ErrorContext(ctx, "share deduction failed",
				"member_id", h.ID, "shares", shares, "error", err)
			result.Failures = append(result.Failures, DeductionFailure{
				MemberID: h.ID,
				Error:    err.Error(),
			})
		}
	}

	s.logger.InfoContext(ctx, "shares deducted from all holders",
		"shares", shares,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", len(result.Failures),
	)

	return result, nil
}

func checkDeduction(reviewer review.Reviewer, shares int) error {
	if !reviewer.IsAdmin {
		return fmt.Errorf("deduct shares: %w", core.ErrForbidden)
	}
	if shares < 1 {
		return core.Validationf("shares must be greater than zero")
	}
	if shares > maxShares {
		return core.Validationf("shares must be at most %d", maxShares)
	}
	return nil
}

func (s *Service) deduct(
	ctx context.Context,
	reviewer review.Reviewer,
	memberID string,
	shares int,
	reason string,
) (*Entry, Snapshot, error) {
	start := time.Now()

	var (
		entry *Entry
		owner *member.Member
		snap  Snapshot
	)

	err := s.tx.InTx(ctx, func(tx core.DBTX) error {
		entries := s.entries(tx)
		members := s.members(tx)

		m, err := members.GetForUpdate(ctx, memberID)
		if err != nil {
			return err
		}
		if m.SharesOwned < shares {
			return fmt.Errorf("member holds %d shares, cannot deduct %d: %w",
				m.SharesOwned, shares, errInsufficientShares)
		}

		now := s.now()
		e := &Entry{
			ID:          uuid.New().String(),
			MemberID:    memberID,
			Kind:        KindShareDeduction,
			Amount:      decimal.NewFromInt(int64(shares)),
			Method:      MethodSystem,
			ReferenceID: NewReferenceID(now),
			Description: reason,
			Status:      review.StatusPending,
		}
		if err := entries.Create(ctx, e); err != nil {
			return err
		}

		stamp, err := review.Transition(e.Status, review.Approve, reviewer, reason, now)
		if err != nil {
			return err
		}
		e.applyStamp(stamp)

		if err := entries.MarkReviewed(ctx, e); err != nil {
			return err
		}

		snap, _, err = s.recomputeLocked(ctx, entries, members, m)
		if err != nil {
			return err
		}

		entry, owner = e, m
		return nil
	})
	if err != nil {
		if errors.Is(err, errInsufficientShares) {
			return nil, Snapshot{}, err
		}
		return nil, Snapshot{}, fmt.Errorf("deduct shares: %w", err)
	}

	metrics.ObserveReview(string(KindShareDeduction), string(review.Approve), nil, time.Since(start))

	s.notifier.Notify(ctx, notify.Event{
		Topic: notify.TopicShareDeduction,
		Kind:  string(KindShareDeduction),
		To:    notify.Recipient{Name: owner.Name, Email: owner.Email},
		Data: map[string]any{
			"shares":            shares,
			"notes":             reason,
			"reference_id":      entry.ReferenceID,
			"shares_owned":      snap.SharesOwned,
			"membership_status": snap.MembershipStatus,
		},
	})

	return entry, snap, nil
}

// GetEntry returns an entry. Members may only read their own.
func (s *Service) GetEntry(
	ctx context.Context,
	viewer review.Reviewer,
	id string,
) (*Entry, error) {
	e, err := s.read.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin && e.MemberID != viewer.ID {
		return nil, fmt.Errorf("get entry: %w", core.ErrNotFound)
	}
	return e, nil
}

func (s *Service) ListEntries(
	ctx context.Context,
	params ListParams,
) ([]Entry, int, error) {
	return s.read.List(ctx, params)
}

func (s *Service) ListForMember(ctx context.Context, memberID string) ([]Entry, error) {
	return s.read.ListForMember(ctx, memberID)
}

func snapshotOf(m *member.Member) Snapshot {
	return Snapshot{
		SharesOwned:      m.SharesOwned,
		MembershipStatus: m.MembershipStatus,
		ActivationDate:   m.ActivationDate,
	}
}

func reviewEvent(
	e *Entry,
	m *member.Member,
	d review.Decision,
	snap Snapshot,
) notify.Event {
	data := map[string]any{
		"amount":            e.Amount.StringFixed(2),
		"reference_id":      e.ReferenceID,
		"notes":             e.AdminNotes,
		"shares_owned":      snap.SharesOwned,
		"membership_status": snap.MembershipStatus,
	}
	if snap.ActivationDate != nil {
		data["activation_date"] = snap.ActivationDate.Format("2 January 2006")
	}
	if e.SharesAssigned != nil {
		data["shares_assigned"] = *e.SharesAssigned
	}
	if e.AmountApproved.Valid {
		data["amount_approved"] = e.AmountApproved.Decimal.StringFixed(2)
	}

	return notify.Event{
		Topic:    notify.TopicEntryReviewed,
		Kind:     string(e.Kind),
		Decision: string(d),
		To:       notify.Recipient{Name: m.Name, Email: m.Email},
		Data:     data,
	}
}
