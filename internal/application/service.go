// AngelaMos | 2026
// service.go

package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/member"
	"github.com/pamojakenya/backend/internal/metrics"
	"github.com/pamojakenya/backend/internal/notify"
	"github.com/pamojakenya/backend/internal/review"
)

type MemberStore interface {
	GetByID(ctx context.Context, id string) (*member.Member, error)
	GetForUpdate(ctx context.Context, id string) (*member.Member, error)
	UpdateProfile(ctx context.Context, m *member.Member) error
}

type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

type DocumentStore interface {
	Save(ctx context.Context, prefix, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

type Stores struct {
	Applications func(core.DBTX) Repository
	Members      func(core.DBTX) MemberStore
}

func SQLStores() Stores {
	return Stores{
		Applications: NewRepository,
		Members:      func(db core.DBTX) MemberStore { return member.NewRepository(db) },
	}
}

type ServiceConfig struct {
	DB        core.DBTX
	Tx        core.Transactor
	Stores    Stores
	Documents DocumentStore
	Notifier  Notifier
	Logger    *slog.Logger
	Clock     func() time.Time
}

type Service struct {
	tx        core.Transactor
	apps      func(core.DBTX) Repository
	members   func(core.DBTX) MemberStore
	read      Repository
	readM     MemberStore
	documents DocumentStore
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Stores.Applications == nil || cfg.Stores.Members == nil {
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
		tx:        cfg.Tx,
		apps:      cfg.Stores.Applications,
		members:   cfg.Stores.Members,
		read:      cfg.Stores.Applications(cfg.DB),
		readM:     cfg.Stores.Members(cfg.DB),
		documents: cfg.Documents,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		now:       cfg.Clock,
	}
}

// Submit stores a pending application for memberID and sends the
// "received" acknowledgement. A member holds at most one pending
// application at a time.
func (s *Service) Submit(
	ctx context.Context,
	memberID string,
	in SubmitInput,
) (*Application, error) {
	if memberID == "" {
		return nil, fmt.Errorf("submit application: %w", core.ErrUnauthorized)
	}

	req := normalize(in.SubmitRequest)
	switch req.MembershipType {
	case TypeSingle, TypeDouble:
	default:
		return nil, core.Validationf("membership_type must be single or double")
	}
	if req.MembershipType == TypeDouble && req.SpouseName == "" {
		return nil, core.Validationf("spouse_name is required for double membership")
	}
	if in.IDDocument == nil {
		return nil, core.Validationf("id_document is required")
	}

	m, err := s.readM.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("submit application: %w", err)
	}

	pending, err := s.read.HasPending(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, fmt.Errorf("submit application: %w: %w", ErrPendingExists, core.ErrStateConflict)
	}

	ref, err := s.documents.Save(ctx, "applications", in.IDDocument.Filename, in.IDDocument.Body)
	if err != nil {
		return nil, fmt.Errorf("id_document: %w", err)
	}

	a := &Application{
		ID:             uuid.New().String(),
		MemberID:       memberID,
		MembershipType: req.MembershipType,
		FirstName:      req.FirstName,
		MiddleName:     req.MiddleName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		City:           req.City,
		State:          req.State,
		ZipCode:        req.ZipCode,
		SpouseName:     req.SpouseName,
		SpousePhone:    req.SpousePhone,
		IDDocument:     ref,
		Status:         review.StatusPending,
	}

	if err := s.read.Create(ctx, a); err != nil {
		if delErr := s.documents.Delete(ctx, ref); delErr != nil {
			s.logger.WarnContext(ctx, "orphaned id document", "ref", ref, "error", delErr)
		}
		return nil, err
	}

	metrics.ObserveApplication("submitted")

	s.notifier.Notify(ctx, notify.Event{
		Topic: notify.TopicApplicationReceived,
		Kind:  a.MembershipType,
		To:    recipient(a, m),
		Data:  map[string]any{"application_id": a.ID},
	})

	return a, nil
}

func normalize(r SubmitRequest) SubmitRequest {
	r.MembershipType = strings.ToLower(strings.TrimSpace(r.MembershipType))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.MiddleName = strings.TrimSpace(r.MiddleName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.SpouseName = strings.TrimSpace(r.SpouseName)
	return r
}

// Review applies an admin decision. Approval records the membership type on
// the member and moves an inactive member to pending activation.
func (s *Service) Review(ctx context.Context, in ReviewInput) (*Application, error) {
	if !in.Reviewer.IsAdmin {
		return nil, fmt.Errorf("review application: %w", core.ErrForbidden)
	}

	var (
		app   *Application
		owner *member.Member
	)

	err := s.tx.InTx(ctx, func(tx core.DBTX) error {
		apps := s.apps(tx)
		members := s.members(tx)

		a, err := apps.GetForUpdate(ctx, in.ApplicationID)
		if err != nil {
			return err
		}

		stamp, err := review.Transition(a.Status, in.Decision, in.Reviewer, in.Notes, s.now())
		if err != nil {
			return err
		}

		m, err := members.GetForUpdate(ctx, a.MemberID)
		if err != nil {
			return err
		}

		reviewedAt, reviewedBy := stamp.ReviewedAt, stamp.ReviewedBy
		a.Status = stamp.Status
		a.AdminNotes = stamp.Notes
		a.ReviewedAt = &reviewedAt
		a.ReviewedBy = &reviewedBy

		if err := apps.MarkReviewed(ctx, a); err != nil {
			return err
		}

		if stamp.Status == review.StatusApproved {
			m.MembershipType = a.MembershipType
			if m.MembershipStatus == member.StatusInactive {
				m.MembershipStatus = member.StatusPending
			}
			if err := members.UpdateProfile(ctx, m); err != nil {
				return err
			}
		}

		app, owner = a, m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("review application: %w", err)
	}

	metrics.ObserveApplication(string(app.Status))

	s.notifier.Notify(ctx, notify.Event{
		Topic:    notify.TopicApplicationReviewed,
		Kind:     app.MembershipType,
		Decision: string(in.Decision),
		To:       recipient(app, owner),
		Data: map[string]any{
			"notes":             app.AdminNotes,
			"membership_status": owner.MembershipStatus,
		},
	})

	return app, nil
}

// Get returns an application. Members only see their own.
func (s *Service) Get(
	ctx context.Context,
	viewer review.Reviewer,
	id string,
) (*Application, error) {
	a, err := s.read.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin && a.MemberID != viewer.ID {
		return nil, fmt.Errorf("get application: %w", core.ErrNotFound)
	}
	return a, nil
}

func (s *Service) ListForMember(ctx context.Context, memberID string) ([]Application, error) {
	return s.read.ListForMember(ctx, memberID)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Application, int, error) {
	return s.read.List(ctx, params)
}

// recipient prefers the contact details given on the application.
func recipient(a *Application, m *member.Member) notify.Recipient {
	r := notify.Recipient{Name: a.FullName(), Email: a.Email}
	if strings.TrimSpace(r.Name) == "" {
		r.Name = m.Name
	}
	if r.Email == "" {
		r.Email = m.Email
	}
	return r
}
