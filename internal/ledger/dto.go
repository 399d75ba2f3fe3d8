// AngelaMos | 2026
// dto.go

package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pamojakenya/backend/internal/review"
	"github.com/pamojakenya/backend/internal/storage"
)

type SubmitInput struct {
	Kind            Kind
	Amount          decimal.Decimal
	Method          Method
	TransactionID   string
	Description     string
	SharesRequested *int
	Proof           *storage.Upload
}

type ReviewInput struct {
	EntryID        string
	Decision       review.Decision
	Reviewer       review.Reviewer
	SharesAssigned *int
	AmountApproved *decimal.Decimal
	Notes          string
}

// SubmitRequest is the JSON form of a submission. Older clients send
// shares_purchased for shares_requested and description as notes.
type SubmitRequest struct {
	Kind            string          `json:"kind"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	TransactionID   string          `json:"transaction_id"  validate:"max=100"`
	Description     string          `json:"description"     validate:"max=2000"`
	Notes           string          `json:"notes"           validate:"max=2000"`
	SharesRequested *int            `json:"shares_requested"`
	SharesPurchased *int            `json:"shares_purchased"`
}

func (r SubmitRequest) toInput(kind Kind) SubmitInput {
	if kind == "" {
		kind = Kind(r.Kind)
	}

	description := r.Description
	if description == "" {
		description = r.Notes
	}

	shares := r.SharesRequested
	if shares == nil {
		shares = r.SharesPurchased
	}

	return SubmitInput{
		Kind:            kind,
		Amount:          r.Amount,
		Method:          Method(r.PaymentMethod),
		TransactionID:   r.TransactionID,
		Description:     description,
		SharesRequested: shares,
	}
}

// ReviewRequest is the approve/reject body. shares_purchased is accepted
// as an alias of shares_assigned and admin_notes of notes.
type ReviewRequest struct {
	SharesAssigned  *int             `json:"shares_assigned"  validate:"omitempty,gt=0,lte=1000000"`
	SharesPurchased *int             `json:"shares_purchased" validate:"omitempty,gt=0,lte=1000000"`
	AmountApproved  *decimal.Decimal `json:"amount_approved"`
	Notes           string           `json:"notes"       validate:"max=2000"`
	AdminNotes      string           `json:"admin_notes" validate:"max=2000"`
}

func (r ReviewRequest) shares() *int {
	if r.SharesAssigned != nil {
		return r.SharesAssigned
	}
	return r.SharesPurchased
}

func (r ReviewRequest) notes() string {
	if r.Notes != "" {
		return r.Notes
	}
	return r.AdminNotes
}

type DeductRequest struct {
	Shares int    `json:"shares" validate:"required,gt=0,lte=1000000"`
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

type EntryResponse struct {
	ID              string           `json:"id"`
	MemberID        string           `json:"member_id"`
	Kind            Kind             `json:"kind"`
	Amount          decimal.Decimal  `json:"amount"`
	Method          Method           `json:"payment_method"`
	TransactionID   string           `json:"transaction_id"`
	ReferenceID     string           `json:"reference_id"`
	Description     string           `json:"description"`
	HasProof        bool             `json:"has_proof"`
	Status          review.Status    `json:"status"`
	SharesRequested *int             `json:"shares_requested"`
	ImpliedShares   *int             `json:"implied_shares,omitempty"`
	SharesAssigned  *int             `json:"shares_assigned"`
	AmountApproved  *decimal.Decimal `json:"amount_approved"`
	AdminNotes      string           `json:"admin_notes"`
	ReviewedBy      *string          `json:"reviewed_by"`
	ReviewedAt      *time.Time       `json:"reviewed_at"`
	CreatedAt       time.Time        `json:"created_at"`
}

type ListParams struct {
	Page     int
	PageSize int
	MemberID string
	Kind     string
	Status   string
	Search   string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// DeductionResult summarises a deduct-from-all run.
type DeductionResult struct {
	Shares   int                `json:"shares"`
	Updated  int                `json:"updated"`
	Skipped  int                `json:"skipped"`
	Failures []DeductionFailure `json:"failures"`
}

type DeductionFailure struct {
	MemberID string `json:"member_id"`
	Error    string `json:"error"`
}

func ToEntryResponse(e *Entry, p Policy) EntryResponse {
	resp := EntryResponse{
		ID:              e.ID,
		MemberID:        e.MemberID,
		Kind:            e.Kind,
		Amount:          e.Amount,
		Method:          e.Method,
		TransactionID:   e.TransactionID,
		ReferenceID:     e.ReferenceID,
		Description:     e.Description,
		HasProof:        e.ProofRef != nil,
		Status:          e.Status,
		SharesRequested: e.SharesRequested,
		SharesAssigned:  e.SharesAssigned,
		AdminNotes:      e.AdminNotes,
		ReviewedBy:      e.ReviewedBy,
		ReviewedAt:      e.ReviewedAt,
		CreatedAt:       e.CreatedAt,
	}

	if e.Kind == KindSharePurchase {
		implied := p.ImpliedShares(e.Amount)
		resp.ImpliedShares = &implied
	}
	if e.AmountApproved.Valid {
		approved := e.AmountApproved.Decimal
		resp.AmountApproved = &approved
	}

	return resp
}

func ToEntryResponseList(entries []Entry, p Policy) []EntryResponse {
	responses := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, ToEntryResponse(&entries[i], p))
	}
	return responses
}
