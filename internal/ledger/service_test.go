// AngelaMos | 2026
// service_test.go

package ledger

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pamojakenya/backend/internal/config"
	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/member"
	"github.com/pamojakenya/backend/internal/notify"
	"github.com/pamojakenya/backend/internal/review"
	"github.com/pamojakenya/backend/internal/storage"
)

func intPtr(n int) *int { return &n }

func TestSubmitValidation(t *testing.T) {
	proof := func() *storage.Upload {
		return &storage.Upload{Filename: "p.pdf", Body: strings.NewReader("%PDF-1.4")}
	}

	tests := []struct {
		name string
		in   SubmitInput
	}{
		{"zero amount", SubmitInput{Kind: KindMembershipFee, Amount: decimal.Zero, Method: MethodCash}},
		{"negative amount", SubmitInput{Kind: KindMembershipFee, Amount: decimal.NewFromInt(-5), Method: MethodCash}},
		{"three decimals", SubmitInput{Kind: KindMembershipFee, Amount: decimal.RequireFromString("1.005"), Method: MethodCash}},
		{"unknown kind", SubmitInput{Kind: "donation", Amount: decimal.NewFromInt(5), Method: MethodCash}},
		{"deduction not submittable", SubmitInput{Kind: KindShareDeduction, Amount: decimal.NewFromInt(5), Method: MethodCash}},
		{"system method", SubmitInput{Kind: KindMembershipFee, Amount: decimal.NewFromInt(5), Method: MethodSystem}},
		{"unknown method", SubmitInput{Kind: KindMembershipFee, Amount: decimal.NewFromInt(5), Method: "barter"}},
		{"activation fee without proof", SubmitInput{Kind: KindActivationFee, Amount: decimal.NewFromInt(50), Method: MethodMpesa}},
		{"share purchase without proof", SubmitInput{Kind: KindSharePurchase, Amount: decimal.NewFromInt(100), Method: MethodMpesa}},
		{"less than one share", SubmitInput{Kind: KindSharePurchase, Amount: decimal.NewFromInt(24), Method: MethodMpesa, Proof: proof()}},
		{"requested shares not covered", SubmitInput{
			Kind: KindSharePurchase, Amount: decimal.NewFromInt(100), Method: MethodMpesa,
			SharesRequested: intPtr(5), Proof: proof(),
		}},
		{"shares on a fee", SubmitInput{
			Kind: KindMembershipFee, Amount: decimal.NewFromInt(100), Method: MethodMpesa,
			SharesRequested: intPtr(1),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, config.ActivationRuleFee)
			_, err := f.svc.Submit(context.Background(), "m-1", tt.in)
			assert.ErrorIs(t, err, core.ErrValidation)
			assert.Empty(t, f.proofs.saved)
		})
	}
}

func TestSubmitCreatesPendingEntry(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)

	e := f.submit(t, KindSharePurchase, 100)

	assert.Equal(t, review.StatusPending, e.Status)
	assert.Equal(t, "m-1", e.MemberID)
	require.NotNil(t, e.ProofRef)
	assert.Equal(t, "proofs/share_purchase/doc.pdf", *e.ProofRef)
	assert.Regexp(t, `^PAY-20260314-`, e.ReferenceID)
	resp := ToEntryResponse(e, f.svc.Policy())
	require.NotNil(t, resp.ImpliedShares)
	assert.Equal(t, 4, *resp.ImpliedShares)

	m := f.store.member("m-1")
	assert.Equal(t, 0, m.SharesOwned)
	assert.Empty(t, f.notifier.Events())
}

func TestSubmitUnknownMember(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	_, err := f.svc.Submit(context.Background(), "ghost", SubmitInput{
		Kind: KindMembershipFee, Amount: decimal.NewFromInt(10), Method: MethodCash,
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestApproveSharePurchaseCreditsImpliedShares(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	e := f.submit(t, KindSharePurchase, 100)

	reviewed := f.approve(t, e.ID)

	require.NotNil(t, reviewed.SharesAssigned)
	assert.Equal(t, 4, *reviewed.SharesAssigned)
	assert.Equal(t, review.StatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, admin.ID, *reviewed.ReviewedBy)

	assert.Equal(t, 4, f.store.member("m-1").SharesOwned)

	snap, err := f.svc.Recompute(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, 4, snap.SharesOwned)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.TopicEntryReviewed, events[0].Topic)
	assert.Equal(t, string(KindSharePurchase), events[0].Kind)
	assert.Equal(t, 4, events[0].Data["shares_assigned"])
	assert.Equal(t, 4, events[0].Data["shares_owned"])
}

func TestApproveSharePurchaseWithOverride(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	e := f.submit(t, KindSharePurchase, 100)

	_, err := f.svc.Review(context.Background(), ReviewInput{
		EntryID: e.ID, Decision: review.Approve, Reviewer: admin, SharesAssigned: intPtr(0),
	})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, review.StatusPending, f.store.entry(e.ID).Status)

	reviewed, err := f.svc.Review(context.Background(), ReviewInput{
		EntryID: e.ID, Decision: review.Approve, Reviewer: admin, SharesAssigned: intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, *reviewed.SharesAssigned)
	assert.Equal(t, 3, f.store.member("m-1").SharesOwned)
}

func TestApproveBoundsSharesAssigned(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	e := f.submit(t, KindSharePurchase, 100)

	_, err := f.svc.Review(context.Background(), ReviewInput{
		EntryID: e.ID, Decision: review.Approve, Reviewer: admin,
		SharesAssigned: intPtr(maxShares + 1),
	})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, review.StatusPending, f.store.entry(e.ID).Status)
	assert.Equal(t, 0, f.store.member("m-1").SharesOwned)
}

func TestReviewEntryOfClosedAccount(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	approveMe := f.submit(t, KindMembershipFee, 10)
	rejectMe := f.submit(t, KindClaimPayout, 40)

	f.store.dataMu.Lock()
	delete(f.store.members, "m-1")
	f.store.dataMu.Unlock()
	before := len(f.notifier.Events())

	_, err := f.svc.Review(context.Background(), ReviewInput{
		EntryID: approveMe.ID, Decision: review.Approve, Reviewer: admin,
	})
	assert.ErrorIs(t, err, core.ErrStateConflict)
	assert.Equal(t, review.StatusPending, f.store.entry(approveMe.ID).Status)

	reviewed, err := f.svc.Review(context.Background(), ReviewInput{
		EntryID: rejectMe.ID, Decision: review.Reject, Reviewer: admin, Notes: "account closed",
	})
	require.NoError(t, err)
	assert.Equal(t, review.StatusRejected, reviewed.Status)
	assert.Equal(t, review.StatusRejected, f.store.entry(rejectMe.ID).Status)
	assert.Len(t, f.notifier.Events(), before)
}

func TestApproveActivationFeeStampsApprovalTime(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	e := f.submit(t, KindActivationFee, 50)

	f.approve(t, e.ID)

	m := f.store.member("m-1")
	assert.Equal(t, member.StatusActive, m.MembershipStatus)
	require.NotNil(t, m.ActivationDate)
	assert.True(t, fixedNow.Equal(*m.ActivationDate))
	assert.NotEqual(t, e.CreatedAt, *m.ActivationDate)

	f.submit(t, KindMembershipFee, 10)
	snap, err := f.svc.Recompute(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, member.StatusActive, snap.MembershipStatus)
}

func TestApproveClaimRecordsAmountApproved(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	e := f.submit(t, KindClaimPayout, 500)

	partial := decimal.NewFromInt(300)
	reviewed, err := f.svc.Review(context.Background(), ReviewInput{
		EntryID: e.ID, Decision: review.Approve, Reviewer: admin, AmountApproved: &partial,
	})
	require.NoError(t, err)
	require.True(t, reviewed.AmountApproved.Valid)
	assert.True(t, reviewed.AmountApproved.Decimal.Equal(partial))
	assert.Equal(t, 0, f.store.member("m-1").SharesOwned)

	e2 := f.submit(t, KindClaimPayout, 120)
	reviewed, err = f.svc.Review(context.Background(), ReviewInput{
		EntryID: e2.ID, Decision: review.Approve, Reviewer: admin,
	})
	require.NoError(t, err)
	assert.True(t, reviewed.AmountApproved.Decimal.Equal(decimal.NewFromInt(120)))
}

func TestRejectRecordsNotesOnly(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	e := f.submit(t, KindSharePurchase, 100)

	reviewed, err := f.svc.Review(context.Background(), ReviewInput{
		EntryID: e.ID, Decision: review.Reject, Reviewer: admin, Notes: "blurry receipt",
	})
	require.NoError(t, err)
	assert.Equal(t, review.StatusRejected, reviewed.Status)
	assert.Equal(t, "blurry receipt", reviewed.AdminNotes)
	assert.Nil(t, reviewed.SharesAssigned)
	assert.Equal(t, 0, f.store.member("m-1").SharesOwned)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, string(review.Reject), events[0].Decision)
}

func TestReviewIsOneShot(t *testing.T) {
	for _, second := range []review.Decision{review.Approve, review.Reject} {
		t.Run(string(second), func(t *testing.T) {
			f := newFixture(t, config.ActivationRuleFee)
			e := f.submit(t, KindSharePurchase, 100)
			f.approve(t, e.ID)

			_, err := f.svc.Review(context.Background(), ReviewInput{
				EntryID: e.ID, Decision: second, Reviewer: admin,
			})
			assert.ErrorIs(t, err, core.ErrStateConflict)
			assert.Equal(t, 4, f.store.member("m-1").SharesOwned)
			assert.Len(t, f.notifier.Events(), 1)
		})
	}
}

func TestReviewPreconditions(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	e := f.submit(t, KindMembershipFee, 10)

	_, err := f.svc.Review(context.Background(), ReviewInput{
		EntryID: e.ID, Decision: review.Approve, Reviewer: nonAdmin,
	})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = f.svc.Review(context.Background(), ReviewInput{
		EntryID: "missing", Decision: review.Approve, Reviewer: admin,
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.Review(context.Background(), ReviewInput{
		EntryID: e.ID, Decision: "maybe", Reviewer: admin,
	})
	assert.ErrorIs(t, err, core.ErrValidation)

	assert.Equal(t, review.StatusPending, f.store.entry(e.ID).Status)
	assert.Empty(t, f.notifier.Events())
}

func TestReviewRollsBackOnAggregateFailure(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	e := f.submit(t, KindSharePurchase, 100)
	f.store.failAggregate = errBoom

	_, err := f.svc.Review(context.Background(), ReviewInput{
		EntryID: e.ID, Decision: review.Approve, Reviewer: admin,
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, review.StatusPending, f.store.entry(e.ID).Status)
	assert.Equal(t, 0, f.store.member("m-1").SharesOwned)
	assert.Empty(t, f.notifier.Events())
}

type failingSender struct {
	mu    sync.Mutex
	calls int
}

func (s *failingSender) Send(context.Context, notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return errBoom
}

func (s *failingSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestNotificationFailureKeepsApproval(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)

	tpl, err := notify.LoadTemplates()
	require.NoError(t, err)
	sender := &failingSender{}
	d, err := notify.NewDispatcher(sender, tpl, notify.WithLogger(f.svc.logger))
	require.NoError(t, err)
	f.svc.notifier = d

	e := f.submit(t, KindSharePurchase, 100)
	reviewed := f.approve(t, e.ID)

	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 1, sender.Calls())
	assert.Equal(t, review.StatusApproved, reviewed.Status)
	assert.Equal(t, review.StatusApproved, f.store.entry(e.ID).Status)
	assert.Equal(t, 4, f.store.member("m-1").SharesOwned)
}

func TestConcurrentApprovalsSum(t *testing.T) {
	for range 20 {
		f := newFixture(t, config.ActivationRuleFee)
		two := f.submit(t, KindSharePurchase, 50)
		three := f.submit(t, KindSharePurchase, 75)

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for _, id := range []string{two.ID, three.ID} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := f.svc.Review(context.Background(), ReviewInput{
					EntryID: id, Decision: review.Approve, Reviewer: admin,
				})
				errs <- err
			}(id)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		require.Equal(t, 5, f.store.member("m-1").SharesOwned)
	}
}

func TestConcurrentDoubleReviewOnlyOneWins(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	e := f.submit(t, KindSharePurchase, 100)

	var wg sync.WaitGroup
	results := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Review(context.Background(), ReviewInput{
				EntryID: e.ID, Decision: review.Approve, Reviewer: admin,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, core.ErrStateConflict)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 4, f.store.member("m-1").SharesOwned)
}

func TestDeductShares(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	f.approve(t, f.submit(t, KindSharePurchase, 250).ID)
	require.Equal(t, 10, f.store.member("m-1").SharesOwned)

	e, snap, err := f.svc.DeductShares(context.Background(), admin, "m-1", 3, "annual levy")
	require.NoError(t, err)
	assert.Equal(t, KindShareDeduction, e.Kind)
	assert.Equal(t, MethodSystem, e.Method)
	assert.Equal(t, review.StatusApproved, e.Status)
	assert.Equal(t, 3, e.DeductedShares())
	assert.Equal(t, 7, snap.SharesOwned)
	assert.Equal(t, 7, f.store.member("m-1").SharesOwned)

	_, _, err = f.svc.DeductShares(context.Background(), admin, "m-1", 50, "write-off")
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, 7, f.store.member("m-1").SharesOwned)

	_, snap, err = f.svc.DeductShares(context.Background(), admin, "m-1", 7, "write-off")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.SharesOwned)

	events := f.notifier.Events()
	require.Len(t, events, 3)
	assert.Equal(t, notify.TopicShareDeduction, events[1].Topic)
	assert.Equal(t, 3, events[1].Data["shares"])
}

func TestRejectedOverDeductionLeavesNoDebt(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	f.approve(t, f.submit(t, KindSharePurchase, 100).ID)
	require.Equal(t, 4, f.store.member("m-1").SharesOwned)

	_, _, err := f.svc.DeductShares(context.Background(), admin, "m-1", 50, "write-off")
	require.ErrorIs(t, err, core.ErrValidation)

	f.approve(t, f.submit(t, KindSharePurchase, 250).ID)
	assert.Equal(t, 14, f.store.member("m-1").SharesOwned)

	snap, err := f.svc.Recompute(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, 14, snap.SharesOwned)
}

func TestDeductSharesPreconditions(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)

	_, _, err := f.svc.DeductShares(context.Background(), nonAdmin, "m-1", 1, "x")
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, _, err = f.svc.DeductShares(context.Background(), admin, "m-1", 0, "x")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, _, err = f.svc.DeductShares(context.Background(), admin, "ghost", 1, "x")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeductSharesFromAll(t *testing.T) {
	holders := []member.Member{
		{ID: "a", Name: "A", MembershipStatus: member.StatusInactive, MembershipType: member.TypeNone},
		{ID: "b", Name: "B", MembershipStatus: member.StatusInactive, MembershipType: member.TypeNone},
		{ID: "c", Name: "C", MembershipStatus: member.StatusInactive, MembershipType: member.TypeNone},
	}
	f := newFixture(t, config.ActivationRuleFee, holders...)

	seed := func(id string, shares int) {
		f.store.putEntry(Entry{
			ID: "seed-" + id, MemberID: id, Kind: KindSharePurchase,
			Amount: decimal.NewFromInt(int64(shares * 25)), Status: review.StatusApproved,
			SharesAssigned: intPtr(shares), ReviewedAt: &fixedNow,
		})
		_, err := f.svc.Recompute(context.Background(), id)
		require.NoError(t, err)
	}
	seed("a", 10)
	seed("b", 2)
	seed("c", 5)

	result, err := f.svc.DeductSharesFromAll(context.Background(), admin, 5, "dividend adjustment")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Failures)

	assert.Equal(t, 5, f.store.member("a").SharesOwned)
	assert.Equal(t, 2, f.store.member("b").SharesOwned)
	assert.Equal(t, 0, f.store.member("c").SharesOwned)

	deductions := 0
	for _, ev := range f.notifier.Events() {
		if ev.Topic == notify.TopicShareDeduction {
			deductions++
		}
	}
	assert.Equal(t, 2, deductions)

	_, err = f.svc.DeductSharesFromAll(context.Background(), nonAdmin, 5, "x")
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestRecomputeRepairsDrift(t *testing.T) {
	f := newFixture(t, config.ActivationRuleFee)
	f.approve(t, f.submit(t, KindSharePurchase, 100).ID)

	f.store.dataMu.Lock()
	m := f.store.members["m-1"]
	m.SharesOwned = 999
	f.store.members["m-1"] = m
	f.store.dataMu.Unlock()

	snap, changed, err := f.svc.recompute(context.Background(), "m-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 4, snap.SharesOwned)
	assert.Equal(t, 4, f.store.member("m-1").SharesOwned)

	_, changed, err = f.svc.recompute(context.Background(), "m-1")
	require.NoError(t, err)
	assert.False(t, changed)
}
