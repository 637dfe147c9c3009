package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
	"github.com/phillip/eventfund-go/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st, NopNotifier{}, nil), st
}

func seedEvent(t *testing.T, svc *Service, trust models.TrustSettings) (*models.Event, Actor) {
	t.Helper()
	admin := Actor{ID: primitive.NewObjectID(), Role: RoleAdmin}
	event, err := svc.CreateEvent(context.Background(), CreateEventInput{
		Title:      "Farewell 2026",
		BudgetGoal: decimal.NewFromInt(10000),
		Trust:      trust,
	}, admin.ID)
	require.NoError(t, err)
	return event, admin
}

func submit(t *testing.T, svc *Service, eventID primitive.ObjectID, amount int64, ref string) *models.Contribution {
	t.Helper()
	c, err := svc.SubmitContribution(context.Background(), SubmitContributionInput{
		EventID:           eventID,
		MemberID:          primitive.NewObjectID(),
		Amount:            decimal.NewFromInt(amount),
		Method:            models.MethodUPI,
		ExternalReference: ref,
	})
	require.NoError(t, err)
	return c
}

func TestSubmitContribution_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	event, _ := seedEvent(t, svc, models.TrustSettings{})

	_, err := svc.SubmitContribution(context.Background(), SubmitContributionInput{
		EventID:  event.ID,
		MemberID: primitive.NewObjectID(),
		Amount:   decimal.NewFromInt(-5),
		Method:   models.MethodCash,
	})
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)

	_, err = svc.SubmitContribution(context.Background(), SubmitContributionInput{
		EventID:  event.ID,
		MemberID: primitive.NewObjectID(),
		Amount:   decimal.NewFromInt(100),
		Method:   "cheque",
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "method", verr.Field)
}

func TestSubmitContribution_DuplicateReferenceGuard(t *testing.T) {
	svc, _ := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})

	first := submit(t, svc, event.ID, 500, "UPI-TXN-1")

	_, err := svc.SubmitContribution(context.Background(), SubmitContributionInput{
		EventID:           event.ID,
		MemberID:          primitive.NewObjectID(),
		Amount:            decimal.NewFromInt(500),
		Method:            models.MethodUPI,
		ExternalReference: "UPI-TXN-1",
	})
	var dup *store.DuplicateReferenceError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "UPI-TXN-1", dup.Reference)
	assert.Equal(t, first.ID.Hex(), dup.ExistingID)

	// After the original is rejected the reference becomes reusable.
	_, err = svc.RejectContribution(context.Background(), first.ID, admin, "wrong amount")
	require.NoError(t, err)

	resubmitted := submit(t, svc, event.ID, 500, "UPI-TXN-1")
	assert.Equal(t, models.ContributionPending, resubmitted.Status)
}

func TestSubmitContribution_TrustConfiguration(t *testing.T) {
	svc, _ := newTestService(t)
	event, _ := seedEvent(t, svc, models.TrustSettings{
		ConfirmMethods: []string{"cash"},
	})

	c, err := svc.SubmitContribution(context.Background(), SubmitContributionInput{
		EventID:  event.ID,
		MemberID: primitive.NewObjectID(),
		Amount:   decimal.NewFromInt(200),
		Method:   models.MethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContributionPaidPending, c.Status)
}

func TestSubmitContribution_AutoVerify(t *testing.T) {
	svc, st := newTestService(t)
	event, _ := seedEvent(t, svc, models.TrustSettings{
		AutoVerify:     true,
		ConfirmMethods: []string{"bank_transfer"},
	})

	c, err := svc.SubmitContribution(context.Background(), SubmitContributionInput{
		EventID:  event.ID,
		MemberID: primitive.NewObjectID(),
		Amount:   decimal.NewFromInt(750),
		Method:   models.MethodUPI,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContributionVerified, c.Status)
	assert.True(t, c.VerifiedBy.IsZero(), "auto-verified claims keep verified_by empty")

	entries, err := st.Ledger().ListByEvent(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.Credit, entries[0].Direction)
	assert.Equal(t, c.ID, entries[0].SourceRef)

	// Methods needing confirmation still queue even with auto-verify on.
	queued, err := svc.SubmitContribution(context.Background(), SubmitContributionInput{
		EventID:  event.ID,
		MemberID: primitive.NewObjectID(),
		Amount:   decimal.NewFromInt(300),
		Method:   models.MethodBankTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContributionPaidPending, queued.Status)
}

func TestApproveContribution_PostsExactlyOneCredit(t *testing.T) {
	svc, st := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})
	c := submit(t, svc, event.ID, 1000, "")

	approved, err := svc.ApproveContribution(context.Background(), c.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.ContributionVerified, approved.Status)
	assert.Equal(t, admin.ID, approved.VerifiedBy)

	// Retried approval is success-with-no-op, not an error.
	again, err := svc.ApproveContribution(context.Background(), c.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.ContributionVerified, again.Status)

	entries, err := st.Ledger().ListByEvent(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(1000)))
}

func TestApproveContribution_ConcurrentCallsPostOnce(t *testing.T) {
	svc, st := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})
	c := submit(t, svc, event.ID, 250, "")

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ApproveContribution(context.Background(), c.ID, admin)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoErrorf(t, err, "caller %d", i)
	}
	entries, err := st.Ledger().ListByEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "exactly one credit regardless of concurrency")
}

func TestApproveContribution_RequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	event, _ := seedEvent(t, svc, models.TrustSettings{})
	c := submit(t, svc, event.ID, 100, "")

	_, err := svc.ApproveContribution(context.Background(), c.ID, Actor{ID: primitive.NewObjectID(), Role: "member"})
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

func TestRejectContribution(t *testing.T) {
	svc, st := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})
	c := submit(t, svc, event.ID, 100, "")

	_, err := svc.RejectContribution(context.Background(), c.ID, admin, "")
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "reason", verr.Field)

	rejected, err := svc.RejectContribution(context.Background(), c.ID, admin, "no matching bank record")
	require.NoError(t, err)
	assert.Equal(t, models.ContributionRejected, rejected.Status)
	assert.Equal(t, "no matching bank record", rejected.RejectedReason)

	// No ledger effect and the row is retained.
	entries, err := st.Ledger().ListByEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	kept, err := svc.GetContribution(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContributionRejected, kept.Status)

	// Rejecting a human-verified contribution is a state conflict.
	verified := submit(t, svc, event.ID, 50, "")
	_, err = svc.ApproveContribution(context.Background(), verified.ID, admin)
	require.NoError(t, err)
	_, err = svc.RejectContribution(context.Background(), verified.ID, admin, "late")
	var conflict *store.StateConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestRejectContribution_AutoVerifiedPostsReversal(t *testing.T) {
	svc, st := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{AutoVerify: true})

	c, err := svc.SubmitContribution(context.Background(), SubmitContributionInput{
		EventID:  event.ID,
		MemberID: primitive.NewObjectID(),
		Amount:   decimal.NewFromInt(400),
		Method:   models.MethodUPI,
	})
	require.NoError(t, err)
	require.Equal(t, models.ContributionVerified, c.Status)

	rejected, err := svc.RejectContribution(context.Background(), c.ID, admin, "self-report not trusted after all")
	require.NoError(t, err)
	assert.Equal(t, models.ContributionRejected, rejected.Status)

	// Posted entries are immutable: the correction is an offsetting debit.
	entries, err := st.Ledger().ListByEvent(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.CategoryContributionReversal, entries[1].Category)

	balance, err := svc.Balance(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestIssueContributionReceipt(t *testing.T) {
	svc, st := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})
	c := submit(t, svc, event.ID, 100, "")

	_, err := svc.ApproveContribution(context.Background(), c.ID, admin)
	require.NoError(t, err)

	issued, err := svc.IssueContributionReceipt(context.Background(), c.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.ContributionApproved, issued.Status)

	// Idempotent, and no extra ledger entry: approved is a synonym of
	// verified for readers, not a second credit.
	again, err := svc.IssueContributionReceipt(context.Background(), c.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.ContributionApproved, again.Status)
	entries, err := st.Ledger().ListByEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
