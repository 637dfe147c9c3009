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
)

func seedDuty(t *testing.T, svc *Service, limit *decimal.Decimal) (*models.Duty, *models.DutyAssignment, Actor) {
	t.Helper()
	event, admin := seedEvent(t, svc, models.TrustSettings{})
	duty, err := svc.CreateDuty(context.Background(), CreateDutyInput{
		EventID:      event.ID,
		Title:        "Catering",
		ExpenseLimit: limit,
	}, admin)
	require.NoError(t, err)

	memberID := primitive.NewObjectID()
	_, err = svc.JoinEvent(context.Background(), event.ID, memberID, "Asha")
	require.NoError(t, err)
	require.NoError(t, svc.AssignDuty(context.Background(), duty.ID, []primitive.ObjectID{memberID}, admin))

	detail, err := svc.GetDuty(context.Background(), duty.ID)
	require.NoError(t, err)
	require.Len(t, detail.Assignments, 1)
	assignment := detail.Assignments[0]
	return duty, &assignment, admin
}

func submitReceipt(t *testing.T, svc *Service, assignmentID primitive.ObjectID, amount int64) *models.DutyReceipt {
	t.Helper()
	r, _, err := svc.SubmitReceipt(context.Background(), SubmitReceiptInput{
		AssignmentID: assignmentID,
		UploaderID:   primitive.NewObjectID(),
		Amount:       decimal.NewFromInt(amount),
		EvidenceRefs: []string{"https://blob/receipt.jpg"},
	})
	require.NoError(t, err)
	return r
}

func TestAssignDuty_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	duty, assignment, admin := seedDuty(t, svc, nil)

	// Re-assigning the same member is a silent no-op, not an error.
	err := svc.AssignDuty(context.Background(), duty.ID, []primitive.ObjectID{assignment.MemberID}, admin)
	require.NoError(t, err)

	detail, err := svc.GetDuty(context.Background(), duty.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Assignments, 1)
}

func TestSubmitReceipt_LineItemsMustSum(t *testing.T) {
	svc, _ := newTestService(t)
	_, assignment, _ := seedDuty(t, svc, nil)

	_, _, err := svc.SubmitReceipt(context.Background(), SubmitReceiptInput{
		AssignmentID: assignment.ID,
		UploaderID:   assignment.MemberID,
		Amount:       decimal.NewFromInt(300),
		LineItems: []models.LineItem{
			{Description: "plates", Amount: decimal.NewFromInt(100)},
			{Description: "cups", Amount: decimal.NewFromInt(150)},
		},
	})
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "line_items", verr.Field)

	r, _, err := svc.SubmitReceipt(context.Background(), SubmitReceiptInput{
		AssignmentID: assignment.ID,
		UploaderID:   assignment.MemberID,
		Amount:       decimal.NewFromInt(250),
		LineItems: []models.LineItem{
			{Description: "plates", Amount: decimal.NewFromInt(100)},
			{Description: "cups", Amount: decimal.NewFromInt(150)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptPending, r.Status)
}

func TestSubmitReceipt_ExpenseLimitIsSoft(t *testing.T) {
	svc, _ := newTestService(t)
	limit := decimal.NewFromInt(500)
	_, assignment, _ := seedDuty(t, svc, &limit)

	_, warning, err := svc.SubmitReceipt(context.Background(), SubmitReceiptInput{
		AssignmentID: assignment.ID,
		UploaderID:   assignment.MemberID,
		Amount:       decimal.NewFromInt(300),
	})
	require.NoError(t, err)
	assert.Empty(t, warning)

	// Pending receipts count as if approved; the overshoot is a warning
	// for the admin, never a hard rejection.
	r, warning, err := svc.SubmitReceipt(context.Background(), SubmitReceiptInput{
		AssignmentID: assignment.ID,
		UploaderID:   assignment.MemberID,
		Amount:       decimal.NewFromInt(300),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, warning)
	assert.Equal(t, models.ReceiptPending, r.Status)
}

func TestReviewReceipt_ApprovePostsExactlyOneDebit(t *testing.T) {
	svc, st := newTestService(t)
	duty, assignment, admin := seedDuty(t, svc, nil)
	r := submitReceipt(t, svc, assignment.ID, 450)

	approved, err := svc.ReviewReceipt(context.Background(), r.ID, admin, DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptApproved, approved.Status)
	assert.Equal(t, admin.ID, approved.ReviewedBy)

	entries, err := st.Ledger().ListByEvent(context.Background(), duty.EventID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.Debit, entries[0].Direction)
	assert.Equal(t, models.CategoryDutyExpense, entries[0].Category)
	assert.Equal(t, r.ID, entries[0].SourceRef)

	// Retried approval: success-with-no-op, still one debit.
	_, err = svc.ReviewReceipt(context.Background(), r.ID, admin, DecisionApprove, "")
	require.NoError(t, err)
	entries, err = st.Ledger().ListByEvent(context.Background(), duty.EventID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReviewReceipt_ConcurrentApprovalsPostOnce(t *testing.T) {
	svc, st := newTestService(t)
	duty, assignment, admin := seedDuty(t, svc, nil)
	r := submitReceipt(t, svc, assignment.ID, 120)

	const callers = 12
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ReviewReceipt(context.Background(), r.ID, admin, DecisionApprove, "")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoErrorf(t, err, "caller %d", i)
	}
	entries, err := st.Ledger().ListByEvent(context.Background(), duty.EventID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReviewReceipt_RejectRequiresReason(t *testing.T) {
	svc, st := newTestService(t)
	duty, assignment, admin := seedDuty(t, svc, nil)
	r := submitReceipt(t, svc, assignment.ID, 90)

	_, err := svc.ReviewReceipt(context.Background(), r.ID, admin, DecisionReject, "")
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)

	rejected, err := svc.ReviewReceipt(context.Background(), r.ID, admin, DecisionReject, "illegible photo")
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptRejected, rejected.Status)
	assert.Equal(t, "illegible photo", rejected.AdminNotes)

	entries, err := st.Ledger().ListByEvent(context.Background(), duty.EventID)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejection has no ledger effect")

	// Approving a rejected receipt is a conflict: terminal states are
	// never reversible.
	_, err = svc.ReviewReceipt(context.Background(), r.ID, admin, DecisionApprove, "")
	var conflict *store.StateConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestVoteReceipt(t *testing.T) {
	svc, st := newTestService(t)
	duty, assignment, _ := seedDuty(t, svc, nil)
	uploader := primitive.NewObjectID()
	r, _, err := svc.SubmitReceipt(context.Background(), SubmitReceiptInput{
		AssignmentID: assignment.ID,
		UploaderID:   uploader,
		Amount:       decimal.NewFromInt(60),
	})
	require.NoError(t, err)

	_, err = svc.VoteReceipt(context.Background(), r.ID, uploader)
	assert.ErrorIs(t, err, store.ErrInvalidVote)

	voter := primitive.NewObjectID()
	on, err := svc.VoteReceipt(context.Background(), r.ID, voter)
	require.NoError(t, err)
	assert.True(t, on)

	off, err := svc.VoteReceipt(context.Background(), r.ID, voter)
	require.NoError(t, err)
	assert.False(t, off, "second vote toggles the first off")

	// Advisory only: no status change, no ledger entry.
	current, err := st.Duties().FindReceipt(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptPending, current.Status)
	entries, err := st.Ledger().ListByEvent(context.Background(), duty.EventID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCompleteDuty_GatedOnPendingReceipts(t *testing.T) {
	svc, _ := newTestService(t)
	duty, assignment, admin := seedDuty(t, svc, nil)
	r := submitReceipt(t, svc, assignment.ID, 75)

	_, err := svc.CompleteDuty(context.Background(), duty.ID, admin)
	var pendingErr *store.PendingExpensesError
	require.ErrorAs(t, err, &pendingErr)
	assert.Equal(t, 1, pendingErr.Pending)

	_, err = svc.ReviewReceipt(context.Background(), r.ID, admin, DecisionReject, "duplicate of earlier claim")
	require.NoError(t, err)

	completed, err := svc.CompleteDuty(context.Background(), duty.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.DutyCompleted, completed.Status)

	// Completing again is a no-op success.
	again, err := svc.CompleteDuty(context.Background(), duty.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.DutyCompleted, again.Status)

	// The books are closed: no new receipts against a completed duty.
	_, _, err = svc.SubmitReceipt(context.Background(), SubmitReceiptInput{
		AssignmentID: assignment.ID,
		UploaderID:   assignment.MemberID,
		Amount:       decimal.NewFromInt(10),
	})
	var conflict *store.StateConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestLedgerBalanceInvariant(t *testing.T) {
	svc, _ := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})

	// Interleaved contribution approvals and receipt reviews.
	c1 := submit(t, svc, event.ID, 1000, "")
	c2 := submit(t, svc, event.ID, 600, "")
	c3 := submit(t, svc, event.ID, 999, "")

	duty, err := svc.CreateDuty(context.Background(), CreateDutyInput{EventID: event.ID, Title: "Decor"}, admin)
	require.NoError(t, err)
	memberID := primitive.NewObjectID()
	_, err = svc.JoinEvent(context.Background(), event.ID, memberID, "")
	require.NoError(t, err)
	require.NoError(t, svc.AssignDuty(context.Background(), duty.ID, []primitive.ObjectID{memberID}, admin))
	detail, err := svc.GetDuty(context.Background(), duty.ID)
	require.NoError(t, err)
	assignment := detail.Assignments[0]

	r1 := submitReceipt(t, svc, assignment.ID, 300)
	r2 := submitReceipt(t, svc, assignment.ID, 200)

	_, err = svc.ApproveContribution(context.Background(), c1.ID, admin)
	require.NoError(t, err)
	_, err = svc.ReviewReceipt(context.Background(), r1.ID, admin, DecisionApprove, "")
	require.NoError(t, err)
	_, err = svc.ApproveContribution(context.Background(), c2.ID, admin)
	require.NoError(t, err)
	_, err = svc.RejectContribution(context.Background(), c3.ID, admin, "bounced")
	require.NoError(t, err)
	_, err = svc.ReviewReceipt(context.Background(), r2.ID, admin, DecisionReject, "not an expense")
	require.NoError(t, err)

	// balance == approved contributions - approved receipts
	balance, err := svc.Balance(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000+600-300)),
		"got %s", balance)
}
