package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

func TestContributionCASStatus(t *testing.T) {
	st := New()
	ctx := context.Background()

	c := &models.Contribution{
		EventID: primitive.NewObjectID(),
		Amount:  decimal.NewFromInt(100),
		Status:  models.ContributionPending,
	}
	require.NoError(t, st.Contributions().Insert(ctx, c))

	admin := primitive.NewObjectID()
	from := []models.ContributionStatus{models.ContributionPending, models.ContributionPaidPending}

	updated, err := st.Contributions().CASStatus(ctx, c.ID, from, models.ContributionVerified, admin, "")
	require.NoError(t, err)
	assert.Equal(t, models.ContributionVerified, updated.Status)
	assert.Equal(t, admin, updated.VerifiedBy)

	// Second swap misses and reports the current state.
	_, err = st.Contributions().CASStatus(ctx, c.ID, from, models.ContributionVerified, admin, "")
	var conflict *store.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, string(models.ContributionVerified), conflict.Current)

	_, err = st.Contributions().CASStatus(ctx, primitive.NewObjectID(), from, models.ContributionVerified, admin, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindActiveByReference_IgnoresRejected(t *testing.T) {
	st := New()
	ctx := context.Background()
	eventID := primitive.NewObjectID()

	c := &models.Contribution{
		EventID:           eventID,
		Amount:            decimal.NewFromInt(100),
		ExternalReference: "TXN-9",
		Status:            models.ContributionRejected,
	}
	require.NoError(t, st.Contributions().Insert(ctx, c))

	_, err := st.Contributions().FindActiveByReference(ctx, eventID, "TXN-9")
	assert.ErrorIs(t, err, store.ErrNotFound)

	active := &models.Contribution{
		EventID:           eventID,
		Amount:            decimal.NewFromInt(100),
		ExternalReference: "TXN-9",
		Status:            models.ContributionPending,
	}
	require.NoError(t, st.Contributions().Insert(ctx, active))

	found, err := st.Contributions().FindActiveByReference(ctx, eventID, "TXN-9")
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)
}

func TestLedgerBalance(t *testing.T) {
	st := New()
	ctx := context.Background()
	eventID := primitive.NewObjectID()

	post := func(dir models.LedgerDirection, amount int64) {
		require.NoError(t, st.Ledger().Post(ctx, &models.LedgerEntry{
			EventID:   eventID,
			Direction: dir,
			Amount:    decimal.NewFromInt(amount),
		}))
	}
	post(models.Credit, 1000)
	post(models.Debit, 300)
	post(models.Credit, 50)

	balance, err := st.Ledger().Balance(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(750)), "got %s", balance)

	balance, err = st.Ledger().Balance(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestUpsertAssignmentAndVoteToggle(t *testing.T) {
	st := New()
	ctx := context.Background()
	dutyID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()

	a := &models.DutyAssignment{DutyID: dutyID, MemberID: memberID}
	created, err := st.Duties().UpsertAssignment(ctx, a)
	require.NoError(t, err)
	assert.True(t, created)

	dup := &models.DutyAssignment{DutyID: dutyID, MemberID: memberID}
	created, err = st.Duties().UpsertAssignment(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, dup.ID, "upsert resolves to the existing row")

	receiptID := primitive.NewObjectID()
	voter := primitive.NewObjectID()
	on, err := st.Duties().ToggleVote(ctx, receiptID, voter)
	require.NoError(t, err)
	assert.True(t, on)
	on, err = st.Duties().ToggleVote(ctx, receiptID, voter)
	require.NoError(t, err)
	assert.False(t, on)

	votes, err := st.Duties().ListVotes(ctx, receiptID)
	require.NoError(t, err)
	assert.Empty(t, votes)
}
