package service

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

func TestDistributeEqually_CeilingRounding(t *testing.T) {
	svc, _ := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})

	// Organizer is member one; add two more for a three-way split.
	for i := 0; i < 2; i++ {
		_, err := svc.JoinEvent(context.Background(), event.ID, primitive.NewObjectID(), "")
		require.NoError(t, err)
	}

	res, err := svc.DistributeEqually(context.Background(), event.ID, decimal.NewFromInt(1000), admin)
	require.NoError(t, err)
	assert.Equal(t, 3, res.MemberCount)
	assert.True(t, res.Share.Equal(decimal.NewFromInt(334)), "got %s", res.Share)

	// Ceiling division never leaves the goal under-funded.
	members, err := svc.ListMembers(context.Background(), event.ID)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, m := range members {
		sum = sum.Add(m.AssignedAmount)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(1002)), "got %s", sum)
	assert.True(t, sum.GreaterThanOrEqual(decimal.NewFromInt(1000)))
}

func TestDistributeEqually_NoMembers(t *testing.T) {
	svc, st := newTestService(t)
	admin := Actor{ID: primitive.NewObjectID(), Role: RoleAdmin}

	// An event with its membership not yet set up.
	event := &models.Event{Title: "empty", Status: "ACTIVE"}
	require.NoError(t, st.Events().Insert(context.Background(), event))

	_, err := svc.DistributeEqually(context.Background(), event.ID, decimal.NewFromInt(500), admin)
	assert.ErrorIs(t, err, store.ErrNoMembers)
}

func TestDistributeEqually_OverwritesIndividualOverrides(t *testing.T) {
	svc, _ := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})
	memberID := primitive.NewObjectID()
	_, err := svc.JoinEvent(context.Background(), event.ID, memberID, "")
	require.NoError(t, err)

	require.NoError(t, svc.AssignIndividual(context.Background(), event.ID, memberID, decimal.NewFromInt(9999), admin))

	_, err = svc.DistributeEqually(context.Background(), event.ID, decimal.NewFromInt(1000), admin)
	require.NoError(t, err)

	members, err := svc.ListMembers(context.Background(), event.ID)
	require.NoError(t, err)
	for _, m := range members {
		assert.True(t, m.AssignedAmount.Equal(decimal.NewFromInt(500)),
			"override must be replaced, got %s", m.AssignedAmount)
	}
}

func TestAssignIndividual(t *testing.T) {
	svc, _ := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})
	memberID := primitive.NewObjectID()
	_, err := svc.JoinEvent(context.Background(), event.ID, memberID, "")
	require.NoError(t, err)

	require.NoError(t, svc.AssignIndividual(context.Background(), event.ID, memberID, decimal.NewFromInt(750), admin))

	member, err := svc.ProgressFor(context.Background(), event.ID, memberID)
	require.NoError(t, err)
	assert.True(t, member.Assigned.Equal(decimal.NewFromInt(750)))

	// Not a member of the event.
	err = svc.AssignIndividual(context.Background(), event.ID, primitive.NewObjectID(), decimal.NewFromInt(10), admin)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = svc.AssignIndividual(context.Background(), event.ID, memberID, decimal.NewFromInt(10), Actor{Role: "member"})
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

func TestSetGoal(t *testing.T) {
	svc, _ := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})

	err := svc.SetGoal(context.Background(), event.ID, decimal.NewFromInt(-1), admin)
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, svc.SetGoal(context.Background(), event.ID, decimal.NewFromInt(20000), admin))
	updated, err := svc.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, updated.BudgetGoal.Equal(decimal.NewFromInt(20000)))
}
