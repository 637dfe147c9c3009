package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
)

func memberSubmit(t *testing.T, svc *Service, eventID, memberID primitive.ObjectID, amount int64) *models.Contribution {
	t.Helper()
	c, err := svc.SubmitContribution(context.Background(), SubmitContributionInput{
		EventID:  eventID,
		MemberID: memberID,
		Amount:   decimal.NewFromInt(amount),
		Method:   models.MethodUPI,
	})
	require.NoError(t, err)
	return c
}

func TestUnifiedFeed_MergesClaimsAndFacts(t *testing.T) {
	svc, _ := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})

	pending := submit(t, svc, event.ID, 100, "")
	approved := submit(t, svc, event.ID, 200, "")
	_, err := svc.ApproveContribution(context.Background(), approved.ID, admin)
	require.NoError(t, err)

	feed, err := svc.UnifiedFeed(context.Background(), event.ID, 10, 0)
	require.NoError(t, err)

	// Two claims plus one posted fact, newest first.
	require.Len(t, feed, 3)
	for i := 1; i < len(feed); i++ {
		assert.False(t, feed[i-1].Timestamp.Before(feed[i].Timestamp), "feed must be descending")
	}

	kinds := map[string]int{}
	for _, item := range feed {
		kinds[item.Kind]++
	}
	assert.Equal(t, 2, kinds["claim"])
	assert.Equal(t, 1, kinds["fact"])

	// The pending claim is visible with its current status: awaiting
	// action versus settled.
	var foundPending bool
	for _, item := range feed {
		if item.SourceID == pending.ID {
			foundPending = true
			assert.Equal(t, models.ContributionPending, item.Status)
		}
	}
	assert.True(t, foundPending)
}

func TestUnifiedFeed_Pagination(t *testing.T) {
	svc, _ := newTestService(t)
	event, _ := seedEvent(t, svc, models.TrustSettings{})
	for i := 0; i < 5; i++ {
		submit(t, svc, event.ID, int64(10+i), "")
	}

	page1, err := svc.UnifiedFeed(context.Background(), event.ID, 2, 0)
	require.NoError(t, err)
	page2, err := svc.UnifiedFeed(context.Background(), event.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.Len(t, page2, 2)
	assert.NotEqual(t, page1[0].SourceID, page2[0].SourceID)

	beyond, err := svc.UnifiedFeed(context.Background(), event.ID, 2, 50)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestProgressFor_Math(t *testing.T) {
	svc, _ := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})
	memberID := primitive.NewObjectID()
	_, err := svc.JoinEvent(context.Background(), event.ID, memberID, "")
	require.NoError(t, err)

	// assigned == 0 reads as 0%, not a division error.
	p, err := svc.ProgressFor(context.Background(), event.ID, memberID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Percentage)

	require.NoError(t, svc.AssignIndividual(context.Background(), event.ID, memberID, decimal.NewFromInt(500), admin))

	c1 := memberSubmit(t, svc, event.ID, memberID, 750)
	_, err = svc.ApproveContribution(context.Background(), c1.ID, admin)
	require.NoError(t, err)

	p, err = svc.ProgressFor(context.Background(), event.ID, memberID)
	require.NoError(t, err)
	assert.True(t, p.Paid.Equal(decimal.NewFromInt(750)))
	assert.Equal(t, 100, p.Percentage, "percentage clamps at 100")
	assert.True(t, p.Remaining.IsZero(), "remaining floors at 0, got %s", p.Remaining)
}

func TestProgressFor_CountsInFlightClaims(t *testing.T) {
	svc, _ := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{ConfirmMethods: []string{"cash"}})
	memberID := primitive.NewObjectID()
	_, err := svc.JoinEvent(context.Background(), event.ID, memberID, "")
	require.NoError(t, err)
	require.NoError(t, svc.AssignIndividual(context.Background(), event.ID, memberID, decimal.NewFromInt(1000), admin))

	// A claim the member says is already paid counts toward progress
	// before the admin queue catches up; a plain pending claim does not.
	_, err = svc.SubmitContribution(context.Background(), SubmitContributionInput{
		EventID:  event.ID,
		MemberID: memberID,
		Amount:   decimal.NewFromInt(400),
		Method:   models.MethodCash,
	})
	require.NoError(t, err)
	memberSubmit(t, svc, event.ID, memberID, 100)

	p, err := svc.ProgressFor(context.Background(), event.ID, memberID)
	require.NoError(t, err)
	assert.True(t, p.Paid.Equal(decimal.NewFromInt(400)), "got %s", p.Paid)
	assert.Equal(t, 40, p.Percentage)
	assert.True(t, p.Remaining.Equal(decimal.NewFromInt(600)))
}

func TestRankFor_OrderAndPercentile(t *testing.T) {
	svc, _ := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})

	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	cara := primitive.NewObjectID()
	for _, id := range []primitive.ObjectID{alice, bob, cara} {
		_, err := svc.JoinEvent(context.Background(), event.ID, id, "")
		require.NoError(t, err)
	}

	for memberID, amount := range map[primitive.ObjectID]int64{alice: 300, bob: 800, cara: 500} {
		c := memberSubmit(t, svc, event.ID, memberID, amount)
		_, err := svc.ApproveContribution(context.Background(), c.ID, admin)
		require.NoError(t, err)
	}

	rank, err := svc.RankFor(context.Background(), event.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, rank.Rank)
	assert.Equal(t, 4, rank.TotalMembers) // organizer included
	assert.Equal(t, 75, rank.Percentile)

	rank, err = svc.RankFor(context.Background(), event.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 3, rank.Rank)
	assert.Equal(t, 25, rank.Percentile)
}

func TestRankFor_TiesBreakOnFirstVerified(t *testing.T) {
	svc, _ := newTestService(t)
	event, admin := seedEvent(t, svc, models.TrustSettings{})

	early := primitive.NewObjectID()
	late := primitive.NewObjectID()
	for _, id := range []primitive.ObjectID{early, late} {
		_, err := svc.JoinEvent(context.Background(), event.ID, id, "")
		require.NoError(t, err)
	}

	first := memberSubmit(t, svc, event.ID, early, 500)
	second := memberSubmit(t, svc, event.ID, late, 500)
	// Approval order is reversed on purpose: the tie breaks on who first
	// submitted the qualifying contribution, not on review order.
	_, err := svc.ApproveContribution(context.Background(), second.ID, admin)
	require.NoError(t, err)
	_, err = svc.ApproveContribution(context.Background(), first.ID, admin)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		board, err := svc.Leaderboard(context.Background(), event.ID)
		require.NoError(t, err)
		require.Len(t, board, 3)
		assert.Equal(t, early, board[0].MemberID, "stable across repeated calls")
		assert.Equal(t, late, board[1].MemberID)
	}
}

func TestRankFor_SingleMember(t *testing.T) {
	svc, _ := newTestService(t)
	event, _ := seedEvent(t, svc, models.TrustSettings{})

	rank, err := svc.RankFor(context.Background(), event.ID, event.OrganizerID)
	require.NoError(t, err)
	assert.Equal(t, 1, rank.Rank)
	assert.Equal(t, 1, rank.TotalMembers)
	assert.Equal(t, 100, rank.Percentile)
}
