package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

// SetGoal replaces the event's fundraising goal.
func (s *Service) SetGoal(ctx context.Context, eventID primitive.ObjectID, amount decimal.Decimal, actor Actor) error {
	if !actor.Admin() {
		return store.ErrUnauthorized
	}
	if !amount.IsPositive() {
		return store.Validation("amount", "must be greater than 0")
	}
	return s.store.Events().SetBudgetGoal(ctx, eventID, amount)
}

type DistributionResult struct {
	MemberCount int             `json:"member_count"`
	Share       decimal.Decimal `json:"share"`
}

// DistributeEqually splits total across all current members using ceiling
// division to whole currency units, so rounding always favors the goal:
// sum(assigned) >= total, over-asking by at most member_count - 1 units.
// Every member's assigned amount is overwritten, including prior
// individual overrides.
func (s *Service) DistributeEqually(ctx context.Context, eventID primitive.ObjectID, total decimal.Decimal, actor Actor) (*DistributionResult, error) {
	if !actor.Admin() {
		return nil, store.ErrUnauthorized
	}
	if !total.IsPositive() {
		return nil, store.Validation("total_amount", "must be greater than 0")
	}

	count, err := s.store.Members().CountByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, store.ErrNoMembers
	}

	share := total.Div(decimal.NewFromInt(int64(count))).Ceil()
	if err := s.store.Members().SetAssignedAmountAll(ctx, eventID, share); err != nil {
		return nil, err
	}
	return &DistributionResult{MemberCount: count, Share: share}, nil
}

// AssignIndividual overrides one member's assigned amount independently of
// any previous equal-split pass.
func (s *Service) AssignIndividual(ctx context.Context, eventID, memberID primitive.ObjectID, amount decimal.Decimal, actor Actor) error {
	if !actor.Admin() {
		return store.ErrUnauthorized
	}
	if amount.IsNegative() {
		return store.Validation("amount", "must not be negative")
	}
	return s.store.Members().SetAssignedAmount(ctx, eventID, memberID, amount)
}

// JoinEvent adds a member to an event; re-joining is a silent no-op.
func (s *Service) JoinEvent(ctx context.Context, eventID, memberID primitive.ObjectID, name string) (*models.EventMember, error) {
	if _, err := s.store.Events().FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	member := &models.EventMember{
		EventID:        eventID,
		MemberID:       memberID,
		Name:           name,
		AssignedAmount: decimal.Zero,
		JoinedAt:       time.Now(),
	}
	if err := s.store.Members().Upsert(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// ListMembers returns an event's members with their allocations.
func (s *Service) ListMembers(ctx context.Context, eventID primitive.ObjectID) ([]models.EventMember, error) {
	return s.store.Members().ListByEvent(ctx, eventID)
}
