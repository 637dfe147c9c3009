package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	BudgetGoal  decimal.Decimal
	Deadline    *time.Time
	Trust       models.TrustSettings
	Images      []string
}

// CreateEvent creates an event and enrolls the organizer as its first
// member.
func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput, organizerID primitive.ObjectID) (*models.Event, error) {
	if in.Title == "" {
		return nil, store.Validation("title", "required")
	}
	if in.BudgetGoal.IsNegative() {
		return nil, store.Validation("budget_goal", "must not be negative")
	}

	now := time.Now()
	event := &models.Event{
		ID:          primitive.NewObjectID(),
		OrganizerID: organizerID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		BudgetGoal:  in.BudgetGoal,
		Deadline:    in.Deadline,
		Status:      "ACTIVE",
		Trust:       in.Trust,
		Images:      in.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Events().Insert(ctx, event); err != nil {
		return nil, err
	}
	if _, err := s.JoinEvent(ctx, event.ID, organizerID, ""); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	return s.store.Events().FindByID(ctx, id)
}

func (s *Service) ListEvents(ctx context.Context, organizerID primitive.ObjectID) ([]models.Event, error) {
	return s.store.Events().ListByOrganizer(ctx, organizerID)
}

// SetTrust replaces the event's trust configuration. In-flight submissions
// keep the settings they read at call time; only later submissions see the
// change.
func (s *Service) SetTrust(ctx context.Context, id primitive.ObjectID, trust models.TrustSettings, actor Actor) error {
	if !actor.Admin() {
		return store.ErrUnauthorized
	}
	return s.store.Events().SetTrust(ctx, id, trust)
}
