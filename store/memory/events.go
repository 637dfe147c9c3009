package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

type eventStore Store

func (s *eventStore) Insert(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	s.events[event.ID] = *event
	return nil
}

func (s *eventStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &ev, nil
}

func (s *eventStore) ListByOrganizer(_ context.Context, organizerID primitive.ObjectID) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Event
	for _, ev := range s.events {
		if organizerID.IsZero() || ev.OrganizerID == organizerID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *eventStore) SetBudgetGoal(_ context.Context, id primitive.ObjectID, goal decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return store.ErrNotFound
	}
	ev.BudgetGoal = goal
	ev.UpdatedAt = time.Now()
	s.events[id] = ev
	return nil
}

func (s *eventStore) SetTrust(_ context.Context, id primitive.ObjectID, trust models.TrustSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return store.ErrNotFound
	}
	ev.Trust = trust
	ev.UpdatedAt = time.Now()
	s.events[id] = ev
	return nil
}
