package memory

import (
	"context"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

type memberStore Store

func (s *memberStore) Upsert(_ context.Context, member *models.EventMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		m := &s.members[i]
		if m.EventID == member.EventID && m.MemberID == member.MemberID {
			*member = *m
			return nil
		}
	}
	if member.ID.IsZero() {
		member.ID = primitive.NewObjectID()
	}
	s.members = append(s.members, *member)
	return nil
}

func (s *memberStore) FindByEventAndMember(_ context.Context, eventID, memberID primitive.ObjectID) (*models.EventMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.members {
		m := s.members[i]
		if m.EventID == eventID && m.MemberID == memberID {
			return &m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memberStore) ListByEvent(_ context.Context, eventID primitive.ObjectID) ([]models.EventMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.EventMember
	for _, m := range s.members {
		if m.EventID == eventID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memberStore) CountByEvent(_ context.Context, eventID primitive.ObjectID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.members {
		if m.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (s *memberStore) SetAssignedAmount(_ context.Context, eventID, memberID primitive.ObjectID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		m := &s.members[i]
		if m.EventID == eventID && m.MemberID == memberID {
			m.AssignedAmount = amount
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memberStore) SetAssignedAmountAll(_ context.Context, eventID primitive.ObjectID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		m := &s.members[i]
		if m.EventID == eventID {
			m.AssignedAmount = amount
		}
	}
	return nil
}
