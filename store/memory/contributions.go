package memory

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

type contributionStore Store

func (s *contributionStore) Insert(_ context.Context, c *models.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.contributions = append(s.contributions, *c)
	return nil
}

func (s *contributionStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.contributions {
		if s.contributions[i].ID == id {
			c := s.contributions[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *contributionStore) ListByEvent(_ context.Context, eventID primitive.ObjectID, filter store.ContributionFilter) ([]models.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Contribution
	for _, c := range s.contributions {
		if c.EventID != eventID {
			continue
		}
		if !filter.MemberID.IsZero() && c.MemberID != filter.MemberID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *contributionStore) FindActiveByReference(_ context.Context, eventID primitive.ObjectID, ref string) (*models.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.contributions {
		c := s.contributions[i]
		if c.EventID == eventID && c.ExternalReference == ref && c.Status != models.ContributionRejected {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *contributionStore) CASStatus(_ context.Context, id primitive.ObjectID, from []models.ContributionStatus, to models.ContributionStatus, actorID primitive.ObjectID, reason string) (*models.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contributions {
		c := &s.contributions[i]
		if c.ID != id {
			continue
		}
		matched := false
		for _, f := range from {
			if c.Status == f {
				matched = true
				break
			}
		}
		if !matched {
			return nil, &store.StateConflictError{Entity: "contribution", ID: id.Hex(), Current: string(c.Status)}
		}
		c.Status = to
		c.UpdatedAt = time.Now()
		if to == models.ContributionRejected {
			c.RejectedReason = reason
		}
		if to.Credited() && !actorID.IsZero() {
			c.VerifiedBy = actorID
		}
		out := *c
		return &out, nil
	}
	return nil, store.ErrNotFound
}
