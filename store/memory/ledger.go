package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
)

type ledgerStore Store

func (s *ledgerStore) Post(_ context.Context, entry *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	s.ledger = append(s.ledger, *entry)
	return nil
}

func (s *ledgerStore) ListByEvent(_ context.Context, eventID primitive.ObjectID) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LedgerEntry
	for _, e := range s.ledger {
		if e.EventID == eventID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *ledgerStore) Balance(_ context.Context, eventID primitive.ObjectID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, e := range s.ledger {
		if e.EventID == eventID {
			total = total.Add(e.Signed())
		}
	}
	return total, nil
}
