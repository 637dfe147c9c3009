// Package memory provides in-memory store implementations used by unit
// tests and local development. All collections live behind one RWMutex;
// WithTransaction additionally serializes whole units of work so the
// status-flip + ledger-post pairing is atomic with respect to other units.
package memory

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	events        map[primitive.ObjectID]models.Event
	members       []models.EventMember
	contributions []models.Contribution
	ledger        []models.LedgerEntry
	duties        map[primitive.ObjectID]models.Duty
	assignments   []models.DutyAssignment
	receipts      []models.DutyReceipt
	votes         []models.ReceiptVote
}

// Verify interface compliance
var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		events: map[primitive.ObjectID]models.Event{},
		duties: map[primitive.ObjectID]models.Duty{},
	}
}

func (s *Store) Events() store.EventStore               { return (*eventStore)(s) }
func (s *Store) Members() store.MemberStore             { return (*memberStore)(s) }
func (s *Store) Contributions() store.ContributionStore { return (*contributionStore)(s) }
func (s *Store) Ledger() store.LedgerStore              { return (*ledgerStore)(s) }
func (s *Store) Duties() store.DutyStore                { return (*dutyStore)(s) }

// WithTransaction serializes units of work against each other. There is no
// rollback here: the in-memory store is a test double and fn failures are
// surfaced to the caller before any dependent write happens.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}
