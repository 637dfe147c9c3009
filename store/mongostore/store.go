// Package mongostore implements the store contracts on MongoDB. Amounts
// are persisted as Decimal128 and converted back to shopspring decimals at
// the boundary so no binary floating point ever touches money.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/eventfund-go/store"
)

const (
	colEvents        = "events"
	colMembers       = "event_members"
	colContributions = "contributions"
	colLedger        = "ledger_entries"
	colDuties        = "duties"
	colAssignments   = "duty_assignments"
	colReceipts      = "duty_receipts"
	colVotes         = "receipt_votes"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Verify interface compliance
var _ store.Store = (*Store)(nil)

// New wraps an already-connected client.
func New(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName)}
}

func (s *Store) Events() store.EventStore               { return &eventStore{s} }
func (s *Store) Members() store.MemberStore             { return &memberStore{s} }
func (s *Store) Contributions() store.ContributionStore { return &contributionStore{s} }
func (s *Store) Ledger() store.LedgerStore              { return &ledgerStore{s} }
func (s *Store) Duties() store.DutyStore                { return &dutyStore{s} }

// WithTransaction runs fn inside a mongo session transaction. Store calls
// made with the ctx fn receives join the session automatically, so the
// status-flip + ledger-post pairing commits or aborts as one unit.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "start mongo session")
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the indexes the engine relies on. The partial
// unique index on (event_id, external_reference) backs the duplicate
// guard at the storage level; the service-level check remains the one that
// produces the explainable error.
func EnsureIndexes(ctx context.Context, client *mongo.Client, dbName string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db := client.Database(dbName)

	_, err := db.Collection(colContributions).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "external_reference", Value: 1}},
		Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
			"external_reference": bson.M{"$exists": true},
			"status": bson.M{"$in": bson.A{
				"pending", "paid_pending_admin_verification", "verified", "approved",
			}},
		}),
	})
	if err != nil {
		return errors.Wrap(err, "contributions reference index")
	}

	models := []struct {
		col    string
		keys   bson.D
		unique bool
	}{
		{colContributions, bson.D{{Key: "event_id", Value: 1}, {Key: "status", Value: 1}}, false},
		{colLedger, bson.D{{Key: "event_id", Value: 1}, {Key: "created_at", Value: 1}}, false},
		{colMembers, bson.D{{Key: "event_id", Value: 1}, {Key: "member_id", Value: 1}}, true},
		{colAssignments, bson.D{{Key: "duty_id", Value: 1}, {Key: "member_id", Value: 1}}, true},
		{colReceipts, bson.D{{Key: "assignment_id", Value: 1}}, false},
		{colVotes, bson.D{{Key: "receipt_id", Value: 1}, {Key: "voter_id", Value: 1}}, true},
	}
	for _, m := range models {
		opts := options.Index()
		if m.unique {
			opts = opts.SetUnique(true)
		}
		if _, err := db.Collection(m.col).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: m.keys, Options: opts}); err != nil {
			return errors.Wrapf(err, "%s index", m.col)
		}
	}
	return nil
}
