package mongostore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/eventfund-go/models"
)

type ledgerStore struct{ s *Store }

type ledgerDoc struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	EventID   primitive.ObjectID   `bson:"event_id"`
	Direction string               `bson:"direction"`
	Category  string               `bson:"category"`
	Amount    primitive.Decimal128 `bson:"amount"`
	SourceRef primitive.ObjectID   `bson:"source_ref,omitempty"`
	PostedBy  primitive.ObjectID   `bson:"posted_by,omitempty"`
	CreatedAt time.Time            `bson:"created_at"`
}

func decodeLedgerEntry(d *ledgerDoc) (*models.LedgerEntry, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	return &models.LedgerEntry{
		ID:        d.ID,
		EventID:   d.EventID,
		Direction: models.LedgerDirection(d.Direction),
		Category:  d.Category,
		Amount:    amount,
		SourceRef: d.SourceRef,
		PostedBy:  d.PostedBy,
		CreatedAt: d.CreatedAt,
	}, nil
}

func (l *ledgerStore) col() *mongo.Collection { return l.s.db.Collection(colLedger) }

func (l *ledgerStore) Post(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	amount, err := toDecimal128(entry.Amount)
	if err != nil {
		return err
	}
	doc := ledgerDoc{
		ID:        entry.ID,
		EventID:   entry.EventID,
		Direction: string(entry.Direction),
		Category:  entry.Category,
		Amount:    amount,
		SourceRef: entry.SourceRef,
		PostedBy:  entry.PostedBy,
		CreatedAt: entry.CreatedAt,
	}
	_, err = l.col().InsertOne(ctx, doc)
	return err
}

func (l *ledgerStore) ListByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.LedgerEntry, error) {
	cursor, err := l.col().Find(ctx, bson.M{"event_id": eventID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []ledgerDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.LedgerEntry, 0, len(docs))
	for i := range docs {
		e, err := decodeLedgerEntry(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// Balance is always computed from the posted entries, never cached, so it
// cannot drift from the ledger.
func (l *ledgerStore) Balance(ctx context.Context, eventID primitive.ObjectID) (decimal.Decimal, error) {
	entries, err := l.ListByEvent(ctx, eventID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Signed())
	}
	return total, nil
}
