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
	"github.com/phillip/eventfund-go/store"
)

type memberStore struct{ s *Store }

type memberDoc struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty"`
	EventID        primitive.ObjectID   `bson:"event_id"`
	MemberID       primitive.ObjectID   `bson:"member_id"`
	Name           string               `bson:"name,omitempty"`
	AssignedAmount primitive.Decimal128 `bson:"assigned_amount"`
	JoinedAt       time.Time            `bson:"joined_at"`
}

func decodeMember(d *memberDoc) (*models.EventMember, error) {
	assigned, err := fromDecimal128(d.AssignedAmount)
	if err != nil {
		return nil, err
	}
	return &models.EventMember{
		ID:             d.ID,
		EventID:        d.EventID,
		MemberID:       d.MemberID,
		Name:           d.Name,
		AssignedAmount: assigned,
		JoinedAt:       d.JoinedAt,
	}, nil
}

func (m *memberStore) col() *mongo.Collection { return m.s.db.Collection(colMembers) }

func (m *memberStore) Upsert(ctx context.Context, member *models.EventMember) error {
	if member.ID.IsZero() {
		member.ID = primitive.NewObjectID()
	}
	assigned, err := toDecimal128(member.AssignedAmount)
	if err != nil {
		return err
	}
	filter := bson.M{"event_id": member.EventID, "member_id": member.MemberID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":             member.ID,
			"event_id":        member.EventID,
			"member_id":       member.MemberID,
			"name":            member.Name,
			"assigned_amount": assigned,
			"joined_at":       member.JoinedAt,
		},
	}
	_, err = m.col().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (m *memberStore) FindByEventAndMember(ctx context.Context, eventID, memberID primitive.ObjectID) (*models.EventMember, error) {
	var doc memberDoc
	err := m.col().FindOne(ctx, bson.M{"event_id": eventID, "member_id": memberID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeMember(&doc)
}

func (m *memberStore) ListByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.EventMember, error) {
	cursor, err := m.col().Find(ctx, bson.M{"event_id": eventID},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []memberDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.EventMember, 0, len(docs))
	for i := range docs {
		mem, err := decodeMember(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *mem)
	}
	return out, nil
}

func (m *memberStore) CountByEvent(ctx context.Context, eventID primitive.ObjectID) (int, error) {
	n, err := m.col().CountDocuments(ctx, bson.M{"event_id": eventID})
	return int(n), err
}

func (m *memberStore) SetAssignedAmount(ctx context.Context, eventID, memberID primitive.ObjectID, amount decimal.Decimal) error {
	v, err := toDecimal128(amount)
	if err != nil {
		return err
	}
	res, err := m.col().UpdateOne(ctx,
		bson.M{"event_id": eventID, "member_id": memberID},
		bson.M{"$set": bson.M{"assigned_amount": v}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (m *memberStore) SetAssignedAmountAll(ctx context.Context, eventID primitive.ObjectID, amount decimal.Decimal) error {
	v, err := toDecimal128(amount)
	if err != nil {
		return err
	}
	_, err = m.col().UpdateMany(ctx,
		bson.M{"event_id": eventID},
		bson.M{"$set": bson.M{"assigned_amount": v}})
	return err
}
