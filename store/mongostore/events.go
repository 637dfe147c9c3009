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

type eventStore struct{ s *Store }

type eventDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	OrganizerID primitive.ObjectID   `bson:"organizer_id"`
	Title       string               `bson:"title"`
	Description string               `bson:"description,omitempty"`
	Location    string               `bson:"location,omitempty"`
	BudgetGoal  primitive.Decimal128 `bson:"budget_goal"`
	Deadline    *time.Time           `bson:"deadline,omitempty"`
	Status      string               `bson:"status"`
	Trust       models.TrustSettings `bson:"trust"`
	Images      []string             `bson:"images"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

func encodeEvent(e *models.Event) (*eventDoc, error) {
	goal, err := toDecimal128(e.BudgetGoal)
	if err != nil {
		return nil, err
	}
	return &eventDoc{
		ID:          e.ID,
		OrganizerID: e.OrganizerID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		BudgetGoal:  goal,
		Deadline:    e.Deadline,
		Status:      e.Status,
		Trust:       e.Trust,
		Images:      e.Images,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}, nil
}

func decodeEvent(d *eventDoc) (*models.Event, error) {
	goal, err := fromDecimal128(d.BudgetGoal)
	if err != nil {
		return nil, err
	}
	return &models.Event{
		ID:          d.ID,
		OrganizerID: d.OrganizerID,
		Title:       d.Title,
		Description: d.Description,
		Location:    d.Location,
		BudgetGoal:  goal,
		Deadline:    d.Deadline,
		Status:      d.Status,
		Trust:       d.Trust,
		Images:      d.Images,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func (e *eventStore) col() *mongo.Collection { return e.s.db.Collection(colEvents) }

func (e *eventStore) Insert(ctx context.Context, event *models.Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	doc, err := encodeEvent(event)
	if err != nil {
		return err
	}
	_, err = e.col().InsertOne(ctx, doc)
	return err
}

func (e *eventStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var doc eventDoc
	err := e.col().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeEvent(&doc)
}

func (e *eventStore) ListByOrganizer(ctx context.Context, organizerID primitive.ObjectID) ([]models.Event, error) {
	filter := bson.M{}
	if !organizerID.IsZero() {
		filter["organizer_id"] = organizerID
	}
	cursor, err := e.col().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Event, 0, len(docs))
	for i := range docs {
		ev, err := decodeEvent(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, nil
}

func (e *eventStore) SetBudgetGoal(ctx context.Context, id primitive.ObjectID, goal decimal.Decimal) error {
	v, err := toDecimal128(goal)
	if err != nil {
		return err
	}
	res, err := e.col().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"budget_goal": v, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (e *eventStore) SetTrust(ctx context.Context, id primitive.ObjectID, trust models.TrustSettings) error {
	res, err := e.col().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"trust": trust, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
