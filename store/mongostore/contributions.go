package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

type contributionStore struct{ s *Store }

type contributionDoc struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty"`
	EventID           primitive.ObjectID   `bson:"event_id"`
	MemberID          primitive.ObjectID   `bson:"member_id"`
	Amount            primitive.Decimal128 `bson:"amount"`
	Method            string               `bson:"method"`
	ExternalReference string               `bson:"external_reference,omitempty"`
	Status            string               `bson:"status"`
	VerifiedBy        primitive.ObjectID   `bson:"verified_by,omitempty"`
	RejectedReason    string               `bson:"rejected_reason,omitempty"`
	ReceiptURL        string               `bson:"receipt_url,omitempty"`
	CreatedAt         time.Time            `bson:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at"`
}

func encodeContribution(c *models.Contribution) (*contributionDoc, error) {
	amount, err := toDecimal128(c.Amount)
	if err != nil {
		return nil, err
	}
	return &contributionDoc{
		ID:                c.ID,
		EventID:           c.EventID,
		MemberID:          c.MemberID,
		Amount:            amount,
		Method:            string(c.Method),
		ExternalReference: c.ExternalReference,
		Status:            string(c.Status),
		VerifiedBy:        c.VerifiedBy,
		RejectedReason:    c.RejectedReason,
		ReceiptURL:        c.ReceiptURL,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}, nil
}

func decodeContribution(d *contributionDoc) (*models.Contribution, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	return &models.Contribution{
		ID:                d.ID,
		EventID:           d.EventID,
		MemberID:          d.MemberID,
		Amount:            amount,
		Method:            models.PaymentMethod(d.Method),
		ExternalReference: d.ExternalReference,
		Status:            models.ContributionStatus(d.Status),
		VerifiedBy:        d.VerifiedBy,
		RejectedReason:    d.RejectedReason,
		ReceiptURL:        d.ReceiptURL,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

func (c *contributionStore) col() *mongo.Collection { return c.s.db.Collection(colContributions) }

func (c *contributionStore) Insert(ctx context.Context, contribution *models.Contribution) error {
	if contribution.ID.IsZero() {
		contribution.ID = primitive.NewObjectID()
	}
	doc, err := encodeContribution(contribution)
	if err != nil {
		return err
	}
	if _, err := c.col().InsertOne(ctx, doc); err != nil {
		// The partial unique index is the storage-level backstop for the
		// duplicate guard under concurrent submissions.
		if mongo.IsDuplicateKeyError(err) {
			return &store.DuplicateReferenceError{Reference: contribution.ExternalReference}
		}
		return err
	}
	return nil
}

func (c *contributionStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contribution, error) {
	var doc contributionDoc
	err := c.col().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeContribution(&doc)
}

func (c *contributionStore) ListByEvent(ctx context.Context, eventID primitive.ObjectID, filter store.ContributionFilter) ([]models.Contribution, error) {
	query := bson.M{"event_id": eventID}
	if !filter.MemberID.IsZero() {
		query["member_id"] = filter.MemberID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	cursor, err := c.col().Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []contributionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Contribution, 0, len(docs))
	for i := range docs {
		cn, err := decodeContribution(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *cn)
	}
	return out, nil
}

func (c *contributionStore) FindActiveByReference(ctx context.Context, eventID primitive.ObjectID, ref string) (*models.Contribution, error) {
	var doc contributionDoc
	err := c.col().FindOne(ctx, bson.M{
		"event_id":           eventID,
		"external_reference": ref,
		"status":             bson.M{"$ne": string(models.ContributionRejected)},
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeContribution(&doc)
}

func (c *contributionStore) CASStatus(ctx context.Context, id primitive.ObjectID, from []models.ContributionStatus, to models.ContributionStatus, actorID primitive.ObjectID, reason string) (*models.Contribution, error) {
	fromStrs := make([]string, len(from))
	for i, f := range from {
		fromStrs[i] = string(f)
	}
	set := bson.M{"status": string(to), "updated_at": time.Now()}
	if to == models.ContributionRejected {
		set["rejected_reason"] = reason
	}
	if to.Credited() && !actorID.IsZero() {
		set["verified_by"] = actorID
	}

	var doc contributionDoc
	err := c.col().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": fromStrs}},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		// CAS missed: distinguish a missing row from a state conflict.
		current, ferr := c.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &store.StateConflictError{
			Entity:  "contribution",
			ID:      id.Hex(),
			Current: string(current.Status),
		}
	}
	if err != nil {
		return nil, err
	}
	return decodeContribution(&doc)
}
