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

type dutyStore struct{ s *Store }

type dutyDoc struct {
	ID           primitive.ObjectID    `bson:"_id,omitempty"`
	EventID      primitive.ObjectID    `bson:"event_id"`
	Title        string                `bson:"title"`
	Description  string                `bson:"description,omitempty"`
	ExpenseLimit *primitive.Decimal128 `bson:"expense_limit,omitempty"`
	Deadline     *time.Time            `bson:"deadline,omitempty"`
	Status       string                `bson:"status"`
	CreatedBy    primitive.ObjectID    `bson:"created_by"`
	CreatedAt    time.Time             `bson:"created_at"`
	UpdatedAt    time.Time             `bson:"updated_at"`
}

type lineItemDoc struct {
	Description string               `bson:"description"`
	Amount      primitive.Decimal128 `bson:"amount"`
}

type receiptDoc struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	AssignmentID primitive.ObjectID   `bson:"assignment_id"`
	UploaderID   primitive.ObjectID   `bson:"uploader_id"`
	Amount       primitive.Decimal128 `bson:"amount"`
	LineItems    []lineItemDoc        `bson:"line_items,omitempty"`
	EvidenceRefs []string             `bson:"evidence_refs"`
	Status       string               `bson:"status"`
	AdminNotes   string               `bson:"admin_notes,omitempty"`
	ReviewedBy   primitive.ObjectID   `bson:"reviewed_by,omitempty"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func encodeDuty(d *models.Duty) (*dutyDoc, error) {
	doc := &dutyDoc{
		ID:          d.ID,
		EventID:     d.EventID,
		Title:       d.Title,
		Description: d.Description,
		Deadline:    d.Deadline,
		Status:      string(d.Status),
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.ExpenseLimit != nil {
		limit, err := toDecimal128(*d.ExpenseLimit)
		if err != nil {
			return nil, err
		}
		doc.ExpenseLimit = &limit
	}
	return doc, nil
}

func decodeDuty(doc *dutyDoc) (*models.Duty, error) {
	d := &models.Duty{
		ID:          doc.ID,
		EventID:     doc.EventID,
		Title:       doc.Title,
		Description: doc.Description,
		Deadline:    doc.Deadline,
		Status:      models.DutyStatus(doc.Status),
		CreatedBy:   doc.CreatedBy,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if doc.ExpenseLimit != nil {
		limit, err := fromDecimal128(*doc.ExpenseLimit)
		if err != nil {
			return nil, err
		}
		d.ExpenseLimit = &limit
	}
	return d, nil
}

func encodeReceipt(r *models.DutyReceipt) (*receiptDoc, error) {
	amount, err := toDecimal128(r.Amount)
	if err != nil {
		return nil, err
	}
	doc := &receiptDoc{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		UploaderID:   r.UploaderID,
		Amount:       amount,
		EvidenceRefs: r.EvidenceRefs,
		Status:       string(r.Status),
		AdminNotes:   r.AdminNotes,
		ReviewedBy:   r.ReviewedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	for _, li := range r.LineItems {
		v, err := toDecimal128(li.Amount)
		if err != nil {
			return nil, err
		}
		doc.LineItems = append(doc.LineItems, lineItemDoc{Description: li.Description, Amount: v})
	}
	return doc, nil
}

func decodeReceipt(doc *receiptDoc) (*models.DutyReceipt, error) {
	amount, err := fromDecimal128(doc.Amount)
	if err != nil {
		return nil, err
	}
	r := &models.DutyReceipt{
		ID:           doc.ID,
		AssignmentID: doc.AssignmentID,
		UploaderID:   doc.UploaderID,
		Amount:       amount,
		EvidenceRefs: doc.EvidenceRefs,
		Status:       models.ReceiptStatus(doc.Status),
		AdminNotes:   doc.AdminNotes,
		ReviewedBy:   doc.ReviewedBy,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	for _, li := range doc.LineItems {
		v, err := fromDecimal128(li.Amount)
		if err != nil {
			return nil, err
		}
		r.LineItems = append(r.LineItems, models.LineItem{Description: li.Description, Amount: v})
	}
	return r, nil
}

func (d *dutyStore) duties() *mongo.Collection      { return d.s.db.Collection(colDuties) }
func (d *dutyStore) assignments() *mongo.Collection { return d.s.db.Collection(colAssignments) }
func (d *dutyStore) receipts() *mongo.Collection    { return d.s.db.Collection(colReceipts) }
func (d *dutyStore) votes() *mongo.Collection       { return d.s.db.Collection(colVotes) }

func (d *dutyStore) Insert(ctx context.Context, duty *models.Duty) error {
	if duty.ID.IsZero() {
		duty.ID = primitive.NewObjectID()
	}
	doc, err := encodeDuty(duty)
	if err != nil {
		return err
	}
	_, err = d.duties().InsertOne(ctx, doc)
	return err
}

func (d *dutyStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Duty, error) {
	var doc dutyDoc
	err := d.duties().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeDuty(&doc)
}

func (d *dutyStore) ListByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.Duty, error) {
	cursor, err := d.duties().Find(ctx, bson.M{"event_id": eventID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []dutyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Duty, 0, len(docs))
	for i := range docs {
		duty, err := decodeDuty(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *duty)
	}
	return out, nil
}

func (d *dutyStore) CASComplete(ctx context.Context, id primitive.ObjectID) (*models.Duty, error) {
	var doc dutyDoc
	err := d.duties().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": string(models.DutyOpen)},
		bson.M{"$set": bson.M{"status": string(models.DutyCompleted), "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		current, ferr := d.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &store.StateConflictError{Entity: "duty", ID: id.Hex(), Current: string(current.Status)}
	}
	if err != nil {
		return nil, err
	}
	return decodeDuty(&doc)
}

func (d *dutyStore) UpsertAssignment(ctx context.Context, a *models.DutyAssignment) (bool, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	filter := bson.M{"duty_id": a.DutyID, "member_id": a.MemberID}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        a.ID,
		"duty_id":    a.DutyID,
		"member_id":  a.MemberID,
		"created_at": a.CreatedAt,
	}}
	res, err := d.assignments().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

func (d *dutyStore) FindAssignment(ctx context.Context, id primitive.ObjectID) (*models.DutyAssignment, error) {
	var a models.DutyAssignment
	err := d.assignments().FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *dutyStore) ListAssignments(ctx context.Context, dutyID primitive.ObjectID) ([]models.DutyAssignment, error) {
	cursor, err := d.assignments().Find(ctx, bson.M{"duty_id": dutyID})
	if err != nil {
		return nil, err
	}
	var out []models.DutyAssignment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *dutyStore) InsertReceipt(ctx context.Context, r *models.DutyReceipt) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	doc, err := encodeReceipt(r)
	if err != nil {
		return err
	}
	_, err = d.receipts().InsertOne(ctx, doc)
	return err
}

func (d *dutyStore) FindReceipt(ctx context.Context, id primitive.ObjectID) (*models.DutyReceipt, error) {
	var doc receiptDoc
	err := d.receipts().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeReceipt(&doc)
}

func (d *dutyStore) assignmentIDs(ctx context.Context, dutyID primitive.ObjectID) ([]primitive.ObjectID, error) {
	assignments, err := d.ListAssignments(ctx, dutyID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (d *dutyStore) ListReceiptsByDuty(ctx context.Context, dutyID primitive.ObjectID) ([]models.DutyReceipt, error) {
	ids, err := d.assignmentIDs(ctx, dutyID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := d.receipts().Find(ctx,
		bson.M{"assignment_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []receiptDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.DutyReceipt, 0, len(docs))
	for i := range docs {
		r, err := decodeReceipt(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (d *dutyStore) CountPendingReceipts(ctx context.Context, dutyID primitive.ObjectID) (int, error) {
	ids, err := d.assignmentIDs(ctx, dutyID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := d.receipts().CountDocuments(ctx, bson.M{
		"assignment_id": bson.M{"$in": ids},
		"status":        string(models.ReceiptPending),
	})
	return int(n), err
}

func (d *dutyStore) CASReceiptStatus(ctx context.Context, id primitive.ObjectID, to models.ReceiptStatus, reviewerID primitive.ObjectID, notes string) (*models.DutyReceipt, error) {
	var doc receiptDoc
	err := d.receipts().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": string(models.ReceiptPending)},
		bson.M{"$set": bson.M{
			"status":      string(to),
			"reviewed_by": reviewerID,
			"admin_notes": notes,
			"updated_at":  time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		current, ferr := d.FindReceipt(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &store.StateConflictError{Entity: "receipt", ID: id.Hex(), Current: string(current.Status)}
	}
	if err != nil {
		return nil, err
	}
	return decodeReceipt(&doc)
}

func (d *dutyStore) ToggleVote(ctx context.Context, receiptID, voterID primitive.ObjectID) (bool, error) {
	filter := bson.M{"receipt_id": receiptID, "voter_id": voterID}
	res, err := d.votes().DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	if res.DeletedCount > 0 {
		return false, nil
	}
	_, err = d.votes().InsertOne(ctx, models.ReceiptVote{
		ID:        primitive.NewObjectID(),
		ReceiptID: receiptID,
		VoterID:   voterID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		// A concurrent toggle already added the vote.
		if mongo.IsDuplicateKeyError(err) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

func (d *dutyStore) ListVotes(ctx context.Context, receiptID primitive.ObjectID) ([]models.ReceiptVote, error) {
	cursor, err := d.votes().Find(ctx, bson.M{"receipt_id": receiptID})
	if err != nil {
		return nil, err
	}
	var out []models.ReceiptVote
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
