package memory

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

type dutyStore Store

func (s *dutyStore) Insert(_ context.Context, duty *models.Duty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if duty.ID.IsZero() {
		duty.ID = primitive.NewObjectID()
	}
	s.duties[duty.ID] = *duty
	return nil
}

func (s *dutyStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Duty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.duties[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (s *dutyStore) ListByEvent(_ context.Context, eventID primitive.ObjectID) ([]models.Duty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Duty
	for _, d := range s.duties {
		if d.EventID == eventID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *dutyStore) CASComplete(_ context.Context, id primitive.ObjectID) (*models.Duty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duties[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if d.Status != models.DutyOpen {
		return nil, &store.StateConflictError{Entity: "duty", ID: id.Hex(), Current: string(d.Status)}
	}
	d.Status = models.DutyCompleted
	d.UpdatedAt = time.Now()
	s.duties[id] = d
	return &d, nil
}

func (s *dutyStore) UpsertAssignment(_ context.Context, a *models.DutyAssignment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		ex := &s.assignments[i]
		if ex.DutyID == a.DutyID && ex.MemberID == a.MemberID {
			*a = *ex
			return false, nil
		}
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	s.assignments = append(s.assignments, *a)
	return true, nil
}

func (s *dutyStore) FindAssignment(_ context.Context, id primitive.ObjectID) (*models.DutyAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.assignments {
		if s.assignments[i].ID == id {
			a := s.assignments[i]
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *dutyStore) ListAssignments(_ context.Context, dutyID primitive.ObjectID) ([]models.DutyAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DutyAssignment
	for _, a := range s.assignments {
		if a.DutyID == dutyID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *dutyStore) InsertReceipt(_ context.Context, r *models.DutyReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	s.receipts = append(s.receipts, *r)
	return nil
}

func (s *dutyStore) FindReceipt(_ context.Context, id primitive.ObjectID) (*models.DutyReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.receipts {
		if s.receipts[i].ID == id {
			r := s.receipts[i]
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *dutyStore) ListReceiptsByDuty(_ context.Context, dutyID primitive.ObjectID) ([]models.DutyReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.receiptsByDutyLocked(dutyID)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *dutyStore) CountPendingReceipts(_ context.Context, dutyID primitive.ObjectID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.receiptsByDutyLocked(dutyID) {
		if r.Status == models.ReceiptPending {
			n++
		}
	}
	return n, nil
}

// receiptsByDutyLocked resolves receipts through the duty's assignments.
// Callers must hold at least a read lock.
func (s *dutyStore) receiptsByDutyLocked(dutyID primitive.ObjectID) []models.DutyReceipt {
	ids := map[primitive.ObjectID]bool{}
	for _, a := range s.assignments {
		if a.DutyID == dutyID {
			ids[a.ID] = true
		}
	}
	var out []models.DutyReceipt
	for _, r := range s.receipts {
		if ids[r.AssignmentID] {
			out = append(out, r)
		}
	}
	return out
}

func (s *dutyStore) CASReceiptStatus(_ context.Context, id primitive.ObjectID, to models.ReceiptStatus, reviewerID primitive.ObjectID, notes string) (*models.DutyReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.receipts {
		r := &s.receipts[i]
		if r.ID != id {
			continue
		}
		if r.Status != models.ReceiptPending {
			return nil, &store.StateConflictError{Entity: "receipt", ID: id.Hex(), Current: string(r.Status)}
		}
		r.Status = to
		r.ReviewedBy = reviewerID
		r.AdminNotes = notes
		r.UpdatedAt = time.Now()
		out := *r
		return &out, nil
	}
	return nil, store.ErrNotFound
}

func (s *dutyStore) ToggleVote(_ context.Context, receiptID, voterID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.votes {
		if v.ReceiptID == receiptID && v.VoterID == voterID {
			s.votes = append(s.votes[:i], s.votes[i+1:]...)
			return false, nil
		}
	}
	s.votes = append(s.votes, models.ReceiptVote{
		ID:        primitive.NewObjectID(),
		ReceiptID: receiptID,
		VoterID:   voterID,
		CreatedAt: time.Now(),
	})
	return true, nil
}

func (s *dutyStore) ListVotes(_ context.Context, receiptID primitive.ObjectID) ([]models.ReceiptVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReceiptVote
	for _, v := range s.votes {
		if v.ReceiptID == receiptID {
			out = append(out, v)
		}
	}
	return out, nil
}
