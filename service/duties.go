package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

type CreateDutyInput struct {
	EventID      primitive.ObjectID
	Title        string
	Description  string
	ExpenseLimit *decimal.Decimal
	Deadline     *time.Time
}

func (s *Service) CreateDuty(ctx context.Context, in CreateDutyInput, actor Actor) (*models.Duty, error) {
	if !actor.Admin() {
		return nil, store.ErrUnauthorized
	}
	if in.Title == "" {
		return nil, store.Validation("title", "required")
	}
	if in.ExpenseLimit != nil && !in.ExpenseLimit.IsPositive() {
		return nil, store.Validation("expense_limit", "must be greater than 0")
	}
	if _, err := s.store.Events().FindByID(ctx, in.EventID); err != nil {
		return nil, err
	}

	now := time.Now()
	duty := &models.Duty{
		ID:           primitive.NewObjectID(),
		EventID:      in.EventID,
		Title:        in.Title,
		Description:  in.Description,
		ExpenseLimit: in.ExpenseLimit,
		Deadline:     in.Deadline,
		Status:       models.DutyOpen,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Duties().Insert(ctx, duty); err != nil {
		return nil, err
	}
	return duty, nil
}

// AssignDuty upserts assignment rows for the given members. Assigning an
// already-assigned member is a silent no-op; only newly created
// assignments trigger a notification.
func (s *Service) AssignDuty(ctx context.Context, dutyID primitive.ObjectID, memberIDs []primitive.ObjectID, actor Actor) error {
	if !actor.Admin() {
		return store.ErrUnauthorized
	}
	duty, err := s.store.Duties().FindByID(ctx, dutyID)
	if err != nil {
		return err
	}
	for _, memberID := range memberIDs {
		assignment := &models.DutyAssignment{
			DutyID:    dutyID,
			MemberID:  memberID,
			CreatedAt: time.Now(),
		}
		created, err := s.store.Duties().UpsertAssignment(ctx, assignment)
		if err != nil {
			return err
		}
		if created {
			mid := memberID
			s.notify(func() { s.notifier.DutyAssigned(duty, mid) })
		}
	}
	return nil
}

type SubmitReceiptInput struct {
	AssignmentID primitive.ObjectID
	UploaderID   primitive.ObjectID
	Amount       decimal.Decimal
	LineItems    []models.LineItem
	EvidenceRefs []string
}

// SubmitReceipt records an expense claim against a duty assignment. When
// the parent duty declares an expense limit, the cumulative total counting
// pending receipts as if approved is checked against it; exceeding the
// limit is surfaced as a warning for the reviewing admin, not a hard
// rejection, since receipts may legitimately be split across uploaders.
func (s *Service) SubmitReceipt(ctx context.Context, in SubmitReceiptInput) (*models.DutyReceipt, string, error) {
	if !in.Amount.IsPositive() {
		return nil, "", store.Validation("amount", "must be greater than 0")
	}
	if len(in.LineItems) > 0 {
		sum := decimal.Zero
		for _, li := range in.LineItems {
			sum = sum.Add(li.Amount)
		}
		if !sum.Equal(in.Amount) {
			return nil, "", store.Validation("line_items",
				fmt.Sprintf("line items sum to %s, receipt amount is %s", sum, in.Amount))
		}
	}

	assignment, err := s.store.Duties().FindAssignment(ctx, in.AssignmentID)
	if err != nil {
		return nil, "", err
	}
	duty, err := s.store.Duties().FindByID(ctx, assignment.DutyID)
	if err != nil {
		return nil, "", err
	}
	if duty.Status != models.DutyOpen {
		return nil, "", &store.StateConflictError{Entity: "duty", ID: duty.ID.Hex(), Current: string(duty.Status)}
	}

	warning := ""
	if duty.ExpenseLimit != nil {
		cumulative := in.Amount
		existing, err := s.store.Duties().ListReceiptsByDuty(ctx, duty.ID)
		if err != nil {
			return nil, "", err
		}
		for _, r := range existing {
			if r.Status == models.ReceiptApproved || r.Status == models.ReceiptPending {
				cumulative = cumulative.Add(r.Amount)
			}
		}
		if cumulative.GreaterThan(*duty.ExpenseLimit) {
			warning = fmt.Sprintf("cumulative expenses %s exceed duty limit %s", cumulative, duty.ExpenseLimit)
			s.log.Warn("duty expense limit exceeded",
				zap.String("duty_id", duty.ID.Hex()),
				zap.String("cumulative", cumulative.String()),
				zap.String("limit", duty.ExpenseLimit.String()))
		}
	}

	now := time.Now()
	receipt := &models.DutyReceipt{
		ID:           primitive.NewObjectID(),
		AssignmentID: in.AssignmentID,
		UploaderID:   in.UploaderID,
		Amount:       in.Amount,
		LineItems:    in.LineItems,
		EvidenceRefs: in.EvidenceRefs,
		Status:       models.ReceiptPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Duties().InsertReceipt(ctx, receipt); err != nil {
		return nil, "", err
	}
	return receipt, warning, nil
}

type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// ReviewReceipt settles a pending expense claim. Approval flips the status
// and posts exactly one debit as a single atomic unit; concurrent or
// retried reviews with the same outcome observe the already-terminal
// receipt and succeed without side effects.
func (s *Service) ReviewReceipt(ctx context.Context, receiptID primitive.ObjectID, actor Actor, decision ReviewDecision, reason string) (*models.DutyReceipt, error) {
	if !actor.Admin() {
		return nil, store.ErrUnauthorized
	}

	switch decision {
	case DecisionApprove:
		return s.approveReceipt(ctx, receiptID, actor)
	case DecisionReject:
		if reason == "" {
			return nil, store.Validation("reason", "required when rejecting")
		}
		rejected, err := s.store.Duties().CASReceiptStatus(ctx, receiptID, models.ReceiptRejected, actor.ID, reason)
		if err != nil {
			var conflict *store.StateConflictError
			if errors.As(err, &conflict) && conflict.Current == string(models.ReceiptRejected) {
				return s.store.Duties().FindReceipt(ctx, receiptID)
			}
			return nil, err
		}
		s.notify(func() { s.notifier.ReceiptReviewed(rejected, false) })
		return rejected, nil
	default:
		return nil, store.Validation("decision", "must be approve or reject")
	}
}

func (s *Service) approveReceipt(ctx context.Context, receiptID primitive.ObjectID, actor Actor) (*models.DutyReceipt, error) {
	var approved *models.DutyReceipt
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		r, err := s.store.Duties().CASReceiptStatus(ctx, receiptID, models.ReceiptApproved, actor.ID, "")
		if err != nil {
			return err
		}
		approved = r

		assignment, err := s.store.Duties().FindAssignment(ctx, r.AssignmentID)
		if err != nil {
			return err
		}
		duty, err := s.store.Duties().FindByID(ctx, assignment.DutyID)
		if err != nil {
			return err
		}
		return s.store.Ledger().Post(ctx, &models.LedgerEntry{
			EventID:   duty.EventID,
			Direction: models.Debit,
			Category:  models.CategoryDutyExpense,
			Amount:    r.Amount,
			SourceRef: r.ID,
			PostedBy:  actor.ID,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		var conflict *store.StateConflictError
		if errors.As(err, &conflict) && conflict.Current == string(models.ReceiptApproved) {
			// The debit was already posted by whoever won the review.
			return s.store.Duties().FindReceipt(ctx, receiptID)
		}
		return nil, err
	}

	s.notify(func() { s.notifier.ReceiptReviewed(approved, true) })
	return approved, nil
}

// VoteReceipt toggles a peer attestation on a receipt. Votes are advisory
// only: they never change the receipt status or touch the ledger, and a
// member may not vote for their own submission.
func (s *Service) VoteReceipt(ctx context.Context, receiptID, voterID primitive.ObjectID) (bool, error) {
	receipt, err := s.store.Duties().FindReceipt(ctx, receiptID)
	if err != nil {
		return false, err
	}
	if receipt.UploaderID == voterID {
		return false, store.ErrInvalidVote
	}
	return s.store.Duties().ToggleVote(ctx, receiptID, voterID)
}

// CompleteDuty closes the books on a duty. It refuses while any receipt
// reachable through the duty's assignments is still pending, naming the
// blocking count.
func (s *Service) CompleteDuty(ctx context.Context, dutyID primitive.ObjectID, actor Actor) (*models.Duty, error) {
	if !actor.Admin() {
		return nil, store.ErrUnauthorized
	}
	pending, err := s.store.Duties().CountPendingReceipts(ctx, dutyID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, &store.PendingExpensesError{DutyID: dutyID.Hex(), Pending: pending}
	}

	duty, err := s.store.Duties().CASComplete(ctx, dutyID)
	if err != nil {
		var conflict *store.StateConflictError
		if errors.As(err, &conflict) && conflict.Current == string(models.DutyCompleted) {
			return s.store.Duties().FindByID(ctx, dutyID)
		}
		return nil, err
	}
	return duty, nil
}

// GetDuty returns a duty with its assignments, receipts and vote counts,
// for the admin review screen.
type DutyDetail struct {
	Duty        models.Duty             `json:"duty"`
	Assignments []models.DutyAssignment `json:"assignments"`
	Receipts    []ReceiptDetail         `json:"receipts"`
}

type ReceiptDetail struct {
	models.DutyReceipt
	Votes int `json:"votes"`
}

func (s *Service) GetDuty(ctx context.Context, dutyID primitive.ObjectID) (*DutyDetail, error) {
	duty, err := s.store.Duties().FindByID(ctx, dutyID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.Duties().ListAssignments(ctx, dutyID)
	if err != nil {
		return nil, err
	}
	receipts, err := s.store.Duties().ListReceiptsByDuty(ctx, dutyID)
	if err != nil {
		return nil, err
	}
	detail := &DutyDetail{Duty: *duty, Assignments: assignments}
	for _, r := range receipts {
		votes, err := s.store.Duties().ListVotes(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		detail.Receipts = append(detail.Receipts, ReceiptDetail{DutyReceipt: r, Votes: len(votes)})
	}
	return detail, nil
}

// ListDuties returns an event's duties.
func (s *Service) ListDuties(ctx context.Context, eventID primitive.ObjectID) ([]models.Duty, error) {
	return s.store.Duties().ListByEvent(ctx, eventID)
}
