package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

// SubmitContributionInput carries a member's payment claim.
type SubmitContributionInput struct {
	EventID           primitive.ObjectID
	MemberID          primitive.ObjectID
	Amount            decimal.Decimal
	Method            models.PaymentMethod
	ExternalReference string
	ReceiptURL        string
}

// SubmitContribution records a payment claim. The event's trust settings
// are read once per call: methods the event requires admins to confirm
// land in paid_pending_admin_verification, auto-verify events credit
// eligible methods immediately through the same posting path as approval.
func (s *Service) SubmitContribution(ctx context.Context, in SubmitContributionInput) (*models.Contribution, error) {
	if !in.Amount.IsPositive() {
		return nil, store.Validation("amount", "must be greater than 0")
	}
	if !in.Method.Valid() {
		return nil, store.Validation("method", "unsupported payment method")
	}

	event, err := s.store.Events().FindByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}

	if in.ExternalReference != "" {
		existing, err := s.store.Contributions().FindActiveByReference(ctx, in.EventID, in.ExternalReference)
		if err == nil {
			return nil, &store.DuplicateReferenceError{
				Reference:  in.ExternalReference,
				ExistingID: existing.ID.Hex(),
			}
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	now := time.Now()
	contribution := &models.Contribution{
		ID:                primitive.NewObjectID(),
		EventID:           in.EventID,
		MemberID:          in.MemberID,
		Amount:            in.Amount,
		Method:            in.Method,
		ExternalReference: in.ExternalReference,
		Status:            models.ContributionPending,
		ReceiptURL:        in.ReceiptURL,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	switch {
	case event.Trust.NeedsAdminConfirmation(in.Method):
		contribution.Status = models.ContributionPaidPending
	case event.Trust.AutoVerify:
		// Auto-verified claims skip the manual queue but keep VerifiedBy
		// empty so the audit trail distinguishes them from human review.
		contribution.Status = models.ContributionVerified
		err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
			if err := s.store.Contributions().Insert(ctx, contribution); err != nil {
				return err
			}
			return s.store.Ledger().Post(ctx, creditFor(contribution, primitive.NilObjectID))
		})
		if err != nil {
			return nil, err
		}
		s.log.Info("contribution auto-verified",
			zap.String("contribution_id", contribution.ID.Hex()),
			zap.String("event_id", in.EventID.Hex()))
		return contribution, nil
	}

	if err := s.store.Contributions().Insert(ctx, contribution); err != nil {
		return nil, err
	}
	return contribution, nil
}

func creditFor(c *models.Contribution, postedBy primitive.ObjectID) *models.LedgerEntry {
	return &models.LedgerEntry{
		EventID:   c.EventID,
		Direction: models.Credit,
		Category:  models.CategoryContribution,
		Amount:    c.Amount,
		SourceRef: c.ID,
		PostedBy:  postedBy,
		CreatedAt: time.Now(),
	}
}

// reviewableStates are the states an admin decision may act on.
var reviewableStates = []models.ContributionStatus{
	models.ContributionPending,
	models.ContributionPaidPending,
}

// ApproveContribution flips the claim to verified and posts exactly one
// credit, as a single atomic unit. A retried or concurrent approval finds
// the claim already terminal-credited and returns it unchanged: the
// operation the caller wanted already happened.
func (s *Service) ApproveContribution(ctx context.Context, id primitive.ObjectID, actor Actor) (*models.Contribution, error) {
	if !actor.Admin() {
		return nil, store.ErrUnauthorized
	}

	var approved *models.Contribution
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := s.store.Contributions().CASStatus(ctx, id, reviewableStates, models.ContributionVerified, actor.ID, "")
		if err != nil {
			return err
		}
		approved = c
		return s.store.Ledger().Post(ctx, creditFor(c, actor.ID))
	})
	if err != nil {
		var conflict *store.StateConflictError
		if errors.As(err, &conflict) && models.ContributionStatus(conflict.Current).Credited() {
			// At-most-once: the credit was already posted by the winner.
			return s.store.Contributions().FindByID(ctx, id)
		}
		return nil, err
	}

	s.notify(func() { s.notifier.ContributionReviewed(approved, true) })
	return approved, nil
}

// RejectContribution moves a non-terminal claim to rejected with no ledger
// effect. An auto-verified claim (VerifiedBy empty) may also be rejected:
// since its credit is already posted, the correction is an offsetting
// reversal entry, never a delete. Rows are retained for audit either way.
func (s *Service) RejectContribution(ctx context.Context, id primitive.ObjectID, actor Actor, reason string) (*models.Contribution, error) {
	if !actor.Admin() {
		return nil, store.ErrUnauthorized
	}
	if reason == "" {
		return nil, store.Validation("reason", "required when rejecting")
	}

	current, err := s.store.Contributions().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case current.Status == models.ContributionRejected:
		// Retried rejection; nothing left to do.
		return current, nil

	case current.Status.Credited():
		if !current.VerifiedBy.IsZero() {
			return nil, &store.StateConflictError{Entity: "contribution", ID: id.Hex(), Current: string(current.Status)}
		}
		var rejected *models.Contribution
		err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
			c, err := s.store.Contributions().CASStatus(ctx, id,
				[]models.ContributionStatus{models.ContributionVerified, models.ContributionApproved},
				models.ContributionRejected, actor.ID, reason)
			if err != nil {
				return err
			}
			rejected = c
			return s.store.Ledger().Post(ctx, &models.LedgerEntry{
				EventID:   c.EventID,
				Direction: models.Debit,
				Category:  models.CategoryContributionReversal,
				Amount:    c.Amount,
				SourceRef: c.ID,
				PostedBy:  actor.ID,
				CreatedAt: time.Now(),
			})
		})
		if err != nil {
			return nil, err
		}
		s.notify(func() { s.notifier.ContributionReviewed(rejected, false) })
		return rejected, nil

	default:
		rejected, err := s.store.Contributions().CASStatus(ctx, id, reviewableStates, models.ContributionRejected, actor.ID, reason)
		if err != nil {
			return nil, err
		}
		s.notify(func() { s.notifier.ContributionReviewed(rejected, false) })
		return rejected, nil
	}
}

// IssueContributionReceipt moves a verified claim to approved once a
// receipt has been issued to the member. Both states are terminal-credited
// and interchangeable to readers; no ledger effect.
func (s *Service) IssueContributionReceipt(ctx context.Context, id primitive.ObjectID, actor Actor) (*models.Contribution, error) {
	if !actor.Admin() {
		return nil, store.ErrUnauthorized
	}
	c, err := s.store.Contributions().CASStatus(ctx, id,
		[]models.ContributionStatus{models.ContributionVerified},
		models.ContributionApproved, actor.ID, "")
	if err != nil {
		var conflict *store.StateConflictError
		if errors.As(err, &conflict) && conflict.Current == string(models.ContributionApproved) {
			return s.store.Contributions().FindByID(ctx, id)
		}
		return nil, err
	}
	return c, nil
}

// ListContributions returns an event's claims, optionally filtered.
func (s *Service) ListContributions(ctx context.Context, eventID primitive.ObjectID, filter store.ContributionFilter) ([]models.Contribution, error) {
	return s.store.Contributions().ListByEvent(ctx, eventID, filter)
}

// GetContribution fetches one claim.
func (s *Service) GetContribution(ctx context.Context, id primitive.ObjectID) (*models.Contribution, error) {
	return s.store.Contributions().FindByID(ctx, id)
}
