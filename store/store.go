package store

import (
	"context"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
)

// Store is the root of the persistence layer. WithTransaction runs fn as
// one atomic unit of work: every store call made with the ctx it receives
// either all commits or all rolls back. The approval paths use it for the
// status-flip + ledger-post pairing; nothing else needs it.
type Store interface {
	Events() EventStore
	Members() MemberStore
	Contributions() ContributionStore
	Ledger() LedgerStore
	Duties() DutyStore

	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventStore interface {
	Insert(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	// ListByOrganizer lists events owned by an organizer, oldest first.
	// A zero organizer id lists all events.
	ListByOrganizer(ctx context.Context, organizerID primitive.ObjectID) ([]models.Event, error)
	SetBudgetGoal(ctx context.Context, id primitive.ObjectID, goal decimal.Decimal) error
	SetTrust(ctx context.Context, id primitive.ObjectID, trust models.TrustSettings) error
}

type MemberStore interface {
	// Upsert adds the member to the event; re-adding is a silent no-op.
	Upsert(ctx context.Context, member *models.EventMember) error
	FindByEventAndMember(ctx context.Context, eventID, memberID primitive.ObjectID) (*models.EventMember, error)
	ListByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.EventMember, error)
	CountByEvent(ctx context.Context, eventID primitive.ObjectID) (int, error)
	// SetAssignedAmount overrides one member's allocation.
	SetAssignedAmount(ctx context.Context, eventID, memberID primitive.ObjectID, amount decimal.Decimal) error
	// SetAssignedAmountAll overwrites every member's allocation, including
	// prior individual overrides.
	SetAssignedAmountAll(ctx context.Context, eventID primitive.ObjectID, amount decimal.Decimal) error
}

// ContributionFilter narrows contribution listings. Zero values match all.
type ContributionFilter struct {
	MemberID primitive.ObjectID
	Status   models.ContributionStatus
}

type ContributionStore interface {
	Insert(ctx context.Context, c *models.Contribution) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contribution, error)
	// ListByEvent returns contributions ordered by ascending creation time.
	ListByEvent(ctx context.Context, eventID primitive.ObjectID, filter ContributionFilter) ([]models.Contribution, error)
	// FindActiveByReference returns the non-rejected contribution holding
	// the given external reference in the event, or ErrNotFound.
	FindActiveByReference(ctx context.Context, eventID primitive.ObjectID, ref string) (*models.Contribution, error)
	// CASStatus transitions status from one of `from` to `to` under the
	// per-entity exclusivity guarantee and returns the updated row. When the
	// row exists but its status is outside `from`, a *StateConflictError
	// carrying the current status is returned and nothing changes.
	CASStatus(ctx context.Context, id primitive.ObjectID, from []models.ContributionStatus, to models.ContributionStatus, actorID primitive.ObjectID, reason string) (*models.Contribution, error)
}

type LedgerStore interface {
	// Post appends an immutable entry. It is only ever invoked from the
	// approval paths; posted entries are never edited or deleted.
	Post(ctx context.Context, entry *models.LedgerEntry) error
	// ListByEvent returns entries ordered by ascending creation time.
	ListByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.LedgerEntry, error)
	// Balance computes sum(credits) - sum(debits) from the entries.
	Balance(ctx context.Context, eventID primitive.ObjectID) (decimal.Decimal, error)
}

type DutyStore interface {
	Insert(ctx context.Context, duty *models.Duty) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Duty, error)
	ListByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.Duty, error)
	// CASComplete flips duty status open -> completed.
	CASComplete(ctx context.Context, id primitive.ObjectID) (*models.Duty, error)

	// UpsertAssignment reports whether a new assignment row was created;
	// assigning an already-assigned member is a silent no-op.
	UpsertAssignment(ctx context.Context, a *models.DutyAssignment) (bool, error)
	FindAssignment(ctx context.Context, id primitive.ObjectID) (*models.DutyAssignment, error)
	ListAssignments(ctx context.Context, dutyID primitive.ObjectID) ([]models.DutyAssignment, error)

	InsertReceipt(ctx context.Context, r *models.DutyReceipt) error
	FindReceipt(ctx context.Context, id primitive.ObjectID) (*models.DutyReceipt, error)
	// ListReceiptsByDuty returns all receipts reachable through the duty's
	// assignments, ordered by ascending creation time.
	ListReceiptsByDuty(ctx context.Context, dutyID primitive.ObjectID) ([]models.DutyReceipt, error)
	CountPendingReceipts(ctx context.Context, dutyID primitive.ObjectID) (int, error)
	// CASReceiptStatus is the receipt counterpart of
	// ContributionStore.CASStatus; from is always pending.
	CASReceiptStatus(ctx context.Context, id primitive.ObjectID, to models.ReceiptStatus, reviewerID primitive.ObjectID, notes string) (*models.DutyReceipt, error)

	// ToggleVote adds the (receipt, voter) attestation or removes an
	// existing one; reports whether the vote is now present.
	ToggleVote(ctx context.Context, receiptID, voterID primitive.ObjectID) (bool, error)
	ListVotes(ctx context.Context, receiptID primitive.ObjectID) ([]models.ReceiptVote, error)
}
