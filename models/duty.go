package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DutyStatus string

const (
	DutyOpen      DutyStatus = "open"
	DutyCompleted DutyStatus = "completed"
)

// Duty is an admin-delegated task that may carry an expense budget. It can
// only be completed once every receipt under it has left the pending state.
type Duty struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID      primitive.ObjectID `bson:"event_id" json:"event_id"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	ExpenseLimit *decimal.Decimal   `bson:"expense_limit,omitempty" json:"expense_limit,omitempty"`
	Deadline     *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	Status       DutyStatus         `bson:"status" json:"status"`
	CreatedBy    primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// DutyAssignment links a member to a duty. It has no status of its own;
// its state is derived from the receipts attached to it.
type DutyAssignment struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DutyID   primitive.ObjectID `bson:"duty_id" json:"duty_id"`
	MemberID primitive.ObjectID `bson:"member_id" json:"member_id"`
	CreatedAt time.Time         `bson:"created_at" json:"created_at"`
}

type ReceiptStatus string

const (
	ReceiptPending  ReceiptStatus = "pending"
	ReceiptApproved ReceiptStatus = "approved"
	ReceiptRejected ReceiptStatus = "rejected"
)

// Terminal reports whether the receipt can no longer change state.
func (s ReceiptStatus) Terminal() bool {
	return s == ReceiptApproved || s == ReceiptRejected
}

// LineItem is one row of an itemized receipt. When line items are present
// their amounts must sum to the receipt amount.
type LineItem struct {
	Description string          `bson:"description" json:"description"`
	Amount      decimal.Decimal `bson:"amount" json:"amount"`
}

// DutyReceipt is an expense claim submitted against a duty assignment.
// Status only moves pending to approved or pending to rejected, never back.
type DutyReceipt struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssignmentID primitive.ObjectID `bson:"assignment_id" json:"assignment_id"`
	UploaderID   primitive.ObjectID `bson:"uploader_id" json:"uploader_id"`
	Amount       decimal.Decimal    `bson:"amount" json:"amount"`
	LineItems    []LineItem         `bson:"line_items,omitempty" json:"line_items,omitempty"`
	// EvidenceRefs are opaque handles (secure URLs) into blob storage;
	// their content is never interpreted here.
	EvidenceRefs []string           `bson:"evidence_refs" json:"evidence_refs"`
	Status       ReceiptStatus      `bson:"status" json:"status"`
	AdminNotes   string             `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	ReviewedBy   primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// ReceiptVote is a lightweight peer attestation on a receipt, unique per
// (receipt, voter) pair. Advisory only: surfaced to admins, never an input
// to the approval state machine.
type ReceiptVote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReceiptID primitive.ObjectID `bson:"receipt_id" json:"receipt_id"`
	VoterID   primitive.ObjectID `bson:"voter_id" json:"voter_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
