package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContributionStatus is the closed set of states a payment claim moves
// through. Verified and Approved are both terminal credited states and are
// interchangeable to readers: verified means human- or auto-checked,
// approved means a receipt has additionally been issued to the member.
type ContributionStatus string

const (
	ContributionPending ContributionStatus = "pending"
	// ContributionPaidPending is used when the member claims payment was
	// already made with a method the event requires admins to confirm.
	ContributionPaidPending ContributionStatus = "paid_pending_admin_verification"
	ContributionVerified    ContributionStatus = "verified"
	ContributionApproved    ContributionStatus = "approved"
	ContributionRejected    ContributionStatus = "rejected"
)

// Terminal reports whether no further status transition is allowed.
func (s ContributionStatus) Terminal() bool {
	return s == ContributionVerified || s == ContributionApproved || s == ContributionRejected
}

// Credited reports whether the status counts as money collected.
func (s ContributionStatus) Credited() bool {
	return s == ContributionVerified || s == ContributionApproved
}

type PaymentMethod string

const (
	MethodUPI          PaymentMethod = "upi"
	MethodCard         PaymentMethod = "card"
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodOther        PaymentMethod = "other"
)

// Valid reports whether m is one of the supported payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodUPI, MethodCard, MethodCash, MethodBankTransfer, MethodOther:
		return true
	}
	return false
}

// Contribution is a member's claim of having made a payment toward the
// event goal out of band. Rows are never deleted; rejected claims are
// retained for audit. ExternalReference, when non-empty, is unique among
// non-rejected contributions within an event (the duplicate-payment guard).
type Contribution struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID           primitive.ObjectID `bson:"event_id" json:"event_id"`
	MemberID          primitive.ObjectID `bson:"member_id" json:"member_id"`
	Amount            decimal.Decimal    `bson:"amount" json:"amount"`
	Method            PaymentMethod      `bson:"method" json:"method"`
	ExternalReference string             `bson:"external_reference,omitempty" json:"external_reference,omitempty"`
	Status            ContributionStatus `bson:"status" json:"status"`
	// VerifiedBy is empty for auto-verified contributions so that auto- and
	// human-verification stay distinguishable in the audit trail.
	VerifiedBy primitive.ObjectID `bson:"verified_by,omitempty" json:"verified_by,omitempty"`
	RejectedReason string         `bson:"rejected_reason,omitempty" json:"rejected_reason,omitempty"`
	ReceiptURL string             `bson:"receipt_url,omitempty" json:"receipt_url,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
