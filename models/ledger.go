package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LedgerDirection string

const (
	Credit LedgerDirection = "credit"
	Debit  LedgerDirection = "debit"
)

// Ledger entry categories. Corrections are modeled as a new offsetting
// entry, never by editing or deleting a posted one.
const (
	CategoryContribution         = "contribution"
	CategoryContributionReversal = "contribution_reversal"
	CategoryDutyExpense          = "duty_expense"
)

// LedgerEntry is an immutable posted credit or debit. Exactly one entry is
// created per approved Contribution and per approved DutyReceipt; SourceRef
// points back at the row that caused it.
type LedgerEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID   primitive.ObjectID `bson:"event_id" json:"event_id"`
	Direction LedgerDirection    `bson:"direction" json:"direction"`
	Category  string             `bson:"category" json:"category"`
	Amount    decimal.Decimal    `bson:"amount" json:"amount"`
	SourceRef primitive.ObjectID `bson:"source_ref,omitempty" json:"source_ref,omitempty"`
	PostedBy  primitive.ObjectID `bson:"posted_by,omitempty" json:"posted_by,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Signed returns the amount with debits negated, for balance sums.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Direction == Debit {
		return e.Amount.Neg()
	}
	return e.Amount
}
