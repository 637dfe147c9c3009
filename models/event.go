package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrustSettings controls how member-submitted payment claims enter the
// approval queue. AutoVerify skips the manual queue entirely for methods
// that are not listed in ConfirmMethods; claims made with a ConfirmMethods
// method always land in paid_pending_admin_verification instead of pending.
// Settings are read once per submission, never cached across calls.
type TrustSettings struct {
	AutoVerify     bool     `bson:"auto_verify" json:"auto_verify"`
	ConfirmMethods []string `bson:"confirm_methods,omitempty" json:"confirm_methods,omitempty"`
}

// NeedsAdminConfirmation reports whether a method is configured to require
// explicit admin confirmation even when the member claims payment was made.
func (s TrustSettings) NeedsAdminConfirmation(method PaymentMethod) bool {
	for _, m := range s.ConfirmMethods {
		if m == string(method) {
			return true
		}
	}
	return false
}

type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizerID primitive.ObjectID `bson:"organizer_id" json:"organizer_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Location    string             `bson:"location,omitempty" json:"location,omitempty"`
	BudgetGoal  decimal.Decimal    `bson:"budget_goal" json:"budget_goal"`
	Deadline    *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	Status      string             `bson:"status" json:"status"` // ACTIVE, CLOSED, ARCHIVED
	Trust       TrustSettings      `bson:"trust" json:"trust"`
	Images      []string           `bson:"images" json:"images"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// EventMember is one member of an event together with their budget
// allocation. AssignedAmount is what the member is expected to contribute;
// it is written by the budget allocator and only read everywhere else.
type EventMember struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID        primitive.ObjectID `bson:"event_id" json:"event_id"`
	MemberID       primitive.ObjectID `bson:"member_id" json:"member_id"`
	Name           string             `bson:"name,omitempty" json:"name,omitempty"`
	AssignedAmount decimal.Decimal    `bson:"assigned_amount" json:"assigned_amount"`
	JoinedAt       time.Time          `bson:"joined_at" json:"joined_at"`
}
