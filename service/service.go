// Package service implements the contribution and duty-expense
// reconciliation engine: the approval state machines, the duplicate
// transaction guard, atomic ledger posting, budget arithmetic, and the
// derived analytics. Controllers stay thin; everything that must hold
// under concurrent input lives here and in the store contracts.
package service

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

// Actor identifies the caller of a mutating operation. Identity and role
// resolution happen outside this core; the engine only refuses mutation
// when the supplied role lacks admin standing.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

const RoleAdmin = "admin"

func (a Actor) Admin() bool { return a.Role == RoleAdmin }

// Notifier is informed after state transitions commit. Calls are
// best-effort: delivery failure must never roll back or block the
// transition, so the service invokes them on their own goroutine.
type Notifier interface {
	ContributionReviewed(c *models.Contribution, approved bool)
	ReceiptReviewed(r *models.DutyReceipt, approved bool)
	DutyAssigned(duty *models.Duty, memberID primitive.ObjectID)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) ContributionReviewed(*models.Contribution, bool)          {}
func (NopNotifier) ReceiptReviewed(*models.DutyReceipt, bool)                {}
func (NopNotifier) DutyAssigned(*models.Duty, primitive.ObjectID)            {}

type Service struct {
	store    store.Store
	notifier Notifier
	log      *zap.Logger
}

func New(st store.Store, notifier Notifier, log *zap.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, notifier: notifier, log: log}
}

// notify runs fn without blocking the caller.
func (s *Service) notify(fn func()) {
	go fn()
}
