package utils

import (
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/phillip/eventfund-go/models"
)

// EmailNotifier implements service.Notifier over ZeptoMail. Delivery is
// best-effort: failures are logged and never propagate, so a lost email
// can never roll back or block a committed state transition.
type EmailNotifier struct {
	To  string
	Log *zap.Logger
}

func (n *EmailNotifier) send(subject, body string) {
	if n.To == "" {
		return
	}
	msgID := uuid.NewString()
	if err := SendEmail(n.To, subject, body); err != nil {
		n.Log.Warn("notification delivery failed",
			zap.String("message_id", msgID),
			zap.String("subject", subject),
			zap.Error(err))
		return
	}
	n.Log.Info("notification sent",
		zap.String("message_id", msgID),
		zap.String("subject", subject))
}

func (n *EmailNotifier) ContributionReviewed(c *models.Contribution, approved bool) {
	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	n.send(
		fmt.Sprintf("Contribution %s", verdict),
		fmt.Sprintf("<p>Contribution %s for %s was %s.</p>", c.ID.Hex(), c.Amount, verdict),
	)
}

func (n *EmailNotifier) ReceiptReviewed(r *models.DutyReceipt, approved bool) {
	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	n.send(
		fmt.Sprintf("Expense receipt %s", verdict),
		fmt.Sprintf("<p>Receipt %s for %s was %s.</p>", r.ID.Hex(), r.Amount, verdict),
	)
}

func (n *EmailNotifier) DutyAssigned(duty *models.Duty, memberID primitive.ObjectID) {
	n.send(
		"New duty assignment",
		fmt.Sprintf("<p>Member %s was assigned to duty %q.</p>", memberID.Hex(), duty.Title),
	)
}
