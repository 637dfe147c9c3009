package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/eventfund-go/models"
	"github.com/phillip/eventfund-go/store"
)

const defaultFeedLimit = 50

// FeedItem is one row of the unified reconciliation feed. Claims are
// contributions shown at submission time with their current status; facts
// are ledger entries that have already been posted. Showing both lets an
// admin see what is awaiting action versus what is settled.
type FeedItem struct {
	Kind      string                    `json:"kind"` // claim | fact
	Direction models.LedgerDirection    `json:"direction"`
	Category  string                    `json:"category"`
	Status    models.ContributionStatus `json:"status,omitempty"`
	Amount    decimal.Decimal           `json:"amount"`
	Actor     primitive.ObjectID        `json:"actor"`
	SourceID  primitive.ObjectID        `json:"source_id"`
	Timestamp time.Time                 `json:"timestamp"`
}

// UnifiedFeed merges contribution claims and posted ledger entries into
// one time-ordered feed, newest first, paginated by offset and limit.
// This is a pure read over committed state; it never mutates anything.
func (s *Service) UnifiedFeed(ctx context.Context, eventID primitive.ObjectID, limit, offset int) ([]FeedItem, error) {
	contributions, err := s.store.Contributions().ListByEvent(ctx, eventID, store.ContributionFilter{})
	if err != nil {
		return nil, err
	}
	entries, err := s.store.Ledger().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, 0, len(contributions)+len(entries))
	for _, c := range contributions {
		items = append(items, FeedItem{
			Kind:      "claim",
			Direction: models.Credit,
			Category:  models.CategoryContribution,
			Status:    c.Status,
			Amount:    c.Amount,
			Actor:     c.MemberID,
			SourceID:  c.ID,
			Timestamp: c.CreatedAt,
		})
	}
	for _, e := range entries {
		items = append(items, FeedItem{
			Kind:      "fact",
			Direction: e.Direction,
			Category:  e.Category,
			Amount:    e.Amount,
			Actor:     e.PostedBy,
			SourceID:  e.ID,
			Timestamp: e.CreatedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp.After(items[j].Timestamp) })

	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if offset >= len(items) {
		return []FeedItem{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

// Balance returns sum(credits) - sum(debits) for the event.
func (s *Service) Balance(ctx context.Context, eventID primitive.ObjectID) (decimal.Decimal, error) {
	return s.store.Ledger().Balance(ctx, eventID)
}

type Progress struct {
	Assigned   decimal.Decimal `json:"assigned"`
	Paid       decimal.Decimal `json:"paid"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage int             `json:"percentage"`
}

// ProgressFor reports a member's contribution progress against their
// assigned amount. Paid counts claims that are at least in-flight-trusted
// (verified, approved or paid_pending_admin_verification) so members see
// progress before the admin queue catches up. Percentage is clamped to 100
// and an assigned amount of zero reads as 0%.
func (s *Service) ProgressFor(ctx context.Context, eventID, memberID primitive.ObjectID) (*Progress, error) {
	member, err := s.store.Members().FindByEventAndMember(ctx, eventID, memberID)
	if err != nil {
		return nil, err
	}
	contributions, err := s.store.Contributions().ListByEvent(ctx, eventID, store.ContributionFilter{MemberID: memberID})
	if err != nil {
		return nil, err
	}

	paid := decimal.Zero
	for _, c := range contributions {
		if c.Status.Credited() || c.Status == models.ContributionPaidPending {
			paid = paid.Add(c.Amount)
		}
	}

	assigned := member.AssignedAmount
	remaining := assigned.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	percentage := 0
	if assigned.IsPositive() {
		percentage = int(paid.Div(assigned).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
		if percentage > 100 {
			percentage = 100
		}
	}
	return &Progress{Assigned: assigned, Paid: paid, Remaining: remaining, Percentage: percentage}, nil
}

type Rank struct {
	Rank         int `json:"rank"`
	Percentile   int `json:"percentile"`
	TotalMembers int `json:"total_members"`
}

type LeaderboardRow struct {
	MemberID primitive.ObjectID `json:"member_id"`
	Name     string             `json:"name,omitempty"`
	Total    decimal.Decimal    `json:"total"`
	Rank     int                `json:"rank"`
}

// Leaderboard ranks members by their summed credited contributions,
// descending. Ties break on whoever first reached a credited contribution,
// so repeated calls produce the same ordering; members with no credited
// contribution order by join time at the bottom.
func (s *Service) Leaderboard(ctx context.Context, eventID primitive.ObjectID) ([]LeaderboardRow, error) {
	members, err := s.store.Members().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	contributions, err := s.store.Contributions().ListByEvent(ctx, eventID, store.ContributionFilter{})
	if err != nil {
		return nil, err
	}

	type standing struct {
		row     LeaderboardRow
		firstAt time.Time
	}
	byMember := make(map[primitive.ObjectID]*standing, len(members))
	ordered := make([]*standing, 0, len(members))
	for _, m := range members {
		st := &standing{
			row:     LeaderboardRow{MemberID: m.MemberID, Name: m.Name, Total: decimal.Zero},
			firstAt: m.JoinedAt,
		}
		byMember[m.MemberID] = st
		ordered = append(ordered, st)
	}

	for _, c := range contributions {
		if !c.Status.Credited() {
			continue
		}
		st, ok := byMember[c.MemberID]
		if !ok {
			continue
		}
		if st.row.Total.IsZero() {
			st.firstAt = c.CreatedAt
		}
		st.row.Total = st.row.Total.Add(c.Amount)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].row.Total.Equal(ordered[j].row.Total) {
			return ordered[i].row.Total.GreaterThan(ordered[j].row.Total)
		}
		return ordered[i].firstAt.Before(ordered[j].firstAt)
	})

	out := make([]LeaderboardRow, 0, len(ordered))
	for i, st := range ordered {
		st.row.Rank = i + 1
		out = append(out, st.row)
	}
	return out, nil
}

// RankFor returns a member's leaderboard position and percentile.
func (s *Service) RankFor(ctx context.Context, eventID, memberID primitive.ObjectID) (*Rank, error) {
	rows, err := s.Leaderboard(ctx, eventID)
	if err != nil {
		return nil, err
	}
	total := len(rows)
	for _, row := range rows {
		if row.MemberID != memberID {
			continue
		}
		percentile := 100
		if total > 1 {
			percentile = int(decimal.NewFromInt(int64(total - row.Rank)).
				Div(decimal.NewFromInt(int64(total))).
				Mul(decimal.NewFromInt(100)).
				Round(0).IntPart())
		}
		return &Rank{Rank: row.Rank, Percentile: percentile, TotalMembers: total}, nil
	}
	return nil, store.ErrNotFound
}
