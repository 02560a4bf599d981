package reports

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Muhsin-Gun/event-API/internal/modules/payments"
)

var ErrBadRange = errors.New("from and to are required (YYYY-MM-DD)")

type Service struct {
	db   *gorm.DB
	repo *payments.Repo
}

func NewService(db *gorm.DB, repo *payments.Repo) *Service {
	return &Service{db: db, repo: repo}
}

type SalesBucket struct {
	Year        int   `json:"year"`
	Month       int   `json:"month,omitempty"`
	Day         int   `json:"day,omitempty"`
	Week        int   `json:"week,omitempty"`
	TotalAmount int64 `json:"totalAmount"`
	Payments    int64 `json:"payments"`
}

type SalesReport struct {
	From    time.Time     `json:"from"`
	To      time.Time     `json:"to"`
	GroupBy string        `json:"groupBy"`
	Data    []SalesBucket `json:"data"`
}

// Sales aggregates settled payments between from and to, grouped by day,
// ISO week, or month (the default). Only SUCCESS rows count.
func (s *Service) Sales(ctx context.Context, from, to time.Time, groupBy string) (SalesReport, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return SalesReport{}, ErrBadRange
	}
	// inclusive end of day
	to = to.Add(24*time.Hour - time.Millisecond)

	var sel, grp, ord string
	switch groupBy {
	case "day":
		sel = "YEAR(created_at) AS year, MONTH(created_at) AS month, DAY(created_at) AS day"
		grp = "YEAR(created_at), MONTH(created_at), DAY(created_at)"
		ord = "year, month, day"
	case "week":
		sel = "YEAR(created_at) AS year, WEEK(created_at, 3) AS week"
		grp = "YEAR(created_at), WEEK(created_at, 3)"
		ord = "year, week"
	default:
		groupBy = "month"
		sel = "YEAR(created_at) AS year, MONTH(created_at) AS month"
		grp = "YEAR(created_at), MONTH(created_at)"
		ord = "year, month"
	}

	var buckets []SalesBucket
	err := s.db.WithContext(ctx).Model(&payments.Payment{}).
		Select(sel+", COALESCE(SUM(amount), 0) AS total_amount, COUNT(*) AS payments").
		Where("status = ? AND created_at BETWEEN ? AND ?", payments.StatusSuccess, from, to).
		Group(grp).
		Order(ord).
		Find(&buckets).Error
	if err != nil {
		return SalesReport{}, err
	}

	return SalesReport{From: from, To: to, GroupBy: groupBy, Data: buckets}, nil
}

// StatusRollup counts intents per state, for the dashboard.
func (s *Service) StatusRollup(ctx context.Context) (map[string]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(counts))
	for _, c := range counts {
		out[c.Status] = c.Count
	}
	return out, nil
}
