package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/repository"
)

type StatsUseCase interface {
	Yearly(ctx context.Context, year int) (*Report, error)
}

type MonthStats struct {
	Month         string `json:"month"`
	Rentals       int    `json:"rentals"`
	EarningsCents int64  `json:"earnings_cents"`
}

// Report holds one bucket per calendar month, January first.
type Report struct {
	Year          int                              `json:"year"`
	Months        []MonthStats                     `json:"months"`
	TotalRentals  int                              `json:"total_rentals"`
	TotalEarnings int64                            `json:"total_earnings_cents"`
	ByStatus      map[domain.ReservationStatus]int `json:"by_status"`
}

type StatsService struct {
	repo repository.StatsRepository
}

func NewStatsService(repo repository.StatsRepository) *StatsService {
	return &StatsService{repo: repo}
}

func (s *StatsService) Yearly(ctx context.Context, year int) (*Report, error) {
	if year < 1970 || year > 9999 {
		return nil, domain.NewValidationError("year", "is out of range")
	}

	totals, err := s.repo.MonthlyTotals(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	counts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}

	report := &Report{
		Year:     year,
		Months:   make([]MonthStats, 12),
		ByStatus: make(map[domain.ReservationStatus]int, len(counts)),
	}
	for i := range report.Months {
		report.Months[i].Month = time.Month(i + 1).String()
	}
	for _, t := range totals {
		if t.Month < 1 || t.Month > 12 {
			continue
		}
		report.Months[t.Month-1].Rentals = t.Rentals
		report.Months[t.Month-1].EarningsCents = t.EarningsCents
		report.TotalRentals += t.Rentals
		report.TotalEarnings += t.EarningsCents
	}
	for _, c := range counts {
		report.ByStatus[c.Status] = c.Count
	}
	return report, nil
}

var _ StatsUseCase = (*StatsService)(nil)
