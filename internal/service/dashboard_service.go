package service

import (
	"context"
	"fmt"
	"time"

	"jobshop/internal/model"
	"jobshop/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDashboardDays = 7
	maxDashboardDays     = 90
)

// failureWindows are the recency windows of failed search counts.
var failureWindows = []struct {
	name   string
	period time.Duration
}{
	{name: "24h", period: 24 * time.Hour},
	{name: "7d", period: 7 * 24 * time.Hour},
	{name: "30d", period: 30 * 24 * time.Hour},
}

type dashboardService struct {
	repo   repository.DashboardRepository
	now    func() time.Time
	logger zerolog.Logger
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(repo repository.DashboardRepository, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With().Str("service", "dashboard").Logger(),
	}
}

// Get runs the dashboard queries concurrently. Days without applications are
// reported with a zero count.
func (s *dashboardService) Get(ctx context.Context, rc model.RequestContext, days int) (*model.Dashboard, error) {
	if days == 0 {
		days = defaultDashboardDays
	}
	if days < 1 || days > maxDashboardDays {
		return nil, model.NewValidationError("days", fmt.Sprintf("must be between 1 and %d", maxDashboardDays))
	}

	userID := rc.UserID()
	now := s.now()
	firstDay := now.Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))

	dashboard := &model.Dashboard{
		FailedSearches: make([]model.WindowCount, len(failureWindows)),
	}
	var perDay []model.DayCount

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.repo.CountSearches(gctx, userID, model.JobSearchStatusPending, nil)
		dashboard.PendingSearches = n
		return err
	})

	for i, w := range failureWindows {
		g.Go(func() error {
			since := now.Add(-w.period)
			n, err := s.repo.CountSearches(gctx, userID, model.JobSearchStatusFailed, &since)
			dashboard.FailedSearches[i] = model.WindowCount{Window: w.name, Count: n}
			return err
		})
	}

	g.Go(func() error {
		var err error
		perDay, err = s.repo.ApplicationsPerDay(gctx, userID, firstDay)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to build dashboard")
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}

	dashboard.ApplicationsPerDay = fillDays(perDay, firstDay, days)

	return dashboard, nil
}

// fillDays returns one entry per day starting at first, taking counts from rows.
func fillDays(rows []model.DayCount, first time.Time, days int) []model.DayCount {
	counts := make(map[int64]int, len(rows))
	for _, r := range rows {
		counts[r.Day.UTC().Truncate(24*time.Hour).Unix()] = r.Count
	}

	out := make([]model.DayCount, 0, days)
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		out = append(out, model.DayCount{Day: day, Count: counts[day.Unix()]})
	}
	return out
}
