package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

const (
	recentWindow       = 7 * 24 * time.Hour
	topVegetablesLimit = 10
)

// Dashboard собирает сводку. Источники читаются параллельно, результат не кэшируется.
func (s *Service) Dashboard(ctx context.Context) (*models.DashboardSummary, error) {
	const op = "services.admin.Dashboard"

	var (
		users         []models.User
		harvests      []models.HarvestRequest
		rentals       []models.RentalRequest
		vegetables    []models.Vegetable
		notifications int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.users.ListUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		harvests, err = s.requests.HarvestInRange(gctx, nil, nil)
		return err
	})
	g.Go(func() (err error) {
		rentals, err = s.requests.RentalsInRange(gctx, nil, nil)
		return err
	})
	g.Go(func() (err error) {
		vegetables, err = s.vegetables.ListVegetables(gctx, true)
		return err
	})
	g.Go(func() (err error) {
		notifications, err = s.notifications.CountNotifications(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	if s.now != nil {
		now = s.now()
	}
	today := day.Of(now)
	since := now.Add(-recentWindow)

	summary := &models.DashboardSummary{
		Summary: models.SummaryCounts{
			Users:         countUsers(users),
			Vegetables:    len(vegetables),
			Notifications: notifications,
		},
		TodaySchedule: models.TodaySchedule{
			Harvests: make([]models.ScheduleItem, 0),
			Pickups:  make([]models.ScheduleItem, 0),
		},
		LastUpdated: now,
	}

	for _, u := range users {
		if !u.CreatedAt.Before(since) {
			summary.RecentActivity.NewUsers++
		}
	}

	for _, r := range harvests {
		countStatus(&summary.Summary.Harvest, r.Status)
		if !r.CreatedAt.Before(since) {
			summary.RecentActivity.NewHarvestRequests++
		}
		if r.DeliveryDate.Equal(today) && upcoming(r.Status) {
			summary.TodaySchedule.Harvests = append(summary.TodaySchedule.Harvests, models.ScheduleItem{
				ID:            r.ID,
				UserName:      r.UserName,
				VegetableItem: r.VegetableItem,
				Quantity:      r.Quantity,
				Status:        r.Status,
			})
		}
	}

	for _, r := range rentals {
		countStatus(&summary.Summary.Oricon, r.Status)
		if !r.CreatedAt.Before(since) {
			summary.RecentActivity.NewOriconRentals++
		}
		if r.PickupDate.Equal(today) && upcoming(r.Status) {
			summary.TodaySchedule.Pickups = append(summary.TodaySchedule.Pickups, models.ScheduleItem{
				ID:       r.ID,
				UserName: r.UserName,
				Quantity: r.Quantity,
				Status:   r.Status,
			})
		}
	}

	summary.VegetableStats = vegetableStats(vegetables, harvests)

	s.log.Debug("dashboard computed",
		slog.Int("users", summary.Summary.Users.Total),
		slog.Int("harvest", summary.Summary.Harvest.Total),
		slog.Int("oricon", summary.Summary.Oricon.Total),
	)
	return summary, nil
}

func countUsers(users []models.User) models.UserCounts {
	c := models.UserCounts{Total: len(users)}
	for _, u := range users {
		switch u.Status {
		case models.UserActive:
			c.Active++
		case models.UserInactive:
			c.Inactive++
		case models.UserBlocked:
			c.Blocked++
		}
		if u.Role == models.RoleAdmin {
			c.Admins++
		}
	}
	return c
}

func countStatus(c *models.RequestCounts, s models.Status) {
	switch s {
	case models.StatusPending:
		c.Pending++
	case models.StatusApproved:
		c.Approved++
	case models.StatusRejected:
		c.Rejected++
	case models.StatusCompleted:
		c.Completed++
	default:
		return
	}
	c.Total++
}

// vegetableStats считает заявки по каждому активному овощу и оставляет
// первые topVegetablesLimit по числу заявок.
func vegetableStats(vegetables []models.Vegetable, harvests []models.HarvestRequest) []models.VegetableStat {
	byName := make(map[string]*models.VegetableStat, len(vegetables))
	stats := make([]models.VegetableStat, len(vegetables))
	for i, v := range vegetables {
		stats[i] = models.VegetableStat{ItemName: v.ItemName}
		byName[v.ItemName] = &stats[i]
	}
	for _, r := range harvests {
		if st, ok := byName[r.VegetableItem]; ok {
			st.RequestCount++
			st.TotalQuantity += r.Quantity
		}
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].RequestCount > stats[j].RequestCount
	})
	if len(stats) > topVegetablesLimit {
		stats = stats[:topVegetablesLimit]
	}
	return stats
}

func upcoming(s models.Status) bool {
	return s == models.StatusPending || s == models.StatusApproved
}
