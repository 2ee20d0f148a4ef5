package service

import (
	"context"
	"fmt"
	"time"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/repository"
)

// StatsService aggregates the session log and the payment ledger into
// time-bucketed reports. It is strictly read-only. Session counts come from
// the occupancy log; revenue comes from paid payment records only. The two
// diverge for unpaid sessions and that divergence is intentional (activity
// volume vs. collected revenue).
type StatsService struct {
	spaceRepo   repository.ParkingSpaceRepository
	sessionRepo repository.ParkingSessionRepository
	paymentRepo repository.PaymentRepository
}

func NewStatsService(
	spaceRepo repository.ParkingSpaceRepository,
	sessionRepo repository.ParkingSessionRepository,
	paymentRepo repository.PaymentRepository,
) *StatsService {
	return &StatsService{
		spaceRepo:   spaceRepo,
		sessionRepo: sessionRepo,
		paymentRepo: paymentRepo,
	}
}

// paidFees maps session key -> fee for records with status paid.
func (s *StatsService) paidFees(ctx context.Context, sessions []domain.ParkingSession) (map[string]int64, error) {
	if len(sessions) == 0 {
		return map[string]int64{}, nil
	}
	keys := make([]string, 0, len(sessions))
	for i := range sessions {
		keys = append(keys, sessions[i].SessionKey)
	}
	records, err := s.paymentRepo.FindByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("loading payment records: %w", err)
	}
	paid := make(map[string]int64, len(records))
	for i := range records {
		if records[i].Status == domain.PaymentPaid {
			paid[records[i].SessionKey] = records[i].Fee
		}
	}
	return paid, nil
}

// Summarize counts sessions by exit time in [from, to), so a session
// belongs to the period it ended in, and sums collected revenue for those
// sessions.
func (s *StatsService) Summarize(ctx context.Context, from, to time.Time, lotID *int) (*domain.SummaryReport, error) {
	sessions, err := s.sessionRepo.FindClosedInRange(ctx, from, to, lotID)
	if err != nil {
		return nil, fmt.Errorf("listing closed sessions: %w", err)
	}
	paid, err := s.paidFees(ctx, sessions)
	if err != nil {
		return nil, err
	}

	report := &domain.SummaryReport{TotalSessions: len(sessions)}
	var totalHours float64
	for i := range sessions {
		session := &sessions[i]
		report.TotalRevenue += paid[session.SessionKey]
		totalHours += session.ExitTime.Time.Sub(session.StartTime).Hours()
	}
	if len(sessions) > 0 {
		report.AvgDurationHours = totalHours / float64(len(sessions))
	}
	return report, nil
}

// HourlyBreakdown buckets entries by the hour-of-day of the start time and
// exits/revenue by the hour-of-day of the exit time, summed across every
// day of the range.
func (s *StatsService) HourlyBreakdown(ctx context.Context, from, to time.Time, lotID *int) ([]domain.HourlyBucket, error) {
	sessions, err := s.sessionRepo.FindOverlappingRange(ctx, from, to, lotID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	paid, err := s.paidFees(ctx, sessions)
	if err != nil {
		return nil, err
	}

	buckets := make([]domain.HourlyBucket, 24)
	for h := range buckets {
		buckets[h].Hour = h
	}
	for i := range sessions {
		session := &sessions[i]
		start := session.StartTime.UTC()
		if !start.Before(from) && start.Before(to) {
			buckets[start.Hour()].EntryCount++
		}
		if session.ExitTime.Valid {
			exit := session.ExitTime.Time.UTC()
			if !exit.Before(from) && exit.Before(to) {
				buckets[exit.Hour()].ExitCount++
				buckets[exit.Hour()].Revenue += paid[session.SessionKey]
			}
		}
	}
	return buckets, nil
}

// DailyBreakdown groups exit-based activity and collected revenue by
// calendar day (UTC).
func (s *StatsService) DailyBreakdown(ctx context.Context, from, to time.Time, lotID *int) ([]domain.DailyBucket, error) {
	sessions, err := s.sessionRepo.FindClosedInRange(ctx, from, to, lotID)
	if err != nil {
		return nil, fmt.Errorf("listing closed sessions: %w", err)
	}
	paid, err := s.paidFees(ctx, sessions)
	if err != nil {
		return nil, err
	}

	type dayAccum struct {
		count   int
		revenue int64
		hours   float64
	}
	byDay := make(map[string]*dayAccum)
	var order []string
	for i := range sessions {
		session := &sessions[i]
		day := session.ExitTime.Time.UTC().Format("2006-01-02")
		accum, ok := byDay[day]
		if !ok {
			accum = &dayAccum{}
			byDay[day] = accum
			order = append(order, day)
		}
		accum.count++
		accum.revenue += paid[session.SessionKey]
		accum.hours += session.ExitTime.Time.Sub(session.StartTime).Hours()
	}

	buckets := make([]domain.DailyBucket, 0, len(order))
	for _, day := range order {
		accum := byDay[day]
		bucket := domain.DailyBucket{
			Date:         day,
			SessionCount: accum.count,
			Revenue:      accum.revenue,
		}
		if accum.count > 0 {
			bucket.AvgDurationHours = accum.hours / float64(accum.count)
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}

// PeakUtilization reports, per hour-of-day, how many spaces were occupied,
// averaged across the days of the range. A session occupies the hour slot
// [t, t+1h) when it started before the slot ends and had not exited by the
// slot's start (open sessions count as unbounded). That is what carries a
// session spanning midnight into hour 0 of the next day.
func (s *StatsService) PeakUtilization(ctx context.Context, from, to time.Time, lotID *int) ([]domain.UtilizationBucket, error) {
	sessions, err := s.sessionRepo.FindOverlappingRange(ctx, from, to, lotID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	totalSpaces, err := s.totalSpaces(ctx, lotID)
	if err != nil {
		return nil, err
	}

	firstDay := from.UTC().Truncate(24 * time.Hour)
	lastDay := to.UTC().Add(-time.Second).Truncate(24 * time.Hour)
	days := 0
	counts := make([]int, 24)
	for day := firstDay; !day.After(lastDay); day = day.Add(24 * time.Hour) {
		days++
		for h := 0; h < 24; h++ {
			slotStart := day.Add(time.Duration(h) * time.Hour)
			slotEnd := slotStart.Add(time.Hour)
			for i := range sessions {
				session := &sessions[i]
				if !session.StartTime.Before(slotEnd) {
					continue
				}
				if session.ExitTime.Valid && !session.ExitTime.Time.After(slotStart) {
					continue
				}
				counts[h]++
			}
		}
	}

	buckets := make([]domain.UtilizationBucket, 24)
	for h := range buckets {
		buckets[h].Hour = h
		buckets[h].TotalSpaces = totalSpaces
		if days > 0 {
			buckets[h].OccupiedCount = float64(counts[h]) / float64(days)
		}
		if totalSpaces > 0 {
			buckets[h].Rate = buckets[h].OccupiedCount / float64(totalSpaces)
		}
	}
	return buckets, nil
}

// totalSpaces is a property of the lot registry, never recomputed from
// sessions.
func (s *StatsService) totalSpaces(ctx context.Context, lotID *int) (int, error) {
	if lotID != nil {
		count, err := s.spaceRepo.CountByLotID(ctx, *lotID)
		if err != nil {
			return 0, fmt.Errorf("counting spaces for lot %d: %w", *lotID, err)
		}
		return count, nil
	}
	count, err := s.spaceRepo.CountAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting spaces: %w", err)
	}
	return count, nil
}
