package service

import (
	"context"
	"testing"
	"time"

	"plaza_backoffice/internal/domain"
)

func TestSummarize(t *testing.T) {
	st := newTestStack(10, 3)
	ctx := context.Background()
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	// One 90-minute session at rate 10, paid: bills 2 hours, fee 20.
	s1 := closeSessionAt(t, st, "AAA-111", st.spaces[0].ID, day.Add(8*time.Hour), 90*time.Minute)
	if err := st.payments.RecordUnpaid(ctx, s1); err != nil {
		t.Fatalf("RecordUnpaid: %v", err)
	}
	if _, err := st.payments.Pay(ctx, "AAA-111", st.spaces[0].ID, s1.StartTime, 0, "card", "txn-1"); err != nil {
		t.Fatalf("Pay: %v", err)
	}

	report, err := st.stats.Summarize(ctx, day, day.AddDate(0, 0, 1), nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if report.TotalSessions != 1 {
		t.Errorf("total sessions %d, want 1", report.TotalSessions)
	}
	if report.TotalRevenue != 20 {
		t.Errorf("total revenue %d, want 20", report.TotalRevenue)
	}
	if report.AvgDurationHours != 1.5 {
		t.Errorf("avg duration %.2f hours, want 1.5", report.AvgDurationHours)
	}
}

func TestSummarizeRevenueCountsPaidOnly(t *testing.T) {
	st := newTestStack(10, 3)
	ctx := context.Background()
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	paidSession := closeSessionAt(t, st, "AAA-111", st.spaces[0].ID, day.Add(8*time.Hour), time.Hour)
	unpaidSession := closeSessionAt(t, st, "BBB-222", st.spaces[1].ID, day.Add(9*time.Hour), time.Hour)
	for _, session := range []*domain.ParkingSession{paidSession, unpaidSession} {
		if err := st.payments.RecordUnpaid(ctx, session); err != nil {
			t.Fatalf("RecordUnpaid: %v", err)
		}
	}
	if _, err := st.payments.Pay(ctx, "AAA-111", st.spaces[0].ID, paidSession.StartTime, 0, "card", "txn-1"); err != nil {
		t.Fatalf("Pay: %v", err)
	}

	report, err := st.stats.Summarize(ctx, day, day.AddDate(0, 0, 1), nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if report.TotalSessions != 2 {
		t.Errorf("total sessions %d, want 2 (activity counts unpaid sessions)", report.TotalSessions)
	}
	if report.TotalRevenue != 10 {
		t.Errorf("total revenue %d, want 10 (only the paid session)", report.TotalRevenue)
	}
}

func TestSummarizeExitBasedAccounting(t *testing.T) {
	st := newTestStack(10, 2)
	ctx := context.Background()
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	// Starts before the window, exits inside it: counted.
	closeSessionAt(t, st, "AAA-111", st.spaces[0].ID, day.Add(-2*time.Hour), 3*time.Hour)
	// Starts inside the window, exits after it: not counted.
	closeSessionAt(t, st, "BBB-222", st.spaces[1].ID, day.Add(23*time.Hour), 2*time.Hour)

	report, err := st.stats.Summarize(ctx, day, day.AddDate(0, 0, 1), nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if report.TotalSessions != 1 {
		t.Errorf("total sessions %d, want 1 (exit-based accounting)", report.TotalSessions)
	}
}

func TestHourlyBreakdown(t *testing.T) {
	st := newTestStack(10, 3)
	ctx := context.Background()
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	// Entry 08:15, exit 10:30. Paid fee 30 lands in the exit hour.
	s1 := closeSessionAt(t, st, "AAA-111", st.spaces[0].ID, day.Add(8*time.Hour+15*time.Minute), 2*time.Hour+15*time.Minute)
	if err := st.payments.RecordUnpaid(ctx, s1); err != nil {
		t.Fatalf("RecordUnpaid: %v", err)
	}
	if _, err := st.payments.Pay(ctx, "AAA-111", st.spaces[0].ID, s1.StartTime, 0, "card", "txn-1"); err != nil {
		t.Fatalf("Pay: %v", err)
	}
	// Second entry in hour 8 on the next day folds into the same bucket.
	closeSessionAt(t, st, "BBB-222", st.spaces[1].ID, day.AddDate(0, 0, 1).Add(8*time.Hour+45*time.Minute), 30*time.Minute)

	buckets, err := st.stats.HourlyBreakdown(ctx, day, day.AddDate(0, 0, 2), nil)
	if err != nil {
		t.Fatalf("HourlyBreakdown: %v", err)
	}
	if len(buckets) != 24 {
		t.Fatalf("%d buckets, want 24", len(buckets))
	}
	if buckets[8].EntryCount != 2 {
		t.Errorf("hour 8 entries %d, want 2 (summed across days)", buckets[8].EntryCount)
	}
	if buckets[10].ExitCount != 1 {
		t.Errorf("hour 10 exits %d, want 1", buckets[10].ExitCount)
	}
	if buckets[10].Revenue != 30 {
		t.Errorf("hour 10 revenue %d, want 30", buckets[10].Revenue)
	}
	if buckets[9].EntryCount != 0 || buckets[9].ExitCount != 1 {
		t.Errorf("hour 9 entries/exits %d/%d, want 0/1", buckets[9].EntryCount, buckets[9].ExitCount)
	}
}

func TestDailyBreakdown(t *testing.T) {
	st := newTestStack(10, 3)
	ctx := context.Background()
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	closeSessionAt(t, st, "AAA-111", st.spaces[0].ID, day.Add(8*time.Hour), time.Hour)
	closeSessionAt(t, st, "BBB-222", st.spaces[1].ID, day.Add(10*time.Hour), 3*time.Hour)
	closeSessionAt(t, st, "CCC-333", st.spaces[2].ID, day.AddDate(0, 0, 1).Add(9*time.Hour), 2*time.Hour)

	buckets, err := st.stats.DailyBreakdown(ctx, day, day.AddDate(0, 0, 2), nil)
	if err != nil {
		t.Fatalf("DailyBreakdown: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("%d daily buckets, want 2", len(buckets))
	}
	byDate := make(map[string]domain.DailyBucket, len(buckets))
	for _, bucket := range buckets {
		byDate[bucket.Date] = bucket
	}
	d1 := byDate["2026-04-01"]
	if d1.SessionCount != 2 {
		t.Errorf("day 1 sessions %d, want 2", d1.SessionCount)
	}
	if d1.AvgDurationHours != 2.0 {
		t.Errorf("day 1 avg duration %.2f, want 2.0", d1.AvgDurationHours)
	}
	d2 := byDate["2026-04-02"]
	if d2.SessionCount != 1 {
		t.Errorf("day 2 sessions %d, want 1", d2.SessionCount)
	}
}

func TestPeakUtilizationMidnightCarry(t *testing.T) {
	st := newTestStack(10, 2)
	ctx := context.Background()
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	// 23:30 day 1 to 00:45 day 2: occupies hour 23 of day 1 and hour 0 of
	// day 2.
	closeSessionAt(t, st, "AAA-111", st.spaces[0].ID, day.Add(23*time.Hour+30*time.Minute), 75*time.Minute)

	buckets, err := st.stats.PeakUtilization(ctx, day, day.AddDate(0, 0, 2), nil)
	if err != nil {
		t.Fatalf("PeakUtilization: %v", err)
	}

	// Two days in range, occupied one of them: average 0.5 in each slot.
	if buckets[23].OccupiedCount != 0.5 {
		t.Errorf("hour 23 occupied count %.2f, want 0.5", buckets[23].OccupiedCount)
	}
	if buckets[0].OccupiedCount != 0.5 {
		t.Errorf("hour 0 occupied count %.2f, want 0.5 (midnight carry)", buckets[0].OccupiedCount)
	}
	if buckets[12].OccupiedCount != 0 {
		t.Errorf("hour 12 occupied count %.2f, want 0", buckets[12].OccupiedCount)
	}
	if buckets[23].TotalSpaces != 2 {
		t.Errorf("total spaces %d, want 2 (from the registry)", buckets[23].TotalSpaces)
	}
	if buckets[23].Rate != 0.25 {
		t.Errorf("hour 23 rate %.2f, want 0.25", buckets[23].Rate)
	}
}

func TestPeakUtilizationCountsOpenSessions(t *testing.T) {
	st := newTestStack(10, 1)
	ctx := context.Background()
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	open := &domain.ParkingSession{
		SessionKey: domain.SessionKey("AAA-111", st.spaces[0].ID, day.Add(6*time.Hour)),
		LotID:      st.lot.ID,
		SpaceID:    st.spaces[0].ID,
		Plate:      "AAA-111",
		StartTime:  day.Add(6 * time.Hour),
	}
	if _, err := st.sessionRepo.Create(ctx, open); err != nil {
		t.Fatalf("seeding open session: %v", err)
	}

	buckets, err := st.stats.PeakUtilization(ctx, day, day.AddDate(0, 0, 1), nil)
	if err != nil {
		t.Fatalf("PeakUtilization: %v", err)
	}
	if buckets[5].OccupiedCount != 0 {
		t.Errorf("hour 5 occupied %.2f, want 0 (before entry)", buckets[5].OccupiedCount)
	}
	for h := 6; h < 24; h++ {
		if buckets[h].OccupiedCount != 1 {
			t.Errorf("hour %d occupied %.2f, want 1 (open session is unbounded)", h, buckets[h].OccupiedCount)
		}
	}
}
