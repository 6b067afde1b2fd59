package scheduling

import (
	"testing"
	"time"

	"github.com/Dosada05/league-system/fixtures"
	"github.com/Dosada05/league-system/models"
)

var testStart = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC) // Monday

func skeletons(t *testing.T, n int, format models.LeagueFormat) []fixtures.MatchSkeleton {
	t.Helper()
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	sk, err := fixtures.NewRoundRobinGenerator().Generate(fixtures.GenerateParams{Format: format, TeamIDs: ids})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return sk
}

func TestAssign_AllMatchesPlaced(t *testing.T) {
	a := NewAssigner(Constraints{Courts: []string{"court-1", "court-2"}})
	sk := skeletons(t, 6, models.FormatSingleRoundRobin)

	assignments, failures := a.Assign(testStart, sk, nil, nil)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	if len(assignments) != len(sk) {
		t.Fatalf("expected %d assignments, got %d", len(sk), len(assignments))
	}

	// Ни один корт не занят двумя матчами одновременно.
	for i := range assignments {
		for j := i + 1; j < len(assignments); j++ {
			x, y := assignments[i], assignments[j]
			if x.Court != y.Court {
				continue
			}
			dur := a.Constraints().MatchDuration
			if x.Start.Before(y.Start.Add(dur)) && y.Start.Before(x.Start.Add(dur)) {
				t.Fatalf("overlapping bookings on %s: %v and %v", x.Court, x.Start, y.Start)
			}
		}
	}
}

func TestAssign_RespectsPreferredWeekdays(t *testing.T) {
	a := NewAssigner(Constraints{
		Courts:            []string{"court-1", "court-2", "court-3"},
		PreferredWeekdays: []time.Weekday{time.Saturday, time.Sunday},
	})
	sk := skeletons(t, 4, models.FormatSingleRoundRobin)

	assignments, failures := a.Assign(testStart, sk, nil, nil)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	for _, as := range assignments {
		if wd := as.Start.Weekday(); wd != time.Saturday && wd != time.Sunday {
			t.Fatalf("match scheduled on %s", wd)
		}
	}
}

func TestAssign_SkipsBlackoutDates(t *testing.T) {
	blackout := testStart // база первого тура
	a := NewAssigner(Constraints{
		Courts:        []string{"court-1", "court-2"},
		BlackoutDates: []time.Time{blackout},
	})
	sk := skeletons(t, 4, models.FormatSingleRoundRobin)

	assignments, failures := a.Assign(testStart, sk, nil, nil)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	for _, as := range assignments {
		if as.Start.Year() == blackout.Year() && as.Start.YearDay() == blackout.YearDay() {
			t.Fatalf("match scheduled on blackout date: %v", as.Start)
		}
	}
}

func TestAssign_CourtDailyCapPushesMatches(t *testing.T) {
	a := NewAssigner(Constraints{
		Courts:                   []string{"court-1"},
		MaxMatchesPerCourtPerDay: 1,
	})
	sk := skeletons(t, 4, models.FormatSingleRoundRobin) // 2 матча в туре

	assignments, failures := a.Assign(testStart, sk, nil, nil)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	perDay := make(map[string]int)
	for _, as := range assignments {
		perDay[as.Start.Format("2006-01-02")]++
	}
	for day, count := range perDay {
		if count > 1 {
			t.Fatalf("day %s has %d matches on a capped court", day, count)
		}
	}
}

func TestAssign_MinRestDays(t *testing.T) {
	a := NewAssigner(Constraints{
		Courts:               []string{"court-1", "court-2"},
		MatchdayIntervalDays: 1,
		MinRestDays:          3,
	})
	sk := skeletons(t, 4, models.FormatSingleRoundRobin)

	assignments, failures := a.Assign(testStart, sk, nil, nil)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	lastDay := make(map[int]time.Time)
	for _, as := range assignments {
		day := time.Date(as.Start.Year(), as.Start.Month(), as.Start.Day(), 0, 0, 0, 0, time.UTC)
		for _, team := range []int{as.Skeleton.HomeTeamID, as.Skeleton.AwayTeamID} {
			if prev, ok := lastDay[team]; ok {
				gap := int(day.Sub(prev).Hours() / 24)
				if gap < 3 {
					t.Fatalf("team %d rested only %d days", team, gap)
				}
			}
			if day.After(lastDay[team]) {
				lastDay[team] = day
			}
		}
	}
}

func TestAssign_ReportsPerMatchFailures(t *testing.T) {
	// Корт всегда недоступен: каждый матч должен попасть в failures,
	// а пакет в целом — не падать.
	a := NewAssigner(Constraints{Courts: []string{"court-1"}})
	sk := skeletons(t, 4, models.FormatSingleRoundRobin)

	never := func(string, time.Time, time.Time) bool { return false }
	assignments, failures := a.Assign(testStart, sk, nil, never)
	if len(assignments) != 0 {
		t.Fatalf("expected no assignments, got %d", len(assignments))
	}
	if len(failures) != len(sk) {
		t.Fatalf("expected %d failures, got %d", len(sk), len(failures))
	}
	if failures[0].Reason == "" {
		t.Fatalf("failure reason must be populated")
	}
}

func TestCheckSlot_DetectsConflict(t *testing.T) {
	a := NewAssigner(Constraints{Courts: []string{"court-1"}})
	start := testStart.Add(19 * time.Hour)
	existing := []Booking{{
		Court: "court-1",
		Start: start.Add(-30 * time.Minute),
		End:   start.Add(60 * time.Minute),
	}}

	if err := a.CheckSlot("court-1", start, existing, nil); err == nil {
		t.Fatalf("expected conflict error")
	}
	if err := a.CheckSlot("court-1", start.Add(4*time.Hour), nil, nil); err != nil {
		t.Fatalf("unexpected error for free slot: %v", err)
	}
}
