package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/repositories"
	"github.com/Dosada05/league-system/scheduling"
)

type fakeSeasonRepo struct {
	repositories.SeasonRepository
	seasons map[int]*models.Season
}

func (f *fakeSeasonRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Season, error) {
	if s, ok := f.seasons[id]; ok {
		return s, nil
	}
	return nil, repositories.ErrSeasonNotFound
}

type fakeMatchRepo struct {
	repositories.MatchRepository
	matches   map[int]*models.Match
	scheduled []*models.Match
	updates   int
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	if m, ok := f.matches[id]; ok {
		return m, nil
	}
	return nil, repositories.ErrMatchNotFound
}

func (f *fakeMatchRepo) ListBySeason(ctx context.Context, exec repositories.SQLExecutor, seasonID int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range f.matches {
		if m.SeasonID == seasonID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMatchRepo) ListScheduledBetween(ctx context.Context, exec repositories.SQLExecutor, from, to time.Time) ([]*models.Match, error) {
	return f.scheduled, nil
}

func (f *fakeMatchRepo) UpdateSchedule(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	f.updates++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduleService(matches *fakeMatchRepo, now time.Time) *scheduleService {
	svc := NewScheduleService(
		nil,
		&fakeSeasonRepo{seasons: map[int]*models.Season{}},
		matches,
		nil,
		scheduling.Constraints{Courts: []string{"court-1"}},
		24*time.Hour,
		testLogger(),
	).(*scheduleService)
	svc.now = func() time.Time { return now }
	return svc
}

func scheduledMatch(id int, start time.Time) *models.Match {
	court := "court-1"
	return &models.Match{
		ID: id, SeasonID: 1, Matchday: 1, MatchNumber: id,
		HomeTeamID: 1, AwayTeamID: 2,
		StartTime: &start, Court: &court, Status: models.MatchScheduled,
	}
}

func TestRescheduleMatchMovesMatch(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	start := now.AddDate(0, 0, 7)
	repo := &fakeMatchRepo{matches: map[int]*models.Match{5: scheduledMatch(5, start)}}
	svc := newTestScheduleService(repo, now)

	newStart := now.AddDate(0, 0, 10)
	match, err := svc.RescheduleMatch(context.Background(), 5, newStart, nil)
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if !match.StartTime.Equal(newStart) {
		t.Fatalf("start time not updated: %v", match.StartTime)
	}
	if match.OriginalTime == nil || !match.OriginalTime.Equal(start) {
		t.Fatalf("original time must record the first scheduled start, got %v", match.OriginalTime)
	}
	if match.RescheduleCount != 1 {
		t.Fatalf("reschedule count = %d, want 1", match.RescheduleCount)
	}
	if repo.updates != 1 {
		t.Fatalf("expected one persisted update, got %d", repo.updates)
	}
}

func TestRescheduleMatchKeepsFirstOriginalTime(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	first := now.AddDate(0, 0, 7)
	m := scheduledMatch(5, first)
	repo := &fakeMatchRepo{matches: map[int]*models.Match{5: m}}
	svc := newTestScheduleService(repo, now)

	if _, err := svc.RescheduleMatch(context.Background(), 5, now.AddDate(0, 0, 10), nil); err != nil {
		t.Fatalf("first reschedule failed: %v", err)
	}
	if _, err := svc.RescheduleMatch(context.Background(), 5, now.AddDate(0, 0, 12), nil); err != nil {
		t.Fatalf("second reschedule failed: %v", err)
	}
	if !m.OriginalTime.Equal(first) {
		t.Fatalf("original time must survive repeated reschedules, got %v", m.OriginalTime)
	}
	if m.RescheduleCount != 2 {
		t.Fatalf("reschedule count = %d, want 2", m.RescheduleCount)
	}
}

func TestRescheduleMatchRejectsCompleted(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	m := scheduledMatch(5, now.AddDate(0, 0, 7))
	m.Status = models.MatchCompleted
	svc := newTestScheduleService(&fakeMatchRepo{matches: map[int]*models.Match{5: m}}, now)

	_, err := svc.RescheduleMatch(context.Background(), 5, now.AddDate(0, 0, 10), nil)
	if !errors.Is(err, ErrMatchNotReschedulable) {
		t.Fatalf("expected ErrMatchNotReschedulable, got %v", err)
	}
}

func TestRescheduleMatchDeadline(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	// Матч через 6 часов: дедлайн в 24 часа уже пройден.
	m := scheduledMatch(5, now.Add(6*time.Hour))
	svc := newTestScheduleService(&fakeMatchRepo{matches: map[int]*models.Match{5: m}}, now)

	_, err := svc.RescheduleMatch(context.Background(), 5, now.AddDate(0, 0, 10), nil)
	if !errors.Is(err, ErrRescheduleDeadlinePast) {
		t.Fatalf("expected ErrRescheduleDeadlinePast, got %v", err)
	}
}

func TestRescheduleMatchCourtConflict(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	m := scheduledMatch(5, now.AddDate(0, 0, 7))
	newStart := now.AddDate(0, 0, 10)
	blocker := scheduledMatch(6, newStart)
	repo := &fakeMatchRepo{
		matches:   map[int]*models.Match{5: m, 6: blocker},
		scheduled: []*models.Match{blocker},
	}
	svc := newTestScheduleService(repo, now)

	_, err := svc.RescheduleMatch(context.Background(), 5, newStart, nil)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestBulkRescheduleBuckets(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	movable := scheduledMatch(1, now.AddDate(0, 0, 5))
	done := scheduledMatch(2, now.AddDate(0, 0, 5))
	done.Status = models.MatchCompleted
	repo := &fakeMatchRepo{matches: map[int]*models.Match{1: movable, 2: done}}
	svc := newTestScheduleService(repo, now)

	result, err := svc.BulkReschedule(context.Background(), []int{1, 2, 99}, "court maintenance")
	if err != nil {
		t.Fatalf("bulk reschedule failed: %v", err)
	}
	if len(result.Succeeded) != 1 || result.Succeeded[0].ID != 1 {
		t.Fatalf("expected match 1 in succeeded, got %+v", result.Succeeded)
	}
	if len(result.Manual) != 1 || result.Manual[0].MatchID != 2 {
		t.Fatalf("expected completed match 2 in manual, got %+v", result.Manual)
	}
	if len(result.Failed) != 1 || result.Failed[0].MatchID != 99 {
		t.Fatalf("expected unknown match 99 in failed, got %+v", result.Failed)
	}
	if movable.RescheduleCount != 1 {
		t.Fatalf("moved match must bump its reschedule count")
	}
}

func TestBulkRescheduleManualWhenNoSlot(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	m := scheduledMatch(1, now.AddDate(0, 0, 5))
	repo := &fakeMatchRepo{matches: map[int]*models.Match{1: m}}
	svc := NewScheduleService(
		nil,
		&fakeSeasonRepo{seasons: map[int]*models.Season{}},
		repo,
		func(court string, start, end time.Time) bool { return false },
		scheduling.Constraints{Courts: []string{"court-1"}},
		24*time.Hour,
		testLogger(),
	).(*scheduleService)
	svc.now = func() time.Time { return now }

	result, err := svc.BulkReschedule(context.Background(), []int{1}, "storm damage")
	if err != nil {
		t.Fatalf("bulk reschedule failed: %v", err)
	}
	if len(result.Manual) != 1 {
		t.Fatalf("expected manual bucket when no slot is available, got %+v", result)
	}
}
