package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/league-system/db"
	"github.com/Dosada05/league-system/fixtures"
	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/repositories"
	"github.com/Dosada05/league-system/scheduling"
)

// ScheduleReport — итог планирования пакета матчей. Неразмещённые матчи
// не валят пакет: по каждому возвращается причина.
type ScheduleReport struct {
	Scheduled []*models.Match      `json:"scheduled"`
	Failures  []scheduling.Failure `json:"failures,omitempty"`
}

type BulkOutcome struct {
	MatchID int    `json:"match_id"`
	Reason  string `json:"reason,omitempty"`
}

// BulkRescheduleResult — три корзины массового переноса: успех, отказ,
// требуется ручное вмешательство. Никогда не all-or-nothing.
type BulkRescheduleResult struct {
	Succeeded []*models.Match `json:"succeeded"`
	Failed    []BulkOutcome   `json:"failed"`
	Manual    []BulkOutcome   `json:"manual"`
}

type ScheduleService interface {
	ScheduleSeason(ctx context.Context, seasonID int, constraints scheduling.Constraints) (*ScheduleReport, error)
	RescheduleMatch(ctx context.Context, matchID int, newStart time.Time, newCourt *string) (*models.Match, error)
	BulkReschedule(ctx context.Context, matchIDs []int, reason string) (*BulkRescheduleResult, error)
}

type scheduleService struct {
	db         *sql.DB
	seasonRepo repositories.SeasonRepository
	matchRepo  repositories.MatchRepository
	// courtAvailable — внешний предикат каталога площадок; nil = доступен.
	courtAvailable scheduling.AvailabilityFunc
	// rescheduleDeadline — за сколько до начала матча перенос закрыт.
	rescheduleDeadline time.Duration
	defaults           scheduling.Constraints
	logger             *slog.Logger
	now                func() time.Time
}

func NewScheduleService(
	database *sql.DB,
	seasonRepo repositories.SeasonRepository,
	matchRepo repositories.MatchRepository,
	courtAvailable scheduling.AvailabilityFunc,
	defaults scheduling.Constraints,
	rescheduleDeadline time.Duration,
	logger *slog.Logger,
) ScheduleService {
	if rescheduleDeadline <= 0 {
		rescheduleDeadline = 24 * time.Hour
	}
	return &scheduleService{
		db:                 database,
		seasonRepo:         seasonRepo,
		matchRepo:          matchRepo,
		courtAvailable:     courtAvailable,
		rescheduleDeadline: rescheduleDeadline,
		defaults:           defaults,
		logger:             logger,
		now:                time.Now,
	}
}

func (s *scheduleService) ScheduleSeason(ctx context.Context, seasonID int, constraints scheduling.Constraints) (*ScheduleReport, error) {
	season, err := s.seasonRepo.GetByID(ctx, nil, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, WrapValidation(err, "season_id")
		}
		return nil, fmt.Errorf("failed to load season %d: %w", seasonID, err)
	}

	if len(constraints.Courts) == 0 {
		constraints = s.defaults
	}
	if len(constraints.Courts) == 0 {
		return nil, NewValidationError("courts", "no courts configured for scheduling")
	}
	assigner := scheduling.NewAssigner(constraints)

	matches, err := s.matchRepo.ListBySeason(ctx, nil, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for season %d: %w", seasonID, err)
	}

	pending := make([]fixtures.MatchSkeleton, 0, len(matches))
	byKey := make(map[[2]int]*models.Match, len(matches))
	for _, m := range matches {
		byKey[[2]int{m.Matchday, m.MatchNumber}] = m
		if m.StartTime == nil && m.Status == models.MatchScheduled {
			pending = append(pending, fixtures.MatchSkeleton{
				Matchday:    m.Matchday,
				MatchNumber: m.MatchNumber,
				HomeTeamID:  m.HomeTeamID,
				AwayTeamID:  m.AwayTeamID,
			})
		}
	}
	if len(pending) == 0 {
		return &ScheduleReport{Scheduled: []*models.Match{}}, nil
	}

	existing, err := s.bookingsBetween(ctx, assigner, season.StartDate, season.EndDate.AddDate(0, 0, constraints.SearchHorizonDays))
	if err != nil {
		return nil, err
	}

	assignments, failures := assigner.Assign(season.StartDate, pending, existing, s.courtAvailable)

	scheduled := make([]*models.Match, 0, len(assignments))
	err = db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, as := range assignments {
			m := byKey[[2]int{as.Skeleton.Matchday, as.Skeleton.MatchNumber}]
			if m == nil {
				return fmt.Errorf("assignment for unknown match (matchday %d, match %d)", as.Skeleton.Matchday, as.Skeleton.MatchNumber)
			}
			start := as.Start
			court := as.Court
			m.StartTime = &start
			m.Court = &court
			if err := s.matchRepo.UpdateSchedule(ctx, tx, m); err != nil {
				return err
			}
			scheduled = append(scheduled, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist schedule for season %d: %w", seasonID, err)
	}

	s.logger.Info("season scheduled",
		slog.Int("season_id", seasonID),
		slog.Int("scheduled", len(scheduled)),
		slog.Int("failed", len(failures)),
	)
	return &ScheduleReport{Scheduled: scheduled, Failures: failures}, nil
}

func (s *scheduleService) RescheduleMatch(ctx context.Context, matchID int, newStart time.Time, newCourt *string) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, WrapValidation(err, "match_id")
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}

	switch match.Status {
	case models.MatchScheduled, models.MatchConfirmed, models.MatchPostponed:
	default:
		return nil, WrapValidation(ErrMatchNotReschedulable, "status")
	}
	if match.StartTime != nil && s.now().After(match.StartTime.Add(-s.rescheduleDeadline)) {
		return nil, WrapValidation(ErrRescheduleDeadlinePast, "new_start")
	}

	assigner := scheduling.NewAssigner(s.defaults)
	court := ""
	if newCourt != nil {
		court = *newCourt
	} else if match.Court != nil {
		court = *match.Court
	}
	if court == "" {
		return nil, NewValidationError("court", "match has no court and none was provided")
	}

	window := assigner.Constraints().MatchDuration
	existing, err := s.bookingsBetween(ctx, assigner, newStart.Add(-window), newStart.Add(2*window))
	if err != nil {
		return nil, err
	}
	// Своя текущая бронь не считается конфликтом.
	existing = excludeMatchBooking(existing, match)

	if err := assigner.CheckSlot(court, newStart, existing, s.courtAvailable); err != nil {
		return nil, &ConflictError{Resource: "court", Msg: err.Error(), Err: err}
	}

	// Исходное время сохраняется один раз, при первом переносе.
	if match.OriginalTime == nil && match.StartTime != nil {
		original := *match.StartTime
		match.OriginalTime = &original
	}
	match.StartTime = &newStart
	match.Court = &court
	match.RescheduleCount++
	if match.Status == models.MatchPostponed {
		match.Status = models.MatchScheduled
	}

	if err := s.matchRepo.UpdateSchedule(ctx, nil, match); err != nil {
		return nil, fmt.Errorf("failed to persist reschedule for match %d: %w", matchID, err)
	}

	s.logger.Info("match rescheduled",
		slog.Int("match_id", matchID),
		slog.Time("new_start", newStart),
		slog.String("court", court),
		slog.Int("reschedule_count", match.RescheduleCount),
	)
	return match, nil
}

func (s *scheduleService) BulkReschedule(ctx context.Context, matchIDs []int, reason string) (*BulkRescheduleResult, error) {
	result := &BulkRescheduleResult{Succeeded: []*models.Match{}}
	assigner := scheduling.NewAssigner(s.defaults)

	for _, id := range matchIDs {
		match, err := s.matchRepo.GetByID(ctx, nil, id)
		if err != nil {
			result.Failed = append(result.Failed, BulkOutcome{MatchID: id, Reason: err.Error()})
			continue
		}

		switch match.Status {
		case models.MatchCompleted, models.MatchWalkover, models.MatchInProgress, models.MatchCancelled:
			result.Manual = append(result.Manual, BulkOutcome{MatchID: id, Reason: fmt.Sprintf("match is %s, resolve manually", match.Status)})
			continue
		}

		searchFrom := s.now().AddDate(0, 0, 1)
		if match.StartTime != nil && match.StartTime.After(searchFrom) {
			searchFrom = *match.StartTime
		}

		existing, err := s.bookingsBetween(ctx, assigner, searchFrom, searchFrom.AddDate(0, 0, assigner.Constraints().SearchHorizonDays))
		if err != nil {
			result.Failed = append(result.Failed, BulkOutcome{MatchID: id, Reason: err.Error()})
			continue
		}
		existing = excludeMatchBooking(existing, match)

		sk := fixtures.MatchSkeleton{
			Matchday:    match.Matchday,
			MatchNumber: match.MatchNumber,
			HomeTeamID:  match.HomeTeamID,
			AwayTeamID:  match.AwayTeamID,
		}
		start, court, ok := assigner.FindSlotFrom(searchFrom, sk, existing, s.courtAvailable)
		if !ok {
			result.Manual = append(result.Manual, BulkOutcome{MatchID: id, Reason: "no free slot within search horizon"})
			continue
		}

		if match.OriginalTime == nil && match.StartTime != nil {
			original := *match.StartTime
			match.OriginalTime = &original
		}
		match.StartTime = &start
		match.Court = &court
		match.RescheduleCount++
		match.Status = models.MatchScheduled

		if err := s.matchRepo.UpdateSchedule(ctx, nil, match); err != nil {
			result.Failed = append(result.Failed, BulkOutcome{MatchID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, match)
	}

	s.logger.Info("bulk reschedule finished",
		slog.String("reason", reason),
		slog.Int("requested", len(matchIDs)),
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)),
		slog.Int("manual", len(result.Manual)),
	)
	return result, nil
}

func (s *scheduleService) bookingsBetween(ctx context.Context, assigner *scheduling.Assigner, from, to time.Time) ([]scheduling.Booking, error) {
	matches, err := s.matchRepo.ListScheduledBetween(ctx, nil, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing bookings: %w", err)
	}
	duration := assigner.Constraints().MatchDuration
	bookings := make([]scheduling.Booking, 0, len(matches))
	for _, m := range matches {
		if m.StartTime == nil || m.Court == nil {
			continue
		}
		bookings = append(bookings, scheduling.Booking{
			Court: *m.Court,
			Start: *m.StartTime,
			End:   m.StartTime.Add(duration),
		})
	}
	return bookings, nil
}

func excludeMatchBooking(bookings []scheduling.Booking, match *models.Match) []scheduling.Booking {
	if match.StartTime == nil || match.Court == nil {
		return bookings
	}
	out := bookings[:0]
	for _, b := range bookings {
		if b.Court == *match.Court && b.Start.Equal(*match.StartTime) {
			continue
		}
		out = append(out, b)
	}
	return out
}
