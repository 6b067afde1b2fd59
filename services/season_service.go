package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/repositories"
	"github.com/Dosada05/league-system/scheduling"
	"github.com/Dosada05/league-system/storage"
)

// SeasonStartReport — итог оркестрации старта сезона.
type SeasonStartReport struct {
	Season     *models.Season  `json:"season"`
	Matches    []*models.Match `json:"matches"`
	Unplaced   int             `json:"unplaced"`
	ArchiveURL string          `json:"archive_url,omitempty"`
}

type SeasonService interface {
	CreateSeason(ctx context.Context, season *models.Season) (*models.Season, error)
	GetSeason(ctx context.Context, seasonID int) (*models.Season, error)
	// RegisterTeam регистрирует команду в окне регистрации сезона.
	RegisterTeam(ctx context.Context, team *models.Team) (*models.Team, error)
	// TransitionStatus переводит сезон в следующий статус по таблице
	// допустимых переходов.
	TransitionStatus(ctx context.Context, seasonID int, next models.SeasonStatus) (*models.Season, error)
	// StartSeason — оркестрация: генерация календаря, расстановка по
	// кортам, архив календаря, переход active -> in_progress.
	StartSeason(ctx context.Context, seasonID int, constraints scheduling.Constraints) (*SeasonStartReport, error)
	// AutoUpdateSeasonStatusesByDates двигает сезоны по датам: открывает
	// регистрацию и закрывает доигранные сезоны. Вызывается планировщиком.
	AutoUpdateSeasonStatusesByDates(ctx context.Context) error
}

type seasonService struct {
	seasonRepo   repositories.SeasonRepository
	leagueRepo   repositories.LeagueRepository
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	fixtures     FixtureService
	schedule     ScheduleService
	fixtureSheet *storage.FixtureSheet
	logger       *slog.Logger
	now          func() time.Time
}

func NewSeasonService(
	seasonRepo repositories.SeasonRepository,
	leagueRepo repositories.LeagueRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	fixtures FixtureService,
	schedule ScheduleService,
	fixtureSheet *storage.FixtureSheet,
	logger *slog.Logger,
) SeasonService {
	return &seasonService{
		seasonRepo:   seasonRepo,
		leagueRepo:   leagueRepo,
		teamRepo:     teamRepo,
		matchRepo:    matchRepo,
		fixtures:     fixtures,
		schedule:     schedule,
		fixtureSheet: fixtureSheet,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *seasonService) CreateSeason(ctx context.Context, season *models.Season) (*models.Season, error) {
	if season.Name == "" {
		return nil, NewValidationError("name", "season name is required")
	}
	if !season.StartDate.Before(season.EndDate) {
		return nil, NewValidationError("start_date", "season start must precede its end")
	}
	if !season.RegistrationStart.Before(season.RegistrationEnd) {
		return nil, NewValidationError("registration_start", "registration start must precede its end")
	}
	if season.RegistrationEnd.After(season.StartDate) {
		return nil, NewValidationError("registration_end", "registration must close before the season starts")
	}
	if _, err := s.leagueRepo.GetByID(ctx, nil, season.LeagueID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, WrapValidation(err, "league_id")
		}
		return nil, fmt.Errorf("failed to load league %d: %w", season.LeagueID, err)
	}

	season.Status = models.SeasonUpcoming
	season.CurrentMatchday = 0
	if err := s.seasonRepo.Create(ctx, nil, season); err != nil {
		return nil, fmt.Errorf("failed to create season: %w", err)
	}

	s.logger.Info("season created",
		slog.Int("season_id", season.ID),
		slog.Int("league_id", season.LeagueID),
		slog.String("name", season.Name),
	)
	return season, nil
}

func (s *seasonService) GetSeason(ctx context.Context, seasonID int) (*models.Season, error) {
	season, err := s.seasonRepo.GetByID(ctx, nil, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, WrapValidation(ErrNotFound, "season_id")
		}
		return nil, fmt.Errorf("failed to load season %d: %w", seasonID, err)
	}
	return season, nil
}

func (s *seasonService) RegisterTeam(ctx context.Context, team *models.Team) (*models.Team, error) {
	if team.Name == "" {
		return nil, NewValidationError("name", "team name is required")
	}
	season, err := s.seasonRepo.GetByID(ctx, nil, team.SeasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, WrapValidation(err, "season_id")
		}
		return nil, fmt.Errorf("failed to load season %d: %w", team.SeasonID, err)
	}

	now := s.now()
	if now.Before(season.RegistrationStart) || now.After(season.RegistrationEnd) {
		return nil, WrapValidation(ErrRegistrationNotOpen, "season_id")
	}
	if season.Status != models.SeasonUpcoming && season.Status != models.SeasonActive {
		return nil, WrapValidation(ErrRegistrationNotOpen, "season_id")
	}

	league, err := s.leagueRepo.GetByID(ctx, nil, season.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league %d: %w", season.LeagueID, err)
	}
	registered, err := s.teamRepo.ListBySeason(ctx, nil, team.SeasonID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count registered teams: %w", err)
	}
	if league.MaxTeams > 0 && len(registered) >= league.MaxTeams {
		return nil, WrapValidation(ErrSeasonFull, "season_id")
	}

	team.Status = models.TeamActive
	if err := s.teamRepo.Create(ctx, nil, team); err != nil {
		if errors.Is(err, repositories.ErrTeamAlreadyRegistered) || errors.Is(err, repositories.ErrTeamSeasonConflict) {
			return nil, NewConflictError("team", err.Error())
		}
		return nil, fmt.Errorf("failed to register team: %w", err)
	}

	s.logger.Info("team registered",
		slog.Int("team_id", team.ID),
		slog.Int("season_id", team.SeasonID),
		slog.String("name", team.Name),
	)
	return team, nil
}

func (s *seasonService) TransitionStatus(ctx context.Context, seasonID int, next models.SeasonStatus) (*models.Season, error) {
	season, err := s.seasonRepo.GetByID(ctx, nil, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, WrapValidation(err, "season_id")
		}
		return nil, fmt.Errorf("failed to load season %d: %w", seasonID, err)
	}
	if !season.Status.CanTransitionTo(next) {
		return nil, WrapValidation(
			fmt.Errorf("%w: %s -> %s", ErrSeasonTransitionInvalid, season.Status, next), "status")
	}
	if err := s.seasonRepo.UpdateStatus(ctx, nil, seasonID, next); err != nil {
		return nil, fmt.Errorf("failed to update season %d status: %w", seasonID, err)
	}

	s.logger.Info("season status changed",
		slog.Int("season_id", seasonID),
		slog.String("from", string(season.Status)),
		slog.String("to", string(next)),
	)
	season.Status = next
	return season, nil
}

func (s *seasonService) StartSeason(ctx context.Context, seasonID int, constraints scheduling.Constraints) (*SeasonStartReport, error) {
	season, err := s.seasonRepo.GetByID(ctx, nil, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, WrapValidation(err, "season_id")
		}
		return nil, fmt.Errorf("failed to load season %d: %w", seasonID, err)
	}
	if season.Status != models.SeasonActive {
		return nil, WrapValidation(ErrSeasonNotActive, "season_id")
	}

	matches, err := s.fixtures.GenerateAndSaveFixtures(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	scheduleReport, err := s.schedule.ScheduleSeason(ctx, seasonID, constraints)
	if err != nil {
		return nil, err
	}

	report := &SeasonStartReport{
		Season:   season,
		Matches:  matches,
		Unplaced: len(scheduleReport.Failures),
	}

	// Архив календаря — best effort: недоступность хранилища не должна
	// блокировать старт сезона.
	if s.fixtureSheet != nil {
		if upload, archiveErr := s.fixtureSheet.Archive(ctx, seasonID, matches); archiveErr != nil {
			s.logger.Warn("fixture sheet archive failed",
				slog.Int("season_id", seasonID),
				slog.Any("error", archiveErr),
			)
		} else {
			report.ArchiveURL = upload.Location
		}
	}

	if err := s.seasonRepo.UpdateStatus(ctx, nil, seasonID, models.SeasonInProgress); err != nil {
		return nil, fmt.Errorf("failed to mark season %d in progress: %w", seasonID, err)
	}
	season.Status = models.SeasonInProgress

	s.logger.Info("season started",
		slog.Int("season_id", seasonID),
		slog.Int("matches", len(matches)),
		slog.Int("unplaced", report.Unplaced),
	)
	return report, nil
}

func (s *seasonService) AutoUpdateSeasonStatusesByDates(ctx context.Context) error {
	now := s.now()

	upcoming, err := s.seasonRepo.ListByStatus(ctx, nil, models.SeasonUpcoming)
	if err != nil {
		return fmt.Errorf("failed to list upcoming seasons: %w", err)
	}
	for _, season := range upcoming {
		if now.Before(season.RegistrationStart) {
			continue
		}
		if err := s.seasonRepo.UpdateStatus(ctx, nil, season.ID, models.SeasonActive); err != nil {
			s.logger.Error("failed to open season registration",
				slog.Int("season_id", season.ID),
				slog.Any("error", err),
			)
			continue
		}
		s.logger.Info("season registration opened", slog.Int("season_id", season.ID))
	}

	inProgress, err := s.seasonRepo.ListByStatus(ctx, nil, models.SeasonInProgress)
	if err != nil {
		return fmt.Errorf("failed to list in-progress seasons: %w", err)
	}
	for _, season := range inProgress {
		if now.Before(season.EndDate) {
			continue
		}
		unfinished, err := s.countUnfinished(ctx, season.ID)
		if err != nil {
			s.logger.Error("failed to inspect season matches",
				slog.Int("season_id", season.ID),
				slog.Any("error", err),
			)
			continue
		}
		if unfinished > 0 {
			// Сезон просрочен, но матчи не доиграны: завершать рано.
			s.logger.Warn("season past end date with unfinished matches",
				slog.Int("season_id", season.ID),
				slog.Int("unfinished", unfinished),
			)
			continue
		}
		if err := s.seasonRepo.UpdateStatus(ctx, nil, season.ID, models.SeasonCompleted); err != nil {
			s.logger.Error("failed to complete season",
				slog.Int("season_id", season.ID),
				slog.Any("error", err),
			)
			continue
		}
		s.logger.Info("season completed", slog.Int("season_id", season.ID))
	}

	return nil
}

func (s *seasonService) countUnfinished(ctx context.Context, seasonID int) (int, error) {
	matches, err := s.matchRepo.ListBySeason(ctx, nil, seasonID)
	if err != nil {
		return 0, err
	}
	unfinished := 0
	for _, m := range matches {
		switch m.Status {
		case models.MatchCompleted, models.MatchWalkover, models.MatchCancelled:
		default:
			unfinished++
		}
	}
	return unfinished, nil
}
