package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/league-system/db"
	"github.com/Dosada05/league-system/fixtures"
	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/repositories"
)

type FixtureService interface {
	// GenerateAndSaveFixtures строит полный календарь сезона и сохраняет
	// его одной транзакцией: сезон не может остаться с половиной матчей.
	GenerateAndSaveFixtures(ctx context.Context, seasonID int) ([]*models.Match, error)
}

type fixtureService struct {
	db           *sql.DB
	seasonRepo   repositories.SeasonRepository
	leagueRepo   repositories.LeagueRepository
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	standingRepo repositories.StandingRepository
	logger       *slog.Logger
}

func NewFixtureService(
	database *sql.DB,
	seasonRepo repositories.SeasonRepository,
	leagueRepo repositories.LeagueRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	logger *slog.Logger,
) FixtureService {
	return &fixtureService{
		db:           database,
		seasonRepo:   seasonRepo,
		leagueRepo:   leagueRepo,
		teamRepo:     teamRepo,
		matchRepo:    matchRepo,
		standingRepo: standingRepo,
		logger:       logger,
	}
}

func (s *fixtureService) GenerateAndSaveFixtures(ctx context.Context, seasonID int) ([]*models.Match, error) {
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

	league, err := s.leagueRepo.GetByID(ctx, nil, season.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league %d: %w", season.LeagueID, err)
	}

	teams, err := s.teamRepo.ListBySeason(ctx, nil, seasonID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list active teams for season %d: %w", seasonID, err)
	}
	if len(teams) < league.MinTeams {
		return nil, NewValidationError("teams", fmt.Sprintf("season has %d active teams, league minimum is %d", len(teams), league.MinTeams))
	}
	if league.MaxTeams > 0 && len(teams) > league.MaxTeams {
		return nil, NewValidationError("teams", fmt.Sprintf("season has %d active teams, league maximum is %d", len(teams), league.MaxTeams))
	}

	existing, err := s.matchRepo.ListBySeason(ctx, nil, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing fixtures for season %d: %w", seasonID, err)
	}
	if len(existing) > 0 {
		return nil, NewConflictError("fixtures", ErrSeasonAlreadyHasFixtures.Error())
	}

	// Порядок команд фиксируется по id: одинаковый состав всегда даёт
	// одинаковый календарь (важно для аудита и перепланирования).
	teamIDs := make([]int, len(teams))
	for i, t := range teams {
		teamIDs[i] = t.ID
	}

	skeletons, err := fixtures.NewRoundRobinGenerator().Generate(fixtures.GenerateParams{
		SeasonID: seasonID,
		Format:   league.Format,
		TeamIDs:  teamIDs,
	})
	if err != nil {
		if errors.Is(err, fixtures.ErrInsufficientTeams) || errors.Is(err, fixtures.ErrUnsupportedFormat) {
			return nil, WrapValidation(err, "format")
		}
		return nil, fmt.Errorf("fixture generation failed for season %d: %w", seasonID, err)
	}

	matches := make([]*models.Match, len(skeletons))
	for i, sk := range skeletons {
		matches[i] = &models.Match{
			SeasonID:    seasonID,
			Matchday:    sk.Matchday,
			MatchNumber: sk.MatchNumber,
			HomeTeamID:  sk.HomeTeamID,
			AwayTeamID:  sk.AwayTeamID,
			Status:      models.MatchScheduled,
		}
	}

	err = db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.matchRepo.BatchCreate(ctx, tx, matches)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist fixtures for season %d: %w", seasonID, err)
	}

	s.logger.Info("fixtures generated",
		slog.Int("season_id", seasonID),
		slog.String("format", string(league.Format)),
		slog.Int("teams", len(teams)),
		slog.Int("matches", len(matches)),
	)
	return matches, nil
}
