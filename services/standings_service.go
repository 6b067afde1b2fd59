package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/league-system/db"
	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/repositories"
	"github.com/Dosada05/league-system/standings"
)

// StandingsBroadcaster получает пересчитанную таблицу после коммита.
// Live-хаб реализует его; nil отключает рассылку.
type StandingsBroadcaster interface {
	BroadcastStandings(seasonID int, rows []*models.Standing)
}

type StandingsService interface {
	// SubmitResult записывает счёт матча и отметки подтверждения сторон.
	// Таблица пересчитывается только когда подтвердили обе стороны, и
	// ровно один раз: повторная подача по завершённому матчу — no-op.
	SubmitResult(ctx context.Context, matchID int, score []models.SetScore, homeConfirmed, awayConfirmed bool) (*models.Match, error)
	// ConfirmResult проставляет подтверждение одной из команд матча.
	ConfirmResult(ctx context.Context, matchID, teamID int) (*models.Match, error)
	// RecordWalkover фиксирует техническую победу без сыгранного счёта.
	RecordWalkover(ctx context.Context, matchID, winnerTeamID int) (*models.Match, error)
	GetStandings(ctx context.Context, seasonID int) ([]*models.Standing, error)
	// RecomputeSeason перестраивает таблицу сезона с нуля по всем
	// завершённым матчам. Для ручных исправлений счёта.
	RecomputeSeason(ctx context.Context, seasonID int) ([]*models.Standing, error)
}

type standingsService struct {
	db           *sql.DB
	leagueRepo   repositories.LeagueRepository
	seasonRepo   repositories.SeasonRepository
	matchRepo    repositories.MatchRepository
	standingRepo repositories.StandingRepository
	broadcaster  StandingsBroadcaster
	logger       *slog.Logger
}

func NewStandingsService(
	database *sql.DB,
	leagueRepo repositories.LeagueRepository,
	seasonRepo repositories.SeasonRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	broadcaster StandingsBroadcaster,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		db:           database,
		leagueRepo:   leagueRepo,
		seasonRepo:   seasonRepo,
		matchRepo:    matchRepo,
		standingRepo: standingRepo,
		broadcaster:  broadcaster,
		logger:       logger,
	}
}

func (s *standingsService) SubmitResult(ctx context.Context, matchID int, score []models.SetScore, homeConfirmed, awayConfirmed bool) (*models.Match, error) {
	if len(score) == 0 {
		return nil, NewValidationError("score", "at least one set is required")
	}
	for i, set := range score {
		if set.Home < 0 || set.Away < 0 {
			return nil, NewValidationError("score", fmt.Sprintf("set %d has a negative game count", i+1))
		}
		if set.Home == set.Away {
			return nil, WrapValidation(standings.ErrTiedSet, "score")
		}
	}

	var (
		match  *models.Match
		ranked []*models.Standing
	)
	err := db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return WrapValidation(err, "match_id")
			}
			return err
		}

		switch match.Status {
		case models.MatchCompleted, models.MatchWalkover:
			// Результат уже обработан, таблица не трогается повторно.
			return nil
		case models.MatchCancelled:
			return WrapValidation(ErrMatchAlreadyProcessed, "match_id")
		}

		match.Score = score
		match.HomeConfirmed = match.HomeConfirmed || homeConfirmed
		match.AwayConfirmed = match.AwayConfirmed || awayConfirmed

		homeSets, awaySets := match.SetsWon()
		switch {
		case homeSets > awaySets:
			winner := match.HomeTeamID
			match.WinnerTeamID = &winner
		case awaySets > homeSets:
			winner := match.AwayTeamID
			match.WinnerTeamID = &winner
		default:
			match.WinnerTeamID = nil
		}

		if !match.BothConfirmed() {
			match.Status = models.MatchConfirmed
			return s.matchRepo.UpdateResult(ctx, tx, match)
		}

		match.Status = models.MatchCompleted
		if err := s.matchRepo.UpdateResult(ctx, tx, match); err != nil {
			return err
		}
		ranked, err = s.applyCompletedMatch(ctx, tx, match)
		return err
	})
	if err != nil {
		return nil, err
	}

	if ranked != nil {
		s.logger.Info("match result processed",
			slog.Int("match_id", matchID),
			slog.Int("season_id", match.SeasonID),
			slog.String("status", string(match.Status)),
		)
		s.broadcast(match.SeasonID, ranked)
	}
	return match, nil
}

func (s *standingsService) ConfirmResult(ctx context.Context, matchID, teamID int) (*models.Match, error) {
	var (
		match  *models.Match
		ranked []*models.Standing
	)
	err := db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return WrapValidation(err, "match_id")
			}
			return err
		}
		if !match.Involves(teamID) {
			return NewValidationError("team_id", "team does not play in this match")
		}

		switch match.Status {
		case models.MatchCompleted, models.MatchWalkover:
			return nil
		case models.MatchConfirmed:
		default:
			return WrapValidation(ErrConfirmationOutstanding, "match_id")
		}

		if teamID == match.HomeTeamID {
			match.HomeConfirmed = true
		} else {
			match.AwayConfirmed = true
		}

		if !match.BothConfirmed() {
			return s.matchRepo.UpdateResult(ctx, tx, match)
		}

		match.Status = models.MatchCompleted
		if err := s.matchRepo.UpdateResult(ctx, tx, match); err != nil {
			return err
		}
		ranked, err = s.applyCompletedMatch(ctx, tx, match)
		return err
	})
	if err != nil {
		return nil, err
	}

	if ranked != nil {
		s.broadcast(match.SeasonID, ranked)
	}
	return match, nil
}

func (s *standingsService) RecordWalkover(ctx context.Context, matchID, winnerTeamID int) (*models.Match, error) {
	var (
		match  *models.Match
		ranked []*models.Standing
	)
	err := db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return WrapValidation(err, "match_id")
			}
			return err
		}
		if !match.Involves(winnerTeamID) {
			return NewValidationError("winner_team_id", "team does not play in this match")
		}

		switch match.Status {
		case models.MatchCompleted, models.MatchWalkover:
			return nil
		case models.MatchCancelled:
			return WrapValidation(ErrMatchAlreadyProcessed, "match_id")
		}

		match.Status = models.MatchWalkover
		match.Score = nil
		match.WinnerTeamID = &winnerTeamID
		match.HomeConfirmed = true
		match.AwayConfirmed = true
		if err := s.matchRepo.UpdateResult(ctx, tx, match); err != nil {
			return err
		}
		ranked, err = s.applyCompletedMatch(ctx, tx, match)
		return err
	})
	if err != nil {
		return nil, err
	}

	if ranked != nil {
		s.logger.Info("walkover recorded",
			slog.Int("match_id", matchID),
			slog.Int("winner_team_id", winnerTeamID),
		)
		s.broadcast(match.SeasonID, ranked)
	}
	return match, nil
}

func (s *standingsService) GetStandings(ctx context.Context, seasonID int) ([]*models.Standing, error) {
	rows, err := s.standingRepo.ListBySeason(ctx, nil, seasonID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings for season %d: %w", seasonID, err)
	}
	return rows, nil
}

func (s *standingsService) RecomputeSeason(ctx context.Context, seasonID int) ([]*models.Standing, error) {
	var ranked []*models.Standing
	err := db.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		season, err := s.seasonRepo.GetByID(ctx, tx, seasonID)
		if err != nil {
			if errors.Is(err, repositories.ErrSeasonNotFound) {
				return WrapValidation(err, "season_id")
			}
			return err
		}
		league, err := s.leagueRepo.GetByID(ctx, tx, season.LeagueID)
		if err != nil {
			return fmt.Errorf("failed to load league %d: %w", season.LeagueID, err)
		}

		rows, err := s.standingRepo.ListBySeasonForUpdate(ctx, tx, seasonID)
		if err != nil {
			return err
		}
		byTeam := make(map[int]*models.Standing, len(rows))
		for _, row := range rows {
			*row = models.Standing{ID: row.ID, SeasonID: row.SeasonID, TeamID: row.TeamID}
			byTeam[row.TeamID] = row
		}

		matches, err := s.matchRepo.ListBySeason(ctx, tx, seasonID)
		if err != nil {
			return err
		}
		for _, m := range matches {
			if m.Status != models.MatchCompleted && m.Status != models.MatchWalkover {
				continue
			}
			home, away, splitErr := standings.SplitMatch(m, league.PointRule.Draw != 0)
			if splitErr != nil {
				return fmt.Errorf("match %d has an unusable result: %w", m.ID, splitErr)
			}
			for teamID, res := range map[int]standings.TeamResult{m.HomeTeamID: home, m.AwayTeamID: away} {
				row := byTeam[teamID]
				if row == nil {
					row, err = s.standingRepo.GetOrCreate(ctx, tx, seasonID, teamID)
					if err != nil {
						return err
					}
					*row = models.Standing{ID: row.ID, SeasonID: seasonID, TeamID: teamID}
					byTeam[teamID] = row
					rows = append(rows, row)
				}
				standings.Apply(row, res, league.PointRule)
			}
		}

		ranked = rows
		standings.Rank(ranked, league.TiebreakerCriteria, s.headToHead(matches, league.PointRule, league.TiebreakerCriteria))
		for _, row := range ranked {
			if err := s.standingRepo.Update(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("season standings recomputed",
		slog.Int("season_id", seasonID),
		slog.Int("teams", len(ranked)),
	)
	s.broadcast(seasonID, ranked)
	return ranked, nil
}

// applyCompletedMatch обновляет строки обеих команд и переранжирует весь
// сезон. Вызывается внутри транзакции, под замком строк таблицы.
func (s *standingsService) applyCompletedMatch(ctx context.Context, tx *sql.Tx, match *models.Match) ([]*models.Standing, error) {
	season, err := s.seasonRepo.GetByID(ctx, tx, match.SeasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load season %d: %w", match.SeasonID, err)
	}
	league, err := s.leagueRepo.GetByID(ctx, tx, season.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league %d: %w", season.LeagueID, err)
	}

	home, away, err := standings.SplitMatch(match, league.PointRule.Draw != 0)
	if err != nil {
		return nil, WrapValidation(err, "score")
	}

	rows, err := s.standingRepo.ListBySeasonForUpdate(ctx, tx, match.SeasonID)
	if err != nil {
		return nil, err
	}
	byTeam := make(map[int]*models.Standing, len(rows))
	for _, row := range rows {
		byTeam[row.TeamID] = row
	}
	for _, teamID := range []int{match.HomeTeamID, match.AwayTeamID} {
		if byTeam[teamID] == nil {
			row, createErr := s.standingRepo.GetOrCreate(ctx, tx, match.SeasonID, teamID)
			if createErr != nil {
				return nil, createErr
			}
			byTeam[teamID] = row
			rows = append(rows, row)
		}
	}

	standings.Apply(byTeam[match.HomeTeamID], home, league.PointRule)
	standings.Apply(byTeam[match.AwayTeamID], away, league.PointRule)

	matches, err := s.matchRepo.ListBySeason(ctx, tx, match.SeasonID)
	if err != nil {
		return nil, err
	}
	standings.Rank(rows, league.TiebreakerCriteria, s.headToHead(matches, league.PointRule, league.TiebreakerCriteria))

	for _, row := range rows {
		if err := s.standingRepo.Update(ctx, tx, row); err != nil {
			return nil, err
		}
	}

	if match.Matchday > season.CurrentMatchday {
		if err := s.seasonRepo.UpdateCurrentMatchday(ctx, tx, season.ID, match.Matchday); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// headToHead строится только когда критерий реально настроен: полный
// проход по матчам сезона не бесплатный.
func (s *standingsService) headToHead(matches []*models.Match, rule models.PointRule, criteria []models.TiebreakerKey) standings.HeadToHead {
	needed := false
	for _, key := range criteria {
		if key == models.TiebreakHeadToHead {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}
	flat := make([]models.Match, len(matches))
	for i, m := range matches {
		flat[i] = *m
	}
	return standings.HeadToHeadFromMatches(flat, rule)
}

func (s *standingsService) broadcast(seasonID int, rows []*models.Standing) {
	if s.broadcaster == nil || rows == nil {
		return
	}
	s.broadcaster.BroadcastStandings(seasonID, rows)
}
