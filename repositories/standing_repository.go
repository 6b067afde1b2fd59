package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/league-system/models"
	"github.com/lib/pq"
)

var ErrStandingNotFound = errors.New("standing not found")

type StandingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, standing *models.Standing) error
	GetBySeasonAndTeam(ctx context.Context, exec SQLExecutor, seasonID, teamID int) (*models.Standing, error)
	GetOrCreate(ctx context.Context, exec SQLExecutor, seasonID, teamID int) (*models.Standing, error)
	Update(ctx context.Context, exec SQLExecutor, standing *models.Standing) error
	ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int, sortByPosition bool) ([]*models.Standing, error)
	// ListBySeasonForUpdate блокирует все строки сезона (FOR UPDATE): в
	// каждый момент пересчёт таблицы сезона идёт максимум в одной
	// транзакции, конкурентные подтверждения ждут замок.
	ListBySeasonForUpdate(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.Standing, error)
	DeleteBySeasonID(ctx context.Context, exec SQLExecutor, seasonID int) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const standingColumns = `
	id, season_id, team_id, played, won, drawn, lost,
	sets_won, sets_lost, set_difference, games_won, games_lost, game_difference,
	points, position, form, updated_at`

func (r *postgresStandingRepository) Create(ctx context.Context, exec SQLExecutor, standing *models.Standing) error {
	executor := r.getExecutor(exec)
	if standing.UpdatedAt.IsZero() {
		standing.UpdatedAt = time.Now()
	}
	query := `
		INSERT INTO standings
		    (season_id, team_id, played, won, drawn, lost,
		     sets_won, sets_lost, set_difference, games_won, games_lost, game_difference,
		     points, position, form, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	return executor.QueryRowContext(ctx, query,
		standing.SeasonID, standing.TeamID, standing.Played, standing.Won, standing.Drawn, standing.Lost,
		standing.SetsWon, standing.SetsLost, standing.SetDifference,
		standing.GamesWon, standing.GamesLost, standing.GameDifference,
		standing.Points, standing.Position, pq.Array(standing.Form), standing.UpdatedAt,
	).Scan(&standing.ID)
}

func (r *postgresStandingRepository) scanStanding(rowScanner interface{ Scan(...interface{}) error }) (*models.Standing, error) {
	var s models.Standing
	err := rowScanner.Scan(
		&s.ID, &s.SeasonID, &s.TeamID, &s.Played, &s.Won, &s.Drawn, &s.Lost,
		&s.SetsWon, &s.SetsLost, &s.SetDifference, &s.GamesWon, &s.GamesLost, &s.GameDifference,
		&s.Points, &s.Position, pq.Array(&s.Form), &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStandingNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresStandingRepository) GetBySeasonAndTeam(ctx context.Context, exec SQLExecutor, seasonID, teamID int) (*models.Standing, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + standingColumns + ` FROM standings WHERE season_id = $1 AND team_id = $2`
	return r.scanStanding(executor.QueryRowContext(ctx, query, seasonID, teamID))
}

func (r *postgresStandingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, seasonID, teamID int) (*models.Standing, error) {
	executor := r.getExecutor(exec)
	standing, err := r.GetBySeasonAndTeam(ctx, executor, seasonID, teamID)
	if err != nil {
		if errors.Is(err, ErrStandingNotFound) {
			newStanding := &models.Standing{
				SeasonID:  seasonID,
				TeamID:    teamID,
				UpdatedAt: time.Now(),
			}
			if createErr := r.Create(ctx, executor, newStanding); createErr != nil {
				return nil, fmt.Errorf("failed to create standing for s:%d t:%d: %w", seasonID, teamID, createErr)
			}
			return newStanding, nil
		}
		return nil, fmt.Errorf("failed to get standing for s:%d t:%d: %w", seasonID, teamID, err)
	}
	return standing, nil
}

func (r *postgresStandingRepository) Update(ctx context.Context, exec SQLExecutor, standing *models.Standing) error {
	executor := r.getExecutor(exec)
	standing.UpdatedAt = time.Now()
	query := `
		UPDATE standings SET
			played = $1, won = $2, drawn = $3, lost = $4,
			sets_won = $5, sets_lost = $6, set_difference = $7,
			games_won = $8, games_lost = $9, game_difference = $10,
			points = $11, position = $12, form = $13, updated_at = $14
		WHERE id = $15`
	result, err := executor.ExecContext(ctx, query,
		standing.Played, standing.Won, standing.Drawn, standing.Lost,
		standing.SetsWon, standing.SetsLost, standing.SetDifference,
		standing.GamesWon, standing.GamesLost, standing.GameDifference,
		standing.Points, standing.Position, pq.Array(standing.Form), standing.UpdatedAt,
		standing.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int, sortByPosition bool) ([]*models.Standing, error) {
	query := `SELECT ` + standingColumns + ` FROM standings WHERE season_id = $1`
	if sortByPosition {
		query += ` ORDER BY position`
	} else {
		query += ` ORDER BY team_id`
	}
	return r.list(ctx, exec, query, seasonID)
}

func (r *postgresStandingRepository) ListBySeasonForUpdate(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.Standing, error) {
	if exec == nil {
		return nil, errors.New("ListBySeasonForUpdate requires a transaction executor")
	}
	query := `SELECT ` + standingColumns + ` FROM standings WHERE season_id = $1 ORDER BY team_id FOR UPDATE`
	return r.list(ctx, exec, query, seasonID)
}

func (r *postgresStandingRepository) DeleteBySeasonID(ctx context.Context, exec SQLExecutor, seasonID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM standings WHERE season_id = $1`, seasonID)
	return err
}

func (r *postgresStandingRepository) list(ctx context.Context, exec SQLExecutor, query string, seasonID int) ([]*models.Standing, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]*models.Standing, 0)
	for rows.Next() {
		s, errScan := r.scanStanding(rows)
		if errScan != nil {
			return nil, errScan
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}
