package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/league-system/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	BatchCreate(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate блокирует строку матча на время транзакции:
	// гейт идемпотентности движка таблицы опирается на этот замок.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateSchedule(ctx context.Context, exec SQLExecutor, match *models.Match) error
	ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.Match, error)
	ListScheduledBetween(ctx context.Context, exec SQLExecutor, from, to time.Time) ([]*models.Match, error)
	DeleteBySeasonID(ctx context.Context, exec SQLExecutor, seasonID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, season_id, matchday, match_number, home_team_id, away_team_id,
	start_time, court, status, score, winner_team_id,
	home_confirmed, away_confirmed, original_time, reschedule_count, created_at`

// BatchCreate вставляет весь календарь сезона. Вызывается только внутри
// транзакции: сезон либо получает полный календарь, либо никакого.
func (r *postgresMatchRepository) BatchCreate(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	if exec == nil {
		return errors.New("BatchCreate requires a transaction executor")
	}
	if len(matches) == 0 {
		return nil
	}

	query := `
		INSERT INTO matches
		    (season_id, matchday, match_number, home_team_id, away_team_id, start_time, court, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	for _, m := range matches {
		if m.Status == "" {
			m.Status = models.MatchScheduled
		}
		err := exec.QueryRowContext(ctx, query,
			m.SeasonID, m.Matchday, m.MatchNumber, m.HomeTeamID, m.AwayTeamID,
			m.StartTime, m.Court, m.Status,
		).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return fmt.Errorf("BatchCreate failed for matchday %d match %d: %w", m.Matchday, m.MatchNumber, err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	var score []byte
	err := rowScanner.Scan(
		&m.ID, &m.SeasonID, &m.Matchday, &m.MatchNumber, &m.HomeTeamID, &m.AwayTeamID,
		&m.StartTime, &m.Court, &m.Status, &score, &m.WinnerTeamID,
		&m.HomeConfirmed, &m.AwayConfirmed, &m.OriginalTime, &m.RescheduleCount, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if len(score) > 0 {
		if err := json.Unmarshal(score, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to unmarshal score for match %d: %w", m.ID, err)
		}
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanMatch(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	if exec == nil {
		return nil, errors.New("GetByIDForUpdate requires a transaction executor")
	}
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return r.scanMatch(exec.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	score, err := json.Marshal(match.Score)
	if err != nil {
		return fmt.Errorf("failed to marshal score: %w", err)
	}
	query := `
		UPDATE matches SET
			status = $1, score = $2, winner_team_id = $3,
			home_confirmed = $4, away_confirmed = $5
		WHERE id = $6`
	result, err := executor.ExecContext(ctx, query,
		match.Status, score, match.WinnerTeamID,
		match.HomeConfirmed, match.AwayConfirmed, match.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateSchedule(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches SET
			start_time = $1, court = $2, status = $3,
			original_time = $4, reschedule_count = $5
		WHERE id = $6`
	result, err := executor.ExecContext(ctx, query,
		match.StartTime, match.Court, match.Status,
		match.OriginalTime, match.RescheduleCount, match.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE season_id = $1 ORDER BY matchday, match_number`
	return r.list(ctx, executor, query, seasonID)
}

func (r *postgresMatchRepository) ListScheduledBetween(ctx context.Context, exec SQLExecutor, from, to time.Time) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE start_time IS NOT NULL AND start_time >= $1 AND start_time < $2
		  AND status NOT IN ($3, $4)
		ORDER BY start_time`
	return r.list(ctx, executor, query, from, to, models.MatchCancelled, models.MatchCompleted)
}

func (r *postgresMatchRepository) DeleteBySeasonID(ctx context.Context, exec SQLExecutor, seasonID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE season_id = $1`, seasonID)
	return err
}

func (r *postgresMatchRepository) list(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, errScan := r.scanMatch(rows)
		if errScan != nil {
			return nil, errScan
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
