package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/league-system/models"
)

var ErrSeasonNotFound = errors.New("season not found")

type SeasonRepository interface {
	Create(ctx context.Context, exec SQLExecutor, season *models.Season) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Season, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.SeasonStatus) error
	UpdateCurrentMatchday(ctx context.Context, exec SQLExecutor, id int, matchday int) error
	ListByLeague(ctx context.Context, exec SQLExecutor, leagueID int) ([]*models.Season, error)
	ListByStatus(ctx context.Context, exec SQLExecutor, status models.SeasonStatus) ([]*models.Season, error)
}

type postgresSeasonRepository struct {
	db *sql.DB
}

func NewPostgresSeasonRepository(db *sql.DB) SeasonRepository {
	return &postgresSeasonRepository{db: db}
}

func (r *postgresSeasonRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const seasonColumns = `
	id, league_id, name, start_date, end_date,
	registration_start, registration_end, current_matchday, status, created_at`

func (r *postgresSeasonRepository) Create(ctx context.Context, exec SQLExecutor, season *models.Season) error {
	executor := r.getExecutor(exec)
	if season.Status == "" {
		season.Status = models.SeasonUpcoming
	}
	query := `
		INSERT INTO seasons
		    (league_id, name, start_date, end_date, registration_start, registration_end, current_matchday, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	return executor.QueryRowContext(ctx, query,
		season.LeagueID, season.Name, season.StartDate, season.EndDate,
		season.RegistrationStart, season.RegistrationEnd, season.CurrentMatchday, season.Status,
	).Scan(&season.ID, &season.CreatedAt)
}

func (r *postgresSeasonRepository) scanSeason(rowScanner interface{ Scan(...interface{}) error }) (*models.Season, error) {
	var s models.Season
	err := rowScanner.Scan(
		&s.ID, &s.LeagueID, &s.Name, &s.StartDate, &s.EndDate,
		&s.RegistrationStart, &s.RegistrationEnd, &s.CurrentMatchday, &s.Status, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresSeasonRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Season, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE id = $1`
	return r.scanSeason(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresSeasonRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.SeasonStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE seasons SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSeasonNotFound)
}

func (r *postgresSeasonRepository) UpdateCurrentMatchday(ctx context.Context, exec SQLExecutor, id int, matchday int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE seasons SET current_matchday = $1 WHERE id = $2`, matchday, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSeasonNotFound)
}

func (r *postgresSeasonRepository) ListByLeague(ctx context.Context, exec SQLExecutor, leagueID int) ([]*models.Season, error) {
	return r.list(ctx, exec, `SELECT `+seasonColumns+` FROM seasons WHERE league_id = $1 ORDER BY start_date`, leagueID)
}

func (r *postgresSeasonRepository) ListByStatus(ctx context.Context, exec SQLExecutor, status models.SeasonStatus) ([]*models.Season, error) {
	return r.list(ctx, exec, `SELECT `+seasonColumns+` FROM seasons WHERE status = $1 ORDER BY start_date`, status)
}

func (r *postgresSeasonRepository) list(ctx context.Context, exec SQLExecutor, query string, arg interface{}) ([]*models.Season, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seasons := make([]*models.Season, 0)
	for rows.Next() {
		s, errScan := r.scanSeason(rows)
		if errScan != nil {
			return nil, errScan
		}
		seasons = append(seasons, s)
	}
	return seasons, rows.Err()
}
