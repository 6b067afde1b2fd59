package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/league-system/models"
)

var ErrLeagueNotFound = errors.New("league not found")

type LeagueRepository interface {
	Create(ctx context.Context, exec SQLExecutor, league *models.League) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.League, error)
	Update(ctx context.Context, exec SQLExecutor, league *models.League) error
	ListByClub(ctx context.Context, exec SQLExecutor, clubID int) ([]*models.League, error)
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

func (r *postgresLeagueRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLeagueRepository) Create(ctx context.Context, exec SQLExecutor, league *models.League) error {
	executor := r.getExecutor(exec)
	pointRule, err := json.Marshal(league.PointRule)
	if err != nil {
		return fmt.Errorf("failed to marshal point rule: %w", err)
	}
	criteria, err := json.Marshal(league.TiebreakerCriteria)
	if err != nil {
		return fmt.Errorf("failed to marshal tiebreaker criteria: %w", err)
	}
	query := `
		INSERT INTO leagues
		    (club_id, name, description, format, min_teams, max_teams, point_rule, promotion_spots, relegation_spots, tiebreaker_criteria)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`
	return executor.QueryRowContext(ctx, query,
		league.ClubID, league.Name, league.Description, league.Format,
		league.MinTeams, league.MaxTeams, pointRule,
		league.PromotionSpots, league.RelegationSpots, criteria,
	).Scan(&league.ID, &league.CreatedAt)
}

func (r *postgresLeagueRepository) scanLeague(rowScanner interface{ Scan(...interface{}) error }) (*models.League, error) {
	var l models.League
	var pointRule, criteria []byte
	err := rowScanner.Scan(
		&l.ID, &l.ClubID, &l.Name, &l.Description, &l.Format,
		&l.MinTeams, &l.MaxTeams, &pointRule,
		&l.PromotionSpots, &l.RelegationSpots, &criteria, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}
	if len(pointRule) > 0 {
		if err := json.Unmarshal(pointRule, &l.PointRule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal point rule for league %d: %w", l.ID, err)
		}
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &l.TiebreakerCriteria); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tiebreaker criteria for league %d: %w", l.ID, err)
		}
	}
	return &l, nil
}

const leagueColumns = `
	id, club_id, name, description, format, min_teams, max_teams,
	point_rule, promotion_spots, relegation_spots, tiebreaker_criteria, created_at`

func (r *postgresLeagueRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.League, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + leagueColumns + ` FROM leagues WHERE id = $1`
	return r.scanLeague(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresLeagueRepository) Update(ctx context.Context, exec SQLExecutor, league *models.League) error {
	executor := r.getExecutor(exec)
	pointRule, err := json.Marshal(league.PointRule)
	if err != nil {
		return fmt.Errorf("failed to marshal point rule: %w", err)
	}
	criteria, err := json.Marshal(league.TiebreakerCriteria)
	if err != nil {
		return fmt.Errorf("failed to marshal tiebreaker criteria: %w", err)
	}
	query := `
		UPDATE leagues SET
			name = $1, description = $2, point_rule = $3,
			promotion_spots = $4, relegation_spots = $5, tiebreaker_criteria = $6
		WHERE id = $7`
	result, err := executor.ExecContext(ctx, query,
		league.Name, league.Description, pointRule,
		league.PromotionSpots, league.RelegationSpots, criteria, league.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) ListByClub(ctx context.Context, exec SQLExecutor, clubID int) ([]*models.League, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + leagueColumns + ` FROM leagues WHERE club_id = $1 ORDER BY id`
	rows, err := executor.QueryContext(ctx, query, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leagues := make([]*models.League, 0)
	for rows.Next() {
		l, errScan := r.scanLeague(rows)
		if errScan != nil {
			return nil, errScan
		}
		leagues = append(leagues, l)
	}
	return leagues, rows.Err()
}
