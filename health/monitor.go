package health

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/repositories"
	"github.com/Dosada05/league-system/resilience"
	"github.com/Dosada05/league-system/standings"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

type CheckResult struct {
	Name     string                 `json:"name"`
	Status   Status                 `json:"status"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Duration time.Duration          `json:"duration"`
}

type Report struct {
	OverallStatus   Status        `json:"overall_status"`
	GeneratedAt     time.Time     `json:"generated_at"`
	Checks          []CheckResult `json:"checks"`
	Recommendations []string      `json:"recommendations,omitempty"`
}

type MonitorConfig struct {
	// CheckTimeout — жёсткий бюджет одной проверки; по истечении она
	// отдаёт unknown, не блокируя отчёт.
	CheckTimeout time.Duration
	// CacheTTL — срок жизни закэшированного отчёта.
	CacheTTL time.Duration
	// IntegritySampleSize ограничивает число проверяемых активных сезонов.
	IntegritySampleSize int
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = 30 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Second
	}
	if c.IntegritySampleSize <= 0 {
		c.IntegritySampleSize = 5
	}
	return c
}

// Monitor собирает агрегированный отчёт: связность хранилищ, выборочная
// проверка целостности активных сезонов, тайминг пересчёта таблицы и
// состояние брейкеров.
type Monitor struct {
	db           *sql.DB
	redis        *redis.Client
	leagueRepo   repositories.LeagueRepository
	seasonRepo   repositories.SeasonRepository
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	standingRepo repositories.StandingRepository
	registry     *resilience.Registry
	validator    *IntegrityValidator
	cfg          MonitorConfig
	logger       *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	cached   *Report
	cachedAt time.Time
}

func NewMonitor(
	database *sql.DB,
	redisClient *redis.Client,
	leagueRepo repositories.LeagueRepository,
	seasonRepo repositories.SeasonRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	registry *resilience.Registry,
	validator *IntegrityValidator,
	cfg MonitorConfig,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		db:           database,
		redis:        redisClient,
		leagueRepo:   leagueRepo,
		seasonRepo:   seasonRepo,
		teamRepo:     teamRepo,
		matchRepo:    matchRepo,
		standingRepo: standingRepo,
		registry:     registry,
		validator:    validator,
		cfg:          cfg.withDefaults(),
		logger:       logger,
		now:          time.Now,
	}
}

// Evaluate возвращает свежий отчёт. Кэш с коротким TTL гасит шторм
// запросов к /health; force пересчитывает немедленно.
func (m *Monitor) Evaluate(ctx context.Context, force bool) *Report {
	m.mu.Lock()
	if !force && m.cached != nil && m.now().Sub(m.cachedAt) < m.cfg.CacheTTL {
		cached := m.cached
		m.mu.Unlock()
		return cached
	}
	m.mu.Unlock()

	report := m.evaluate(ctx)

	m.mu.Lock()
	m.cached = report
	m.cachedAt = m.now()
	m.mu.Unlock()
	return report
}

func (m *Monitor) evaluate(ctx context.Context) *Report {
	type namedCheck struct {
		name string
		run  func(context.Context) CheckResult
	}
	checks := []namedCheck{
		{"database", m.checkDatabase},
		{"redis", m.checkRedis},
		{"integrity", m.checkIntegrity},
		{"standings_recompute", m.checkRecomputeTiming},
		{"circuit_breakers", m.checkBreakers},
	}

	results := make([]CheckResult, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		i, check := i, check
		g.Go(func() error {
			results[i] = m.timeBox(gctx, check.name, check.run)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		GeneratedAt: m.now(),
		Checks:      results,
	}
	report.OverallStatus = aggregate(results)
	report.Recommendations = recommend(results)

	if report.OverallStatus == StatusCritical {
		m.logger.Error("health report critical", slog.Any("checks", summarize(results)))
	}
	return report
}

// timeBox запускает проверку в отдельной горутине с жёстким дедлайном:
// зависшая проверка отдаёт unknown, а не блокирует отчёт.
func (m *Monitor) timeBox(ctx context.Context, name string, run func(context.Context) CheckResult) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, m.cfg.CheckTimeout)
	defer cancel()

	started := m.now()
	done := make(chan CheckResult, 1)
	go func() {
		done <- run(checkCtx)
	}()

	select {
	case result := <-done:
		result.Name = name
		result.Duration = m.now().Sub(started)
		return result
	case <-checkCtx.Done():
		return CheckResult{
			Name:     name,
			Status:   StatusUnknown,
			Message:  fmt.Sprintf("check exceeded %s budget", m.cfg.CheckTimeout),
			Duration: m.now().Sub(started),
		}
	}
}

func (m *Monitor) checkDatabase(ctx context.Context) CheckResult {
	started := m.now()
	if err := m.db.PingContext(ctx); err != nil {
		return CheckResult{Status: StatusCritical, Message: fmt.Sprintf("database unreachable: %v", err)}
	}
	latency := m.now().Sub(started)
	status := StatusHealthy
	if latency > 500*time.Millisecond {
		status = StatusWarning
	}
	return CheckResult{
		Status:  status,
		Message: "database reachable",
		Details: map[string]interface{}{"latency_ms": latency.Milliseconds(), "open_connections": m.db.Stats().OpenConnections},
	}
}

func (m *Monitor) checkRedis(ctx context.Context) CheckResult {
	if m.redis == nil {
		return CheckResult{Status: StatusWarning, Message: "redis not configured, resilience state is process-local"}
	}
	started := m.now()
	if err := m.redis.Ping(ctx).Err(); err != nil {
		// Лимитер продолжает работать на локальном fallback.
		return CheckResult{Status: StatusWarning, Message: fmt.Sprintf("redis unreachable, running on local fallback: %v", err)}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "redis reachable",
		Details: map[string]interface{}{"latency_ms": m.now().Sub(started).Milliseconds()},
	}
}

func (m *Monitor) checkIntegrity(ctx context.Context) CheckResult {
	seasons, err := m.seasonRepo.ListByStatus(ctx, nil, models.SeasonInProgress)
	if err != nil {
		return CheckResult{Status: StatusUnknown, Message: fmt.Sprintf("failed to sample seasons: %v", err)}
	}
	if len(seasons) > m.cfg.IntegritySampleSize {
		seasons = seasons[:m.cfg.IntegritySampleSize]
	}

	var critical, warnings int
	details := make(map[string]interface{})
	for _, season := range seasons {
		snap, err := m.loadSnapshot(ctx, season)
		if err != nil {
			return CheckResult{Status: StatusUnknown, Message: fmt.Sprintf("failed to load season %d: %v", season.ID, err)}
		}
		issues := m.validator.Validate(snap)
		for _, issue := range issues {
			if issue.Severity == SeverityCritical {
				critical++
				m.logger.Error("integrity violation",
					slog.Int("season_id", season.ID),
					slog.String("code", issue.Code),
					slog.String("message", issue.Message),
				)
			} else {
				warnings++
			}
		}
		if len(issues) > 0 {
			details[fmt.Sprintf("season_%d", season.ID)] = issues
		}
	}

	switch {
	case critical > 0:
		return CheckResult{Status: StatusCritical, Message: fmt.Sprintf("%d critical integrity violations", critical), Details: details}
	case warnings > 0:
		return CheckResult{Status: StatusWarning, Message: fmt.Sprintf("%d integrity warnings", warnings), Details: details}
	default:
		return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d active seasons verified", len(seasons))}
	}
}

// checkRecomputeTiming гоняет пересчёт таблицы одного активного сезона в
// памяти и меряет время. Пишет только в локальные структуры.
func (m *Monitor) checkRecomputeTiming(ctx context.Context) CheckResult {
	seasons, err := m.seasonRepo.ListByStatus(ctx, nil, models.SeasonInProgress)
	if err != nil {
		return CheckResult{Status: StatusUnknown, Message: fmt.Sprintf("failed to pick a season: %v", err)}
	}
	if len(seasons) == 0 {
		return CheckResult{Status: StatusHealthy, Message: "no active seasons to probe"}
	}
	season := seasons[0]

	league, err := m.leagueRepo.GetByID(ctx, nil, season.LeagueID)
	if err != nil {
		return CheckResult{Status: StatusUnknown, Message: fmt.Sprintf("failed to load league: %v", err)}
	}
	matches, err := m.matchRepo.ListBySeason(ctx, nil, season.ID)
	if err != nil {
		return CheckResult{Status: StatusUnknown, Message: fmt.Sprintf("failed to load matches: %v", err)}
	}

	started := m.now()
	rows := make(map[int]*models.Standing)
	for _, match := range matches {
		if match.Status != models.MatchCompleted && match.Status != models.MatchWalkover {
			continue
		}
		home, away, splitErr := standings.SplitMatch(match, true)
		if splitErr != nil {
			continue
		}
		for teamID, res := range map[int]standings.TeamResult{match.HomeTeamID: home, match.AwayTeamID: away} {
			row := rows[teamID]
			if row == nil {
				row = &models.Standing{SeasonID: season.ID, TeamID: teamID}
				rows[teamID] = row
			}
			standings.Apply(row, res, league.PointRule)
		}
	}
	flat := make([]*models.Standing, 0, len(rows))
	for _, row := range rows {
		flat = append(flat, row)
	}
	standings.Rank(flat, league.TiebreakerCriteria, nil)
	elapsed := m.now().Sub(started)

	status := StatusHealthy
	if elapsed > 2*time.Second {
		status = StatusWarning
	}
	return CheckResult{
		Status:  status,
		Message: "standings recompute probe",
		Details: map[string]interface{}{"season_id": season.ID, "matches": len(matches), "elapsed_ms": elapsed.Milliseconds()},
	}
}

func (m *Monitor) checkBreakers(ctx context.Context) CheckResult {
	snapshots := m.registry.Snapshots(ctx)
	open := 0
	details := make(map[string]interface{}, len(snapshots))
	for name, snap := range snapshots {
		details[name] = snap
		if snap.State == resilience.StateOpen {
			open++
		}
	}
	switch {
	case open > 1:
		return CheckResult{Status: StatusCritical, Message: fmt.Sprintf("%d circuit breakers open", open), Details: details}
	case open == 1:
		return CheckResult{Status: StatusWarning, Message: "one circuit breaker open", Details: details}
	default:
		return CheckResult{Status: StatusHealthy, Message: "all circuit breakers closed", Details: details}
	}
}

func (m *Monitor) loadSnapshot(ctx context.Context, season *models.Season) (SeasonSnapshot, error) {
	league, err := m.leagueRepo.GetByID(ctx, nil, season.LeagueID)
	if err != nil {
		return SeasonSnapshot{}, err
	}
	teams, err := m.teamRepo.ListBySeason(ctx, nil, season.ID, false)
	if err != nil {
		return SeasonSnapshot{}, err
	}
	matches, err := m.matchRepo.ListBySeason(ctx, nil, season.ID)
	if err != nil {
		return SeasonSnapshot{}, err
	}
	rows, err := m.standingRepo.ListBySeason(ctx, nil, season.ID, false)
	if err != nil {
		return SeasonSnapshot{}, err
	}
	return SeasonSnapshot{League: league, Season: season, Teams: teams, Matches: matches, Standings: rows}, nil
}

// aggregate: любой critical валит отчёт в critical; больше двух warning —
// warning; иначе healthy. Unknown сам по себе отчёт не портит.
func aggregate(results []CheckResult) Status {
	warnings := 0
	for _, r := range results {
		switch r.Status {
		case StatusCritical:
			return StatusCritical
		case StatusWarning:
			warnings++
		}
	}
	if warnings > 2 {
		return StatusWarning
	}
	return StatusHealthy
}

func recommend(results []CheckResult) []string {
	var recs []string
	for _, r := range results {
		if r.Status == StatusHealthy {
			continue
		}
		switch r.Name {
		case "database":
			recs = append(recs, "inspect database connectivity and connection pool saturation")
		case "redis":
			recs = append(recs, "restore redis connectivity; resilience state is degraded to process-local")
		case "integrity":
			recs = append(recs, "run a standings recompute for the flagged seasons and review match data")
		case "standings_recompute":
			recs = append(recs, "standings recompute is slow; check match volume and database latency")
		case "circuit_breakers":
			recs = append(recs, "downstream failures tripped circuit breakers; investigate the protected operations")
		}
	}
	return recs
}

func summarize(results []CheckResult) map[string]string {
	out := make(map[string]string, len(results))
	for _, r := range results {
		out[r.Name] = string(r.Status) + ": " + r.Message
	}
	return out
}
