package health

import (
	"fmt"
	"time"

	"github.com/Dosada05/league-system/models"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Issue — одно найденное нарушение целостности. Никогда не поднимается в
// пользовательские запросы: только health-отчёт и критический лог.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// SeasonSnapshot — все данные одного сезона, загруженные для проверки.
// Валидатор не ходит в базу: чистые правила над моделями.
type SeasonSnapshot struct {
	League    *models.League
	Season    *models.Season
	Teams     []*models.Team
	Matches   []*models.Match
	Standings []*models.Standing
}

// IntegrityValidator прогоняет набор stateless-проверок над снимком
// сезона. Проверки независимы: каждая добавляет свои Issue.
type IntegrityValidator struct {
	// MatchDuration нужна проверке пересечений кортов; календарь хранит
	// только время начала.
	MatchDuration time.Duration
}

func NewIntegrityValidator(matchDuration time.Duration) *IntegrityValidator {
	if matchDuration <= 0 {
		matchDuration = 90 * time.Minute
	}
	return &IntegrityValidator{MatchDuration: matchDuration}
}

func (v *IntegrityValidator) Validate(snap SeasonSnapshot) []Issue {
	var issues []Issue
	issues = append(issues, v.checkSeasonDates(snap)...)
	issues = append(issues, v.checkTeamBounds(snap)...)
	issues = append(issues, v.checkStandings(snap)...)
	issues = append(issues, v.checkSchedule(snap)...)
	issues = append(issues, v.checkSpots(snap)...)
	return issues
}

func (v *IntegrityValidator) checkSeasonDates(snap SeasonSnapshot) []Issue {
	s := snap.Season
	var issues []Issue
	if !s.StartDate.Before(s.EndDate) {
		issues = append(issues, Issue{SeverityCritical, "season_dates",
			fmt.Sprintf("season %d start %s is not before end %s", s.ID, s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"))})
	}
	if !s.RegistrationStart.Before(s.RegistrationEnd) {
		issues = append(issues, Issue{SeverityCritical, "registration_window",
			fmt.Sprintf("season %d registration start is not before registration end", s.ID)})
	}
	if s.RegistrationEnd.After(s.StartDate) {
		issues = append(issues, Issue{SeverityWarning, "registration_window",
			fmt.Sprintf("season %d registration closes after the season starts", s.ID)})
	}
	return issues
}

func (v *IntegrityValidator) checkTeamBounds(snap SeasonSnapshot) []Issue {
	active := 0
	for _, t := range snap.Teams {
		if t.IsActive() {
			active++
		}
	}

	var issues []Issue
	league := snap.League
	if league.MaxTeams > 0 && active > league.MaxTeams {
		issues = append(issues, Issue{SeverityCritical, "team_bounds",
			fmt.Sprintf("season %d has %d active teams over league maximum %d", snap.Season.ID, active, league.MaxTeams)})
	}
	// Минимум проверяем только по идущим сезонам: во время регистрации
	// недобор — нормальное состояние.
	switch snap.Season.Status {
	case models.SeasonInProgress, models.SeasonCompleted:
		if active < league.MinTeams {
			issues = append(issues, Issue{SeverityWarning, "team_bounds",
				fmt.Sprintf("season %d has %d active teams under league minimum %d", snap.Season.ID, active, league.MinTeams)})
		}
	}
	return issues
}

func (v *IntegrityValidator) checkStandings(snap SeasonSnapshot) []Issue {
	var issues []Issue
	active := 0
	for _, t := range snap.Teams {
		if t.IsActive() {
			active++
		}
	}
	if len(snap.Standings) > active {
		issues = append(issues, Issue{SeverityCritical, "standings_rows",
			fmt.Sprintf("season %d has %d standing rows for %d active teams", snap.Season.ID, len(snap.Standings), active)})
	}

	positions := make(map[int]int)
	playedTotal := 0
	rule := snap.League.PointRule
	for _, row := range snap.Standings {
		if row.Position > 0 {
			positions[row.Position]++
		}
		playedTotal += row.Played

		if !row.Consistent() {
			issues = append(issues, Issue{SeverityCritical, "standings_arithmetic",
				fmt.Sprintf("team %d in season %d: won+drawn+lost != played", row.TeamID, snap.Season.ID)})
			continue
		}

		// Очки должны попадать в диапазон, допускаемый правилом лиги:
		// обычная и техническая победа могут стоить по-разному, поэтому
		// точное равенство недостижимо без раскладки по walkover.
		minPts := row.Won*minInt(rule.Win, rule.WalkoverWin) + row.Drawn*rule.Draw + row.Lost*minInt(rule.Loss, rule.WalkoverLoss)
		maxPts := row.Won*maxInt(rule.Win, rule.WalkoverWin) + row.Drawn*rule.Draw + row.Lost*maxInt(rule.Loss, rule.WalkoverLoss)
		if row.Points < minPts || row.Points > maxPts {
			issues = append(issues, Issue{SeverityCritical, "standings_points",
				fmt.Sprintf("team %d in season %d: %d points outside [%d, %d] allowed by the league point rule", row.TeamID, snap.Season.ID, row.Points, minPts, maxPts)})
		}
	}
	for pos, count := range positions {
		if count > 1 {
			issues = append(issues, Issue{SeverityCritical, "standings_positions",
				fmt.Sprintf("season %d has %d rows sharing position %d", snap.Season.ID, count, pos)})
		}
	}

	// Каждый обработанный матч добавляет ровно 2 к сумме played.
	processed := 0
	for _, m := range snap.Matches {
		if m.Status == models.MatchCompleted || m.Status == models.MatchWalkover {
			processed++
		}
	}
	if playedTotal != processed*2 {
		issues = append(issues, Issue{SeverityCritical, "standings_played_sum",
			fmt.Sprintf("season %d: standings record %d played entries, %d processed matches imply %d", snap.Season.ID, playedTotal, processed, processed*2)})
	}
	return issues
}

func (v *IntegrityValidator) checkSchedule(snap SeasonSnapshot) []Issue {
	var issues []Issue
	season := snap.Season

	if season.Status == models.SeasonCancelled {
		live := 0
		for _, m := range snap.Matches {
			if m.Status != models.MatchCancelled {
				live++
			}
		}
		if live > 0 {
			issues = append(issues, Issue{SeverityCritical, "orphaned_matches",
				fmt.Sprintf("cancelled season %d still has %d non-cancelled matches", season.ID, live)})
		}
		return issues
	}

	type slot struct {
		match *models.Match
		end   time.Time
	}
	byCourt := make(map[string][]slot)
	for _, m := range snap.Matches {
		if m.StartTime == nil {
			continue
		}
		if m.StartTime.Before(season.StartDate) || m.StartTime.After(season.EndDate) {
			issues = append(issues, Issue{SeverityWarning, "match_out_of_bounds",
				fmt.Sprintf("match %d is scheduled at %s, outside season %d bounds", m.ID, m.StartTime.Format(time.RFC3339), season.ID)})
		}
		if m.Court != nil && m.Status != models.MatchCancelled {
			byCourt[*m.Court] = append(byCourt[*m.Court], slot{match: m, end: m.StartTime.Add(v.MatchDuration)})
		}
	}
	for court, slots := range byCourt {
		for i := 0; i < len(slots); i++ {
			for j := i + 1; j < len(slots); j++ {
				a, b := slots[i], slots[j]
				if a.match.StartTime.Before(b.end) && b.match.StartTime.Before(a.end) {
					issues = append(issues, Issue{SeverityCritical, "court_overlap",
						fmt.Sprintf("matches %d and %d overlap on court %s", a.match.ID, b.match.ID, court)})
				}
			}
		}
	}
	return issues
}

func (v *IntegrityValidator) checkSpots(snap SeasonSnapshot) []Issue {
	active := 0
	for _, t := range snap.Teams {
		if t.IsActive() {
			active++
		}
	}
	league := snap.League
	if league.PromotionSpots+league.RelegationSpots > active && active > 0 {
		return []Issue{{SeverityWarning, "promotion_relegation",
			fmt.Sprintf("league %d promotes %d and relegates %d with only %d active teams in season %d",
				league.ID, league.PromotionSpots, league.RelegationSpots, active, snap.Season.ID)}}
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
