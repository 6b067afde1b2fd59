package health

import (
	"testing"
	"time"

	"github.com/Dosada05/league-system/models"
)

func validSnapshot() SeasonSnapshot {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	league := &models.League{
		ID:        1,
		MinTeams:  2,
		MaxTeams:  8,
		PointRule: models.DefaultPointRule(),
	}
	season := &models.Season{
		ID:                10,
		LeagueID:          1,
		StartDate:         start,
		EndDate:           start.AddDate(0, 3, 0),
		RegistrationStart: start.AddDate(0, -1, 0),
		RegistrationEnd:   start.AddDate(0, 0, -1),
		Status:            models.SeasonInProgress,
	}
	teams := []*models.Team{
		{ID: 1, SeasonID: 10, Status: models.TeamActive},
		{ID: 2, SeasonID: 10, Status: models.TeamActive},
	}
	kickoff := start.AddDate(0, 0, 3).Add(18 * time.Hour)
	court := "court-1"
	matches := []*models.Match{
		{ID: 100, SeasonID: 10, Matchday: 1, MatchNumber: 1, HomeTeamID: 1, AwayTeamID: 2,
			StartTime: &kickoff, Court: &court, Status: models.MatchCompleted,
			Score: []models.SetScore{{Home: 6, Away: 3}, {Home: 6, Away: 4}}},
	}
	rows := []*models.Standing{
		{SeasonID: 10, TeamID: 1, Played: 1, Won: 1, Points: 3, Position: 1},
		{SeasonID: 10, TeamID: 2, Played: 1, Lost: 1, Points: 0, Position: 2},
	}
	return SeasonSnapshot{League: league, Season: season, Teams: teams, Matches: matches, Standings: rows}
}

func issueCodes(issues []Issue) map[string]bool {
	codes := make(map[string]bool, len(issues))
	for _, issue := range issues {
		codes[issue.Code] = true
	}
	return codes
}

func TestValidateCleanSnapshot(t *testing.T) {
	v := NewIntegrityValidator(90 * time.Minute)
	if issues := v.Validate(validSnapshot()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}

func TestValidateSeasonDateOrdering(t *testing.T) {
	v := NewIntegrityValidator(0)
	snap := validSnapshot()
	snap.Season.EndDate = snap.Season.StartDate.AddDate(0, 0, -1)

	codes := issueCodes(v.Validate(snap))
	if !codes["season_dates"] {
		t.Fatalf("expected season_dates issue, got %v", codes)
	}
}

func TestValidateRegistrationAfterStart(t *testing.T) {
	v := NewIntegrityValidator(0)
	snap := validSnapshot()
	snap.Season.RegistrationEnd = snap.Season.StartDate.AddDate(0, 0, 5)

	codes := issueCodes(v.Validate(snap))
	if !codes["registration_window"] {
		t.Fatalf("expected registration_window issue, got %v", codes)
	}
}

func TestValidateTeamBounds(t *testing.T) {
	v := NewIntegrityValidator(0)
	snap := validSnapshot()
	snap.League.MaxTeams = 1

	codes := issueCodes(v.Validate(snap))
	if !codes["team_bounds"] {
		t.Fatalf("expected team_bounds issue, got %v", codes)
	}
}

func TestValidateStandingsArithmetic(t *testing.T) {
	v := NewIntegrityValidator(0)
	snap := validSnapshot()
	snap.Standings[0].Lost = 3 // won+drawn+lost != played

	codes := issueCodes(v.Validate(snap))
	if !codes["standings_arithmetic"] {
		t.Fatalf("expected standings_arithmetic issue, got %v", codes)
	}
}

func TestValidatePointsUseLeagueRule(t *testing.T) {
	v := NewIntegrityValidator(0)
	snap := validSnapshot()
	// Лига играет 2-1-0: три очка за победу теперь вне диапазона.
	snap.League.PointRule = models.PointRule{Win: 2, Draw: 1, Loss: 0, WalkoverWin: 2, WalkoverLoss: 0}

	codes := issueCodes(v.Validate(snap))
	if !codes["standings_points"] {
		t.Fatalf("expected standings_points issue, got %v", codes)
	}
}

func TestValidatePointsAllowWalkoverSpread(t *testing.T) {
	v := NewIntegrityValidator(0)
	snap := validSnapshot()
	snap.League.PointRule = models.PointRule{Win: 3, Draw: 1, Loss: 0, WalkoverWin: 2, WalkoverLoss: -1}
	snap.Standings[0].Points = 2  // техническая победа
	snap.Standings[1].Points = -1 // техническое поражение

	codes := issueCodes(v.Validate(snap))
	if codes["standings_points"] {
		t.Fatalf("walkover-valued points must pass the range check")
	}
}

func TestValidateDuplicatePositions(t *testing.T) {
	v := NewIntegrityValidator(0)
	snap := validSnapshot()
	snap.Standings[1].Position = 1

	codes := issueCodes(v.Validate(snap))
	if !codes["standings_positions"] {
		t.Fatalf("expected standings_positions issue, got %v", codes)
	}
}

func TestValidatePlayedSumAgainstMatches(t *testing.T) {
	v := NewIntegrityValidator(0)
	snap := validSnapshot()
	snap.Standings[1].Played = 2
	snap.Standings[1].Lost = 2

	codes := issueCodes(v.Validate(snap))
	if !codes["standings_played_sum"] {
		t.Fatalf("expected standings_played_sum issue, got %v", codes)
	}
}

func TestValidateCourtOverlap(t *testing.T) {
	v := NewIntegrityValidator(90 * time.Minute)
	snap := validSnapshot()
	first := snap.Matches[0]
	overlap := first.StartTime.Add(30 * time.Minute)
	snap.Matches = append(snap.Matches, &models.Match{
		ID: 101, SeasonID: 10, Matchday: 1, MatchNumber: 2, HomeTeamID: 1, AwayTeamID: 2,
		StartTime: &overlap, Court: first.Court, Status: models.MatchScheduled,
	})
	// Вторая строка played не меняется: матч ещё не сыгран.

	codes := issueCodes(v.Validate(snap))
	if !codes["court_overlap"] {
		t.Fatalf("expected court_overlap issue, got %v", codes)
	}
}

func TestValidateMatchOutsideSeasonBounds(t *testing.T) {
	v := NewIntegrityValidator(0)
	snap := validSnapshot()
	late := snap.Season.EndDate.AddDate(0, 1, 0)
	snap.Matches[0].StartTime = &late

	codes := issueCodes(v.Validate(snap))
	if !codes["match_out_of_bounds"] {
		t.Fatalf("expected match_out_of_bounds issue, got %v", codes)
	}
}

func TestValidateOrphanedMatchesOnCancelledSeason(t *testing.T) {
	v := NewIntegrityValidator(0)
	snap := validSnapshot()
	snap.Season.Status = models.SeasonCancelled

	codes := issueCodes(v.Validate(snap))
	if !codes["orphaned_matches"] {
		t.Fatalf("expected orphaned_matches issue, got %v", codes)
	}
}

func TestValidatePromotionRelegationSpots(t *testing.T) {
	v := NewIntegrityValidator(0)
	snap := validSnapshot()
	snap.League.PromotionSpots = 2
	snap.League.RelegationSpots = 2

	codes := issueCodes(v.Validate(snap))
	if !codes["promotion_relegation"] {
		t.Fatalf("expected promotion_relegation issue, got %v", codes)
	}
}
