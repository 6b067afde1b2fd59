package standings

import (
	"testing"

	"github.com/Dosada05/league-system/models"
)

func TestSplitMatch_HomeWinsTwoSetsToOne(t *testing.T) {
	m := &models.Match{
		HomeTeamID: 1,
		AwayTeamID: 2,
		Status:     models.MatchCompleted,
		Score:      []models.SetScore{{Home: 6, Away: 4}, {Home: 3, Away: 6}, {Home: 6, Away: 2}},
	}

	home, away, err := SplitMatch(m, false)
	if err != nil {
		t.Fatalf("SplitMatch failed: %v", err)
	}
	if home.Outcome != OutcomeWin || away.Outcome != OutcomeLoss {
		t.Fatalf("expected home win, got home=%s away=%s", home.Outcome, away.Outcome)
	}
	if home.SetsWon != 2 || home.SetsLost != 1 {
		t.Fatalf("expected home sets 2-1, got %d-%d", home.SetsWon, home.SetsLost)
	}
	if home.GamesWon != 15 || home.GamesLost != 12 {
		t.Fatalf("expected home games 15-12, got %d-%d", home.GamesWon, home.GamesLost)
	}
}

func TestSplitMatch_TiedSetRejected(t *testing.T) {
	m := &models.Match{
		Status: models.MatchCompleted,
		Score:  []models.SetScore{{Home: 6, Away: 6}},
	}
	if _, _, err := SplitMatch(m, false); err != ErrTiedSet {
		t.Fatalf("expected ErrTiedSet, got %v", err)
	}
}

func TestSplitMatch_WalkoverUsesWinnerID(t *testing.T) {
	winner := 2
	m := &models.Match{
		HomeTeamID:   1,
		AwayTeamID:   2,
		Status:       models.MatchWalkover,
		WinnerTeamID: &winner,
	}
	home, away, err := SplitMatch(m, false)
	if err != nil {
		t.Fatalf("SplitMatch failed: %v", err)
	}
	if home.Outcome != OutcomeLoss || away.Outcome != OutcomeWin {
		t.Fatalf("expected away walkover win, got home=%s away=%s", home.Outcome, away.Outcome)
	}
	if !home.Walkover || !away.Walkover {
		t.Fatalf("expected walkover flag on both results")
	}
}

func TestApply_KeepsArithmeticInvariant(t *testing.T) {
	rule := models.DefaultPointRule()
	st := &models.Standing{SeasonID: 1, TeamID: 1}

	results := []TeamResult{
		{Outcome: OutcomeWin, SetsWon: 2, SetsLost: 0, GamesWon: 12, GamesLost: 5},
		{Outcome: OutcomeLoss, SetsWon: 1, SetsLost: 2, GamesWon: 14, GamesLost: 16},
		{Outcome: OutcomeDraw, SetsWon: 1, SetsLost: 1, GamesWon: 10, GamesLost: 10},
		{Outcome: OutcomeWin, Walkover: true},
	}
	for _, res := range results {
		Apply(st, res, rule)
		if !st.Consistent() {
			t.Fatalf("invariant broken after %+v: %+v", res, st)
		}
	}

	if st.Played != 4 || st.Won != 2 || st.Drawn != 1 || st.Lost != 1 {
		t.Fatalf("unexpected W/D/L line: %+v", st)
	}
	// 3 (win) + 0 (loss) + 1 (draw) + 3 (walkover win)
	if st.Points != 7 {
		t.Fatalf("expected 7 points, got %d", st.Points)
	}
	if st.SetDifference != st.SetsWon-st.SetsLost || st.GameDifference != st.GamesWon-st.GamesLost {
		t.Fatalf("differences not recomputed: %+v", st)
	}
}

func TestApply_WalkoverPointsDistinct(t *testing.T) {
	rule := models.PointRule{Win: 3, Draw: 1, Loss: 0, WalkoverWin: 2, WalkoverLoss: -1}
	winner := &models.Standing{}
	loser := &models.Standing{}
	Apply(winner, TeamResult{Outcome: OutcomeWin, Walkover: true}, rule)
	Apply(loser, TeamResult{Outcome: OutcomeLoss, Walkover: true}, rule)
	if winner.Points != 2 || loser.Points != -1 {
		t.Fatalf("expected walkover points 2/-1, got %d/%d", winner.Points, loser.Points)
	}
}

func TestApply_FormTruncatedToFive(t *testing.T) {
	rule := models.DefaultPointRule()
	st := &models.Standing{}
	for i := 0; i < 7; i++ {
		Apply(st, TeamResult{Outcome: OutcomeWin}, rule)
	}
	Apply(st, TeamResult{Outcome: OutcomeLoss}, rule)
	if len(st.Form) != models.FormLength {
		t.Fatalf("expected form length %d, got %d", models.FormLength, len(st.Form))
	}
	if st.Form[len(st.Form)-1] != "L" {
		t.Fatalf("expected newest form entry L, got %v", st.Form)
	}
}

func TestRank_DefaultCriteriaAndPositions(t *testing.T) {
	rows := []*models.Standing{
		{TeamID: 1, Points: 6, SetDifference: 2, GameDifference: 10},
		{TeamID: 2, Points: 9, SetDifference: -1, GameDifference: 3},
		{TeamID: 3, Points: 6, SetDifference: 2, GameDifference: 12},
		{TeamID: 4, Points: 6, SetDifference: 4, GameDifference: 1},
	}

	Rank(rows, nil, nil)

	wantOrder := []int{2, 4, 3, 1}
	for i, want := range wantOrder {
		if rows[i].TeamID != want {
			t.Fatalf("position %d: expected team %d, got %d", i+1, want, rows[i].TeamID)
		}
		if rows[i].Position != i+1 {
			t.Fatalf("expected position %d, got %d", i+1, rows[i].Position)
		}
	}
}

func TestRank_PositionsArePermutation(t *testing.T) {
	rows := []*models.Standing{
		{TeamID: 5, Points: 3}, {TeamID: 2, Points: 3},
		{TeamID: 9, Points: 3}, {TeamID: 1, Points: 3},
	}
	Rank(rows, []models.TiebreakerKey{models.TiebreakPoints}, nil)
	seen := make(map[int]bool)
	for _, st := range rows {
		if st.Position < 1 || st.Position > len(rows) || seen[st.Position] {
			t.Fatalf("positions are not a permutation of 1..%d: %+v", len(rows), rows)
		}
		seen[st.Position] = true
	}
	// Полная ничья разрешается детерминированно по team_id.
	if rows[0].TeamID != 1 || rows[3].TeamID != 9 {
		t.Fatalf("expected team_id order on full tie, got %d..%d", rows[0].TeamID, rows[3].TeamID)
	}
}

func TestRank_HeadToHead(t *testing.T) {
	rule := models.DefaultPointRule()
	matches := []models.Match{
		{
			HomeTeamID: 1, AwayTeamID: 2, Status: models.MatchCompleted,
			Score: []models.SetScore{{Home: 6, Away: 3}, {Home: 6, Away: 4}},
		},
	}
	h2h := HeadToHeadFromMatches(matches, rule)

	rows := []*models.Standing{
		{TeamID: 2, Points: 6, SetDifference: 0, GameDifference: 0},
		{TeamID: 1, Points: 6, SetDifference: 0, GameDifference: 0},
	}
	criteria := []models.TiebreakerKey{models.TiebreakPoints, models.TiebreakHeadToHead}
	Rank(rows, criteria, h2h)

	if rows[0].TeamID != 1 {
		t.Fatalf("expected team 1 first on head-to-head, got %d", rows[0].TeamID)
	}
}
