package fixtures

import (
	"reflect"
	"testing"

	"github.com/Dosada05/league-system/models"
)

func generate(t *testing.T, format models.LeagueFormat, teamIDs []int) []MatchSkeleton {
	t.Helper()
	matches, err := NewRoundRobinGenerator().Generate(GenerateParams{
		SeasonID: 1,
		Format:   format,
		TeamIDs:  teamIDs,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return matches
}

func teamIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

func TestSingleRoundRobin_MatchCount(t *testing.T) {
	for n := 2; n <= 9; n++ {
		matches := generate(t, models.FormatSingleRoundRobin, teamIDs(n))
		want := n * (n - 1) / 2
		if len(matches) != want {
			t.Fatalf("n=%d: expected %d matches, got %d", n, want, len(matches))
		}
	}
}

func TestSingleRoundRobin_EveryPairMeetsOnce(t *testing.T) {
	for n := 2; n <= 9; n++ {
		matches := generate(t, models.FormatSingleRoundRobin, teamIDs(n))
		seen := make(map[[2]int]int)
		for _, m := range matches {
			a, b := m.HomeTeamID, m.AwayTeamID
			if a > b {
				a, b = b, a
			}
			seen[[2]int{a, b}]++
		}
		for pair, count := range seen {
			if count != 1 {
				t.Fatalf("n=%d: pair %v met %d times", n, pair, count)
			}
		}
		if len(seen) != n*(n-1)/2 {
			t.Fatalf("n=%d: expected %d distinct pairings, got %d", n, n*(n-1)/2, len(seen))
		}
	}
}

func TestSingleRoundRobin_OddTeamByes(t *testing.T) {
	// 5 команд: 5 туров по 2 матча, у каждой команды ровно один пропуск.
	ids := teamIDs(5)
	matches := generate(t, models.FormatSingleRoundRobin, ids)

	if len(matches) != 10 {
		t.Fatalf("expected 10 matches, got %d", len(matches))
	}

	byMatchday := make(map[int][]MatchSkeleton)
	for _, m := range matches {
		byMatchday[m.Matchday] = append(byMatchday[m.Matchday], m)
	}
	if len(byMatchday) != 5 {
		t.Fatalf("expected 5 matchdays, got %d", len(byMatchday))
	}

	byes := make(map[int]int)
	for day, dayMatches := range byMatchday {
		if len(dayMatches) != 2 {
			t.Fatalf("matchday %d: expected 2 matches, got %d", day, len(dayMatches))
		}
		playing := make(map[int]bool)
		for _, m := range dayMatches {
			playing[m.HomeTeamID] = true
			playing[m.AwayTeamID] = true
		}
		byeCount := 0
		for _, id := range ids {
			if !playing[id] {
				byes[id]++
				byeCount++
			}
		}
		if byeCount != 1 {
			t.Fatalf("matchday %d: expected exactly one bye, got %d", day, byeCount)
		}
	}
	for _, id := range ids {
		if byes[id] != 1 {
			t.Fatalf("team %d: expected exactly one bye, got %d", id, byes[id])
		}
	}
}

func TestDoubleRoundRobin_MirroredLegs(t *testing.T) {
	for n := 2; n <= 7; n++ {
		matches := generate(t, models.FormatDoubleRoundRobin, teamIDs(n))
		if len(matches) != n*(n-1) {
			t.Fatalf("n=%d: expected %d matches, got %d", n, n*(n-1), len(matches))
		}
		// Для каждой упорядоченной пары (A,B) ровно один матч с A дома.
		homeCount := make(map[[2]int]int)
		for _, m := range matches {
			homeCount[[2]int{m.HomeTeamID, m.AwayTeamID}]++
		}
		for pair, count := range homeCount {
			if count != 1 {
				t.Fatalf("n=%d: ordered pair %v hosted %d times", n, pair, count)
			}
		}
	}
}

func TestDoubleRoundRobin_SecondLegMatchdayOffset(t *testing.T) {
	matches := generate(t, models.FormatDoubleRoundRobin, teamIDs(4))
	maxDay := 0
	for _, m := range matches {
		if m.Matchday > maxDay {
			maxDay = m.Matchday
		}
	}
	if maxDay != 6 {
		t.Fatalf("expected 6 matchdays for 4 teams double round-robin, got %d", maxDay)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	first := generate(t, models.FormatDoubleRoundRobin, teamIDs(7))
	second := generate(t, models.FormatDoubleRoundRobin, teamIDs(7))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical input produced different fixtures")
	}
}

func TestGenerate_HomeAwayBalance(t *testing.T) {
	matches := generate(t, models.FormatSingleRoundRobin, teamIDs(8))
	home := make(map[int]int)
	for _, m := range matches {
		home[m.HomeTeamID]++
	}
	// 7 матчей на команду: домашних либо 3, либо 4.
	for id, count := range home {
		if count < 3 || count > 4 {
			t.Fatalf("team %d: unbalanced home count %d", id, count)
		}
	}
}

func TestGenerate_InsufficientTeams(t *testing.T) {
	_, err := NewRoundRobinGenerator().Generate(GenerateParams{
		Format:  models.FormatSingleRoundRobin,
		TeamIDs: []int{1},
	})
	if err != ErrInsufficientTeams {
		t.Fatalf("expected ErrInsufficientTeams, got %v", err)
	}
}

func TestGenerate_UnsupportedFormat(t *testing.T) {
	_, err := NewRoundRobinGenerator().Generate(GenerateParams{
		Format:  models.FormatGroupStage,
		TeamIDs: teamIDs(4),
	})
	if err != ErrUnsupportedFormat {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
