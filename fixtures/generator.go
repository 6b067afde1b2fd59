package fixtures

import (
	"github.com/Dosada05/league-system/models"
)

// MatchSkeleton — заготовка матча без даты и корта. Конкретный слот
// назначается планировщиком отдельно.
type MatchSkeleton struct {
	Matchday    int
	MatchNumber int
	HomeTeamID  int
	AwayTeamID  int
}

type GenerateParams struct {
	SeasonID int
	Format   models.LeagueFormat
	// TeamIDs — упорядоченный список активных команд. Одинаковый порядок
	// на входе всегда даёт одинаковый календарь на выходе.
	TeamIDs []int
}

type Generator interface {
	Generate(params GenerateParams) ([]MatchSkeleton, error)

	GetName() string
}

// byeSlot занимает свободную позицию в круге при нечётном числе команд.
// Команда, попавшая в пару с ним, пропускает тур; матч не создаётся.
const byeSlot = 0

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// Generate creates the fixture list with the circle method.
// Slot 0 stays fixed, the remaining slots rotate one step each round, and
// each round pairs slot i with slot n-1-i. The fixed slot's pairing
// alternates home side by rotation parity; the other pairings keep the
// top-half side at home, which balances home and away counts to within one.
// For a double round-robin the single pass is mirrored with home/away
// swapped and matchdays offset by the first pass's matchday count.
func (g *RoundRobinGenerator) Generate(params GenerateParams) ([]MatchSkeleton, error) {
	if len(params.TeamIDs) < 2 {
		return nil, ErrInsufficientTeams
	}

	switch params.Format {
	case models.FormatSingleRoundRobin, models.FormatDoubleRoundRobin:
	default:
		return nil, ErrUnsupportedFormat
	}

	firstLeg := circleMethod(params.TeamIDs)
	if params.Format == models.FormatSingleRoundRobin {
		return firstLeg, nil
	}

	rounds := 0
	for _, m := range firstLeg {
		if m.Matchday > rounds {
			rounds = m.Matchday
		}
	}

	matches := firstLeg
	for _, m := range firstLeg {
		matches = append(matches, MatchSkeleton{
			Matchday:    m.Matchday + rounds,
			MatchNumber: m.MatchNumber,
			HomeTeamID:  m.AwayTeamID,
			AwayTeamID:  m.HomeTeamID,
		})
	}
	return matches, nil
}

func circleMethod(teamIDs []int) []MatchSkeleton {
	circle := make([]int, len(teamIDs))
	copy(circle, teamIDs)
	if len(circle)%2 != 0 {
		circle = append(circle, byeSlot)
	}

	n := len(circle)
	rounds := n - 1
	matches := make([]MatchSkeleton, 0, rounds*n/2)

	for round := 0; round < rounds; round++ {
		matchNumber := 0
		for i := 0; i < n/2; i++ {
			a, b := circle[i], circle[n-1-i]
			if a == byeSlot || b == byeSlot {
				continue
			}
			matchNumber++
			home, away := a, b
			if i == 0 && round%2 == 1 {
				home, away = b, a
			}
			matches = append(matches, MatchSkeleton{
				Matchday:    round + 1,
				MatchNumber: matchNumber,
				HomeTeamID:  home,
				AwayTeamID:  away,
			})
		}

		// Поворот круга: первый слот зафиксирован, остальные сдвигаются.
		last := circle[n-1]
		copy(circle[2:], circle[1:n-1])
		circle[1] = last
	}

	return matches
}
