package standings

import (
	"sort"

	"github.com/Dosada05/league-system/models"
)

// comparator returns >0 when a ranks ahead of b, <0 when behind, 0 when tied.
type comparator func(a, b *models.Standing) int

var comparators = map[models.TiebreakerKey]comparator{
	models.TiebreakPoints:         func(a, b *models.Standing) int { return a.Points - b.Points },
	models.TiebreakSetDifference:  func(a, b *models.Standing) int { return a.SetDifference - b.SetDifference },
	models.TiebreakGameDifference: func(a, b *models.Standing) int { return a.GameDifference - b.GameDifference },
	models.TiebreakSetsWon:        func(a, b *models.Standing) int { return a.SetsWon - b.SetsWon },
	models.TiebreakGamesWon:       func(a, b *models.Standing) int { return a.GamesWon - b.GamesWon },
}

// DefaultCriteria применяется, когда у лиги не настроены критерии.
func DefaultCriteria() []models.TiebreakerKey {
	return []models.TiebreakerKey{
		models.TiebreakPoints,
		models.TiebreakSetDifference,
		models.TiebreakGameDifference,
	}
}

// HeadToHead compares two teams by their mutual results.
// Возвращает >0, если первая команда впереди по личным встречам.
type HeadToHead func(teamA, teamB int) int

// HeadToHeadFromMatches строит сравнение по личным встречам из завершённых
// матчей сезона: считаются очки, набранные в матчах между этими командами.
func HeadToHeadFromMatches(matches []models.Match, rule models.PointRule) HeadToHead {
	type pair struct{ a, b int }
	points := make(map[pair]int)
	for i := range matches {
		m := &matches[i]
		if m.Status != models.MatchCompleted && m.Status != models.MatchWalkover {
			continue
		}
		home, away, err := SplitMatch(m, true)
		if err != nil {
			continue
		}
		addOutcome := func(team, opponent int, res TeamResult) {
			switch res.Outcome {
			case OutcomeWin:
				if res.Walkover {
					points[pair{team, opponent}] += rule.WalkoverWin
				} else {
					points[pair{team, opponent}] += rule.Win
				}
			case OutcomeDraw:
				points[pair{team, opponent}] += rule.Draw
			case OutcomeLoss:
				if res.Walkover {
					points[pair{team, opponent}] += rule.WalkoverLoss
				} else {
					points[pair{team, opponent}] += rule.Loss
				}
			}
		}
		addOutcome(m.HomeTeamID, m.AwayTeamID, home)
		addOutcome(m.AwayTeamID, m.HomeTeamID, away)
	}
	return func(teamA, teamB int) int {
		return points[pair{teamA, teamB}] - points[pair{teamB, teamA}]
	}
}

// Rank sorts the season's standings by the ordered tiebreaker criteria and
// reassigns positions 1..k with no gaps or duplicates. Comparators are
// evaluated lazily: the first one that separates two rows decides. Unknown
// keys are skipped; head_to_head is skipped when no lookup is supplied.
// Финальный разрешитель — team_id, чтобы порядок был детерминированным.
func Rank(rows []*models.Standing, criteria []models.TiebreakerKey, h2h HeadToHead) {
	if len(criteria) == 0 {
		criteria = DefaultCriteria()
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		for _, key := range criteria {
			if key == models.TiebreakHeadToHead {
				if h2h == nil {
					continue
				}
				if d := h2h(a.TeamID, b.TeamID); d != 0 {
					return d > 0
				}
				continue
			}
			cmp, ok := comparators[key]
			if !ok {
				continue
			}
			if d := cmp(a, b); d != 0 {
				return d > 0
			}
		}
		return a.TeamID < b.TeamID
	})

	for i, st := range rows {
		st.Position = i + 1
	}
}
