package standings

import (
	"errors"
	"time"

	"github.com/Dosada05/league-system/models"
)

var (
	ErrScoreRequired = errors.New("match has no recorded score")
	ErrTiedSet       = errors.New("set score cannot be tied")
	ErrDrawnMatch    = errors.New("match has no winner by sets")
)

// TeamResult — вклад одного матча в строку таблицы одной команды.
type TeamResult struct {
	Outcome   Outcome
	Walkover  bool
	SetsWon   int
	SetsLost  int
	GamesWon  int
	GamesLost int
}

type Outcome string

const (
	OutcomeWin  Outcome = "W"
	OutcomeDraw Outcome = "D"
	OutcomeLoss Outcome = "L"
)

// SplitMatch derives both sides' results from a finished match.
// Равенство по сетам трактуется как ничья, если allowDraw; иначе ошибка.
// Walkover-матчи несут флаг для отдельной строки правила очков.
func SplitMatch(m *models.Match, allowDraw bool) (home, away TeamResult, err error) {
	if m.Status != models.MatchWalkover && len(m.Score) == 0 {
		return home, away, ErrScoreRequired
	}
	for _, s := range m.Score {
		if s.Home == s.Away {
			return home, away, ErrTiedSet
		}
	}

	homeSets, awaySets := m.SetsWon()
	homeGames, awayGames := m.GamesWon()
	walkover := m.Status == models.MatchWalkover

	home = TeamResult{Walkover: walkover, SetsWon: homeSets, SetsLost: awaySets, GamesWon: homeGames, GamesLost: awayGames}
	away = TeamResult{Walkover: walkover, SetsWon: awaySets, SetsLost: homeSets, GamesWon: awayGames, GamesLost: homeGames}

	switch {
	case walkover && m.WinnerTeamID != nil:
		if *m.WinnerTeamID == m.HomeTeamID {
			home.Outcome, away.Outcome = OutcomeWin, OutcomeLoss
		} else {
			home.Outcome, away.Outcome = OutcomeLoss, OutcomeWin
		}
	case homeSets > awaySets:
		home.Outcome, away.Outcome = OutcomeWin, OutcomeLoss
	case awaySets > homeSets:
		home.Outcome, away.Outcome = OutcomeLoss, OutcomeWin
	default:
		if !allowDraw {
			return home, away, ErrDrawnMatch
		}
		home.Outcome, away.Outcome = OutcomeDraw, OutcomeDraw
	}
	return home, away, nil
}

// Apply mutates a standing row with one match result.
// Инвариант won+drawn+lost == played сохраняется после каждого вызова.
func Apply(st *models.Standing, res TeamResult, rule models.PointRule) {
	st.Played++
	switch res.Outcome {
	case OutcomeWin:
		st.Won++
		if res.Walkover {
			st.Points += rule.WalkoverWin
		} else {
			st.Points += rule.Win
		}
	case OutcomeDraw:
		st.Drawn++
		st.Points += rule.Draw
	case OutcomeLoss:
		st.Lost++
		if res.Walkover {
			st.Points += rule.WalkoverLoss
		} else {
			st.Points += rule.Loss
		}
	}

	st.SetsWon += res.SetsWon
	st.SetsLost += res.SetsLost
	st.SetDifference = st.SetsWon - st.SetsLost
	st.GamesWon += res.GamesWon
	st.GamesLost += res.GamesLost
	st.GameDifference = st.GamesWon - st.GamesLost

	st.Form = append(st.Form, string(res.Outcome))
	if len(st.Form) > models.FormLength {
		st.Form = st.Form[len(st.Form)-models.FormLength:]
	}
	st.UpdatedAt = time.Now()
}
