package models

import "time"

// MatchStatus представляет статусы матча, соответствующие ENUM в БД.
type MatchStatus string

const (
	MatchScheduled  MatchStatus = "scheduled"
	MatchConfirmed  MatchStatus = "confirmed"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchWalkover   MatchStatus = "walkover"
	MatchCancelled  MatchStatus = "cancelled"
	MatchPostponed  MatchStatus = "postponed"
)

// SetScore — геймы одного сета, в порядке (хозяева, гости).
type SetScore struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Match belongs to one season. Score is the ordered list of set scores;
// the winner is derived from sets won, never stored independently of it.
type Match struct {
	ID              int         `json:"id" db:"id"`
	SeasonID        int         `json:"season_id" db:"season_id"`
	Matchday        int         `json:"matchday" db:"matchday"`
	MatchNumber     int         `json:"match_number" db:"match_number"`
	HomeTeamID      int         `json:"home_team_id" db:"home_team_id"`
	AwayTeamID      int         `json:"away_team_id" db:"away_team_id"`
	StartTime       *time.Time  `json:"start_time,omitempty" db:"start_time"`
	Court           *string     `json:"court,omitempty" db:"court"`
	Status          MatchStatus `json:"status" db:"status"`
	Score           []SetScore  `json:"score,omitempty" db:"score"`
	WinnerTeamID    *int        `json:"winner_team_id,omitempty" db:"winner_team_id"`
	HomeConfirmed   bool        `json:"home_confirmed" db:"home_confirmed"`
	AwayConfirmed   bool        `json:"away_confirmed" db:"away_confirmed"`
	OriginalTime    *time.Time  `json:"original_time,omitempty" db:"original_time"`
	RescheduleCount int         `json:"reschedule_count" db:"reschedule_count"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}

// SetsWon возвращает количество выигранных сетов (хозяева, гости).
func (m *Match) SetsWon() (home, away int) {
	for _, s := range m.Score {
		switch {
		case s.Home > s.Away:
			home++
		case s.Away > s.Home:
			away++
		}
	}
	return home, away
}

// GamesWon возвращает суммарное количество геймов (хозяева, гости).
func (m *Match) GamesWon() (home, away int) {
	for _, s := range m.Score {
		home += s.Home
		away += s.Away
	}
	return home, away
}

// BothConfirmed reports whether both sides signed off on the result.
func (m *Match) BothConfirmed() bool {
	return m.HomeConfirmed && m.AwayConfirmed
}

// Involves reports whether the team plays in this match.
func (m *Match) Involves(teamID int) bool {
	return m.HomeTeamID == teamID || m.AwayTeamID == teamID
}
