package models

import "time"

// FormLength ограничивает длину списка последних результатов.
const FormLength = 5

// Standing — агрегированный результат команды в сезоне, одна строка на
// пару (сезон, команда). Строка создаётся лениво при первом подтверждённом
// матче команды и изменяется только движком таблицы.
type Standing struct {
	ID             int       `json:"id" db:"id"`
	SeasonID       int       `json:"season_id" db:"season_id"`
	TeamID         int       `json:"team_id" db:"team_id"`
	Played         int       `json:"played" db:"played"`
	Won            int       `json:"won" db:"won"`
	Drawn          int       `json:"drawn" db:"drawn"`
	Lost           int       `json:"lost" db:"lost"`
	SetsWon        int       `json:"sets_won" db:"sets_won"`
	SetsLost       int       `json:"sets_lost" db:"sets_lost"`
	SetDifference  int       `json:"set_difference" db:"set_difference"`
	GamesWon       int       `json:"games_won" db:"games_won"`
	GamesLost      int       `json:"games_lost" db:"games_lost"`
	GameDifference int       `json:"game_difference" db:"game_difference"`
	Points         int       `json:"points" db:"points"`
	Position       int       `json:"position" db:"position"`
	Form           []string  `json:"form,omitempty" db:"form"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`

	// Optional linked data, not directly in DB table, populated by service
	Team *Team `json:"team,omitempty" db:"-"`
}

// Consistent reports the won+drawn+lost == played invariant.
func (s *Standing) Consistent() bool {
	return s.Won+s.Drawn+s.Lost == s.Played
}
