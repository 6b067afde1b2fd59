package models

import "time"

// SeasonStatus представляет статусы сезона, соответствующие ENUM в БД.
type SeasonStatus string

const (
	SeasonUpcoming   SeasonStatus = "upcoming"
	SeasonActive     SeasonStatus = "active"
	SeasonInProgress SeasonStatus = "in_progress"
	SeasonCompleted  SeasonStatus = "completed"
	SeasonCancelled  SeasonStatus = "cancelled"
	SeasonPaused     SeasonStatus = "paused"
)

// seasonTransitions перечисляет допустимые переходы статусов.
// Переходы монотонны: вернуться назад или перескочить стадию нельзя.
var seasonTransitions = map[SeasonStatus][]SeasonStatus{
	SeasonUpcoming:   {SeasonActive, SeasonCancelled},
	SeasonActive:     {SeasonInProgress, SeasonCancelled},
	SeasonInProgress: {SeasonCompleted, SeasonPaused, SeasonCancelled},
	SeasonPaused:     {SeasonInProgress, SeasonCancelled},
	SeasonCompleted:  {},
	SeasonCancelled:  {},
}

// CanTransitionTo reports whether a status change is allowed.
func (s SeasonStatus) CanTransitionTo(next SeasonStatus) bool {
	for _, allowed := range seasonTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Season представляет один розыгрыш лиги.
type Season struct {
	ID                int          `json:"id" db:"id"`
	LeagueID          int          `json:"league_id" db:"league_id"`
	Name              string       `json:"name" db:"name"`
	StartDate         time.Time    `json:"start_date" db:"start_date"`
	EndDate           time.Time    `json:"end_date" db:"end_date"`
	RegistrationStart time.Time    `json:"registration_start" db:"registration_start"`
	RegistrationEnd   time.Time    `json:"registration_end" db:"registration_end"`
	CurrentMatchday   int          `json:"current_matchday" db:"current_matchday"`
	Status            SeasonStatus `json:"status" db:"status"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	League    *League    `json:"league,omitempty" db:"-"`
	Teams     []Team     `json:"teams,omitempty" db:"-"`
	Matches   []Match    `json:"matches,omitempty" db:"-"`
	Standings []Standing `json:"standings,omitempty" db:"-"`
}
