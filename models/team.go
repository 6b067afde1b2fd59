package models

import "time"

type TeamStatus string

const (
	TeamActive    TeamStatus = "active"
	TeamWithdrawn TeamStatus = "withdrawn"
	TeamBanned    TeamStatus = "banned"
)

// Team — заявка пары на сезон: два основных игрока плюс запасные.
// Команда регистрируется ровно в одном сезоне.
type Team struct {
	ID          int        `json:"id" db:"id"`
	SeasonID    int        `json:"season_id" db:"season_id"`
	Name        string     `json:"name" db:"name"`
	PlayerOne   string     `json:"player_one" db:"player_one"`
	PlayerTwo   string     `json:"player_two" db:"player_two"`
	Substitutes []string   `json:"substitutes,omitempty" db:"substitutes"`
	Status      TeamStatus `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

func (t *Team) IsActive() bool {
	return t.Status == TeamActive
}
