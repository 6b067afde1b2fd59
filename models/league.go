package models

import "time"

// LeagueFormat соответствует ENUM league_format в БД.
type LeagueFormat string

const (
	FormatSingleRoundRobin LeagueFormat = "single_round_robin"
	FormatDoubleRoundRobin LeagueFormat = "double_round_robin"
	FormatGroupStage       LeagueFormat = "group_stage"
)

// PointRule defines how match outcomes translate into table points.
// Walkover values are distinct from played-match values so a forfeit
// can be scored differently from a win on court.
type PointRule struct {
	Win          int `json:"win"`
	Draw         int `json:"draw"`
	Loss         int `json:"loss"`
	WalkoverWin  int `json:"walkover_win"`
	WalkoverLoss int `json:"walkover_loss"`
}

func DefaultPointRule() PointRule {
	return PointRule{Win: 3, Draw: 1, Loss: 0, WalkoverWin: 3, WalkoverLoss: 0}
}

// TiebreakerKey identifies one comparator used to order standings.
// The closed set of valid keys is interpreted by the standings package.
type TiebreakerKey string

const (
	TiebreakPoints         TiebreakerKey = "points"
	TiebreakSetDifference  TiebreakerKey = "set_difference"
	TiebreakGameDifference TiebreakerKey = "game_difference"
	TiebreakSetsWon        TiebreakerKey = "sets_won"
	TiebreakGamesWon       TiebreakerKey = "games_won"
	TiebreakHeadToHead     TiebreakerKey = "head_to_head"
)

// League представляет лигу клуба. Структурные поля (формат, лимиты команд)
// фиксируются после старта первого сезона.
type League struct {
	ID                 int             `json:"id" db:"id"`
	ClubID             int             `json:"club_id" db:"club_id"`
	Name               string          `json:"name" db:"name"`
	Description        *string         `json:"description,omitempty" db:"description"`
	Format             LeagueFormat    `json:"format" db:"format"`
	MinTeams           int             `json:"min_teams" db:"min_teams"`
	MaxTeams           int             `json:"max_teams" db:"max_teams"`
	PointRule          PointRule       `json:"point_rule" db:"point_rule"`
	PromotionSpots     int             `json:"promotion_spots" db:"promotion_spots"`
	RelegationSpots    int             `json:"relegation_spots" db:"relegation_spots"`
	TiebreakerCriteria []TiebreakerKey `json:"tiebreaker_criteria,omitempty" db:"tiebreaker_criteria"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Seasons []Season `json:"seasons,omitempty" db:"-"`
}
