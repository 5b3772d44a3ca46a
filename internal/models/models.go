package models

// Position is a player's in-game role
type Position string

const (
	PositionTop     Position = "TOP"
	PositionJungle  Position = "JUG"
	PositionMid     Position = "MID"
	PositionADC     Position = "ADC"
	PositionSupport Position = "SUP"
)

// Positions lists every valid position in lane order
var Positions = []Position{PositionTop, PositionJungle, PositionMid, PositionADC, PositionSupport}

// Valid reports whether p is one of the five known positions
func (p Position) Valid() bool {
	for _, known := range Positions {
		if p == known {
			return true
		}
	}
	return false
}

// Player represents a cup participant
type Player struct {
	ID          int64    `json:"id" db:"id"`
	Name        string   `json:"name" db:"name"` // "<name>#<tag>"
	Position    Position `json:"position" db:"position"`
	Tier        string   `json:"tier" db:"tier"`
	HighestTier string   `json:"highestTier,omitempty" db:"highest_tier"`
	OpggURL     string   `json:"opggUrl,omitempty" db:"opgg_url"`
	TeamID      *int64   `json:"teamId" db:"team_id"`
}

// InStandby reports whether the player is not assigned to any team
func (p Player) InStandby() bool {
	return p.TeamID == nil
}

// Team represents a draft team with its ordered roster
type Team struct {
	ID           int64    `json:"id" db:"id"`
	Name         string   `json:"name" db:"name"`
	DisplayOrder int      `json:"displayOrder" db:"display_order"`
	Players      []Player `json:"players"`
}

// AssignRequest places one player on a team, or in standby when TeamID is nil
type AssignRequest struct {
	PlayerID int64  `json:"playerId" validate:"required,gt=0"`
	TeamID   *int64 `json:"teamId" validate:"omitempty,gt=0"`
}

// MatchStatus is the lifecycle state of a match
type MatchStatus string

const (
	MatchScheduled MatchStatus = "SCHEDULED"
	MatchFinished  MatchStatus = "FINISHED"
)

// Match is a single game between two teams. Bracket matches carry a round,
// an order within the round, and the id of the match the winner advances to.
type Match struct {
	ID           int64       `json:"id" db:"id"`
	Stage        string      `json:"stage" db:"stage"`
	Round        *int        `json:"round,omitempty" db:"round"`
	MatchOrder   *int        `json:"matchOrder,omitempty" db:"match_order"`
	NextMatchID  *int64      `json:"nextMatchId,omitempty" db:"next_match_id"`
	BlueTeamID   *int64      `json:"blueTeamId" db:"blue_team_id"`
	BlueTeamName string      `json:"blueTeamName,omitempty" db:"-"`
	RedTeamID    *int64      `json:"redTeamId" db:"red_team_id"`
	RedTeamName  string      `json:"redTeamName,omitempty" db:"-"`
	WinnerTeamID *int64      `json:"winnerTeamId" db:"winner_team_id"`
	Score        string      `json:"score" db:"score"`
	Status       MatchStatus `json:"status" db:"status"`
}

// InBracket reports whether the match belongs to the elimination bracket
func (m Match) InBracket() bool {
	return m.Round != nil
}

// Int64 returns a pointer to v
func Int64(v int64) *int64 {
	return &v
}

// Int returns a pointer to v
func Int(v int) *int {
	return &v
}
