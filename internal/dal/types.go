package dal

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

// TeamCapacity is the maximum number of players on one team
const TeamCapacity = 5

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidBatch = errors.New("invalid assignment batch")
	ErrTeamFull     = errors.New("team is full")
)

// DraftDAL stores players, teams and their assignments
type DraftDAL interface {
	// ListTeams returns teams by display order with players in slot order
	ListTeams(ctx context.Context) ([]models.Team, error)
	ListStandby(ctx context.Context) ([]models.Player, error)
	ListPlayers(ctx context.Context) ([]models.Player, error)
	GetPlayer(ctx context.Context, id int64) (*models.Player, error)

	// AssignPlayer moves one player, appending it to the end of the team
	AssignPlayer(ctx context.Context, req models.AssignRequest) error
	// AssignAll applies a batch atomically; slot order follows batch order
	AssignAll(ctx context.Context, batch []models.AssignRequest) error

	AddPlayer(ctx context.Context, player *models.Player) (*models.Player, error)
	UpdatePlayer(ctx context.Context, player *models.Player) (*models.Player, error)
	DeletePlayer(ctx context.Context, id int64) error
	DeleteAllPlayers(ctx context.Context) error
	// SetPlayerTier updates the tier of the player with the given name
	SetPlayerTier(ctx context.Context, name, tier string) (*models.Player, error)

	AddTeam(ctx context.Context) (*models.Team, error)
	RenameTeam(ctx context.Context, id int64, name string) (*models.Team, error)
	// DeleteTeam releases the team's players to standby and clears match references
	DeleteTeam(ctx context.Context, id int64) error
	DeleteAllTeams(ctx context.Context) error

	Ping(ctx context.Context) error
}

// MatchDAL stores matches, including bracket matches
type MatchDAL interface {
	ListMatches(ctx context.Context) ([]models.Match, error)
	GetMatch(ctx context.Context, id int64) (*models.Match, error)
	CreateMatch(ctx context.Context, match *models.Match) (*models.Match, error)
	SaveMatch(ctx context.Context, match *models.Match) (*models.Match, error)
	DeleteMatch(ctx context.Context, id int64) error
	// DeleteBracket removes every match that has a round
	DeleteBracket(ctx context.Context) error
}

// Store is a complete persistence backend
type Store interface {
	DraftDAL
	MatchDAL
	Close() error
}
