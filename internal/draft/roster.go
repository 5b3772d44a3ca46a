package draft

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

// Rules holds the roster constraints enforced by the classifier
type Rules struct {
	TeamCapacity int
}

// DefaultRules returns the cup's roster rules: five players per team
func DefaultRules() Rules {
	return Rules{TeamCapacity: 5}
}

// ErrInvariant reports a roster that breaks the exactly-once or capacity rules
var ErrInvariant = errors.New("roster invariant violated")

// ContainerKind tells the standby pool apart from a team
type ContainerKind int

const (
	ContainerNone ContainerKind = iota
	ContainerStandby
	ContainerTeam
)

// Container identifies where a player currently sits
type Container struct {
	Kind   ContainerKind
	TeamID int64
}

// StandbyContainer is the standby pool
func StandbyContainer() Container {
	return Container{Kind: ContainerStandby}
}

// TeamContainer is the roster of the given team
func TeamContainer(teamID int64) Container {
	return Container{Kind: ContainerTeam, TeamID: teamID}
}

// IsTeam reports whether c is a team roster
func (c Container) IsTeam() bool {
	return c.Kind == ContainerTeam
}

func (c Container) String() string {
	switch c.Kind {
	case ContainerStandby:
		return "standby"
	case ContainerTeam:
		return fmt.Sprintf("team:%d", c.TeamID)
	default:
		return "none"
	}
}

// Roster is the standby pool plus the ordered teams. A Roster is treated as
// immutable once built: Apply returns a new value and shares every container
// it did not touch.
type Roster struct {
	Teams   []models.Team
	Standby []models.Player
}

// NewRoster copies teams and standby into a roster and normalizes each
// player's TeamID to the container holding it.
func NewRoster(teams []models.Team, standby []models.Player) *Roster {
	r := &Roster{
		Teams:   make([]models.Team, len(teams)),
		Standby: make([]models.Player, len(standby)),
	}

	for i, t := range teams {
		players := make([]models.Player, len(t.Players))
		for j, p := range t.Players {
			p.TeamID = models.Int64(t.ID)
			players[j] = p
		}
		t.Players = players
		r.Teams[i] = t
	}

	for i, p := range standby {
		p.TeamID = nil
		r.Standby[i] = p
	}

	return r
}

// Empty returns a roster with no teams and no players
func Empty() *Roster {
	return &Roster{Teams: []models.Team{}, Standby: []models.Player{}}
}

// Find locates a player, scanning standby first and then every team in order
func (r *Roster) Find(playerID int64) (models.Player, Container, bool) {
	if i := indexOf(r.Standby, playerID); i >= 0 {
		return r.Standby[i], StandbyContainer(), true
	}
	for _, t := range r.Teams {
		if i := indexOf(t.Players, playerID); i >= 0 {
			return t.Players[i], TeamContainer(t.ID), true
		}
	}
	return models.Player{}, Container{}, false
}

// Team returns the team with the given id
func (r *Roster) Team(teamID int64) (models.Team, bool) {
	if i := r.teamIndex(teamID); i >= 0 {
		return r.Teams[i], true
	}
	return models.Team{}, false
}

// Occupancy returns the number of players on a team, or -1 for an unknown team
func (r *Roster) Occupancy(teamID int64) int {
	if i := r.teamIndex(teamID); i >= 0 {
		return len(r.Teams[i].Players)
	}
	return -1
}

// PlayerCount is the number of players across standby and all teams
func (r *Roster) PlayerCount() int {
	n := len(r.Standby)
	for _, t := range r.Teams {
		n += len(t.Players)
	}
	return n
}

// Validate checks the exactly-once and capacity invariants
func (r *Roster) Validate(rules Rules) error {
	seen := make(map[int64]string, r.PlayerCount())

	mark := func(p models.Player, where string) error {
		if prev, dup := seen[p.ID]; dup {
			return errors.Wrapf(ErrInvariant, "player %d in both %s and %s", p.ID, prev, where)
		}
		seen[p.ID] = where
		return nil
	}

	for _, p := range r.Standby {
		if err := mark(p, "standby"); err != nil {
			return err
		}
		if p.TeamID != nil {
			return errors.Wrapf(ErrInvariant, "standby player %d references team %d", p.ID, *p.TeamID)
		}
	}

	teams := make(map[int64]struct{}, len(r.Teams))
	for _, t := range r.Teams {
		if _, dup := teams[t.ID]; dup {
			return errors.Wrapf(ErrInvariant, "team %d listed twice", t.ID)
		}
		teams[t.ID] = struct{}{}

		if len(t.Players) > rules.TeamCapacity {
			return errors.Wrapf(ErrInvariant, "team %d holds %d players, capacity %d", t.ID, len(t.Players), rules.TeamCapacity)
		}
		where := TeamContainer(t.ID).String()
		for _, p := range t.Players {
			if err := mark(p, where); err != nil {
				return err
			}
			if p.TeamID == nil || *p.TeamID != t.ID {
				return errors.Wrapf(ErrInvariant, "player %d on team %d has a stale team reference", p.ID, t.ID)
			}
		}
	}

	return nil
}

// Clone returns a deep copy of the roster
func (r *Roster) Clone() *Roster {
	out := &Roster{
		Teams:   make([]models.Team, len(r.Teams)),
		Standby: slices.Clone(r.Standby),
	}
	for i, t := range r.Teams {
		t.Players = slices.Clone(t.Players)
		out.Teams[i] = t
	}
	return out
}

func (r *Roster) teamIndex(teamID int64) int {
	return slices.IndexFunc(r.Teams, func(t models.Team) bool { return t.ID == teamID })
}

func indexOf(players []models.Player, playerID int64) int {
	return slices.IndexFunc(players, func(p models.Player) bool { return p.ID == playerID })
}
