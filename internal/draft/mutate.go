package draft

import (
	"slices"

	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

// Apply returns the roster that results from in. Rejected, cancelled or
// stale intents return r itself so callers can compare by pointer. A move
// is stale when its player left the source, a container vanished, or the
// destination team already holds in.Capacity players.
// Containers the intent does not touch are shared with r.
func Apply(r *Roster, in Intent) *Roster {
	switch in.Kind {
	case IntentReorder:
		return reorder(r, in)
	case IntentMove:
		return move(r, in)
	default:
		return r
	}
}

func reorder(r *Roster, in Intent) *Roster {
	if !in.From.IsTeam() {
		return r
	}
	ti := r.teamIndex(in.From.TeamID)
	if ti < 0 {
		return r
	}

	players := r.Teams[ti].Players
	from := indexOf(players, in.PlayerID)
	to := indexOf(players, in.OverPlayerID)
	if from < 0 || to < 0 || from == to {
		return r
	}

	moved := slices.Clone(players)
	p := moved[from]
	moved = slices.Delete(moved, from, from+1)
	moved = slices.Insert(moved, to, p)

	out := &Roster{Teams: slices.Clone(r.Teams), Standby: r.Standby}
	out.Teams[ti].Players = moved
	return out
}

func move(r *Roster, in Intent) *Roster {
	if in.From == in.To {
		return r
	}

	out := &Roster{Teams: r.Teams, Standby: r.Standby}
	clonedTeams := false
	cloneTeams := func() {
		if !clonedTeams {
			out.Teams = slices.Clone(r.Teams)
			clonedTeams = true
		}
	}

	destTeam := -1
	switch in.To.Kind {
	case ContainerTeam:
		if destTeam = r.teamIndex(in.To.TeamID); destTeam < 0 {
			return r
		}
		if in.Capacity > 0 && len(r.Teams[destTeam].Players) >= in.Capacity {
			return r
		}
	case ContainerStandby:
	default:
		return r
	}

	var player models.Player
	switch in.From.Kind {
	case ContainerStandby:
		i := indexOf(r.Standby, in.PlayerID)
		if i < 0 {
			return r
		}
		player = r.Standby[i]
		out.Standby = slices.Delete(slices.Clone(r.Standby), i, i+1)
	case ContainerTeam:
		ti := r.teamIndex(in.From.TeamID)
		if ti < 0 {
			return r
		}
		i := indexOf(r.Teams[ti].Players, in.PlayerID)
		if i < 0 {
			return r
		}
		player = r.Teams[ti].Players[i]
		cloneTeams()
		out.Teams[ti].Players = slices.Delete(slices.Clone(r.Teams[ti].Players), i, i+1)
	default:
		return r
	}

	if destTeam >= 0 {
		player.TeamID = models.Int64(in.To.TeamID)
		cloneTeams()
		out.Teams[destTeam].Players = append(slices.Clone(r.Teams[destTeam].Players), player)
	} else {
		player.TeamID = nil
		out.Standby = append(slices.Clip(out.Standby), player)
	}

	return out
}
