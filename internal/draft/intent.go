package draft

import "fmt"

// IntentKind is the classified outcome of a drop
type IntentKind int

const (
	IntentRejectNoop IntentKind = iota
	IntentReorder
	IntentMove
	IntentRejectFull
	// IntentCancel is a release over no recognized target
	IntentCancel
)

func (k IntentKind) String() string {
	switch k {
	case IntentReorder:
		return "REORDER"
	case IntentMove:
		return "MOVE"
	case IntentRejectFull:
		return "REJECT-FULL"
	case IntentCancel:
		return "CANCEL"
	default:
		return "REJECT-NOOP"
	}
}

// Intent describes what a drop means for the roster. Reorder intents carry
// the card the player was dropped on; move intents carry source and
// destination containers. Capacity is the team limit in force when a team
// destination was classified; zero means unchecked.
type Intent struct {
	Kind         IntentKind
	PlayerID     int64
	From         Container
	To           Container
	OverPlayerID int64
	Capacity     int
}

// Mutates reports whether applying the intent changes the roster
func (i Intent) Mutates() bool {
	return i.Kind == IntentReorder || i.Kind == IntentMove
}

func (i Intent) String() string {
	switch i.Kind {
	case IntentReorder:
		return fmt.Sprintf("%s(%s, player %d over %d)", i.Kind, i.From, i.PlayerID, i.OverPlayerID)
	case IntentMove:
		return fmt.Sprintf("%s(player %d, %s -> %s)", i.Kind, i.PlayerID, i.From, i.To)
	default:
		return fmt.Sprintf("%s(player %d)", i.Kind, i.PlayerID)
	}
}

func noop(playerID int64) Intent {
	return Intent{Kind: IntentRejectNoop, PlayerID: playerID}
}

// Classify decides what dropping playerID onto t means for r. Rules apply
// in order: reorder within a team, move to standby, move to a team.
// Anything unmatched is a no-op.
func Classify(r *Roster, rules Rules, playerID int64, t Target) Intent {
	_, source, ok := r.Find(playerID)
	if !ok {
		return noop(playerID)
	}

	switch t.Kind {
	case TargetPlayer:
		if t.ID == playerID {
			return noop(playerID)
		}
		_, over, ok := r.Find(t.ID)
		if !ok {
			return noop(playerID)
		}
		if over == source {
			if !source.IsTeam() {
				return noop(playerID)
			}
			return Intent{Kind: IntentReorder, PlayerID: playerID, From: source, To: source, OverPlayerID: t.ID}
		}
		if !over.IsTeam() {
			// a card in standby is not a team drop zone
			return noop(playerID)
		}
		return classifyTeamMove(r, rules, playerID, source, over.TeamID)

	case TargetStandby:
		if !source.IsTeam() {
			return noop(playerID)
		}
		return Intent{Kind: IntentMove, PlayerID: playerID, From: source, To: StandbyContainer()}

	case TargetTeam:
		return classifyTeamMove(r, rules, playerID, source, t.ID)
	}

	return noop(playerID)
}

func classifyTeamMove(r *Roster, rules Rules, playerID int64, source Container, teamID int64) Intent {
	dest := TeamContainer(teamID)
	if dest == source {
		return noop(playerID)
	}

	occupancy := r.Occupancy(teamID)
	if occupancy < 0 {
		return noop(playerID)
	}
	if occupancy >= rules.TeamCapacity {
		return Intent{Kind: IntentRejectFull, PlayerID: playerID, From: source, To: dest, Capacity: rules.TeamCapacity}
	}

	return Intent{Kind: IntentMove, PlayerID: playerID, From: source, To: dest, Capacity: rules.TeamCapacity}
}
