package draft

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownTarget is returned when a raw drop id matches no target namespace
var ErrUnknownTarget = errors.New("unrecognized drop target")

// TargetKind discriminates the Target union
type TargetKind int

const (
	TargetTeam TargetKind = iota + 1
	TargetPlayer
	TargetStandby
)

// Target is whatever was under the pointer at release: a team container,
// another player's card, or the standby pool.
type Target struct {
	Kind TargetKind
	ID   int64 // team id or player id; unused for standby
}

// TeamTarget is a drop onto a team container
func TeamTarget(teamID int64) Target {
	return Target{Kind: TargetTeam, ID: teamID}
}

// PlayerTarget is a drop onto another player's card
func PlayerTarget(playerID int64) Target {
	return Target{Kind: TargetPlayer, ID: playerID}
}

// StandbyTarget is a drop onto the standby pool
func StandbyTarget() Target {
	return Target{Kind: TargetStandby}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetTeam:
		return fmt.Sprintf("team:%d", t.ID)
	case TargetPlayer:
		return fmt.Sprintf("player:%d", t.ID)
	case TargetStandby:
		return "standby"
	default:
		return "unknown"
	}
}

// ParseTarget converts a raw drop id such as "team-3", "team:3", "player-7",
// "player:7", "standby" or "standby-zone" into a Target.
func ParseTarget(raw string) (Target, error) {
	s := strings.ToLower(strings.TrimSpace(raw))

	switch s {
	case "standby", "standby-zone":
		return StandbyTarget(), nil
	}

	if id, ok := cutID(s, "team"); ok {
		return TeamTarget(id), nil
	}
	if id, ok := cutID(s, "player"); ok {
		return PlayerTarget(id), nil
	}

	return Target{}, errors.Wrapf(ErrUnknownTarget, "%q", raw)
}

// ParsePlayerRef accepts "player-7", "player:7" or a bare "7"
func ParsePlayerRef(raw string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if id, ok := cutID(s, "player"); ok {
		return id, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Newf("invalid player reference %q", raw)
	}
	return id, nil
}

func cutID(s, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok || rest == "" || (rest[0] != '-' && rest[0] != ':') {
		return 0, false
	}
	id, err := strconv.ParseInt(rest[1:], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
