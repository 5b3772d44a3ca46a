package dal

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

// placement is where a player ends up after a batch
type placement struct {
	PlayerID int64
	TeamID   *int64
	Slot     int
}

// planBatch computes the placement of every player after batch is applied.
// current must list players in their existing order. Batch entries come
// first in each container; players the batch omits keep their container.
func planBatch(current []models.Player, teams map[int64]struct{}, batch []models.AssignRequest) ([]placement, error) {
	known := make(map[int64]models.Player, len(current))
	for _, p := range current {
		known[p.ID] = p
	}

	seen := make(map[int64]struct{}, len(batch))
	for _, a := range batch {
		if _, ok := known[a.PlayerID]; !ok {
			return nil, errors.Wrapf(ErrInvalidBatch, "unknown player %d", a.PlayerID)
		}
		if _, dup := seen[a.PlayerID]; dup {
			return nil, errors.Wrapf(ErrInvalidBatch, "player %d listed twice", a.PlayerID)
		}
		seen[a.PlayerID] = struct{}{}
		if a.TeamID != nil {
			if _, ok := teams[*a.TeamID]; !ok {
				return nil, errors.Wrapf(ErrInvalidBatch, "unknown team %d", *a.TeamID)
			}
		}
	}

	out := make([]placement, 0, len(current))
	slots := map[int64]int{}
	standbySlot := 0
	place := func(playerID int64, teamID *int64) {
		p := placement{PlayerID: playerID}
		if teamID == nil {
			p.Slot = standbySlot
			standbySlot++
		} else {
			p.TeamID = models.Int64(*teamID)
			p.Slot = slots[*teamID]
			slots[*teamID]++
		}
		out = append(out, p)
	}

	for _, a := range batch {
		place(a.PlayerID, a.TeamID)
	}
	for _, p := range current {
		if _, ok := seen[p.ID]; !ok {
			place(p.ID, p.TeamID)
		}
	}

	for teamID, n := range slots {
		if n > TeamCapacity {
			return nil, errors.Wrapf(ErrInvalidBatch, "team %d would hold %d players", teamID, n)
		}
	}
	return out, nil
}

// normalizeNewPlayer validates a player before insert or update
func normalizeNewPlayer(p *models.Player) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Tier = strings.TrimSpace(p.Tier)
	p.Position = models.Position(strings.ToUpper(strings.TrimSpace(string(p.Position))))

	if p.Name == "" {
		return errors.Wrap(ErrInvalidInput, "name is required")
	}
	if !p.Position.Valid() {
		return errors.Wrapf(ErrInvalidInput, "unknown position %q", p.Position)
	}
	if p.HighestTier == "" {
		p.HighestTier = p.Tier
	}
	return nil
}
