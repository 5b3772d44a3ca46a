package draft

import (
	"context"
	"fmt"
	"sync"

	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

func player(id int64) models.Player {
	return models.Player{
		ID:       id,
		Name:     fmt.Sprintf("Player%d#KR1", id),
		Position: models.Positions[int(id)%len(models.Positions)],
		Tier:     "Diamond",
	}
}

func team(id int64, playerIDs ...int64) models.Team {
	t := models.Team{ID: id, Name: fmt.Sprintf("Team %d", id), DisplayOrder: int(id), Players: []models.Player{}}
	for _, pid := range playerIDs {
		t.Players = append(t.Players, player(pid))
	}
	return t
}

func standby(playerIDs ...int64) []models.Player {
	out := []models.Player{}
	for _, pid := range playerIDs {
		out = append(out, player(pid))
	}
	return out
}

func ids(players []models.Player) []int64 {
	out := make([]int64, 0, len(players))
	for _, p := range players {
		out = append(out, p.ID)
	}
	return out
}

func teamIDs(r *Roster, teamID int64) []int64 {
	t, ok := r.Team(teamID)
	if !ok {
		return nil
	}
	return ids(t.Players)
}

// fakeStore is an in-memory Persistence that applies batches the way the
// server does and can be told to fail.
type fakeStore struct {
	mu       sync.Mutex
	teams    []models.Team
	standby  []models.Player
	batches  [][]models.AssignRequest
	failSave error
	failLoad error
	// gate, when set, blocks AssignAll until closed
	gate chan struct{}
}

func newFakeStore(r *Roster) *fakeStore {
	c := r.Clone()
	return &fakeStore{teams: c.Teams, standby: c.Standby}
}

func (f *fakeStore) ListTeams(ctx context.Context) ([]models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoad != nil {
		return nil, f.failLoad
	}
	return NewRoster(f.teams, nil).Teams, nil
}

func (f *fakeStore) ListStandby(ctx context.Context) ([]models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoad != nil {
		return nil, f.failLoad
	}
	return NewRoster(nil, f.standby).Standby, nil
}

func (f *fakeStore) AssignAll(ctx context.Context, batch []models.AssignRequest) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	if f.failSave != nil {
		return f.failSave
	}

	all := map[int64]models.Player{}
	for _, p := range f.standby {
		all[p.ID] = p
	}
	for _, t := range f.teams {
		for _, p := range t.Players {
			all[p.ID] = p
		}
	}

	f.standby = []models.Player{}
	for i := range f.teams {
		f.teams[i].Players = []models.Player{}
	}
	for _, a := range batch {
		p := all[a.PlayerID]
		if a.TeamID == nil {
			p.TeamID = nil
			f.standby = append(f.standby, p)
			continue
		}
		for i := range f.teams {
			if f.teams[i].ID == *a.TeamID {
				p.TeamID = models.Int64(f.teams[i].ID)
				f.teams[i].Players = append(f.teams[i].Players, p)
			}
		}
	}
	return nil
}

func (f *fakeStore) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}
