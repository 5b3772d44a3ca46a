package dal

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

// MemoryDAL implements Store using in-memory storage
type MemoryDAL struct {
	mu      sync.RWMutex
	teams   []models.Team // Players unused; membership lives on players
	players []models.Player
	slots   map[int64]int
	matches []models.Match

	nextPlayerID int64
	nextTeamID   int64
	nextMatchID  int64
}

// NewMemoryDAL creates an in-memory store seeded with six teams and thirty players
func NewMemoryDAL() *MemoryDAL {
	m := NewEmptyMemoryDAL()
	m.teams = defaultTeams()
	m.players = defaultPlayers()
	for i, p := range m.players {
		m.slots[p.ID] = i
	}
	m.nextTeamID = int64(len(m.teams))
	m.nextPlayerID = int64(len(m.players))
	return m
}

// NewEmptyMemoryDAL creates an in-memory store with no data
func NewEmptyMemoryDAL() *MemoryDAL {
	return &MemoryDAL{
		teams:   []models.Team{},
		players: []models.Player{},
		slots:   make(map[int64]int),
		matches: []models.Match{},
	}
}

func (m *MemoryDAL) Close() error { return nil }

func (m *MemoryDAL) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryDAL) ListTeams(ctx context.Context) ([]models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	teams := m.sortedTeamsLocked()
	index := make(map[int64]int, len(teams))
	for i := range teams {
		teams[i].Players = []models.Player{}
		index[teams[i].ID] = i
	}
	for _, p := range m.orderedPlayersLocked() {
		if p.TeamID == nil {
			continue
		}
		if i, ok := index[*p.TeamID]; ok {
			teams[i].Players = append(teams[i].Players, p)
		}
	}
	return teams, nil
}

func (m *MemoryDAL) ListStandby(ctx context.Context) ([]models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Player{}
	for _, p := range m.orderedPlayersLocked() {
		if p.TeamID == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryDAL) ListPlayers(ctx context.Context) ([]models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Player, len(m.players))
	copy(out, m.players)
	return out, nil
}

func (m *MemoryDAL) GetPlayer(ctx context.Context, id int64) (*models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.playerIndexLocked(id)
	if i < 0 {
		return nil, errors.Wrapf(ErrNotFound, "player %d", id)
	}
	p := m.players[i]
	return &p, nil
}

func (m *MemoryDAL) AssignPlayer(ctx context.Context, req models.AssignRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.playerIndexLocked(req.PlayerID)
	if i < 0 {
		return errors.Wrapf(ErrNotFound, "player %d", req.PlayerID)
	}

	if req.TeamID == nil {
		m.players[i].TeamID = nil
		m.slots[req.PlayerID] = m.nextSlotLocked(nil)
		return nil
	}

	if m.teamIndexLocked(*req.TeamID) < 0 {
		return errors.Wrapf(ErrNotFound, "team %d", *req.TeamID)
	}
	current := m.players[i].TeamID
	if current != nil && *current == *req.TeamID {
		return nil
	}
	if m.countLocked(*req.TeamID) >= TeamCapacity {
		return errors.Wrapf(ErrTeamFull, "team %d", *req.TeamID)
	}

	m.players[i].TeamID = models.Int64(*req.TeamID)
	m.slots[req.PlayerID] = m.nextSlotLocked(req.TeamID)
	return nil
}

func (m *MemoryDAL) AssignAll(ctx context.Context, batch []models.AssignRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	teams := make(map[int64]struct{}, len(m.teams))
	for _, t := range m.teams {
		teams[t.ID] = struct{}{}
	}

	plan, err := planBatch(m.orderedPlayersLocked(), teams, batch)
	if err != nil {
		return err
	}

	for _, pl := range plan {
		i := m.playerIndexLocked(pl.PlayerID)
		m.players[i].TeamID = pl.TeamID
		m.slots[pl.PlayerID] = pl.Slot
	}
	return nil
}

func (m *MemoryDAL) AddPlayer(ctx context.Context, player *models.Player) (*models.Player, error) {
	p := *player
	if err := normalizeNewPlayer(&p); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextPlayerID++
	p.ID = m.nextPlayerID
	p.TeamID = nil
	m.slots[p.ID] = m.nextSlotLocked(nil)
	m.players = append(m.players, p)
	return &p, nil
}

func (m *MemoryDAL) UpdatePlayer(ctx context.Context, player *models.Player) (*models.Player, error) {
	p := *player
	if err := normalizeNewPlayer(&p); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.playerIndexLocked(p.ID)
	if i < 0 {
		return nil, errors.Wrapf(ErrNotFound, "player %d", p.ID)
	}
	// placement only changes via assignment
	p.TeamID = m.players[i].TeamID
	m.players[i] = p
	return &p, nil
}

func (m *MemoryDAL) DeletePlayer(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.playerIndexLocked(id)
	if i < 0 {
		return errors.Wrapf(ErrNotFound, "player %d", id)
	}
	m.players = slices.Delete(m.players, i, i+1)
	delete(m.slots, id)
	return nil
}

func (m *MemoryDAL) DeleteAllPlayers(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.players = []models.Player{}
	m.slots = make(map[int64]int)
	return nil
}

func (m *MemoryDAL) SetPlayerTier(ctx context.Context, name, tier string) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.players {
		if strings.EqualFold(m.players[i].Name, name) {
			m.players[i].Tier = tier
			m.players[i].HighestTier = HigherTier(m.players[i].HighestTier, tier)
			p := m.players[i]
			return &p, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "player %q", name)
}

func (m *MemoryDAL) AddTeam(ctx context.Context) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTeamID++
	n := len(m.teams) + 1
	t := models.Team{
		ID:           m.nextTeamID,
		Name:         fmt.Sprintf("Team %d", n),
		DisplayOrder: n,
		Players:      []models.Player{},
	}
	m.teams = append(m.teams, t)
	return &t, nil
}

func (m *MemoryDAL) RenameTeam(ctx context.Context, id int64, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Wrap(ErrInvalidInput, "team name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.teamIndexLocked(id)
	if i < 0 {
		return nil, errors.Wrapf(ErrNotFound, "team %d", id)
	}
	m.teams[i].Name = name
	t := m.teams[i]
	t.Players = []models.Player{}
	return &t, nil
}

func (m *MemoryDAL) DeleteTeam(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.teamIndexLocked(id)
	if i < 0 {
		return errors.Wrapf(ErrNotFound, "team %d", id)
	}
	m.releaseTeamLocked(id)
	m.teams = slices.Delete(m.teams, i, i+1)
	return nil
}

func (m *MemoryDAL) DeleteAllTeams(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.teams {
		m.releaseTeamLocked(t.ID)
	}
	m.teams = []models.Team{}
	return nil
}

func (m *MemoryDAL) ListMatches(ctx context.Context) ([]models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Match, 0, len(m.matches))
	for _, match := range m.matches {
		out = append(out, m.withTeamNamesLocked(match))
	}
	return out, nil
}

func (m *MemoryDAL) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.matchIndexLocked(id)
	if i < 0 {
		return nil, errors.Wrapf(ErrNotFound, "match %d", id)
	}
	match := m.withTeamNamesLocked(m.matches[i])
	return &match, nil
}

func (m *MemoryDAL) CreateMatch(ctx context.Context, match *models.Match) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created := *match
	if err := m.checkMatchTeamsLocked(created); err != nil {
		return nil, err
	}
	if created.Status == "" {
		created.Status = models.MatchScheduled
	}
	m.nextMatchID++
	created.ID = m.nextMatchID
	m.matches = append(m.matches, created)

	out := m.withTeamNamesLocked(created)
	return &out, nil
}

func (m *MemoryDAL) SaveMatch(ctx context.Context, match *models.Match) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.matchIndexLocked(match.ID)
	if i < 0 {
		return nil, errors.Wrapf(ErrNotFound, "match %d", match.ID)
	}
	if err := m.checkMatchTeamsLocked(*match); err != nil {
		return nil, err
	}
	m.matches[i] = *match

	out := m.withTeamNamesLocked(*match)
	return &out, nil
}

func (m *MemoryDAL) DeleteMatch(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.matchIndexLocked(id)
	if i < 0 {
		return errors.Wrapf(ErrNotFound, "match %d", id)
	}
	m.matches = slices.Delete(m.matches, i, i+1)
	for i := range m.matches {
		if next := m.matches[i].NextMatchID; next != nil && *next == id {
			m.matches[i].NextMatchID = nil
		}
	}
	return nil
}

func (m *MemoryDAL) DeleteBracket(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.matches = slices.DeleteFunc(m.matches, func(match models.Match) bool { return match.InBracket() })
	return nil
}

// orderedPlayersLocked returns players grouped by team display order, then
// standby, each group in slot order
func (m *MemoryDAL) orderedPlayersLocked() []models.Player {
	rank := map[int64]int{}
	for i, t := range m.sortedTeamsLocked() {
		rank[t.ID] = i
	}
	group := func(p models.Player) int {
		if p.TeamID == nil {
			return len(rank)
		}
		if r, ok := rank[*p.TeamID]; ok {
			return r
		}
		return len(rank)
	}

	out := make([]models.Player, len(m.players))
	copy(out, m.players)
	slices.SortStableFunc(out, func(a, b models.Player) int {
		return cmp.Or(
			cmp.Compare(group(a), group(b)),
			cmp.Compare(m.slots[a.ID], m.slots[b.ID]),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out
}

func (m *MemoryDAL) sortedTeamsLocked() []models.Team {
	teams := make([]models.Team, len(m.teams))
	copy(teams, m.teams)
	slices.SortStableFunc(teams, func(a, b models.Team) int {
		return cmp.Or(cmp.Compare(a.DisplayOrder, b.DisplayOrder), cmp.Compare(a.ID, b.ID))
	})
	return teams
}

func (m *MemoryDAL) nextSlotLocked(teamID *int64) int {
	next := 0
	for _, p := range m.players {
		same := (teamID == nil && p.TeamID == nil) ||
			(teamID != nil && p.TeamID != nil && *p.TeamID == *teamID)
		if same && m.slots[p.ID] >= next {
			next = m.slots[p.ID] + 1
		}
	}
	return next
}

func (m *MemoryDAL) countLocked(teamID int64) int {
	n := 0
	for _, p := range m.players {
		if p.TeamID != nil && *p.TeamID == teamID {
			n++
		}
	}
	return n
}

func (m *MemoryDAL) releaseTeamLocked(teamID int64) {
	for i := range m.players {
		if p := m.players[i]; p.TeamID != nil && *p.TeamID == teamID {
			m.players[i].TeamID = nil
			m.slots[p.ID] = m.nextSlotLocked(nil)
		}
	}
	for i := range m.matches {
		clearTeamRefs(&m.matches[i], teamID)
	}
}

func (m *MemoryDAL) checkMatchTeamsLocked(match models.Match) error {
	for _, id := range []*int64{match.BlueTeamID, match.RedTeamID, match.WinnerTeamID} {
		if id != nil && m.teamIndexLocked(*id) < 0 {
			return errors.Wrapf(ErrNotFound, "team %d", *id)
		}
	}
	if match.NextMatchID != nil && m.matchIndexLocked(*match.NextMatchID) < 0 {
		return errors.Wrapf(ErrNotFound, "match %d", *match.NextMatchID)
	}
	return nil
}

func (m *MemoryDAL) withTeamNamesLocked(match models.Match) models.Match {
	match.BlueTeamName = m.teamNameLocked(match.BlueTeamID)
	match.RedTeamName = m.teamNameLocked(match.RedTeamID)
	return match
}

func (m *MemoryDAL) teamNameLocked(id *int64) string {
	if id == nil {
		return ""
	}
	if i := m.teamIndexLocked(*id); i >= 0 {
		return m.teams[i].Name
	}
	return ""
}

func (m *MemoryDAL) playerIndexLocked(id int64) int {
	return slices.IndexFunc(m.players, func(p models.Player) bool { return p.ID == id })
}

func (m *MemoryDAL) teamIndexLocked(id int64) int {
	return slices.IndexFunc(m.teams, func(t models.Team) bool { return t.ID == id })
}

func (m *MemoryDAL) matchIndexLocked(id int64) int {
	return slices.IndexFunc(m.matches, func(match models.Match) bool { return match.ID == id })
}

func clearTeamRefs(match *models.Match, teamID int64) {
	for _, ref := range []**int64{&match.BlueTeamID, &match.RedTeamID, &match.WinnerTeamID} {
		if *ref != nil && **ref == teamID {
			*ref = nil
		}
	}
}
