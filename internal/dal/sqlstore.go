package dal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

const playerColumns = "p.id, p.name, p.position, p.tier, p.highest_tier, p.opgg_url, p.team_id"

const matchColumns = `m.id, m.stage, m.round, m.match_order, m.next_match_id,
	m.blue_team_id, m.red_team_id, m.winner_team_id, m.score, m.status,
	COALESCE(b.name, '') AS blue_team_name, COALESCE(r.name, '') AS red_team_name`

const matchFrom = `FROM matches m
	LEFT JOIN teams b ON b.id = m.blue_team_id
	LEFT JOIN teams r ON r.id = m.red_team_id`

// SQLStore implements Store over a sqlx database. Queries are written with
// '?' placeholders and rebound for the driver.
type SQLStore struct {
	db *sqlx.DB
}

type matchRow struct {
	models.Match
	BlueName string `db:"blue_team_name"`
	RedName  string `db:"red_team_name"`
}

func (r matchRow) toModel() models.Match {
	m := r.Match
	m.BlueTeamName = r.BlueName
	m.RedTeamName = r.RedName
	return m
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// seedIfEmpty inserts the default teams and players into an empty database
func (s *SQLStore) seedIfEmpty(ctx context.Context) error {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT (SELECT COUNT(*) FROM teams) + (SELECT COUNT(*) FROM players)"); err != nil {
		return errors.Wrap(err, "count rows")
	}
	if n > 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, t := range defaultTeams() {
			if _, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO teams (name, display_order) VALUES (?, ?)"),
				t.Name, t.DisplayOrder); err != nil {
				return errors.Wrap(err, "seed team")
			}
		}
		for i, p := range defaultPlayers() {
			if _, err := tx.ExecContext(ctx, tx.Rebind(
				`INSERT INTO players (name, position, tier, highest_tier, opgg_url, slot_order)
				VALUES (?, ?, ?, ?, ?, ?)`),
				p.Name, p.Position, p.Tier, p.HighestTier, p.OpggURL, i); err != nil {
				return errors.Wrap(err, "seed player")
			}
		}
		logger.Info("Seeded demo data", "teams", 6, "players", 30)
		return nil
	})
}

func (s *SQLStore) ListTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := s.db.SelectContext(ctx, &teams,
		"SELECT id, name, display_order FROM teams ORDER BY display_order, id"); err != nil {
		return nil, errors.Wrap(err, "select teams")
	}

	var players []models.Player
	if err := s.db.SelectContext(ctx, &players,
		"SELECT "+playerColumns+" FROM players p WHERE p.team_id IS NOT NULL ORDER BY p.slot_order, p.id"); err != nil {
		return nil, errors.Wrap(err, "select team players")
	}

	index := make(map[int64]int, len(teams))
	for i := range teams {
		teams[i].Players = []models.Player{}
		index[teams[i].ID] = i
	}
	for _, p := range players {
		if i, ok := index[*p.TeamID]; ok {
			teams[i].Players = append(teams[i].Players, p)
		}
	}
	if teams == nil {
		teams = []models.Team{}
	}
	return teams, nil
}

func (s *SQLStore) ListStandby(ctx context.Context) ([]models.Player, error) {
	players := []models.Player{}
	if err := s.db.SelectContext(ctx, &players,
		"SELECT "+playerColumns+" FROM players p WHERE p.team_id IS NULL ORDER BY p.slot_order, p.id"); err != nil {
		return nil, errors.Wrap(err, "select standby")
	}
	return players, nil
}

func (s *SQLStore) ListPlayers(ctx context.Context) ([]models.Player, error) {
	players := []models.Player{}
	if err := s.db.SelectContext(ctx, &players, "SELECT "+playerColumns+" FROM players p ORDER BY p.id"); err != nil {
		return nil, errors.Wrap(err, "select players")
	}
	return players, nil
}

func (s *SQLStore) GetPlayer(ctx context.Context, id int64) (*models.Player, error) {
	return getPlayer(ctx, s.db, id)
}

func (s *SQLStore) AssignPlayer(ctx context.Context, req models.AssignRequest) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		p, err := getPlayer(ctx, tx, req.PlayerID)
		if err != nil {
			return err
		}

		if req.TeamID != nil {
			if err := requireRow(ctx, tx, "teams", *req.TeamID); err != nil {
				return err
			}
			if p.TeamID != nil && *p.TeamID == *req.TeamID {
				return nil
			}
			var n int
			if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM players WHERE team_id = ?"), *req.TeamID); err != nil {
				return errors.Wrap(err, "count team players")
			}
			if n >= TeamCapacity {
				return errors.Wrapf(ErrTeamFull, "team %d", *req.TeamID)
			}
		}

		slot, err := nextSlot(ctx, tx, req.TeamID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind("UPDATE players SET team_id = ?, slot_order = ? WHERE id = ?"),
			req.TeamID, slot, req.PlayerID)
		return errors.Wrap(err, "update player team")
	})
}

func (s *SQLStore) AssignAll(ctx context.Context, batch []models.AssignRequest) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var current []models.Player
		if err := tx.SelectContext(ctx, &current, "SELECT "+playerColumns+` FROM players p
			LEFT JOIN teams t ON t.id = p.team_id
			ORDER BY CASE WHEN p.team_id IS NULL THEN 1 ELSE 0 END, t.display_order, t.id, p.slot_order, p.id`); err != nil {
			return errors.Wrap(err, "select players")
		}

		var teamIDs []int64
		if err := tx.SelectContext(ctx, &teamIDs, "SELECT id FROM teams"); err != nil {
			return errors.Wrap(err, "select team ids")
		}
		teams := make(map[int64]struct{}, len(teamIDs))
		for _, id := range teamIDs {
			teams[id] = struct{}{}
		}

		plan, err := planBatch(current, teams, batch)
		if err != nil {
			return err
		}

		stmt, err := tx.PreparexContext(ctx, tx.Rebind("UPDATE players SET team_id = ?, slot_order = ? WHERE id = ?"))
		if err != nil {
			return errors.Wrap(err, "prepare assignment")
		}
		defer stmt.Close()

		for _, pl := range plan {
			if _, err := stmt.ExecContext(ctx, pl.TeamID, pl.Slot, pl.PlayerID); err != nil {
				return errors.Wrapf(err, "assign player %d", pl.PlayerID)
			}
		}
		return nil
	})
}

func (s *SQLStore) AddPlayer(ctx context.Context, player *models.Player) (*models.Player, error) {
	p := *player
	if err := normalizeNewPlayer(&p); err != nil {
		return nil, err
	}
	p.TeamID = nil

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		slot, err := nextSlot(ctx, tx, nil)
		if err != nil {
			return err
		}
		return tx.QueryRowxContext(ctx, tx.Rebind(
			`INSERT INTO players (name, position, tier, highest_tier, opgg_url, slot_order)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			p.Name, p.Position, p.Tier, p.HighestTier, p.OpggURL, slot).Scan(&p.ID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "insert player")
	}
	return &p, nil
}

func (s *SQLStore) UpdatePlayer(ctx context.Context, player *models.Player) (*models.Player, error) {
	p := *player
	if err := normalizeNewPlayer(&p); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE players SET name = ?, position = ?, tier = ?, highest_tier = ?, opgg_url = ? WHERE id = ?"),
		p.Name, p.Position, p.Tier, p.HighestTier, p.OpggURL, p.ID)
	if err := affectedOne(res, err, "player", p.ID); err != nil {
		return nil, err
	}
	return s.GetPlayer(ctx, p.ID)
}

func (s *SQLStore) DeletePlayer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM players WHERE id = ?"), id)
	return affectedOne(res, err, "player", id)
}

func (s *SQLStore) DeleteAllPlayers(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM players")
	return errors.Wrap(err, "delete players")
}

func (s *SQLStore) SetPlayerTier(ctx context.Context, name, tier string) (*models.Player, error) {
	var out *models.Player
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var p models.Player
		err := tx.GetContext(ctx, &p, tx.Rebind("SELECT "+playerColumns+" FROM players p WHERE LOWER(p.name) = LOWER(?)"), name)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(ErrNotFound, "player %q", name)
		}
		if err != nil {
			return errors.Wrap(err, "select player by name")
		}

		p.Tier = tier
		p.HighestTier = HigherTier(p.HighestTier, tier)
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE players SET tier = ?, highest_tier = ? WHERE id = ?"),
			p.Tier, p.HighestTier, p.ID); err != nil {
			return errors.Wrap(err, "update tier")
		}
		out = &p
		return nil
	})
	return out, err
}

func (s *SQLStore) AddTeam(ctx context.Context) (*models.Team, error) {
	t := models.Team{Players: []models.Player{}}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM teams"); err != nil {
			return errors.Wrap(err, "count teams")
		}
		t.Name = fmt.Sprintf("Team %d", n+1)
		t.DisplayOrder = n + 1
		return tx.QueryRowxContext(ctx, tx.Rebind("INSERT INTO teams (name, display_order) VALUES (?, ?) RETURNING id"),
			t.Name, t.DisplayOrder).Scan(&t.ID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "insert team")
	}
	return &t, nil
}

func (s *SQLStore) RenameTeam(ctx context.Context, id int64, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Wrap(ErrInvalidInput, "team name is required")
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE teams SET name = ? WHERE id = ?"), name, id)
	if err := affectedOne(res, err, "team", id); err != nil {
		return nil, err
	}

	t := models.Team{Players: []models.Player{}}
	if err := s.db.GetContext(ctx, &t, s.db.Rebind("SELECT id, name, display_order FROM teams WHERE id = ?"), id); err != nil {
		return nil, errors.Wrap(err, "select team")
	}
	return &t, nil
}

func (s *SQLStore) DeleteTeam(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireRow(ctx, tx, "teams", id); err != nil {
			return err
		}
		if err := releaseTeam(ctx, tx, &id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM teams WHERE id = ?"), id)
		return errors.Wrap(err, "delete team")
	})
}

func (s *SQLStore) DeleteAllTeams(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := releaseTeam(ctx, tx, nil); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM teams")
		return errors.Wrap(err, "delete teams")
	})
}

func (s *SQLStore) ListMatches(ctx context.Context) ([]models.Match, error) {
	var rows []matchRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+matchColumns+" "+matchFrom+" ORDER BY m.id"); err != nil {
		return nil, errors.Wrap(err, "select matches")
	}
	out := make([]models.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (s *SQLStore) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	var row matchRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind("SELECT "+matchColumns+" "+matchFrom+" WHERE m.id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "match %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select match")
	}
	m := row.toModel()
	return &m, nil
}

func (s *SQLStore) CreateMatch(ctx context.Context, match *models.Match) (*models.Match, error) {
	m := *match
	if m.Status == "" {
		m.Status = models.MatchScheduled
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkMatchRefs(ctx, tx, m); err != nil {
			return err
		}
		return tx.QueryRowxContext(ctx, tx.Rebind(
			`INSERT INTO matches (stage, round, match_order, next_match_id, blue_team_id, red_team_id, winner_team_id, score, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			m.Stage, m.Round, m.MatchOrder, m.NextMatchID, m.BlueTeamID, m.RedTeamID, m.WinnerTeamID, m.Score, m.Status,
		).Scan(&m.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetMatch(ctx, m.ID)
}

func (s *SQLStore) SaveMatch(ctx context.Context, match *models.Match) (*models.Match, error) {
	m := *match
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireRow(ctx, tx, "matches", m.ID); err != nil {
			return err
		}
		if err := checkMatchRefs(ctx, tx, m); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE matches SET stage = ?, round = ?, match_order = ?, next_match_id = ?,
			blue_team_id = ?, red_team_id = ?, winner_team_id = ?, score = ?, status = ?
			WHERE id = ?`),
			m.Stage, m.Round, m.MatchOrder, m.NextMatchID, m.BlueTeamID, m.RedTeamID, m.WinnerTeamID, m.Score, m.Status, m.ID)
		return errors.Wrap(err, "update match")
	})
	if err != nil {
		return nil, err
	}
	return s.GetMatch(ctx, m.ID)
}

func (s *SQLStore) DeleteMatch(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE matches SET next_match_id = NULL WHERE next_match_id = ?"), id); err != nil {
			return errors.Wrap(err, "clear next match")
		}
		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM matches WHERE id = ?"), id)
		return affectedOne(res, err, "match", id)
	})
}

func (s *SQLStore) DeleteBracket(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM matches WHERE round IS NOT NULL")
	return errors.Wrap(err, "delete bracket")
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warn("Rollback failed", "error", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func getPlayer(ctx context.Context, q queryer, id int64) (*models.Player, error) {
	var p models.Player
	err := sqlx.GetContext(ctx, q, &p, q.Rebind("SELECT "+playerColumns+" FROM players p WHERE p.id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "player %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select player")
	}
	return &p, nil
}

// requireRow returns ErrNotFound unless table has a row with id
func requireRow(ctx context.Context, tx *sqlx.Tx, table string, id int64) error {
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM "+table+" WHERE id = ?"), id); err != nil {
		return errors.Wrapf(err, "lookup %s", table)
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "%s %d", table, id)
	}
	return nil
}

func checkMatchRefs(ctx context.Context, tx *sqlx.Tx, m models.Match) error {
	for _, id := range []*int64{m.BlueTeamID, m.RedTeamID, m.WinnerTeamID} {
		if id != nil {
			if err := requireRow(ctx, tx, "teams", *id); err != nil {
				return err
			}
		}
	}
	if m.NextMatchID != nil {
		return requireRow(ctx, tx, "matches", *m.NextMatchID)
	}
	return nil
}

// nextSlot returns the slot after the last player in the team, or in standby for nil
func nextSlot(ctx context.Context, tx *sqlx.Tx, teamID *int64) (int, error) {
	var slot int
	var err error
	if teamID == nil {
		err = tx.GetContext(ctx, &slot, "SELECT COALESCE(MAX(slot_order) + 1, 0) FROM players WHERE team_id IS NULL")
	} else {
		err = tx.GetContext(ctx, &slot, tx.Rebind("SELECT COALESCE(MAX(slot_order) + 1, 0) FROM players WHERE team_id = ?"), *teamID)
	}
	return slot, errors.Wrap(err, "next slot")
}

// releaseTeam moves the players of one team, or of every team for nil, to the
// end of standby and clears the team from matches
func releaseTeam(ctx context.Context, tx *sqlx.Tx, teamID *int64) error {
	base, err := nextSlot(ctx, tx, nil)
	if err != nil {
		return err
	}

	if teamID == nil {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			"UPDATE players SET team_id = NULL, slot_order = slot_order + ? WHERE team_id IS NOT NULL"), base); err != nil {
			return errors.Wrap(err, "release players")
		}
		_, err := tx.ExecContext(ctx, "UPDATE matches SET blue_team_id = NULL, red_team_id = NULL, winner_team_id = NULL")
		return errors.Wrap(err, "clear match teams")
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(
		"UPDATE players SET team_id = NULL, slot_order = slot_order + ? WHERE team_id = ?"), base, *teamID); err != nil {
		return errors.Wrap(err, "release players")
	}
	for _, col := range []string{"blue_team_id", "red_team_id", "winner_team_id"} {
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE matches SET "+col+" = NULL WHERE "+col+" = ?"), *teamID); err != nil {
			return errors.Wrap(err, "clear match teams")
		}
	}
	return nil
}

func affectedOne(res sql.Result, err error, what string, id int64) error {
	if err != nil {
		return errors.Wrapf(err, "write %s", what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "write %s", what)
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "%s %d", what, id)
	}
	return nil
}
