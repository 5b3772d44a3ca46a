// Package bracket builds and advances the single elimination tournament.
package bracket

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Billy-Davies-2/esccup-draft/internal/dal"
	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

const (
	StageFinal        = "Final"
	StageSemifinal    = "Semifinal"
	StageQuarterfinal = "Quarterfinal"
)

var (
	ErrInvalidTeamCount = errors.New("team count must be at least 2")
	ErrNotBracketMatch  = errors.New("match is not part of the bracket")
	ErrInvalidWinner    = errors.New("winner must be one of the match teams")
)

// Update holds the fields a bracket match update may change; nil leaves a field as is
type Update struct {
	Score        *string `json:"score"`
	BlueTeamID   *int64  `json:"blueTeamId" validate:"omitempty,gt=0"`
	RedTeamID    *int64  `json:"redTeamId" validate:"omitempty,gt=0"`
	WinnerTeamID *int64  `json:"winnerTeamId" validate:"omitempty,gt=0"`
}

// Service manages bracket matches in a match store
type Service struct {
	store dal.MatchDAL
}

func NewService(store dal.MatchDAL) *Service {
	return &Service{store: store}
}

// CreateEmpty replaces the bracket with empty matches for teamCount teams.
// Four or more teams add semifinals and eight or more add quarterfinals.
// Matches are returned final first, then semifinals and quarterfinals in order.
func (s *Service) CreateEmpty(ctx context.Context, teamCount int) ([]models.Match, error) {
	if teamCount < 2 {
		return nil, errors.Wrapf(ErrInvalidTeamCount, "got %d", teamCount)
	}

	if err := s.store.DeleteBracket(ctx); err != nil {
		return nil, errors.Wrap(err, "delete bracket")
	}

	final, err := s.create(ctx, StageFinal, 2, 1, nil)
	if err != nil {
		return nil, err
	}
	out := []models.Match{*final}

	var semis []*models.Match
	if teamCount >= 4 {
		for order := 1; order <= 2; order++ {
			semi, err := s.create(ctx, StageSemifinal, 4, order, &final.ID)
			if err != nil {
				return nil, err
			}
			semis = append(semis, semi)
			out = append(out, *semi)
		}
	}

	if teamCount >= 8 {
		for order := 1; order <= 4; order++ {
			next := semis[(order+1)/2-1]
			quarter, err := s.create(ctx, StageQuarterfinal, 8, order, &next.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, *quarter)
		}
	}

	logger.Info("Created empty bracket", "teams", teamCount, "matches", len(out))
	return out, nil
}

func (s *Service) create(ctx context.Context, stage string, round, order int, next *int64) (*models.Match, error) {
	m := &models.Match{
		Stage:      stage,
		Round:      models.Int(round),
		MatchOrder: models.Int(order),
		Status:     models.MatchScheduled,
	}
	if next != nil {
		m.NextMatchID = models.Int64(*next)
	}
	created, err := s.store.CreateMatch(ctx, m)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s %d", stage, order)
	}
	return created, nil
}

// UpdateMatch applies upd to a bracket match. Setting a winner finishes the
// match and moves the winner into the next match: odd orders fill the blue
// slot and even orders fill red. The advanced match is returned when there is one.
func (s *Service) UpdateMatch(ctx context.Context, id int64, upd Update) (*models.Match, *models.Match, error) {
	m, err := s.store.GetMatch(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !m.InBracket() {
		return nil, nil, errors.Wrapf(ErrNotBracketMatch, "match %d", id)
	}

	if upd.Score != nil {
		m.Score = *upd.Score
	}
	if upd.BlueTeamID != nil {
		m.BlueTeamID = models.Int64(*upd.BlueTeamID)
	}
	if upd.RedTeamID != nil {
		m.RedTeamID = models.Int64(*upd.RedTeamID)
	}
	if upd.WinnerTeamID != nil {
		w := *upd.WinnerTeamID
		if !sameTeam(m.BlueTeamID, w) && !sameTeam(m.RedTeamID, w) {
			return nil, nil, errors.Wrapf(ErrInvalidWinner, "team %d", w)
		}
		m.WinnerTeamID = models.Int64(w)
		m.Status = models.MatchFinished
	}

	saved, err := s.store.SaveMatch(ctx, m)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "save match %d", id)
	}

	if saved.WinnerTeamID == nil || saved.NextMatchID == nil {
		return saved, nil, nil
	}

	next, err := s.store.GetMatch(ctx, *saved.NextMatchID)
	if err != nil {
		return saved, nil, errors.Wrapf(err, "load next match %d", *saved.NextMatchID)
	}
	if isOdd(saved.MatchOrder) {
		next.BlueTeamID = models.Int64(*saved.WinnerTeamID)
	} else {
		next.RedTeamID = models.Int64(*saved.WinnerTeamID)
	}
	advanced, err := s.store.SaveMatch(ctx, next)
	if err != nil {
		return saved, nil, errors.Wrapf(err, "advance winner to match %d", next.ID)
	}

	logger.Info("Advanced bracket winner", "match", saved.ID, "next", advanced.ID, "team", *saved.WinnerTeamID)
	return saved, advanced, nil
}

func sameTeam(slot *int64, id int64) bool {
	return slot != nil && *slot == id
}

func isOdd(order *int) bool {
	return order == nil || *order%2 == 1
}
