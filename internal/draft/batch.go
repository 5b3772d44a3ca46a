package draft

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

// ErrPersistence marks failures talking to the persistence collaborator.
// The local roster is still valid; saving again is the retry.
var ErrPersistence = errors.New("persistence unavailable")

// Persistence is the collaborator that stores teams and assignments
type Persistence interface {
	ListTeams(ctx context.Context) ([]models.Team, error)
	ListStandby(ctx context.Context) ([]models.Player, error)
	AssignAll(ctx context.Context, batch []models.AssignRequest) error
}

// persistenceError keeps the collaborator's error as its cause and
// matches ErrPersistence
type persistenceError struct {
	op    string
	cause error
}

func persistenceFailure(op string, cause error) error {
	return &persistenceError{op: op, cause: cause}
}

func (e *persistenceError) Error() string { return e.op + ": " + e.cause.Error() }
func (e *persistenceError) Unwrap() error { return e.cause }
func (e *persistenceError) Is(target error) bool { return target == ErrPersistence }

// IsRetryable reports whether err came from the persistence collaborator
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// Flatten lists every player in r exactly once: each team's players in slot
// order with that team's id, then standby players with a nil team.
func Flatten(r *Roster) []models.AssignRequest {
	batch := make([]models.AssignRequest, 0, r.PlayerCount())
	for _, t := range r.Teams {
		for _, p := range t.Players {
			batch = append(batch, models.AssignRequest{PlayerID: p.ID, TeamID: models.Int64(t.ID)})
		}
	}
	for _, p := range r.Standby {
		batch = append(batch, models.AssignRequest{PlayerID: p.ID})
	}
	return batch
}

// Synchronizer moves rosters to and from the persistence collaborator
type Synchronizer struct {
	store Persistence
}

// NewSynchronizer creates a synchronizer over store
func NewSynchronizer(store Persistence) *Synchronizer {
	return &Synchronizer{store: store}
}

// Load fetches teams and standby and builds a roster from them
func (s *Synchronizer) Load(ctx context.Context) (*Roster, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, persistenceFailure("load teams", err)
	}
	standby, err := s.store.ListStandby(ctx)
	if err != nil {
		return nil, persistenceFailure("load standby", err)
	}
	return NewRoster(teams, standby), nil
}

// Submit sends the whole roster as one batch and, on success, returns the
// roster reloaded from the collaborator.
func (s *Synchronizer) Submit(ctx context.Context, r *Roster) (*Roster, error) {
	batch := Flatten(r)
	logger.Info("Submitting roster batch", "assignments", len(batch))

	if err := s.store.AssignAll(ctx, batch); err != nil {
		return nil, persistenceFailure("submit assignments", err)
	}

	reloaded, err := s.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reload after save")
	}
	return reloaded, nil
}
