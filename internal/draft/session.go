package draft

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

var (
	// ErrSaveInProgress is returned when a save is requested while another is in flight
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrNoPersistence is returned when the session was built without a synchronizer
	ErrNoPersistence = errors.New("session has no persistence")
)

// DragSession is the player currently lifted by the pointer
type DragSession struct {
	Player models.Player // snapshot taken at drag start
	Dimmed bool
}

// Session owns the roster for one draft board. Drags mutate it synchronously;
// saves run against a snapshot and may complete on another goroutine.
type Session struct {
	mu     sync.Mutex
	rules  Rules
	roster *Roster
	drag   *DragSession
	saving bool
	syncer *Synchronizer
}

// NewSession creates a session over roster. syncer may be nil for an
// offline board; saves then fail with ErrNoPersistence.
func NewSession(roster *Roster, syncer *Synchronizer, rules Rules) *Session {
	if roster == nil {
		roster = Empty()
	}
	return &Session{rules: rules, roster: roster, syncer: syncer}
}

// Roster returns the current roster. The value must not be modified.
func (s *Session) Roster() *Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster
}

// Rules returns the roster rules the session enforces
func (s *Session) Rules() Rules {
	return s.rules
}

// IsBeingDragged reports whether playerID is the lifted player
func (s *Session) IsBeingDragged(playerID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag != nil && s.drag.Player.ID == playerID
}

// ActiveDraggedPlayer returns the lifted player snapshot, if any
func (s *Session) ActiveDraggedPlayer() (models.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return models.Player{}, false
	}
	return s.drag.Player, true
}

// Saving reports whether a save is in flight
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// OnDragStart lifts playerID. It returns false, leaving any previous drag
// untouched, when the player is not on the board.
func (s *Session) OnDragStart(playerID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, _, ok := s.roster.Find(playerID)
	if !ok {
		logger.Debug("Drag start ignored, player not on board", "player_id", playerID)
		return false
	}
	s.drag = &DragSession{Player: p, Dimmed: true}
	return true
}

// OnDragEnd closes the drag and applies the drop. A nil target cancels
// the gesture without touching the roster.
func (s *Session) OnDragEnd(playerID int64, target *Target) Intent {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drag = nil
	if target == nil {
		return Intent{Kind: IntentCancel, PlayerID: playerID}
	}

	in := Classify(s.roster, s.rules, playerID, *target)
	if !in.Mutates() {
		logger.Debug("Drop rejected", "intent", in.String(), "target", target.String())
		return in
	}

	s.roster = Apply(s.roster, in)
	logger.Debug("Drop applied", "intent", in.String())
	return in
}

// OnDragStartRaw is OnDragStart for a raw card id such as "player-7"
func (s *Session) OnDragStartRaw(source string) bool {
	id, err := ParsePlayerRef(source)
	if err != nil {
		return false
	}
	return s.OnDragStart(id)
}

// OnDragEndRaw is OnDragEnd for raw ids. An empty target cancels; a target
// outside every known namespace is a no-op.
func (s *Session) OnDragEndRaw(source, target string) Intent {
	id, err := ParsePlayerRef(source)
	if err != nil {
		s.mu.Lock()
		s.drag = nil
		s.mu.Unlock()
		return Intent{Kind: IntentRejectNoop}
	}
	if target == "" {
		return s.OnDragEnd(id, nil)
	}

	t, err := ParseTarget(target)
	if err != nil {
		s.mu.Lock()
		s.drag = nil
		s.mu.Unlock()
		return noop(id)
	}
	return s.OnDragEnd(id, &t)
}

// Reload replaces the roster with the collaborator's current view
func (s *Session) Reload(ctx context.Context) error {
	if s.syncer == nil {
		return ErrNoPersistence
	}
	r, err := s.syncer.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.roster = r
	s.mu.Unlock()
	return nil
}

// SaveAll submits the roster and blocks until the save completes. On
// success the roster is replaced by the reloaded one; on failure the local
// roster is kept and the error satisfies IsRetryable.
func (s *Session) SaveAll(ctx context.Context) error {
	snapshot, err := s.beginSave()
	if err != nil {
		return err
	}
	return s.finishSave(ctx, snapshot)
}

// RequestSaveAll starts a save in the background. The returned channel
// receives the outcome and is then closed. Drags may continue meanwhile.
func (s *Session) RequestSaveAll(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	snapshot, err := s.beginSave()
	if err != nil {
		done <- err
		close(done)
		return done
	}

	go func() {
		defer close(done)
		done <- s.finishSave(ctx, snapshot)
	}()
	return done
}

func (s *Session) beginSave() (*Roster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.syncer == nil {
		return nil, ErrNoPersistence
	}
	if s.saving {
		return nil, ErrSaveInProgress
	}
	s.saving = true
	return s.roster, nil
}

func (s *Session) finishSave(ctx context.Context, snapshot *Roster) error {
	reloaded, err := s.syncer.Submit(ctx, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false

	if err != nil {
		logger.Warn("Roster save failed, keeping local state", "error", err)
		return err
	}
	s.roster = reloaded
	logger.Info("Roster saved", "players", reloaded.PlayerCount())
	return nil
}
