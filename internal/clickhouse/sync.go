package clickhouse

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"

	"github.com/Billy-Davies-2/esccup-draft/internal/dal"
	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

// TierSource reports the latest tier per summoner name
type TierSource interface {
	LatestTiers(ctx context.Context) (map[string]string, error)
}

// TierStore is the part of the store the syncer writes to
type TierStore interface {
	ListPlayers(ctx context.Context) ([]models.Player, error)
	SetPlayerTier(ctx context.Context, name, tier string) (*models.Player, error)
}

var displayTiers = map[string]string{
	"IRON":         "Iron",
	"BRONZE":       "Bronze",
	"SILVER":       "Silver",
	"GOLD":         "Gold",
	"PLATINUM":     "Platinum",
	"EMERALD":      "Emerald",
	"DIAMOND":      "Diamond",
	"MASTER":       "Master",
	"GRANDMASTER":  "GrandMaster",
	"GRAND_MASTER": "GrandMaster",
	"CHALLENGER":   "Challenger",
}

// DisplayTier converts an API tier such as "GRANDMASTER" to "GrandMaster".
// Unknown tiers are returned trimmed.
func DisplayTier(tier string) string {
	tier = strings.TrimSpace(tier)
	if t, ok := displayTiers[strings.ToUpper(tier)]; ok {
		return t
	}
	return tier
}

// Syncer copies tiers from a source into the store
type Syncer struct {
	source   TierSource
	store    TierStore
	workers  int
	onUpdate func(models.Player)
}

func NewSyncer(source TierSource, store TierStore) *Syncer {
	return &Syncer{source: source, store: store, workers: 4}
}

// OnUpdate registers fn to run for every player whose tier changed
func (s *Syncer) OnUpdate(fn func(models.Player)) {
	s.onUpdate = fn
}

// SyncOnce updates every player whose latest tier differs from the stored one
// and returns how many changed
func (s *Syncer) SyncOnce(ctx context.Context) (int, error) {
	tiers, err := s.source.LatestTiers(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "fetch tiers")
	}
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list players")
	}

	byName := make(map[string]string, len(tiers))
	for name, tier := range tiers {
		byName[strings.ToLower(name)] = DisplayTier(tier)
	}

	var updated atomic.Int32
	p := pool.New().WithMaxGoroutines(s.workers).WithErrors().WithContext(ctx)
	for _, player := range players {
		tier, ok := byName[strings.ToLower(player.Name)]
		if !ok || tier == "" || strings.EqualFold(tier, player.Tier) {
			continue
		}
		p.Go(func(ctx context.Context) error {
			changed, err := s.store.SetPlayerTier(ctx, player.Name, tier)
			if errors.Is(err, dal.ErrNotFound) {
				// deleted since the listing
				return nil
			}
			if err != nil {
				return errors.Wrapf(err, "update tier for %s", player.Name)
			}
			updated.Add(1)
			if s.onUpdate != nil {
				s.onUpdate(*changed)
			}
			return nil
		})
	}

	err = p.Wait()
	return int(updated.Load()), err
}

// Run syncs immediately and then every interval until ctx is done
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := s.SyncOnce(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Error("Tier sync failed", "error", err, "updated", n)
		case n > 0:
			logger.Info("Tier sync updated players", "updated", n)
		default:
			logger.Debug("Tier sync found no changes")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
