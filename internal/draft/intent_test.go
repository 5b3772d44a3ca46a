package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

func TestClassify(t *testing.T) {
	// Team1=[1,2,3], Team2=[4], Team3 full, standby=[10,11]
	r := NewRoster(
		[]models.Team{team(1, 1, 2, 3), team(2, 4), team(3, 20, 21, 22, 23, 24)},
		standby(10, 11),
	)

	capacity := DefaultRules().TeamCapacity

	tests := []struct {
		name     string
		playerID int64
		target   Target
		want     Intent
	}{
		{
			name:     "reorder within team",
			playerID: 1,
			target:   PlayerTarget(3),
			want:     Intent{Kind: IntentReorder, PlayerID: 1, From: TeamContainer(1), To: TeamContainer(1), OverPlayerID: 3},
		},
		{
			name:     "drop onto own card",
			playerID: 1,
			target:   PlayerTarget(1),
			want:     noop(1),
		},
		{
			name:     "standby card onto standby card",
			playerID: 10,
			target:   PlayerTarget(11),
			want:     noop(10),
		},
		{
			name:     "team to standby",
			playerID: 2,
			target:   StandbyTarget(),
			want:     Intent{Kind: IntentMove, PlayerID: 2, From: TeamContainer(1), To: StandbyContainer()},
		},
		{
			name:     "standby to standby",
			playerID: 10,
			target:   StandbyTarget(),
			want:     noop(10),
		},
		{
			name:     "team to other team",
			playerID: 1,
			target:   TeamTarget(2),
			want:     Intent{Kind: IntentMove, PlayerID: 1, From: TeamContainer(1), To: TeamContainer(2), Capacity: capacity},
		},
		{
			name:     "standby to team",
			playerID: 10,
			target:   TeamTarget(1),
			want:     Intent{Kind: IntentMove, PlayerID: 10, From: StandbyContainer(), To: TeamContainer(1), Capacity: capacity},
		},
		{
			name:     "onto player card in other team moves to that team",
			playerID: 1,
			target:   PlayerTarget(4),
			want:     Intent{Kind: IntentMove, PlayerID: 1, From: TeamContainer(1), To: TeamContainer(2), Capacity: capacity},
		},
		{
			name:     "standby player onto team card",
			playerID: 10,
			target:   PlayerTarget(4),
			want:     Intent{Kind: IntentMove, PlayerID: 10, From: StandbyContainer(), To: TeamContainer(2), Capacity: capacity},
		},
		{
			name:     "team player onto standby card",
			playerID: 1,
			target:   PlayerTarget(10),
			want:     noop(1),
		},
		{
			name:     "own team container",
			playerID: 1,
			target:   TeamTarget(1),
			want:     noop(1),
		},
		{
			name:     "full team",
			playerID: 10,
			target:   TeamTarget(3),
			want:     Intent{Kind: IntentRejectFull, PlayerID: 10, From: StandbyContainer(), To: TeamContainer(3), Capacity: capacity},
		},
		{
			name:     "full team via card",
			playerID: 1,
			target:   PlayerTarget(22),
			want:     Intent{Kind: IntentRejectFull, PlayerID: 1, From: TeamContainer(1), To: TeamContainer(3), Capacity: capacity},
		},
		{
			name:     "reorder inside full team is allowed",
			playerID: 24,
			target:   PlayerTarget(20),
			want:     Intent{Kind: IntentReorder, PlayerID: 24, From: TeamContainer(3), To: TeamContainer(3), OverPlayerID: 20},
		},
		{
			name:     "unknown team",
			playerID: 1,
			target:   TeamTarget(99),
			want:     noop(1),
		},
		{
			name:     "unknown card",
			playerID: 1,
			target:   PlayerTarget(99),
			want:     noop(1),
		},
		{
			name:     "dragged player not on board",
			playerID: 99,
			target:   TeamTarget(2),
			want:     noop(99),
		},
		{
			name:     "zero target",
			playerID: 1,
			target:   Target{},
			want:     noop(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(r, DefaultRules(), tt.playerID, tt.target))
		})
	}
}

func TestClassifyHonorsRules(t *testing.T) {
	r := NewRoster([]models.Team{team(1, 1, 2)}, standby(3))

	in := Classify(r, Rules{TeamCapacity: 2}, 3, TeamTarget(1))
	assert.Equal(t, IntentRejectFull, in.Kind)

	in = Classify(r, Rules{TeamCapacity: 3}, 3, TeamTarget(1))
	assert.Equal(t, IntentMove, in.Kind)
}

func TestIntentKindString(t *testing.T) {
	assert.Equal(t, "REORDER", IntentReorder.String())
	assert.Equal(t, "MOVE", IntentMove.String())
	assert.Equal(t, "REJECT-FULL", IntentRejectFull.String())
	assert.Equal(t, "REJECT-NOOP", IntentRejectNoop.String())
	assert.Equal(t, "CANCEL", IntentCancel.String())
}
