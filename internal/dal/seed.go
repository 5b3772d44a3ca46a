package dal

import (
	"fmt"

	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

var seedTiers = []string{"Challenger", "GrandMaster", "Master", "Diamond", "Emerald"}

// defaultTeams returns the six empty teams a fresh cup starts with
func defaultTeams() []models.Team {
	teams := make([]models.Team, 0, 6)
	for i := 1; i <= 6; i++ {
		teams = append(teams, models.Team{
			ID:           int64(i),
			Name:         fmt.Sprintf("Team %d", i),
			DisplayOrder: i,
			Players:      []models.Player{},
		})
	}
	return teams
}

// defaultPlayers returns thirty standby players covering every position
func defaultPlayers() []models.Player {
	players := make([]models.Player, 0, 30)
	for i := 1; i <= 30; i++ {
		tier := seedTiers[(i-1)/6%len(seedTiers)]
		players = append(players, models.Player{
			ID:          int64(i),
			Name:        fmt.Sprintf("Player%d#KR%d", i, i),
			Position:    models.Positions[(i-1)%len(models.Positions)],
			Tier:        tier,
			HighestTier: tier,
			OpggURL:     fmt.Sprintf("https://www.op.gg/summoners/kr/Player%d-KR%d", i, i),
		})
	}
	return players
}
