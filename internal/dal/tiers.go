package dal

import "strings"

var tierRank = map[string]int{
	"iron":        1,
	"bronze":      2,
	"silver":      3,
	"gold":        4,
	"platinum":    5,
	"emerald":     6,
	"diamond":     7,
	"master":      8,
	"grandmaster": 9,
	"challenger":  10,
}

// TierRank orders ranked tiers from Iron (1) to Challenger (10). Divisions
// after the tier name are ignored and unknown tiers rank 0.
func TierRank(tier string) int {
	name, _, _ := strings.Cut(strings.TrimSpace(tier), " ")
	name = strings.ReplaceAll(strings.ToLower(name), "_", "")
	return tierRank[name]
}

// HigherTier returns whichever of highest and current ranks higher,
// preferring highest on a tie
func HigherTier(highest, current string) string {
	if highest == "" || TierRank(current) > TierRank(highest) {
		return current
	}
	return highest
}
