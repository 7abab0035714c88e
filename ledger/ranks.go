// ledger/ranks.go - Rank tier lookup
package ledger

// Rank is a cosmetic tier derived purely from accumulated XP.
type Rank struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	MinXP int    `json:"min_xp"`
}

// Ranks is the static rank table, ascending by MinXP. The zero-floor entry
// guarantees RankForXP is total.
var Ranks = []Rank{
	{ID: "bronze", Name: "Bronze", MinXP: 0},
	{ID: "silver", Name: "Silver", MinXP: 500},
	{ID: "gold", Name: "Gold", MinXP: 1500},
	{ID: "platinum", Name: "Platinum", MinXP: 3000},
	{ID: "ruby", Name: "Ruby", MinXP: 5000},
	{ID: "sapphire", Name: "Sapphire", MinXP: 10000},
	{ID: "emerald", Name: "Emerald", MinXP: 20000},
	{ID: "diamond", Name: "Diamond", MinXP: 50000},
}

// RankIconThresholdXP gates the rank icon on user cards (Ruby and above).
const RankIconThresholdXP = 5000

// RankForXP returns the rank whose MinXP is the largest value <= xp.
// Negative xp is clamped to the base rank.
func RankForXP(xp int) Rank {
	rank := Ranks[0]
	for _, r := range Ranks {
		if r.MinXP <= xp {
			rank = r
		} else {
			break
		}
	}
	return rank
}

// NextRank returns the rank after the current one, or nil at the top.
func NextRank(xp int) *Rank {
	for i, r := range Ranks {
		if r.MinXP > xp {
			return &Ranks[i]
		}
	}
	return nil
}

// ShowRankIcon reports whether the user's card displays a rank icon.
func ShowRankIcon(xp int) bool {
	return xp >= RankIconThresholdXP
}
