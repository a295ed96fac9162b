package ledger

// rankOrder lists adventurer ranks from lowest to highest.
var rankOrder = []string{"F", "E", "D", "C", "B", "A", "S", "SS", "SSS"}

// rankThresholds maps the minimum lifetime XP for each rank, lower-bound
// inclusive. Must stay sorted ascending and aligned with rankOrder.
var rankThresholds = []int64{0, 200, 400, 700, 1000, 1500, 2000, 3000, 5000}

// CalculateRank returns the rank earned at the given lifetime XP.
func CalculateRank(xp int64) string {
	rank := rankOrder[0]
	for i, min := range rankThresholds {
		if xp >= min {
			rank = rankOrder[i]
		}
	}
	return rank
}

// DemoteRank steps a rank down exactly one tier, clamped at F. Unknown
// ranks clamp to F as well.
func DemoteRank(rank string) string {
	for i, r := range rankOrder {
		if r == rank {
			if i == 0 {
				return rankOrder[0]
			}
			return rankOrder[i-1]
		}
	}
	return rankOrder[0]
}
