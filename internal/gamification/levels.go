package gamification

// levelThresholds holds the total-points floor for each level beyond the
// first. Level is a monotonic step function of total points.
var levelThresholds = []int{100, 250, 500, 1000, 2000, 3500, 5500, 8000, 11000}

// pointsPerLevelBeyondTable spaces the open-ended levels past the table.
const pointsPerLevelBeyondTable = 4000

// LevelFromPoints maps a lifetime point total to a level. It never decreases
// as points grow.
func LevelFromPoints(totalPoints int) int {
	if totalPoints < 0 {
		return 1
	}
	level := 1
	for _, threshold := range levelThresholds {
		if totalPoints < threshold {
			return level
		}
		level++
	}
	top := levelThresholds[len(levelThresholds)-1]
	return level + (totalPoints-top)/pointsPerLevelBeyondTable
}
