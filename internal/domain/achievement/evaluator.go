package achievement

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// Decides which catalog achievements a user's current stats unlock.
// Pure computation - persistence of the unlock happens in the application layer.
// ══════════════════════════════════════════════════════════════════════════════

// Stats is the snapshot of a user's progression the evaluator works over.
type Stats struct {
	// TotalXP - lifetime XP.
	TotalXP int

	// Level - current profile level.
	Level int

	// NodesCompleted - completed nodes across all trees.
	NodesCompleted int

	// TreesCompleted - fully completed trees.
	TreesCompleted int

	// CurrentStreak - current daily streak length.
	CurrentStreak int
}

// Evaluator checks unlock conditions against progression stats.
type Evaluator struct{}

// NewEvaluator creates an evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Meets reports whether the stats satisfy the criteria.
func (ev *Evaluator) Meets(c Criteria, stats Stats) bool {
	switch c.Kind {
	case CriteriaNodesCompleted:
		return stats.NodesCompleted >= c.Threshold
	case CriteriaTreesCompleted:
		return stats.TreesCompleted >= c.Threshold
	case CriteriaLevelReached:
		return stats.Level >= c.Threshold
	case CriteriaTotalXP:
		return stats.TotalXP >= c.Threshold
	case CriteriaStreakDays:
		return stats.CurrentStreak >= c.Threshold
	default:
		return false
	}
}

// CheckNewAchievements returns the catalog achievements the stats unlock
// that the user does not already hold.
func (ev *Evaluator) CheckNewAchievements(
	catalog []*Achievement,
	unlocked []*UserAchievement,
	stats Stats,
) []*Achievement {
	existing := make(map[int64]bool, len(unlocked))
	for _, ua := range unlocked {
		existing[ua.AchievementID.Int64()] = true
	}

	var earned []*Achievement
	for _, a := range catalog {
		if existing[a.ID.Int64()] {
			continue
		}
		if ev.Meets(a.Criteria, stats) {
			earned = append(earned, a)
		}
	}
	return earned
}
