// Package progression converts accumulated activity points into a level,
// progress within the level, and feature unlocks from a fixed threshold table.
package progression

// PointsPerLevel is the flat XP cost of each level.
const PointsPerLevel = 100

type State struct {
	TotalPoints      int      `json:"total_points"`
	Level            int      `json:"level"`
	XPToNext         int      `json:"xp_to_next"`
	UnlockedFeatures []string `json:"unlocked_features"`
}

type Unlock struct {
	Name        string `json:"name"`
	AtLevel     int    `json:"at_level"`
	XPRequired  int    `json:"xp_required"`
	AllUnlocked bool   `json:"all_unlocked"`
}

type featureThreshold struct {
	Level int
	Name  string
}

// featureTable is ordered by level; UnlockedFeatures returns a prefix of it.
var featureTable = []featureThreshold{
	{1, "basic_insights"},
	{2, "daily_tasks"},
	{3, "salary_compass"},
	{5, "career_predictions"},
	{8, "skill_gap_analysis"},
	{12, "weekly_coaching"},
}

// pointAwards maps activity types to the points they earn. Unknown types
// earn a single point so tracking a new event type never zeroes out.
var pointAwards = map[string]int{
	"login":            5,
	"task_completed":   15,
	"goal_created":     10,
	"goal_completed":   25,
	"resume_updated":   20,
	"report_generated": 10,
	"salary_lookup":    5,
}

// PointsFor returns the award for an activity type.
func PointsFor(activityType string) int {
	if pts, ok := pointAwards[activityType]; ok {
		return pts
	}
	return 1
}

// LevelFor derives the full progression state from a point total. Negative
// totals clamp to 0 (degenerate input, not an error). Level is non-decreasing
// in totalPoints and the unlocked set only ever grows.
func LevelFor(totalPoints int) State {
	if totalPoints < 0 {
		totalPoints = 0
	}
	level := totalPoints/PointsPerLevel + 1
	return State{
		TotalPoints:      totalPoints,
		Level:            level,
		XPToNext:         level*PointsPerLevel - totalPoints,
		UnlockedFeatures: UnlockedFeatures(level),
	}
}

// UnlockedFeatures returns every feature whose threshold is at or below
// level, in table order.
func UnlockedFeatures(level int) []string {
	var names []string
	for _, f := range featureTable {
		if f.Level <= level {
			names = append(names, f.Name)
		}
	}
	return names
}

// NextUnlock returns the first feature above level, or a terminal marker when
// everything is already unlocked.
func NextUnlock(level int) Unlock {
	for _, f := range featureTable {
		if f.Level > level {
			return Unlock{
				Name:       f.Name,
				AtLevel:    f.Level,
				XPRequired: (f.Level - 1) * PointsPerLevel,
			}
		}
	}
	return Unlock{AllUnlocked: true, XPRequired: 0}
}
