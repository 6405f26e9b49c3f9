package progression

import (
	"reflect"
	"testing"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		points   int
		level    int
		xpToNext int
	}{
		{0, 1, 100},
		{99, 1, 1},
		{100, 2, 100},
		{250, 3, 50},
		{1100, 12, 100},
		{-50, 1, 100}, // negative clamps to zero
	}
	for _, tc := range cases {
		st := LevelFor(tc.points)
		if st.Level != tc.level || st.XPToNext != tc.xpToNext {
			t.Fatalf("LevelFor(%d) = level %d xp %d, want level %d xp %d",
				tc.points, st.Level, st.XPToNext, tc.level, tc.xpToNext)
		}
	}
}

func TestLevelForDeterministic(t *testing.T) {
	a := LevelFor(430)
	b := LevelFor(430)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("LevelFor not deterministic: %+v vs %+v", a, b)
	}
}

func TestLevelForMonotonic(t *testing.T) {
	prevLevel := 0
	prevUnlocked := 0
	for pts := 0; pts <= 1500; pts += 7 {
		st := LevelFor(pts)
		if st.Level < prevLevel {
			t.Fatalf("level decreased at %d points: %d -> %d", pts, prevLevel, st.Level)
		}
		if len(st.UnlockedFeatures) < prevUnlocked {
			t.Fatalf("unlocked set shrank at %d points", pts)
		}
		prevLevel = st.Level
		prevUnlocked = len(st.UnlockedFeatures)
	}
}

func TestUnlockedFeatures(t *testing.T) {
	if got := UnlockedFeatures(1); !reflect.DeepEqual(got, []string{"basic_insights"}) {
		t.Fatalf("level 1 unlocks = %v", got)
	}
	got := UnlockedFeatures(5)
	want := []string{"basic_insights", "daily_tasks", "salary_compass", "career_predictions"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("level 5 unlocks = %v, want %v", got, want)
	}
}

func TestNextUnlock(t *testing.T) {
	n := NextUnlock(1)
	if n.Name != "daily_tasks" || n.AtLevel != 2 || n.XPRequired != 100 || n.AllUnlocked {
		t.Fatalf("NextUnlock(1) = %+v", n)
	}
	n = NextUnlock(5)
	if n.Name != "skill_gap_analysis" || n.AtLevel != 8 {
		t.Fatalf("NextUnlock(5) = %+v", n)
	}
	n = NextUnlock(12)
	if !n.AllUnlocked || n.XPRequired != 0 {
		t.Fatalf("NextUnlock(12) should be terminal, got %+v", n)
	}
}

func TestPointsFor(t *testing.T) {
	if PointsFor("goal_completed") != 25 {
		t.Fatalf("goal_completed award wrong")
	}
	if PointsFor("something_new") != 1 {
		t.Fatalf("unknown activity should earn 1 point")
	}
}
