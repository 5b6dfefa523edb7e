package usecase

import "math"

// MaxLevel is the highest reachable level.
const MaxLevel = 40

var levelTitles = []string{
	"Novice Coder",
	"Code Apprentice",
	"Script Warrior",
	"Function Master",
	"Class Hero",
	"Module Sage",
	"Framework Knight",
	"Architecture Lord",
	"Code Overlord",
	"Programming Deity",
}

// Threshold returns the total XP needed to reach level: 0 for level 0 and
// 100·2^(level-1) above it.
func Threshold(level int) int {
	if level <= 0 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return 100 << (level - 1)
}

// DeriveLevel returns the highest level whose threshold totalXP has reached.
func DeriveLevel(totalXP int) int {
	level := 0
	for level < MaxLevel && totalXP >= Threshold(level+1) {
		level++
	}
	return level
}

// Ceiling is the most XP a single commit can award at level.
func Ceiling(level int) int {
	if level < 0 {
		level = 0
	}
	return int(math.Floor(100 * math.Sqrt(float64(level+1))))
}

// XPForNextLevel returns how much XP is missing to the next level, or 0 at MaxLevel.
func XPForNextLevel(totalXP int) int {
	level := DeriveLevel(totalXP)
	if level >= MaxLevel {
		return 0
	}
	return Threshold(level+1) - totalXP
}

// LevelTitle names a level; every level from the last title upwards shares it.
func LevelTitle(level int) string {
	switch {
	case level < 0:
		return levelTitles[0]
	case level >= len(levelTitles):
		return levelTitles[len(levelTitles)-1]
	default:
		return levelTitles[level]
	}
}
