package usecase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdAndDeriveLevel(t *testing.T) {
	testCases := []struct {
		totalXP int
		level   int
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{199, 1},
		{200, 2},
		{399, 2},
		{400, 3},
		{1599, 4},
		{1600, 5},
		{math.MaxInt, MaxLevel},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.level, DeriveLevel(tc.totalXP), "total %d", tc.totalXP)
	}
	assert.Equal(t, 0, Threshold(0))
	assert.Equal(t, 100, Threshold(1))
	assert.Equal(t, 1600, Threshold(5))
	assert.Equal(t, Threshold(MaxLevel), Threshold(MaxLevel+3))
}

func TestDeriveLevel_MonotoneAndIdempotent(t *testing.T) {
	prev := 0
	for xp := 0; xp <= 30000; xp += 7 {
		level := DeriveLevel(xp)
		assert.GreaterOrEqual(t, level, prev, "level dropped at %d XP", xp)
		assert.Equal(t, level, DeriveLevel(Threshold(level)), "threshold of level %d", level)
		assert.LessOrEqual(t, Threshold(level), xp)
		prev = level
	}
}

func TestCeiling(t *testing.T) {
	assert.Equal(t, 100, Ceiling(0))
	assert.Equal(t, 141, Ceiling(1))
	assert.Equal(t, 200, Ceiling(3))
	assert.Equal(t, 100, Ceiling(-2))
}

func TestXPForNextLevel(t *testing.T) {
	assert.Equal(t, 100, XPForNextLevel(0))
	assert.Equal(t, 50, XPForNextLevel(150))
	assert.Equal(t, 0, XPForNextLevel(Threshold(MaxLevel)))
}

func TestLevelTitle(t *testing.T) {
	assert.Equal(t, "Novice Coder", LevelTitle(0))
	assert.Equal(t, "Class Hero", LevelTitle(4))
	assert.Equal(t, "Programming Deity", LevelTitle(9))
	assert.Equal(t, "Programming Deity", LevelTitle(MaxLevel))
}
