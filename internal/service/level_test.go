package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateLevel(t *testing.T) {
	tests := []struct {
		totalXP int
		want    LevelInfo
	}{
		{-5, LevelInfo{Level: 1, XPToNextLevel: 100, CurrentLevelXP: 0}},
		{0, LevelInfo{Level: 1, XPToNextLevel: 100, CurrentLevelXP: 0}},
		{99, LevelInfo{Level: 1, XPToNextLevel: 100, CurrentLevelXP: 99}},
		{100, LevelInfo{Level: 2, XPToNextLevel: 160, CurrentLevelXP: 0}},
		{170, LevelInfo{Level: 2, XPToNextLevel: 160, CurrentLevelXP: 70}},
		{259, LevelInfo{Level: 2, XPToNextLevel: 160, CurrentLevelXP: 159}},
		{260, LevelInfo{Level: 3, XPToNextLevel: 256, CurrentLevelXP: 0}},
		{515, LevelInfo{Level: 3, XPToNextLevel: 256, CurrentLevelXP: 255}},
		{516, LevelInfo{Level: 4, XPToNextLevel: 409, CurrentLevelXP: 0}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateLevel(tt.totalXP), "totalXP=%d", tt.totalXP)
	}
}

func TestCalculateLevelMonotonic(t *testing.T) {
	prev := CalculateLevel(0).Level
	for xp := 1; xp <= 5000; xp += 7 {
		info := CalculateLevel(xp)
		assert.GreaterOrEqual(t, info.Level, prev)
		assert.Less(t, info.CurrentLevelXP, info.XPToNextLevel)
		prev = info.Level
	}
}
