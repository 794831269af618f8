package service

import "math"

const (
	baseLevelXP     = 100
	levelXPGrowth   = 1.6
	minimumLevelNum = 1
)

// LevelInfo 由累计经验推导出的等级信息
type LevelInfo struct {
	Level          int `json:"level"`
	XPToNextLevel  int `json:"xp_to_next_level"`
	CurrentLevelXP int `json:"current_level_xp"`
}

// CalculateLevel 1 级需要 100 XP，之后每级需求为上一级的 1.6 倍向下取整
func CalculateLevel(totalXP int) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}

	level := minimumLevelNum
	cumulative := 0
	required := baseLevelXP

	for cumulative+required <= totalXP {
		cumulative += required
		level++
		required = int(math.Floor(float64(required) * levelXPGrowth))
	}

	return LevelInfo{
		Level:          level,
		XPToNextLevel:  required,
		CurrentLevelXP: totalXP - cumulative,
	}
}
