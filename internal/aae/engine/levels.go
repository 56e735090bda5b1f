package engine

import "github.com/isle-project/aae/internal/aae/instance"

// childLevelOf returns the level immediately below l in the fixed
// hierarchy (component ⊂ lesson ⊂ namespace ⊂ program ⊂ global), and
// false if l is already the component (leaf) level.
func childLevelOf(l instance.Level) (instance.Level, bool) {
	switch l {
	case instance.LevelGlobal:
		return instance.LevelProgram, true
	case instance.LevelProgram:
		return instance.LevelNamespace, true
	case instance.LevelNamespace:
		return instance.LevelLesson, true
	case instance.LevelLesson:
		return instance.LevelComponent, true
	default:
		return "", false
	}
}
