package detector

import "fmt"

// Stage is a step of the per-instance build sequence.
type Stage int

const (
	StageEndCap Stage = iota
	StageFill
	StageCrystal
	StageColdFinger
	StageDewar
	StageFilters
	StageWraps
	StageDone
)

var stageNames = [...]string{
	StageEndCap:     "end cap",
	StageFill:       "fill",
	StageCrystal:    "crystal",
	StageColdFinger: "cold finger",
	StageDewar:      "dewar",
	StageFilters:    "filters",
	StageWraps:      "wraps",
	StageDone:       "done",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}
