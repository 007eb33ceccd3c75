package planner

// Stage is a step of the five-step progress signal reported while a plan is generated.
type Stage int

const (
	StagePreparing Stage = iota
	StageAnalyzing
	StageBuilding
	StageFormatting
	StageFinalizing
)

var stageLabels = [...]string{
	"Preparing images...",
	"Analyzing with AI...",
	"Building step-by-step plan...",
	"Formatting instructions...",
	"Finalizing results...",
}

// StageCount is the number of progress stages.
const StageCount = len(stageLabels)

// Label returns the text shown next to the stage; unknown stages get "".
func (s Stage) Label() string {
	if s < 0 || int(s) >= len(stageLabels) {
		return ""
	}
	return stageLabels[s]
}

// Last reports whether s is the final stage.
func (s Stage) Last() bool {
	return int(s) == StageCount-1
}

// ProgressFunc receives stages in increasing order. It may be nil.
type ProgressFunc func(Stage)
