package compiler

// Stage is a step of a compilation.
type Stage uint8

const (
	StageQueued Stage = iota
	StagePreprocess
	StageLoad
	StageDeclare
	StageLayout
	StageGenerate
	StageWrite
)

func (s Stage) String() string {
	switch s {
	case StageQueued:
		return "queued"
	case StagePreprocess:
		return "preprocess"
	case StageLoad:
		return "load"
	case StageDeclare:
		return "declare"
	case StageLayout:
		return "layout"
	case StageGenerate:
		return "generate"
	case StageWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Status is the state of a unit within a stage.
type Status uint8

const (
	StatusWorking Status = iota
	StatusDone
	StatusError
)

// Event reports progress. Unit is a source path or an assembly name, or
// empty for events about the whole compilation.
type Event struct {
	Unit   string
	Stage  Stage
	Status Status
}

func (s *State) emit(unit string, stage Stage, status Status) {
	if s.Events == nil {
		return
	}
	s.Events <- Event{Unit: unit, Stage: stage, Status: status}
}
