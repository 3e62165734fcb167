package pipeline

// State is a step of the run state machine.
type State string

const (
	StateIdle         State = "idle"
	StateLoaded       State = "loaded"
	StateParsed       State = "parsed"
	StateFiltered     State = "filtered"
	StateDeduplicated State = "deduplicated"
	StateSearching    State = "searching"
	StateSkipping     State = "skipping"
	StateCreating     State = "creating"
	StateAttaching    State = "attaching"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
