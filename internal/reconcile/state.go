package reconcile

// State is a step of one file's reconciliation.
type State int

const (
	Collecting State = iota
	Submitting
	AwaitingRemoteResult
	Committing
	Retrying
	Failed
	Done
)

var stateNames = [...]string{
	Collecting:           "collecting",
	Submitting:           "submitting",
	AwaitingRemoteResult: "awaiting-remote-result",
	Committing:           "committing",
	Retrying:             "retrying",
	Failed:               "failed",
	Done:                 "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Done || s == Failed }
