package migration

// Step is a state of the migration procedure. Steps are entered strictly in
// declaration order; any of them may end in StepAborted.
type Step int

const (
	StepStart Step = iota
	StepFetchSettings
	StepCheckPolicy
	StepFetchBindings
	StepCreateTemp
	StepMoveForward
	StepDeleteOriginal
	StepRecreateOriginal
	StepRebind
	StepMoveBack
	StepVerifyCount
	StepDeleteTemp
	StepDone
	StepAborted
)

var stepNames = [...]string{
	StepStart:            "START",
	StepFetchSettings:    "FETCH_SETTINGS",
	StepCheckPolicy:      "CHECK_POLICY",
	StepFetchBindings:    "FETCH_BINDINGS",
	StepCreateTemp:       "CREATE_TEMP",
	StepMoveForward:      "MOVE_FORWARD",
	StepDeleteOriginal:   "DELETE_ORIGINAL",
	StepRecreateOriginal: "RECREATE_ORIGINAL",
	StepRebind:           "REBIND",
	StepMoveBack:         "MOVE_BACK",
	StepVerifyCount:      "VERIFY_COUNT",
	StepDeleteTemp:       "DELETE_TEMP",
	StepDone:             "DONE",
	StepAborted:          "ABORTED",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "UNKNOWN"
	}
	return stepNames[s]
}
