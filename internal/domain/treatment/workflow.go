package treatment

// Event is a workflow action applied to a plan or cycle.
type Event string

const (
	EventApproveOPD     Event = "approve_opd"
	EventApproveDaycare Event = "approve_daycare"
	EventActivate       Event = "activate"
	EventFinish         Event = "finish"

	EventApprove  Event = "approve"
	EventStart    Event = "start"
	EventComplete Event = "complete"
)

// anyState is the wildcard source state.
const anyState = "*"

type transition[S ~string] struct {
	from  S
	event Event
}

// machine maps (state, event) to the next state. Exact entries win over
// wildcard entries; a pair with neither is rejected.
type machine[S ~string] map[transition[S]]S

func (m machine[S]) next(from S, ev Event) (S, bool) {
	if to, ok := m[transition[S]{from, ev}]; ok {
		return to, true
	}
	to, ok := m[transition[S]{S(anyState), ev}]
	return to, ok
}

// Approvals are accepted from any state, so a plan may be re-approved after
// it has moved on. Activation happens only once, when the first cycle of an
// approved plan starts.
var planMachine = machine[PlanStatus]{
	{anyState, EventApproveOPD}:     PlanPendingDaycareApproval,
	{anyState, EventApproveDaycare}: PlanApproved,
	{PlanApproved, EventActivate}:   PlanActive,
	{anyState, EventFinish}:         PlanCompleted,
}

// Only start is guarded.
var cycleMachine = machine[CycleStatus]{
	{anyState, EventApprove}:    CycleApproved,
	{CycleApproved, EventStart}: CycleInProgress,
	{anyState, EventComplete}:   CycleCompleted,
}
