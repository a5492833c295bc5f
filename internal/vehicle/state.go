package vehicle

// State is the movement state of an itinerary.
type State int

const (
	NotStarted State = iota
	EnRoute
	WaitingAtIntersection
	Arrived
	Failed
)

func (s State) String() string {
	if s < NotStarted || s > Failed {
		return "UNKNOWN"
	}
	return [...]string{"NOT_STARTED", "EN_ROUTE", "WAITING_AT_INTERSECTION", "ARRIVED", "FAILED"}[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool { return s == Arrived || s == Failed }

// FailureReason says why a vehicle ended in Failed.
type FailureReason int

const (
	NoFailure FailureReason = iota
	NoRoute                 // planned path empty or degenerate
	MissingEdge             // consecutive path nodes not joined by an edge
	NoNextHop               // current node not followed by another in the path
	NoController            // no intersection at the node the vehicle must queue at
	UnknownApproach         // the intersection does not control the next edge
)

func (r FailureReason) String() string {
	if r < NoFailure || r > UnknownApproach {
		return "unknown"
	}
	return [...]string{"none", "no_route", "missing_edge", "no_next_hop", "no_controller", "unknown_approach"}[r]
}

func (r FailureReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// FailureReasons lists every real failure reason, in declaration order.
func FailureReasons() []FailureReason {
	return []FailureReason{NoRoute, MissingEdge, NoNextHop, NoController, UnknownApproach}
}
