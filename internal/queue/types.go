package queue

// Request represents one unit of crawl work: a stable identity key plus an
// opaque payload. The queue never interprets the payload.
type Request struct {
	// Key uniquely identifies the request across the whole queue. When
	// empty it is derived from Method and URL during load.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	URL      string                 `json:"url" yaml:"url"`
	Method   string                 `json:"method,omitempty" yaml:"method,omitempty"`
	Headers  map[string]string      `json:"headers,omitempty" yaml:"headers,omitempty"`
	UserData map[string]interface{} `json:"user_data,omitempty" yaml:"user_data,omitempty"`
}

// State is the lifecycle state of a single request key.
//
//	StateUnseen -> StateDispatched -> StateCompleted      (normal path)
//	StateDispatched -> StateReclaimed -> StateDispatched  (retry path)
type State int

const (
	// StateUnseen means the request has never been dispatched.
	StateUnseen State = iota
	// StateDispatched means the request is with a consumer, outcome unknown.
	StateDispatched
	// StateReclaimed means the request was returned for redispatch. It is
	// still in flight but will be served before the cursor advances.
	StateReclaimed
	// StateCompleted is terminal; the request is never reissued.
	StateCompleted
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateUnseen:
		return "unseen"
	case StateDispatched:
		return "dispatched"
	case StateReclaimed:
		return "reclaimed"
	case StateCompleted:
		return "completed"
	default:
		return "invalid"
	}
}

// Snapshot is the minimal serializable projection of queue state, sufficient
// to resume after a restart. Requests themselves are re-derived from the
// original sources; the snapshot is validated against that fresh load.
type Snapshot struct {
	// Cursor is the index of the next never-dispatched request.
	Cursor int `json:"cursor"`

	// NextKey is the key expected at Cursor in the loaded request list,
	// used as a consistency check. Empty when the cursor is exhausted.
	NextKey string `json:"next_key,omitempty"`

	// InFlight holds the keys dispatched but not yet handled when the
	// snapshot was taken, in sorted order.
	InFlight []string `json:"in_flight,omitempty"`
}
