package listsync

// Op names a synchronizer operation.
type Op int

const (
	OpRefresh Op = iota
	OpCreate
	OpToggle
	OpUpdateDetails
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpRefresh:
		return "refresh"
	case OpCreate:
		return "create"
	case OpToggle:
		return "toggle"
	case OpUpdateDetails:
		return "update-details"
	case OpRemove:
		return "remove"
	}
	return "unknown"
}

// Event is delivered to observers after every state transition.
//
// Started is set only on the event a refresh sends when it raises the
// loading flag. Err is the failure of the operation, if any; the local
// state already reflects how that failure was handled.
type Event struct {
	Op      Op
	ItemID  int
	Started bool
	Err     error
}
