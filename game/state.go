package game

// State is where a room sits in its match lifecycle.
type State uint8

const (
	Waiting  State = iota // open, collecting occupants
	Active                // sealed, match in progress
	Cooldown              // sealed and empty, reopen timer running
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "WAITING"
	case Active:
		return "ACTIVE"
	case Cooldown:
		return "COOLDOWN"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
