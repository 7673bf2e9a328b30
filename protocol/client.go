package protocol

// Payloads sent by the client.

type Hello struct {
	V     int    `json:"v"`               // version
	Name  string `json:"name,omitempty"`  // display name
	World string `json:"world,omitempty"` // spawn world
}

// Move is a continuous position sample.
type Move struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

type Death struct{}

// Command is a /battleroom invocation split into arguments. When Complete is
// set the server answers with completions instead of running it.
type Command struct {
	Args     []string `json:"args"`
	Complete bool     `json:"complete,omitempty"`
}

const (
	BlockPlace = "place"
	BlockBreak = "break"
)

// Block asks to place or break the block at a cell.
type Block struct {
	Action   string `json:"action"`
	World    string `json:"world"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Z        int    `json:"z"`
	Material string `json:"material,omitempty"`
}
