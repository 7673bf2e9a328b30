package protocol

// Payloads sent by the server.

type Welcome struct {
	ActorID string `json:"actorId"`
	Name    string `json:"name"`
}

type Notice struct {
	Text string `json:"text"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Completions struct {
	Options []string `json:"options"`
}
