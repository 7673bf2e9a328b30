// Package protocol defines the JSON envelope spoken over the websocket.
package protocol

import (
	"encoding/json"
)

// Version is the protocol revision sent in hello.
const Version = 1

// Client to server.
const (
	MsgHello   = "hello"
	MsgMove    = "move"
	MsgDeath   = "death"
	MsgCommand = "command"
	MsgBlock   = "block"
)

// Server to client.
const (
	MsgWelcome  = "welcome"
	MsgNotice   = "notice"
	MsgError    = "error"
	MsgComplete = "complete"
)

type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"` // raw payload bytes
}
