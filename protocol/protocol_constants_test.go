package protocol

import "testing"

func TestMessageConstants(t *testing.T) {
	for got, want := range map[string]string{
		MsgHello:    "hello",
		MsgMove:     "move",
		MsgDeath:    "death",
		MsgCommand:  "command",
		MsgBlock:    "block",
		MsgWelcome:  "welcome",
		MsgNotice:   "notice",
		MsgError:    "error",
		MsgComplete: "complete",
	} {
		if got != want {
			t.Fatalf("message constant = %q, want %q", got, want)
		}
	}
}

func TestMessageConstantsDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range []string{MsgHello, MsgMove, MsgDeath, MsgCommand, MsgBlock, MsgWelcome, MsgNotice, MsgError, MsgComplete} {
		if seen[c] {
			t.Fatalf("duplicate message type %q", c)
		}
		seen[c] = true
	}
}
