package game

import "strings"

// Type describes a room format. Capacity is the occupant count that seals
// the room and starts the match.
type Type struct {
	Key      string
	Display  string
	Capacity int
	Aliases  []string
}

var (
	Duel  = Type{Key: "duel", Display: "1v1", Capacity: 2, Aliases: []string{"1v1", "one_v_one"}}
	Squad = Type{Key: "squad", Display: "2v2", Capacity: 4, Aliases: []string{"2v2", "two_v_two"}}
)

// Types lists the known room formats in display order.
var Types = []Type{Duel, Squad}

// ParseType resolves a key, display name or alias, ignoring case.
func ParseType(s string) (Type, bool) {
	s = strings.TrimSpace(s)
	for _, t := range Types {
		if strings.EqualFold(s, t.Key) || strings.EqualFold(s, t.Display) {
			return t, true
		}
		for _, a := range t.Aliases {
			if strings.EqualFold(s, a) {
				return t, true
			}
		}
	}
	return Type{}, false
}

// TypeNames returns the display names accepted on the command line.
func TypeNames() []string {
	out := make([]string, 0, len(Types))
	for _, t := range Types {
		out = append(out, t.Display)
	}
	return out
}
