package room

import "battlerooms/game"

// Transition is the membership change caused by one cell move.
type Transition struct {
	Leave *Room
	Enter *Room
}

// RoomAt returns the first room, in the given order, whose body contains p.
func RoomAt(rooms []*Room, p game.Point) *Room {
	for _, r := range rooms {
		if r.Contains(p) {
			return r
		}
	}
	return nil
}

// Resolve works out which room an actor left and which it entered when moving
// from one cell to another. Overlapping bodies resolve to the earliest room
// in rooms.
func Resolve(rooms []*Room, from, to game.Point) Transition {
	fromRoom := RoomAt(rooms, from)
	toRoom := RoomAt(rooms, to)
	var t Transition
	if fromRoom != nil && (toRoom == nil || fromRoom.key != toRoom.key) {
		t.Leave = fromRoom
	}
	if toRoom != nil && (fromRoom == nil || fromRoom.key != toRoom.key) {
		t.Enter = toRoom
	}
	return t
}
