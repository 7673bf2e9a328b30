// Package command implements the /battleroom administration commands on top
// of the room manager.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "battlerooms/errors"
	"battlerooms/game"
	"battlerooms/room"
)

var subcommands = []string{
	"create", "setpos1", "setpos2", "setgate1", "setgate2",
	"save", "cancel", "delete", "list", "reload", "help",
}

var corners = map[string]room.Corner{
	"setpos1":  room.Pos1,
	"setpos2":  room.Pos2,
	"setgate1": room.Gate1,
	"setgate2": room.Gate2,
}

// Caller is the actor running a command and where it currently stands.
// Position has an empty world until the first move sample arrives.
type Caller struct {
	Actor    string
	Position game.Point
}

// Dispatcher parses and runs commands.
type Dispatcher struct {
	m        *room.Manager
	disabled string
	log      *slog.Logger
}

// New returns a dispatcher. disabledMsg is shown to actors who try a command
// while fighting.
func New(m *room.Manager, disabledMsg string, log *slog.Logger) *Dispatcher {
	if disabledMsg == "" {
		disabledMsg = apperrors.ErrCommandsDisabled.Message
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{m: m, disabled: disabledMsg, log: log}
}

// Run executes args for c and returns the lines to show it. Domain failures
// come back as *apperrors.Error.
func (d *Dispatcher) Run(ctx context.Context, c Caller, args []string) ([]string, error) {
	if d.m.InActiveRoom(c.Actor) {
		return nil, apperrors.New(apperrors.CodeCommandsDisabled, d.disabled)
	}
	if len(args) == 0 {
		return help(), nil
	}
	sub := strings.ToLower(args[0])
	d.log.Debug("command", slog.String("actor", c.Actor), slog.String("sub", sub))

	if corner, ok := corners[sub]; ok {
		return d.setCorner(c, corner)
	}
	switch sub {
	case "create":
		return d.create(c, args)
	case "save":
		return d.save(ctx, c)
	case "cancel":
		if err := d.m.CancelDraft(c.Actor); err != nil {
			return nil, err
		}
		return []string{"Room creation cancelled."}, nil
	case "delete":
		if len(args) < 2 {
			return nil, usage("delete <name>")
		}
		if err := d.m.Delete(ctx, args[1]); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("Room %s deleted successfully!", args[1])}, nil
	case "list":
		return d.list(), nil
	case "reload":
		if err := d.m.Reload(ctx); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnknown, "Reload failed.", err)
		}
		return []string{"Configuration reloaded!"}, nil
	default:
		return help(), nil
	}
}

func (d *Dispatcher) create(c Caller, args []string) ([]string, error) {
	if len(args) < 3 {
		return nil, usage("create <" + strings.Join(game.TypeNames(), "|") + "> <name>")
	}
	if err := requirePosition(c); err != nil {
		return nil, err
	}
	if err := d.m.CreateDraft(c.Actor, args[1], args[2], c.Position.World); err != nil {
		return nil, err
	}
	typ, _ := game.ParseType(args[1])
	return []string{
		fmt.Sprintf("Started creating room: %s (%s)", args[2], typ.Display),
		"Now set the room region with setpos1 and setpos2, then the gate with setgate1 and setgate2.",
	}, nil
}

func (d *Dispatcher) setCorner(c Caller, corner room.Corner) ([]string, error) {
	if !d.m.Drafting(c.Actor) {
		return nil, apperrors.ErrNoActiveDraft
	}
	if err := requirePosition(c); err != nil {
		return nil, err
	}
	p, err := d.m.SetPoint(c.Actor, corner, c.Position)
	if err != nil {
		return nil, err
	}
	lines := []string{fmt.Sprintf("%s set to %s.", corner, c.Position), progressLine(p)}
	if p.Complete() {
		lines = append(lines, "All positions set! Use save to save the room.")
	}
	return lines, nil
}

func (d *Dispatcher) save(ctx context.Context, c Caller) ([]string, error) {
	info, err := d.m.Commit(ctx, c.Actor)
	if errors.Is(err, apperrors.ErrIncompleteConfiguration) {
		if p, perr := d.m.Progress(c.Actor); perr == nil {
			return nil, apperrors.WithMetadata(apperrors.CodeIncompleteConfiguration,
				"Room is not complete! "+progressLine(p), map[string]string{"room": p.Name})
		}
	}
	if err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("Room %s saved successfully!", info.Name)}, nil
}

func (d *Dispatcher) list() []string {
	rooms := d.m.List()
	if len(rooms) == 0 {
		return []string{"No rooms configured."}
	}
	lines := make([]string, 0, len(rooms)+1)
	lines = append(lines, "=== Configured Rooms ===")
	for _, r := range rooms {
		lines = append(lines, fmt.Sprintf("%s (%s) - %s [%d/%d]", r.Name, r.Type, r.State, len(r.Occupants), r.Capacity))
	}
	return lines
}

// Complete suggests values for the last argument in args.
func (d *Dispatcher) Complete(args []string) []string {
	switch len(args) {
	case 0:
		return append([]string(nil), subcommands...)
	case 1:
		return withPrefix(subcommands, args[0])
	case 2:
		switch strings.ToLower(args[0]) {
		case "create":
			return withPrefix(game.TypeNames(), args[1])
		case "delete":
			return withPrefix(d.m.Names(), args[1])
		}
	}
	return nil
}

func withPrefix(options []string, prefix string) []string {
	prefix = strings.ToLower(prefix)
	var out []string
	for _, o := range options {
		if strings.HasPrefix(o, prefix) {
			out = append(out, o)
		}
	}
	return out
}

func requirePosition(c Caller) error {
	if c.Position.World == "" {
		return apperrors.New(apperrors.CodeBadRequest, "Your position is not known yet. Move first.")
	}
	return nil
}

func usage(form string) error {
	return apperrors.New(apperrors.CodeBadRequest, "Usage: /battleroom "+form)
}

func progressLine(p room.Progress) string {
	var b strings.Builder
	b.WriteString("Progress:")
	for _, c := range []room.Corner{room.Pos1, room.Pos2, room.Gate1, room.Gate2} {
		mark := "✗"
		if p.Set[c] {
			mark = "✓"
		}
		fmt.Fprintf(&b, " %s %s", c, mark)
	}
	return b.String()
}

func help() []string {
	return []string{
		"=== BattleRooms Commands ===",
		"create <1v1|2v2> <name> - Start creating a new room",
		"setpos1 / setpos2 - Set the room corners to your location",
		"setgate1 / setgate2 - Set the gate corners to your location",
		"save - Save the room",
		"cancel - Cancel room creation",
		"delete <name> - Delete a room",
		"list - List all rooms",
		"reload - Reload rooms from storage",
	}
}
