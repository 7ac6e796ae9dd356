package packml

import (
	"errors"
	"fmt"
)

// Command is one of the nine operator/supervisor commands that drive a unit
// through the state graph.
type Command int

const (
	CommandStart Command = iota
	CommandStop
	CommandAbort
	CommandHold
	CommandUnhold
	CommandSuspend
	CommandUnsuspend
	CommandClear
	CommandReset

	numCommands int = iota
)

var commandNames = map[Command]string{
	CommandStart:     "start",
	CommandStop:      "stop",
	CommandAbort:     "abort",
	CommandHold:      "hold",
	CommandUnhold:    "unhold",
	CommandSuspend:   "suspend",
	CommandUnsuspend: "unsuspend",
	CommandClear:     "clear",
	CommandReset:     "reset",
}

// ErrUnknownCommand is returned when parsing a string that names no command.
var ErrUnknownCommand = errors.New("unknown command")

// String returns the lowercase command name.
func (c Command) String() string {
	name, ok := commandNames[c]
	if !ok {
		return fmt.Sprintf("Command(%d)", int(c))
	}

	return name
}

// Valid returns true if c is one of the nine defined commands.
func (c Command) Valid() bool {
	return c >= CommandStart && int(c) < numCommands
}

// MarshalText implements encoding.TextMarshaler.
func (c Command) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCommand, int(c))
	}

	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Command) UnmarshalText(text []byte) error {
	parsed, err := ParseCommand(string(text))
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}

// ParseCommand resolves a lowercase command name.
func ParseCommand(name string) (Command, error) {
	for cmd, cmdName := range commandNames {
		if cmdName == name {
			return cmd, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// Commands returns all nine commands in declaration order.
func Commands() []Command {
	all := make([]Command, 0, numCommands)
	for c := CommandStart; int(c) < numCommands; c++ {
		all = append(all, c)
	}

	return all
}
