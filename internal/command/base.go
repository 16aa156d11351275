// Package command implements the tsplit subcommands.
package command

import (
	"flag"
	"io"
)

// Command is one tsplit subcommand.
type Command interface {
	// Name returns the command name as typed on the command line.
	Name() string

	// Description returns a one-line summary for help output.
	Description() string

	// Usage returns the usage string for the command.
	Usage() string

	// SetupFlags registers the command's flags. The FlagSet is parsed
	// before Execute is called.
	SetupFlags(fs *flag.FlagSet)

	// Execute runs the command with the positional arguments left after
	// flag parsing.
	Execute(args []string, stdout, stderr io.Writer) error
}

// BaseCommand carries the metadata every command has. Commands embed it.
type BaseCommand struct {
	name        string
	description string
	usage       string
}

// NewBaseCommand creates a new BaseCommand.
func NewBaseCommand(name, description, usage string) *BaseCommand {
	return &BaseCommand{
		name:        name,
		description: description,
		usage:       usage,
	}
}

func (c *BaseCommand) Name() string        { return c.name }
func (c *BaseCommand) Description() string { return c.description }
func (c *BaseCommand) Usage() string       { return c.usage }

// SetupFlags registers nothing. Commands with flags override it.
func (c *BaseCommand) SetupFlags(fs *flag.FlagSet) {}
