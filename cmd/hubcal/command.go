package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// Command is one CLI subcommand with its metadata and entry point.
type Command struct {
	Name        string
	Description string
	Usage       string
	Examples    []string
	Run         func(args []string) error
}

// NewFlagSet creates a flag set wired to this command's usage text.
func (c *Command) NewFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet(c.Name, flag.ExitOnError)
	fs.Usage = func() { c.PrintUsage() }
	return fs
}

// PrintUsage prints the command's usage and examples.
func (c *Command) PrintUsage() {
	fmt.Fprintf(os.Stderr, "%s\n\nUSAGE:\n    %s\n", c.Description, c.Usage)
	if len(c.Examples) > 0 {
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		for _, example := range c.Examples {
			fmt.Fprintf(os.Stderr, "    %s\n", example)
		}
	}
}

// Registry dispatches subcommands by name.
type Registry struct {
	commands map[string]*Command
	order    []string
	fallback string
}

// NewRegistry creates a registry whose fallback command runs when no
// subcommand is given.
func NewRegistry(fallback string) *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		fallback: fallback,
	}
}

// Register adds a command.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	r.order = append(r.order, cmd.Name)
}

// Execute dispatches to the named command, the fallback when args are
// empty.
func (r *Registry) Execute(args []string) error {
	name := r.fallback
	if len(args) > 0 {
		name = args[0]
		args = args[1:]
	}

	switch name {
	case "help", "-h", "--help":
		r.PrintHelp(os.Stdout)
		return nil
	}

	cmd, ok := r.commands[name]
	if !ok {
		r.PrintHelp(os.Stderr)
		return fmt.Errorf("unknown command: %s", name)
	}
	return cmd.Run(args)
}

// PrintHelp prints the overall CLI help.
func (r *Registry) PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "hubcal - identify physical USB hub ports despite speed-dependent topology")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "    hubcal [command] [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	for _, name := range r.order {
		cmd := r.commands[name]
		fmt.Fprintf(w, "    %-10s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Without a command, status runs.")
	fmt.Fprintln(w, "Run 'hubcal <command> --help' for details on a command.")
}
