package cli

import (
	"flag"
	"fmt"
	"sort"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(env *Env, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "sitepanel-admin",
		Description: "Sitepanel - admin panel operator CLI",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("sitepanel-admin", flag.ContinueOnError),
	}

	root.Subcommands["migrate"] = newMigrateCommand()
	root.Subcommands["setup"] = newSetupCommand()
	root.Subcommands["users"] = newUsersCommand()
	root.Subcommands["check"] = newCheckCommand()
	root.Subcommands["templates"] = newTemplatesCommand()

	return root
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(env *Env, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		return c.usage(env)
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(env, args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage(env *Env) error {
	fmt.Fprintf(env.Out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(env.Out, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(env.Out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}
