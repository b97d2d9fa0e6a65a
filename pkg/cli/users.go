package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
)

func newUsersCommand() *Command {
	return &Command{
		Name:        "users",
		Description: "List admin users",
		Flags:       newFlagSet("users"),
		Run:         runUsers,
	}
}

func runUsers(env *Env, args []string) error {
	cmd := newUsersCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	service, err := userService(ctx, env)
	if err != nil {
		return err
	}
	list, err := service.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tACTIVE\tLAST LOGIN")
	for _, u := range list {
		lastLogin := "never"
		if u.LastLoginAt != nil {
			lastLogin = u.LastLoginAt.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", u.ID, u.Email, u.FullName, u.Role, u.IsActive, lastLogin)
	}
	return w.Flush()
}
