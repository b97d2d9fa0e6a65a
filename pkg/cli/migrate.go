package cli

import (
	"context"
	"fmt"

	"github.com/platinummonkey/sitepanel/pkg/storage"
)

func newMigrateCommand() *Command {
	return &Command{
		Name:        "migrate",
		Description: "Apply pending schema migrations",
		Flags:       newFlagSet("migrate"),
		Run:         runMigrate,
	}
}

func runMigrate(env *Env, args []string) error {
	cmd := newMigrateCommand()
	status := cmd.Flags.Bool("status", false, "Only list applied and pending migrations")
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	db, err := env.DB(ctx)
	if err != nil {
		return err
	}

	if !*status {
		if err := storage.RunMigrations(ctx, db, nil); err != nil {
			return err
		}
	}

	applied, err := storage.AppliedVersions(ctx, db)
	if err != nil {
		return err
	}
	pending := 0
	for _, m := range storage.Migrations() {
		state := "applied"
		if !applied[m.Version] {
			state = "pending"
			pending++
		}
		fmt.Fprintf(env.Out, "%3d  %-8s %s\n", m.Version, state, m.Description)
	}
	env.Log.WithField("pending", pending).Info("Migration check complete")
	return nil
}
