package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/directory"
	"github.com/platinummonkey/sitepanel/pkg/observability"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
	"github.com/platinummonkey/sitepanel/pkg/users"
)

func newSetupCommand() *Command {
	return &Command{
		Name:        "setup",
		Description: "Create the first super admin",
		Flags:       newFlagSet("setup"),
		Run:         runSetup,
	}
}

// userService builds the admin user service over the CLI's database. There
// are no live sessions to refresh from here.
func userService(ctx context.Context, env *Env) (*users.Service, error) {
	db, err := env.DB(ctx)
	if err != nil {
		return nil, err
	}
	templates, err := rbac.NewTemplateSource(env.Config.Templates.Path, observability.NopLogger())
	if err != nil {
		return nil, err
	}
	identities := auth.NewSQLIdentityStore(db, env.Config.Auth.BcryptCost)
	return users.NewService(directory.NewStore(db), identities, templates, nil, observability.NopLogger()), nil
}

func runSetup(env *Env, args []string) error {
	cmd := newSetupCommand()
	email := cmd.Flags.String("email", "", "Email of the super admin")
	name := cmd.Flags.String("name", "", "Full name of the super admin")
	password := cmd.Flags.String("password", "", "Password (defaults to $SITEPANEL_SETUP_PASSWORD)")
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("SITEPANEL_SETUP_PASSWORD")
	}

	ctx := context.Background()
	service, err := userService(ctx, env)
	if err != nil {
		return err
	}
	db, err := env.DB(ctx)
	if err != nil {
		return err
	}
	auditDB, err := audit.NewDBLogger(db)
	if err != nil {
		return err
	}
	ctx = audit.WithLogger(ctx, auditDB)

	user, err := service.Setup(ctx, users.SetupInput{Email: *email, Password: *password, FullName: *name})
	if errors.Is(err, users.ErrSetupComplete) {
		env.Log.Warn(err.Error())
		return err
	}
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	env.Log.WithField("admin_user_id", user.ID).Info("Created super admin")
	fmt.Fprintf(env.Out, "Created super admin %s (%s)\n", user.Email, user.ID)
	return nil
}
