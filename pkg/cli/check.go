package cli

import (
	"context"
	"fmt"

	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
)

func newCheckCommand() *Command {
	return &Command{
		Name:        "check",
		Description: "Evaluate one permission for an admin user",
		Flags:       newFlagSet("check"),
		Run:         runCheck,
	}
}

func runCheck(env *Env, args []string) error {
	cmd := newCheckCommand()
	email := cmd.Flags.String("email", "", "Email of the admin user")
	resourceName := cmd.Flags.String("resource", "", "Resource, e.g. messages")
	actionName := cmd.Flags.String("action", "view", "Action: view, create, edit or delete")
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	if *email == "" || *resourceName == "" {
		return fmt.Errorf("email and resource are required")
	}
	resource, err := rbac.ParseResource(*resourceName)
	if err != nil {
		return err
	}
	action, err := rbac.ParseAction(*actionName)
	if err != nil {
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

	target := auth.NormalizeEmail(*email)
	for _, u := range list {
		if u.Email != target {
			continue
		}
		detail, err := service.Get(ctx, u.ID)
		if err != nil {
			return err
		}
		allowed := rbac.Evaluate(detail.AdminUser, detail.Permissions, resource, action)

		verdict := "denied"
		if allowed {
			verdict = "allowed"
		}
		fmt.Fprintf(env.Out, "%s %s:%s %s\n", u.Email, resource, action, verdict)
		if !u.IsActive {
			env.Log.WithField("email", u.Email).Warn("Admin user is inactive; sessions are denied regardless")
		}
		return nil
	}
	return fmt.Errorf("no admin user with email %s", target)
}
