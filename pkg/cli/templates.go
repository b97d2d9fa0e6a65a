package cli

import (
	"github.com/platinummonkey/sitepanel/pkg/observability"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
)

func newTemplatesCommand() *Command {
	return &Command{
		Name:        "templates",
		Description: "Print the active role templates as YAML",
		Flags:       newFlagSet("templates"),
		Run:         runTemplates,
	}
}

func runTemplates(env *Env, args []string) error {
	cmd := newTemplatesCommand()
	file := cmd.Flags.String("file", env.Config.Templates.Path, "Template override file")
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	source, err := rbac.NewTemplateSource(*file, observability.NopLogger())
	if err != nil {
		return err
	}
	data, err := rbac.MarshalTemplates(source.All())
	if err != nil {
		return err
	}
	_, err = env.Out.Write(data)
	return err
}
