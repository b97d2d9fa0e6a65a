package rbac

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/platinummonkey/sitepanel/pkg/observability"
	"gopkg.in/yaml.v3"
)

// Grant is the capability set a template assigns to one resource
type Grant struct {
	View   bool `json:"view"`
	Create bool `json:"create"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
}

func (g Grant) allows(action Action) bool {
	switch action {
	case ActionView:
		return g.View
	case ActionCreate:
		return g.Create
	case ActionEdit:
		return g.Edit
	case ActionDelete:
		return g.Delete
	}
	return false
}

// Template seeds the permission rows of a newly created admin user
type Template map[Resource]Grant

// Permissions expands the template into rows for adminUserID. Resources without any
// capability get no row.
func (t Template) Permissions(adminUserID string) PermissionSet {
	var out PermissionSet
	for _, res := range Resources() {
		g, ok := t[res]
		if !ok {
			continue
		}
		p := Permission{
			AdminUserID: adminUserID,
			Resource:    res,
			CanView:     g.View,
			CanCreate:   g.Create,
			CanEdit:     g.Edit,
			CanDelete:   g.Delete,
		}
		if p.Empty() {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (t Template) clone() Template {
	out := make(Template, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// DefaultTemplates returns the built-in per-role templates. super_admin has none
// because it bypasses permission rows.
func DefaultTemplates() map[Role]Template {
	all := Grant{View: true, Create: true, Edit: true, Delete: true}
	return map[Role]Template{
		RoleAdmin: {
			ResourceProjects:        all,
			ResourceCurrentProjects: all,
			ResourceMessages:        {View: true, Edit: true, Delete: true},
			ResourceUsers:           {View: true, Create: true, Edit: true},
			ResourceSettings:        {View: true, Edit: true},
		},
		RoleEditor: {
			ResourceProjects:        {View: true, Create: true, Edit: true},
			ResourceCurrentProjects: {View: true, Create: true, Edit: true},
			ResourceMessages:        {View: true},
		},
		RoleViewer: {
			ResourceProjects:        {View: true},
			ResourceCurrentProjects: {View: true},
			ResourceMessages:        {View: true},
		},
	}
}

// templateFile is the on-disk YAML layout:
//
//	templates:
//	  editor:
//	    projects: [view, create, edit]
//	    messages: [view]
type templateFile struct {
	Templates map[string]map[string][]string `yaml:"templates"`
}

// ParseTemplates decodes YAML template overrides
func ParseTemplates(data []byte) (map[Role]Template, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	out := make(map[Role]Template, len(file.Templates))
	for roleName, resources := range file.Templates {
		role, err := ParseRole(roleName)
		if err != nil {
			return nil, err
		}
		if role == RoleSuperAdmin {
			return nil, fmt.Errorf("super_admin cannot have a template")
		}
		tmpl := make(Template, len(resources))
		for resName, actions := range resources {
			res, err := ParseResource(resName)
			if err != nil {
				return nil, fmt.Errorf("role %s: %w", role, err)
			}
			var g Grant
			for _, name := range actions {
				action, err := ParseAction(name)
				if err != nil {
					return nil, fmt.Errorf("role %s, resource %s: %w", role, res, err)
				}
				switch action {
				case ActionView:
					g.View = true
				case ActionCreate:
					g.Create = true
				case ActionEdit:
					g.Edit = true
				case ActionDelete:
					g.Delete = true
				}
			}
			tmpl[res] = g
		}
		out[role] = tmpl
	}
	return out, nil
}

// MarshalTemplates encodes templates in the layout ParseTemplates reads
func MarshalTemplates(templates map[Role]Template) ([]byte, error) {
	file := templateFile{Templates: make(map[string]map[string][]string, len(templates))}
	for role, tmpl := range templates {
		resources := make(map[string][]string, len(tmpl))
		for res, g := range tmpl {
			var actions []string
			for _, action := range Actions() {
				if g.allows(action) {
					actions = append(actions, string(action))
				}
			}
			if len(actions) > 0 {
				resources[string(res)] = actions
			}
		}
		file.Templates[string(role)] = resources
	}
	return yaml.Marshal(file)
}

// TemplateSource serves role templates, optionally overridden by a YAML file that is
// reloaded when it changes on disk.
type TemplateSource struct {
	mu        sync.RWMutex
	path      string
	templates map[Role]Template
	logger    *observability.Logger
}

// NewTemplateSource creates a source. An empty path serves the defaults only.
func NewTemplateSource(path string, logger *observability.Logger) (*TemplateSource, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	s := &TemplateSource{
		path:      path,
		templates: DefaultTemplates(),
		logger:    logger.WithField("component", "role_templates"),
	}
	if path != "" {
		if err := s.Reload(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Template returns a copy of the template for role
func (s *TemplateSource) Template(role Role) Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[role]
	if !ok {
		return Template{}
	}
	return t.clone()
}

// All returns a copy of every template
func (s *TemplateSource) All() map[Role]Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Role]Template, len(s.templates))
	for role, t := range s.templates {
		out[role] = t.clone()
	}
	return out
}

// Reload re-reads the template file. Roles missing from the file keep their defaults.
// On error the previous templates stay in place.
func (s *TemplateSource) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read templates file: %w", err)
	}
	overrides, err := ParseTemplates(data)
	if err != nil {
		return err
	}

	merged := DefaultTemplates()
	for role, t := range overrides {
		merged[role] = t
	}

	s.mu.Lock()
	s.templates = merged
	s.mu.Unlock()

	s.logger.WithField("path", s.path).Infof("Loaded %d role template overrides", len(overrides))
	return nil
}

// Watch reloads the file on change until ctx is done. The parent directory is watched
// so editors that replace the file by rename are picked up.
func (s *TemplateSource) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.WithError(err).Warn("Keeping previous role templates")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WithError(err).Warn("Template watcher error")
		}
	}
}
