package action

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/okhotin/agentgate/internal/permission"
)

// Param declares one input parameter of an action.
type Param struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool   `yaml:"required" json:"required"`
}

// Definition is an operator-configured action exposed to agents as a
// tool. RequiredPermission gates invocation; ConfirmationRequired
// actions never execute until the caller repeats the call with
// confirmed=true.
type Definition struct {
	ID                   string           `yaml:"id" json:"id"`
	Name                 string           `yaml:"name" json:"name"`
	Description          string           `yaml:"description" json:"description"`
	RequiredPermission   permission.Level `yaml:"required_permission" json:"requiredPermission"`
	ConfirmationRequired bool             `yaml:"confirmation_required" json:"confirmationRequired"`
	Category             string           `yaml:"category" json:"category"`
	Params               []Param          `yaml:"params" json:"params"`
	Enabled              bool             `yaml:"enabled" json:"enabled"`
}

// InputSchema derives a JSON-Schema-shaped description of the action's
// declared parameters, served in tools/list.
func (d Definition) InputSchema() map[string]any {
	props := make(map[string]any, len(d.Params))
	var required []string
	for _, p := range d.Params {
		typ := p.Type
		if typ == "" {
			typ = "string"
		}
		prop := map[string]any{"type": typ}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Catalog holds the action definitions, safe for concurrent reads with
// hot reload.
type Catalog struct {
	mu      sync.RWMutex
	actions map[string]Definition
	order   []string
}

// NewCatalog creates a catalog from the given definitions.
func NewCatalog(defs []Definition) *Catalog {
	c := &Catalog{actions: make(map[string]Definition)}
	c.replace(defs)
	return c
}

// Load reads a catalog from a YAML file. An empty path or a missing
// file falls back to the built-in default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(defaultDefinitions()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewCatalog(defaultDefinitions()), nil
		}
		return nil, fmt.Errorf("action: read catalog: %w", err)
	}
	defs, err := parse(data)
	if err != nil {
		return nil, err
	}
	return NewCatalog(defs), nil
}

// Reload re-reads the catalog file and atomically swaps definitions.
// Same fallback as Load: an empty path or a missing file keeps the
// built-in defaults.
func (c *Catalog) Reload(path string) error {
	defs := defaultDefinitions()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("action: reload catalog: %w", err)
		}
		if err == nil {
			if defs, err = parse(data); err != nil {
				return err
			}
		}
	}
	c.mu.Lock()
	c.replace(defs)
	c.mu.Unlock()
	return nil
}

func parse(data []byte) ([]Definition, error) {
	var file struct {
		Actions []Definition `yaml:"actions"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("action: parse catalog: %w", err)
	}
	for i, d := range file.Actions {
		if d.Name == "" {
			return nil, fmt.Errorf("action: catalog entry %d has no name", i)
		}
		if d.RequiredPermission != "" && !d.RequiredPermission.Valid() {
			return nil, fmt.Errorf("action: %s: unknown permission %q", d.Name, d.RequiredPermission)
		}
	}
	return file.Actions, nil
}

// replace must be called with c.mu held (or before c is shared).
func (c *Catalog) replace(defs []Definition) {
	c.actions = make(map[string]Definition, len(defs))
	c.order = c.order[:0]
	for _, d := range defs {
		if d.RequiredPermission == "" {
			d.RequiredPermission = permission.Read
		}
		if _, dup := c.actions[d.Name]; !dup {
			c.order = append(c.order, d.Name)
		}
		c.actions[d.Name] = d
	}
}

// Get returns the definition by tool name.
func (c *Catalog) Get(name string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.actions[name]
	return d, ok
}

// Visible returns enabled actions the caller's permissions allow, in
// catalog order.
func (c *Catalog) Visible(granted []permission.Level) []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Definition, 0, len(c.order))
	for _, name := range c.order {
		d := c.actions[name]
		if !d.Enabled {
			continue
		}
		if permission.Has(granted, d.RequiredPermission) {
			out = append(out, d)
		}
	}
	return out
}

// All returns every definition, enabled or not, sorted by name. For
// operator listings.
func (c *Catalog) All() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Definition, 0, len(c.actions))
	for _, d := range c.actions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
