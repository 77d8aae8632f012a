package action

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/okhotin/agentgate/internal/permission"
)

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := c.Get("checkout"); !ok {
		t.Error("expected default catalog to include checkout")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := c.Get("search_products"); !ok {
		t.Error("expected default catalog")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.yaml")
	content := `
actions:
  - id: act-1
    name: ping
    description: liveness check
    required_permission: read
    category: search
    enabled: true
    params:
      - name: target
        type: string
        required: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, ok := c.Get("ping")
	if !ok {
		t.Fatal("expected ping action")
	}
	if d.RequiredPermission != permission.Read || !d.Enabled {
		t.Errorf("unexpected definition: %+v", d)
	}
}

func TestLoadRejectsUnknownPermission(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.yaml")
	content := "actions:\n  - name: x\n    required_permission: root\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown permission level")
	}
}

func TestVisibleFiltersByPermission(t *testing.T) {
	c := NewCatalog(defaultDefinitions())

	readOnly := c.Visible([]permission.Level{permission.Read})
	for _, d := range readOnly {
		if d.RequiredPermission != permission.Read {
			t.Errorf("read-only caller saw %s requiring %s", d.Name, d.RequiredPermission)
		}
	}

	all := c.Visible([]permission.Level{permission.Admin})
	if len(all) <= len(readOnly) {
		t.Errorf("expected admin to see more tools (%d vs %d)", len(all), len(readOnly))
	}
}

func TestVisibleSkipsDisabled(t *testing.T) {
	c := NewCatalog([]Definition{
		{Name: "on", RequiredPermission: permission.Read, Enabled: true},
		{Name: "off", RequiredPermission: permission.Read, Enabled: false},
	})
	vis := c.Visible([]permission.Level{permission.Admin})
	if len(vis) != 1 || vis[0].Name != "on" {
		t.Errorf("expected only enabled action, got %v", vis)
	}
}

func TestInputSchema(t *testing.T) {
	d := Definition{
		Name: "checkout",
		Params: []Param{
			{Name: "cart_id", Type: "string", Required: true},
			{Name: "note", Type: "string"},
		},
	}
	schema := d.InputSchema()
	if schema["type"] != "object" {
		t.Errorf("expected object schema, got %v", schema["type"])
	}
	props := schema["properties"].(map[string]any)
	if _, ok := props["cart_id"]; !ok {
		t.Error("expected cart_id property")
	}
	required := schema["required"].([]string)
	if len(required) != 1 || required[0] != "cart_id" {
		t.Errorf("expected required=[cart_id], got %v", required)
	}
}

func TestInputSchemaDefaultsParamType(t *testing.T) {
	d := Definition{Name: "x", Params: []Param{{Name: "p"}}}
	props := d.InputSchema()["properties"].(map[string]any)
	if props["p"].(map[string]any)["type"] != "string" {
		t.Error("expected untyped param to default to string")
	}
}

func TestReloadSwapsDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.yaml")
	os.WriteFile(path, []byte("actions:\n  - name: a\n    enabled: true\n"), 0o600)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	os.WriteFile(path, []byte("actions:\n  - name: b\n    enabled: true\n"), 0o600)
	if err := c.Reload(path); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected old action gone after reload")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected new action after reload")
	}
}

func TestReloadEmptyPathKeepsDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Reload(""); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, ok := c.Get("checkout"); !ok {
		t.Error("expected default catalog to survive reload")
	}
}

func TestReloadMissingFileKeepsDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Reload(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, ok := c.Get("search_products"); !ok {
		t.Error("expected default catalog to survive reload")
	}
}
