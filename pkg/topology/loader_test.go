package topology

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newtron-network/newtboot/pkg/util"
)

const twoRouterJSON = `{
	"routers": {
		"r1": {"type": "xrv"},
		"r2": {"type": "vmx"}
	},
	"links": [
		{"left":  {"router": "r1", "interface": "Gi0/0", "numeric": 100},
		 "right": {"router": "r2", "interface": "ge-0/0/0", "numeric": 200}}
	]
}`

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func assertTwoRouterScenario(t *testing.T, topo *Topology) {
	t.Helper()

	r1, ok := topo.Router("r1")
	if !ok {
		t.Fatal("r1 not found")
	}
	r2, ok := topo.Router("r2")
	if !ok {
		t.Fatal("r2 not found")
	}
	if r1.ID != 1 || r2.ID != 2 {
		t.Errorf("ids = (%d, %d), want (1, 2)", r1.ID, r2.ID)
	}

	want1 := Link{Interface: "Gi0/0", Numeric: 100, LinkID: 3, Side: 1,
		Remote: Remote{Router: "r2", Interface: "ge-0/0/0", Numeric: 200}}
	want2 := Link{Interface: "ge-0/0/0", Numeric: 200, LinkID: 3, Side: 2,
		Remote: Remote{Router: "r1", Interface: "Gi0/0", Numeric: 100}}
	if len(r1.Links) != 1 || r1.Links[0] != want1 {
		t.Errorf("r1.Links = %+v, want [%+v]", r1.Links, want1)
	}
	if len(r2.Links) != 1 || r2.Links[0] != want2 {
		t.Errorf("r2.Links = %+v, want [%+v]", r2.Links, want2)
	}
}

func TestLoad_JSON(t *testing.T) {
	topo, err := Load(writeFile(t, "topology.json", twoRouterJSON))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	assertTwoRouterScenario(t, topo)
}

func TestLoad_YAML(t *testing.T) {
	data := `
routers:
  r1:
    type: xrv
  r2:
    type: vmx
links:
  - left:  {router: r1, interface: Gi0/0, numeric: 100}
    right: {router: r2, interface: ge-0/0/0, numeric: 200}
`
	topo, err := Load(writeFile(t, "topology.yaml", data))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	assertTwoRouterScenario(t, topo)
}

func TestLoad_TOML(t *testing.T) {
	data := `
[routers.r1]
type = "xrv"

[routers.r2]
type = "vmx"

[[links]]
left = { router = "r1", interface = "Gi0/0", numeric = 100 }
right = { router = "r2", interface = "ge-0/0/0", numeric = 200 }
`
	topo, err := Load(writeFile(t, "topology.toml", data))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	assertTwoRouterScenario(t, topo)
}

func TestParse_DocumentOrder(t *testing.T) {
	data := `
routers:
  zeta: {type: vmx}
  alpha: {type: xrv, id: 50, asn: 65010}
  mid: {type: csr}
`
	doc, err := Parse([]byte(data), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := []string{"zeta", "alpha", "mid"}
	if len(doc.Routers) != len(want) {
		t.Fatalf("got %d routers, want %d", len(doc.Routers), len(want))
	}
	for i, name := range want {
		if doc.Routers[i].Name != name {
			t.Errorf("Routers[%d] = %q, want %q", i, doc.Routers[i].Name, name)
		}
	}
	if doc.Routers[1].Fields["asn"] != 65010 {
		t.Errorf("alpha.asn = %v, want 65010", doc.Routers[1].Fields["asn"])
	}

	topo, err := New(doc)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if topo.Routers[0].ID != 1 || topo.Routers[1].ID != 50 || topo.Routers[2].ID != 3 {
		t.Errorf("ids = %d %d %d, want 1 50 3", topo.Routers[0].ID, topo.Routers[1].ID, topo.Routers[2].ID)
	}
}

func TestParse_TOMLDocumentOrder(t *testing.T) {
	data := `
[routers.b]
type = "vmx"
[routers.a]
type = "vmx"
`
	doc, err := Parse([]byte(data), FormatTOML)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(doc.Routers) != 2 || doc.Routers[0].Name != "b" || doc.Routers[1].Name != "a" {
		t.Errorf("Routers = %+v, want [b a]", doc.Routers)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not a mapping", "- a\n- b\n"},
		{"routers not a mapping", "routers: [r1, r2]\n"},
		{"bad links", "links: {left: x}\n"},
		{"malformed", "{bad json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), FormatYAML); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestLoad_UnsupportedTypeFailsWholeLoad(t *testing.T) {
	data := `{"routers": {"r1": {"type": "xrv"}, "r2": {"type": "junos"}}, "links": []}`
	topo, err := Load(writeFile(t, "topology.json", data))
	if !errors.Is(err, util.ErrUnsupportedDeviceType) {
		t.Fatalf("Load() error = %v, want ErrUnsupportedDeviceType", err)
	}
	if topo != nil {
		t.Error("Load() should not return a topology on error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"topo.json": FormatYAML,
		"topo.yaml": FormatYAML,
		"topo.yml":  FormatYAML,
		"topo.toml": FormatTOML,
		"TOPO.TOML": FormatTOML,
		"topo":      FormatYAML,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %q, want %q", path, got, want)
		}
	}
}
