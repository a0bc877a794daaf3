package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TwoRouterYAML is the r1/r2 topology: r1 (xrv) Gi0/0 numeric 100 linked
// to r2 (vmx) ge-0/0/0 numeric 200.
const TwoRouterYAML = `routers:
  r1:
    type: xrv
  r2:
    type: vmx
    asn: 65002
links:
  - left: {router: r1, interface: Gi0/0, numeric: 100}
    right: {router: r2, interface: ge-0/0/0, numeric: 200}
`

// TriangleYAML is three junos routers in a ring with explicit ids.
const TriangleYAML = `routers:
  a:
    type: vmx
    id: 10
  b:
    type: vsrx
    id: 20
  c:
    type: vjunosswitch
    id: 30
links:
  - left: {router: a, interface: ge-0/0/0, numeric: 0}
    right: {router: b, interface: ge-0/0/0, numeric: 0}
  - left: {router: b, interface: ge-0/0/1, numeric: 1}
    right: {router: c, interface: ge-0/0/0, numeric: 0}
  - left: {router: c, interface: ge-0/0/1, numeric: 1}
    right: {router: a, interface: ge-0/0/1, numeric: 1}
`

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
