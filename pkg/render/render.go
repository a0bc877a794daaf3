// Package render turns a router's attribute map into configuration text
// using Go templates. Built-in templates are embedded; a template
// directory may override any of them by file name.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/newtron-network/newtboot/pkg/topology"
	"github.com/newtron-network/newtboot/pkg/util"
)

//go:embed templates/*.tmpl
var builtinFS embed.FS

const ext = ".tmpl"

// Renderer renders the template named by a handle with the given data.
type Renderer interface {
	Render(name string, data map[string]any) (string, error)
}

// templateFuncs provides helper functions for router templates.
var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"mul": func(a, b int) int { return a * b },
	"default": func(def, v any) any {
		if v == nil || v == "" {
			return def
		}
		return v
	},
	"lower": strings.ToLower,
	"linkaddr": func(base string, bits, index, side int) (string, error) {
		p, err := util.LinkAddr(base, bits, index, side)
		if err != nil {
			return "", err
		}
		return p.String(), nil
	},
	"peeraddr": func(cidr string) (string, error) {
		p, err := util.PeerAddr(cidr)
		if err != nil {
			return "", err
		}
		return p.String(), nil
	},
	"addrof": func(cidr string) (string, error) {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			return "", err
		}
		return p.Addr().String(), nil
	},
	"netmask": func(cidr string) (string, error) {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			return "", err
		}
		return util.Netmask(p), nil
	},
}

// Engine is a Renderer backed by the embedded templates and an optional
// override directory. Parsed templates are cached.
type Engine struct {
	dir string

	mu    sync.Mutex
	cache map[string]*template.Template
}

// New returns an Engine. dir may be empty.
func New(dir string) *Engine {
	return &Engine{dir: dir, cache: make(map[string]*template.Template)}
}

var _ Renderer = (*Engine)(nil)

// Render executes the named template. Every failure matches
// util.ErrTemplateRender.
func (e *Engine) Render(name string, data map[string]any) (string, error) {
	tmpl, err := e.lookup(name)
	if err != nil {
		return "", fmt.Errorf("render: template %q: %w: %w", name, util.ErrTemplateRender, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render: execute %q: %w: %w", name, util.ErrTemplateRender, err)
	}
	return buf.String(), nil
}

func (e *Engine) lookup(name string) (*template.Template, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid template name")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.cache[name]; ok {
		return t, nil
	}

	data, err := e.read(name)
	if err != nil {
		return nil, err
	}
	t, err := template.New(name).Funcs(templateFuncs).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	e.cache[name] = t
	return t, nil
}

// read returns the override file if one exists, else the built-in.
func (e *Engine) read(name string) ([]byte, error) {
	file := name + ext
	if e.dir != "" {
		data, err := os.ReadFile(filepath.Join(e.dir, file))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	data, err := builtinFS.ReadFile(path.Join("templates", file))
	if err != nil {
		return nil, fmt.Errorf("not found")
	}
	return data, nil
}

// Builtin returns the names of the embedded templates, sorted.
func Builtin() []string {
	entries, _ := fs.ReadDir(builtinFS, "templates")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ext) {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	sort.Strings(names)
	return names
}

// Data builds the template data for a router: every attr plus hostname,
// id and links. The three built-in keys win over attrs of the same name.
func Data(r *topology.Router) map[string]any {
	data := make(map[string]any, len(r.Attrs)+3)
	for k, v := range r.Attrs {
		data[k] = v
	}
	data["hostname"] = r.Name
	data["id"] = r.ID
	data["links"] = r.Links
	return data
}

// Router renders r through its template and records the result on r.
func Router(rd Renderer, r *topology.Router) (string, error) {
	text, err := rd.Render(r.Template, Data(r))
	if err != nil {
		return "", err
	}
	r.RenderedConfig = text
	return text, nil
}
