package topology

import (
	"fmt"
	"math"
	"strconv"

	"github.com/newtron-network/newtboot/pkg/util"
)

// Reserved router keys. They configure the router itself and are never
// copied into Attrs.
const (
	keyID   = "id"
	keyType = "type"
)

// Topology is the router collection for one run, in document order.
type Topology struct {
	Routers []*Router
	index   map[string]*Router
}

// New builds routers from doc and assigns links. Routers without an
// explicit id get their 1-based document position.
func New(doc *Document) (*Topology, error) {
	t := &Topology{index: make(map[string]*Router, len(doc.Routers))}
	vb := &util.ValidationBuilder{}
	ids := make(map[int]string, len(doc.Routers))

	for pos, entry := range doc.Routers {
		if _, dup := t.index[entry.Name]; dup {
			return nil, fmt.Errorf("topology: %w: name %q declared twice", util.ErrDuplicateRouter, entry.Name)
		}

		typ, ok := entry.Fields[keyType].(string)
		if !ok || typ == "" {
			vb.AddErrorf("router %s: type is required", entry.Name)
			continue
		}
		r, err := NewRouter(entry.Name, DeviceType(typ), entry.Fields)
		if err != nil {
			return nil, fmt.Errorf("topology: %w", err)
		}

		r.ID = pos + 1
		if raw, ok := entry.Fields[keyID]; ok {
			id, err := toInt(raw)
			if err != nil || id <= 0 {
				vb.AddErrorf("router %s: id must be a positive integer, got %v", entry.Name, raw)
				continue
			}
			r.ID = id
		}
		if other, dup := ids[r.ID]; dup {
			return nil, fmt.Errorf("topology: %w: id %d used by %s and %s", util.ErrDuplicateRouter, r.ID, other, r.Name)
		}
		ids[r.ID] = r.Name

		t.Routers = append(t.Routers, r)
		t.index[r.Name] = r
	}
	if err := vb.Build(); err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}

	if err := AssignLinks(t.Routers, doc.Links); err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}
	return t, nil
}

// NewSingle returns a one-router topology for an ad-hoc run. The router
// has id 1 and no links.
func NewSingle(name string, typ DeviceType, attrs map[string]any) (*Topology, error) {
	r, err := NewRouter(name, typ, attrs)
	if err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}
	r.ID = 1
	return &Topology{
		Routers: []*Router{r},
		index:   map[string]*Router{name: r},
	}, nil
}

// NewRouter creates a router of the given type with its template handle
// selected from the device table. Reserved keys in fields are dropped.
func NewRouter(name string, typ DeviceType, fields map[string]any) (*Router, error) {
	if !typ.Supported() {
		return nil, &util.UnsupportedTypeError{Router: name, Type: string(typ)}
	}
	attrs := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == keyID || k == keyType {
			continue
		}
		attrs[k] = v
	}
	return &Router{
		Name:     name,
		Type:     typ,
		Template: typ.Template(),
		Attrs:    attrs,
	}, nil
}

// Router returns the named router.
func (t *Topology) Router(name string) (*Router, bool) {
	r, ok := t.index[name]
	return r, ok
}

// Names returns router names in document order.
func (t *Topology) Names() []string {
	names := make([]string, len(t.Routers))
	for i, r := range t.Routers {
		names[i] = r.Name
	}
	return names
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("non-integral value %v", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}

// IntAttr returns attr key as an integer. ok is false when the attr is
// absent.
func (r *Router) IntAttr(key string) (n int, ok bool, err error) {
	v, ok := r.Attrs[key]
	if !ok {
		return 0, false, nil
	}
	if s, isString := v.(string); isString {
		n, err = strconv.Atoi(s)
	} else {
		n, err = toInt(v)
	}
	if err != nil {
		return 0, true, fmt.Errorf("router %s: attr %s: %w", r.Name, key, err)
	}
	return n, true, nil
}
