// Package topology holds the router/link model built from a topology
// document and the link assignment that mirrors each edge onto both
// endpoint routers.
package topology

import "sort"

// Family groups device types that share a driver dialect and a template.
type Family string

const (
	FamilyJunos Family = "junos"
	FamilyIOSXR Family = "iosxr"
	FamilyIOSXE Family = "iosxe"
)

// DeviceType is the router kind named in the topology document.
type DeviceType string

const (
	TypeXRV          DeviceType = "xrv"
	TypeVMX          DeviceType = "vmx"
	TypeVSRX         DeviceType = "vsrx"
	TypeVJunosSwitch DeviceType = "vjunosswitch"
	TypeCSR          DeviceType = "csr"
)

// deviceKind binds a device type to its family and template handle.
// Adding a device type is a single entry here.
type deviceKind struct {
	family   Family
	template string
}

var deviceKinds = map[DeviceType]deviceKind{
	TypeXRV:          {family: FamilyIOSXR, template: "iosxr"},
	TypeVMX:          {family: FamilyJunos, template: "junos"},
	TypeVSRX:         {family: FamilyJunos, template: "junos"},
	TypeVJunosSwitch: {family: FamilyJunos, template: "junos"},
	TypeCSR:          {family: FamilyIOSXE, template: "iosxe"},
}

// Supported reports whether t is a known device type.
func (t DeviceType) Supported() bool {
	_, ok := deviceKinds[t]
	return ok
}

// Family returns the driver family for t ("" if unsupported).
func (t DeviceType) Family() Family {
	return deviceKinds[t].family
}

// Template returns the template handle for t ("" if unsupported).
func (t DeviceType) Template() string {
	return deviceKinds[t].template
}

// SupportedTypes returns all known device types, sorted.
func SupportedTypes() []string {
	names := make([]string, 0, len(deviceKinds))
	for t := range deviceKinds {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

// Router is one virtual router in the topology.
type Router struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	Type     DeviceType     `json:"type"`
	Template string         `json:"template"`
	Attrs    map[string]any `json:"attrs,omitempty"`
	Links    []Link         `json:"links"`

	// RenderedConfig is set once by the render step.
	RenderedConfig string `json:"-"`
}

// Family returns the router's driver family.
func (r *Router) Family() Family {
	return r.Type.Family()
}

// Link is one router's view of an edge.
type Link struct {
	Interface string `json:"interface"`
	Numeric   int    `json:"numeric"`
	LinkID    int    `json:"link_id"`
	Side      int    `json:"side"` // 1 = left endpoint, 2 = right endpoint
	Remote    Remote `json:"remote"`
}

// Remote identifies the far end of a link.
type Remote struct {
	Router    string `json:"router"`
	Interface string `json:"interface"`
	Numeric   int    `json:"numeric"`
}

// Endpoint is one side of an edge as declared in the document.
type Endpoint struct {
	Router    string `yaml:"router" toml:"router" json:"router"`
	Interface string `yaml:"interface" toml:"interface" json:"interface"`
	Numeric   int    `yaml:"numeric" toml:"numeric" json:"numeric"`
}

// Edge is a point-to-point link declaration.
type Edge struct {
	Left  Endpoint `yaml:"left" toml:"left" json:"left"`
	Right Endpoint `yaml:"right" toml:"right" json:"right"`
}

// RouterEntry is a router as declared in the document, in document order.
// Fields holds every key of the router object, reserved ones included.
type RouterEntry struct {
	Name   string
	Fields map[string]any
}

// Document is a decoded topology document.
type Document struct {
	Routers []RouterEntry
	Links   []Edge
}
