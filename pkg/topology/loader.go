package topology

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a topology document encoding.
type Format string

const (
	FormatYAML Format = "yaml" // also accepts JSON
	FormatTOML Format = "toml"
)

// FormatFor picks the document format from a file extension.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads and decodes a topology document, then builds the topology.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("topology: read %s: %w", path, err)
	}
	doc, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("topology: parse %s: %w", path, err)
	}
	return New(doc)
}

// Parse decodes a topology document. Router order follows the document.
func Parse(data []byte, format Format) (*Document, error) {
	switch format {
	case FormatTOML:
		return parseTOML(data)
	default:
		return parseYAML(data)
	}
}

// parseYAML walks the node tree rather than decoding into a map so the
// declaration order of routers survives. JSON documents are valid input.
func parseYAML(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("empty topology document")
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: topology must be a mapping", top.Line)
	}

	doc := &Document{}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i], top.Content[i+1]
		switch key.Value {
		case "routers":
			if val.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: routers must be a mapping", val.Line)
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				entry := RouterEntry{Name: val.Content[j].Value}
				if err := val.Content[j+1].Decode(&entry.Fields); err != nil {
					return nil, fmt.Errorf("router %s: %w", entry.Name, err)
				}
				doc.Routers = append(doc.Routers, entry)
			}
		case "links":
			if err := val.Decode(&doc.Links); err != nil {
				return nil, fmt.Errorf("links: %w", err)
			}
		}
	}
	return doc, nil
}

func parseTOML(data []byte) (*Document, error) {
	var raw struct {
		Routers map[string]map[string]any `toml:"routers"`
		Links   []Edge                    `toml:"links"`
	}
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, err
	}

	doc := &Document{Links: raw.Links}
	seen := make(map[string]bool, len(raw.Routers))
	for _, key := range meta.Keys() {
		if len(key) != 2 || key[0] != "routers" || seen[key[1]] {
			continue
		}
		seen[key[1]] = true
		doc.Routers = append(doc.Routers, RouterEntry{Name: key[1], Fields: raw.Routers[key[1]]})
	}
	return doc, nil
}
