// Package settings manages persistent user settings for the newtboot CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Settings holds persistent user preferences
type Settings struct {
	// DefaultTopology is the topology file used when none is given
	DefaultTopology string `json:"default_topology,omitempty"`

	// TemplateDir overrides built-in templates by file name
	TemplateDir string `json:"template_dir,omitempty"`

	// Username is the device login when neither -u nor NEWTBOOT_USERNAME is set
	Username string `json:"username,omitempty"`

	// JournalAddr is the Redis journal address (host:port or redis:// URL)
	JournalAddr string `json:"journal_addr,omitempty"`

	// Parallel is the default number of routers worked on at once
	Parallel int `json:"parallel,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "newtboot_settings.json"
	}
	return filepath.Join(home, ".newtboot", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("settings: parse %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// setters maps settings keys (as shown by `settings show`) to setters.
var setters = map[string]func(s *Settings, v string) error{
	"default_topology": func(s *Settings, v string) error { s.DefaultTopology = v; return nil },
	"template_dir":     func(s *Settings, v string) error { s.TemplateDir = v; return nil },
	"username":         func(s *Settings, v string) error { s.Username = v; return nil },
	"journal_addr":     func(s *Settings, v string) error { s.JournalAddr = v; return nil },
	"parallel": func(s *Settings, v string) error {
		if v == "" {
			s.Parallel = 0
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("parallel must be a non-negative integer, got %q", v)
		}
		s.Parallel = n
		return nil
	},
}

// Set assigns key from its string form. An empty value clears the key.
func (s *Settings) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (valid: %v)", key, Keys())
	}
	return set(s, value)
}

// Keys returns the valid setting keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns every setting as key → string form, for display.
func (s *Settings) Values() map[string]string {
	parallel := ""
	if s.Parallel > 0 {
		parallel = strconv.Itoa(s.Parallel)
	}
	return map[string]string{
		"default_topology": s.DefaultTopology,
		"template_dir":     s.TemplateDir,
		"username":         s.Username,
		"journal_addr":     s.JournalAddr,
		"parallel":         parallel,
	}
}

// GetParallel returns the parallelism setting (with fallback)
func (s *Settings) GetParallel() int {
	if s.Parallel > 0 {
		return s.Parallel
	}
	return 1
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
