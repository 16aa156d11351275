package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joeycumines/thief-autosplitter/internal/memory"
	"github.com/joeycumines/thief-autosplitter/internal/snapshot"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
	// TypeDuration is a Go time.Duration value (e.g. "30s", "5m", "1h").
	TypeDuration OptionType = "duration"
	// TypePathList is a colon-separated (or semicolon on Windows) list of paths.
	TypePathList OptionType = "path-list"
	// TypeFloat is a floating point value.
	TypeFloat OptionType = "float"
	// TypePointerPath is a comma-separated list of memory offsets, such as
	// "0x3D8808" or "0x5A0,0x10".
	TypePointerPath OptionType = "pointer-path"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the option name as it appears in the config file (kebab-case).
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// Section is "" for global options, or a command/section name.
	Section string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
}

// ConfigSchema declares the expected configuration options for the application.
// It is used for validation, documentation, typed getters, and env var mapping.
type ConfigSchema struct {
	options []*ConfigOption
	// byKey indexes global options by key for fast lookup.
	byKey map[string]*ConfigOption
	// bySection indexes command/section options by section then key.
	bySection map[string]map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey:     make(map[string]*ConfigOption),
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. Duplicate keys within the same
// section are silently overwritten (last registration wins).
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	s.options = append(s.options, ref)
	if opt.Section == "" {
		s.byKey[opt.Key] = ref
	} else {
		if s.bySection[opt.Section] == nil {
			s.bySection[opt.Section] = make(map[string]*ConfigOption)
		}
		s.bySection[opt.Section][opt.Key] = ref
	}
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for a key in a given section ("" for global).
// Returns nil if the key is not registered.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if section == "" {
		return s.byKey[key]
	}
	if sec, ok := s.bySection[section]; ok {
		return sec[key]
	}
	return nil
}

// IsKnown returns true if the key is registered in the given section.
// For command sections, global keys are also considered known (they can
// appear in command sections and fall back to the global value).
func (s *ConfigSchema) IsKnown(section, key string) bool {
	if section == "" {
		return s.byKey[key] != nil
	}
	// Command section: check section-specific, then global.
	if sec, ok := s.bySection[section]; ok {
		if sec[key] != nil {
			return true
		}
	}
	return s.byKey[key] != nil
}

// GlobalOptions returns all registered global options (Section == "").
func (s *ConfigSchema) GlobalOptions() []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == "" {
			out = append(out, *o)
		}
	}
	return out
}

// SectionOptions returns all registered options for a specific section.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns a sorted list of all registered non-empty section names.
func (s *ConfigSchema) Sections() []string {
	seen := make(map[string]bool)
	for sec := range s.bySection {
		seen[sec] = true
	}
	out := make([]string, 0, len(seen))
	for sec := range seen {
		out = append(out, sec)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the effective value for a global config key by checking,
// in order: (1) the environment variable declared in the schema for this key,
// (2) the config value, (3) the schema default. Returns "" if the key is not
// found anywhere.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	opt := s.Lookup("", key)
	// Check env var override from schema.
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	// Check config value.
	v, ok := c.GetGlobalOption(key)
	if ok {
		return v
	}
	// Fall back to schema default.
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig checks a loaded Config against the schema and returns a list
// of human-readable issues (empty if the config is valid). Validation includes:
//   - Unknown global options (not in schema)
//   - Unknown command options (not in schema for that section, and not global)
//   - Type mismatches for options with declared types
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	// Validate global options.
	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	// Validate command-section options.
	for section, opts := range c.Commands {
		for key, value := range opts {
			if !s.IsKnown(section, key) {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
				continue
			}
			// Find the option definition (section-specific or global fallback).
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if opt != nil {
				if err := validateType(opt.Type, value); err != nil {
					issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}

// validateType checks that a string value matches the expected OptionType.
func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, TypePathList, "":
		// Anything is valid for string and path-list.
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	case TypeFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("expected float, got %q", value)
		}
	case TypePointerPath:
		if _, err := memory.ParsePath(value); err != nil {
			return fmt.Errorf("expected pointer path, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// --- Typed resolution against the schema ---

// ResolveBool resolves key like Resolve and parses it as a bool.
func (s *ConfigSchema) ResolveBool(c *Config, key string) (bool, error) {
	v := s.Resolve(c, key)
	b, err := parseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// ResolveInt resolves key like Resolve and parses it as an int.
func (s *ConfigSchema) ResolveInt(c *Config, key string) (int, error) {
	v := s.Resolve(c, key)
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: expected int, got %q", key, v)
	}
	return i, nil
}

// ResolveFloat resolves key like Resolve and parses it as a float64.
func (s *ConfigSchema) ResolveFloat(c *Config, key string) (float64, error) {
	v := s.Resolve(c, key)
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: expected float, got %q", key, v)
	}
	return f, nil
}

// ResolveDuration resolves key like Resolve and parses it as a duration.
func (s *ConfigSchema) ResolveDuration(c *Config, key string) (time.Duration, error) {
	v := s.Resolve(c, key)
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: expected duration, got %q", key, v)
	}
	return d, nil
}

// ResolvePointerPath resolves key like Resolve and parses it as a memory
// pointer path.
func (s *ConfigSchema) ResolvePointerPath(c *Config, key string) (memory.Path, error) {
	v := s.Resolve(c, key)
	p, err := memory.ParsePath(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return p, nil
}

// --- Help text generation ---

// FormatHelp returns a formatted, human-readable reference of all registered
// options in the schema, grouped by section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder

	// Global options first.
	globals := s.GlobalOptions()
	if len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}

	// Section options.
	for _, sec := range s.Sections() {
		opts := s.SectionOptions(sec)
		if len(opts) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n[%s] Options:\n", sec))
		for _, o := range opts {
			writeOptionHelp(&b, o)
		}
	}

	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	b.WriteString(fmt.Sprintf("  %-35s %s", o.Key, o.Description))
	parts := make([]string, 0, 3)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		b.WriteString(fmt.Sprintf(" (%s)", strings.Join(parts, ", ")))
	}
	b.WriteString("\n")
}

// --- Default schema for tsplit ---

// DefaultSchema returns the canonical schema declaring all known tsplit
// configuration options. This is the single source of truth for option names,
// types, defaults, descriptions, and environment variable overrides.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll(defaultGlobalOptions())
	s.RegisterAll(defaultCommandOptions())
	return s
}

// OffsetKey returns the option key holding the pointer path of f.
func OffsetKey(f snapshot.Field) string {
	return "offsets." + strings.ReplaceAll(f.String(), "_", "-")
}

func defaultGlobalOptions() []ConfigOption {
	layout := snapshot.DefaultLayout()
	opts := []ConfigOption{
		{Key: "verbose", Type: TypeBool, Default: "false", Description: "Enable verbose output"},

		// Game build
		{Key: "game.module", Type: TypeString, Default: layout.Module, Description: "Executable name of the game process", EnvVar: "TSPLIT_GAME_MODULE"},
		{Key: "game.pointer-size", Type: TypeInt, Default: strconv.Itoa(layout.PointerSize), Description: "Pointer width of the game process in bytes (4 or 8)"},
	}

	for _, f := range snapshot.Fields {
		opts = append(opts, ConfigOption{
			Key:         OffsetKey(f),
			Type:        TypePointerPath,
			Default:     layout.Path(f).String(),
			Description: fmt.Sprintf("Pointer path of %s relative to the module base", f),
		})
	}

	return append(opts, []ConfigOption{
		// Polling
		{Key: "poll.idle-rate", Type: TypeFloat, Default: "10", Description: "Poll rate in Hz while looking for the game"},
		{Key: "poll.active-rate", Type: TypeFloat, Default: "100", Description: "Poll rate in Hz while attached"},

		// Timer
		{Key: "timer.backend", Type: TypeString, Default: "local", Description: "Timer to drive: local, livesplit", EnvVar: "TSPLIT_TIMER"},
		{Key: "timer.livesplit-addr", Type: TypeString, Default: "localhost:16834", Description: "LiveSplit Server address", EnvVar: "TSPLIT_LIVESPLIT_ADDR"},
		{Key: "timer.dial-timeout", Type: TypeDuration, Default: "1s", Description: "LiveSplit Server connect and I/O timeout"},
		{Key: "timer.segments", Type: TypeInt, Default: "0", Description: "Splits after which the local timer ends (0 = after the last mission of the active order)"},

		// Rules
		{Key: "rules.start", Type: TypeBool, Default: "true", Description: "Start the timer automatically"},
		{Key: "rules.split", Type: TypeBool, Default: "true", Description: "Split automatically on mission completion"},
		{Key: "rules.reset", Type: TypeBool, Default: "true", Description: "Reset automatically when the first mission is restarted"},
		{Key: "rules.il-mode", Type: TypeBool, Default: "false", Description: "Individual level mode: time single missions"},

		// Run journal
		{Key: "journal.enabled", Type: TypeBool, Default: "true", Description: "Record finished runs"},
		{Key: "journal.dir", Type: TypeString, Default: "", Description: "Run journal directory (default ~/.thief-autosplitter/runs)", EnvVar: "TSPLIT_JOURNAL_DIR"},
		{Key: "journal.max-runs", Type: TypeInt, Default: "0", Description: "Number of newest runs to keep (0 = all)"},

		// Logging
		{Key: "log.file", Type: TypeString, Default: "", Description: "Log file path (JSON output)", EnvVar: "TSPLIT_LOG_FILE"},
		{Key: "log.level", Type: TypeString, Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "TSPLIT_LOG_LEVEL"},
		{Key: "log.max-size-mb", Type: TypeInt, Default: "10", Description: "Max log file size in MB before rotation"},
		{Key: "log.max-files", Type: TypeInt, Default: "5", Description: "Max number of rotated log backup files"},
	}...)
}

func defaultCommandOptions() []ConfigOption {
	return []ConfigOption{
		// [run] section
		{Key: "quiet", Section: "run", Type: TypeBool, Default: "false", Description: "Do not print timer events"},

		// [runs] section
		{Key: "limit", Section: "runs", Type: TypeInt, Default: "0", Description: "Show only the newest N runs (0 = all)"},
	}
}
