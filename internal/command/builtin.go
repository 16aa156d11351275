package command

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/joeycumines/thief-autosplitter/internal/config"
	"github.com/joeycumines/thief-autosplitter/internal/storage"
)

// HelpCommand displays help information for commands.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand creates a new help command.
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Display help information for commands",
			"help [command]",
		),
		registry: registry,
	}
}

// Execute displays help information.
func (c *HelpCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "tsplit - autosplitter for Thief: The Dark Project")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Usage: tsplit <command> [options] [args...]")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Available commands:")

		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()

		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Use 'tsplit help <command>' for more information about a specific command (includes flags).")
		return nil
	}

	cmd, err := c.registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: %s\n", cmd.Usage())

	// Flags are only known once SetupFlags has run against a FlagSet.
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	buf := &bytes.Buffer{}
	fs.SetOutput(buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}
	return nil
}

// VersionCommand displays version information.
type VersionCommand struct {
	*BaseCommand
	version string
}

// NewVersionCommand creates a new version command.
func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Display version information",
			"version",
		),
		version: version,
	}
}

// Execute displays version information.
func (c *VersionCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	_, _ = fmt.Fprintf(stdout, "tsplit version %s\n", c.version)
	return nil
}

// ConfigCommand reads and writes configuration options.
type ConfigCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
	schema     *config.ConfigSchema
	section    string
	showAll    bool
}

// NewConfigCommand creates a new config command. An empty configPath skips
// persisting set values to disk.
func NewConfigCommand(cfg *config.Config, configPath string) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Manage configuration settings",
			"config [options] [key] [value] | config validate | config schema",
		),
		config:     cfg,
		configPath: configPath,
		schema:     config.DefaultSchema(),
	}
}

// SetupFlags configures the flags for the config command.
func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.section, "section", "", "Read or write the option in this [section] instead of the global scope")
	fs.BoolVar(&c.showAll, "all", false, "Show all configuration (global and per-section)")
}

// Execute manages configuration.
func (c *ConfigCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		if c.showAll {
			c.printAll(stdout)
			return nil
		}
		_, _ = fmt.Fprintln(stdout, "Configuration management:")
		_, _ = fmt.Fprintln(stdout, "  config <key>            - Get effective value (env, file, default)")
		_, _ = fmt.Fprintln(stdout, "  config <key> <value>    - Set value and save it to the config file")
		_, _ = fmt.Fprintln(stdout, "  config -section run ... - Operate on a [section] option")
		_, _ = fmt.Fprintln(stdout, "  config -all             - Show all configuration")
		_, _ = fmt.Fprintln(stdout, "  config validate         - Validate configuration")
		_, _ = fmt.Fprintln(stdout, "  config schema           - Show configuration schema")
		return nil
	}

	switch args[0] {
	case "validate":
		return c.executeValidate(stdout)
	case "schema":
		_, _ = fmt.Fprint(stdout, c.schema.FormatHelp())
		return nil
	}

	switch len(args) {
	case 1:
		key := args[0]
		if c.section != "" {
			if v, ok := c.config.GetCommandOption(c.section, key); ok {
				_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, v)
			} else if opt := c.schema.Lookup(c.section, key); opt != nil {
				_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, opt.Default)
			} else {
				_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found in [%s]\n", key, c.section)
			}
			return nil
		}
		if c.schema.Lookup("", key) != nil {
			_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, c.schema.Resolve(c.config, key))
		} else if v, ok := c.config.GetGlobalOption(key); ok {
			_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, v)
		} else {
			_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
		}
		return nil

	case 2:
		key, value := args[0], args[1]
		if !c.schema.IsKnown(c.section, key) {
			_, _ = fmt.Fprintf(stderr, "Warning: unknown configuration key %q\n", key)
		}
		if c.section != "" {
			c.config.SetCommandOption(c.section, key, value)
		} else {
			c.config.SetGlobalOption(key, value)
		}
		if c.configPath != "" {
			if err := config.SetKeyInFile(c.configPath, c.section, key, value); err != nil {
				_, _ = fmt.Fprintf(stderr, "Warning: failed to persist config to disk: %v\n", err)
			}
		}
		if c.section != "" {
			_, _ = fmt.Fprintf(stdout, "Set configuration: [%s] %s = %s\n", c.section, key, value)
		} else {
			_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
		}
		return nil
	}

	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	return fmt.Errorf("invalid arguments")
}

func (c *ConfigCommand) printAll(stdout io.Writer) {
	_, _ = fmt.Fprintln(stdout, "Global configuration:")
	for _, key := range sortedKeys(c.config.Global) {
		_, _ = fmt.Fprintf(stdout, "  %s: %s\n", key, c.config.Global[key])
	}
	sections := make([]string, 0, len(c.config.Commands))
	for name := range c.config.Commands {
		sections = append(sections, name)
	}
	sort.Strings(sections)
	for _, name := range sections {
		_, _ = fmt.Fprintf(stdout, "[%s]\n", name)
		for _, key := range sortedKeys(c.config.Commands[name]) {
			_, _ = fmt.Fprintf(stdout, "  %s: %s\n", key, c.config.Commands[name][key])
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// executeValidate validates the current config against the schema.
func (c *ConfigCommand) executeValidate(stdout io.Writer) error {
	issues := config.ValidateConfig(c.config, c.schema)
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	return nil
}

// InitCommand writes a default configuration file.
type InitCommand struct {
	*BaseCommand
	// Path overrides the resolved config path.
	Path  string
	force bool
}

// NewInitCommand creates a new init command.
func NewInitCommand() *InitCommand {
	return &InitCommand{
		BaseCommand: NewBaseCommand(
			"init",
			"Write a default configuration file",
			"init [options]",
		),
	}
}

// SetupFlags configures the flags for the init command.
func (c *InitCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "Overwrite an existing configuration file")
}

// Execute writes the configuration file.
func (c *InitCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	configPath := c.Path
	if configPath == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		if err := config.EnsureConfigDir(); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = p
	}

	if _, err := os.Stat(configPath); err == nil && !c.force {
		_, _ = fmt.Fprintf(stdout, "Configuration already exists at: %s\n", configPath)
		_, _ = fmt.Fprintln(stdout, "Use -force to overwrite existing configuration")
		return nil
	}

	if err := storage.AtomicWriteFile(configPath, []byte(DefaultConfigText(config.DefaultSchema())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Read it back so a broken template is caught here rather than on the
	// next run.
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: Failed to load created config: %v\n", err)
	} else if issues := config.ValidateConfig(cfg, config.DefaultSchema()); len(issues) > 0 {
		_, _ = fmt.Fprintf(stderr, "Warning: created config has %d issue(s)\n", len(issues))
	}

	_, _ = fmt.Fprintf(stdout, "Initialized tsplit configuration at: %s\n", configPath)
	return nil
}

// DefaultConfigText renders a configuration file listing every option of s
// at its default. Options without a default are left commented out.
func DefaultConfigText(s *config.ConfigSchema) string {
	var b strings.Builder
	b.WriteString("# tsplit configuration file\n")
	b.WriteString("# Format: optionName remainingLineIsTheValue\n")
	b.WriteString("# Use [command_name] sections for command-specific options\n")
	writeOptions(&b, s.GlobalOptions())
	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s]\n", sec)
		writeOptions(&b, s.SectionOptions(sec))
	}
	return b.String()
}

func writeOptions(b *strings.Builder, opts []config.ConfigOption) {
	group := ""
	for _, o := range opts {
		if g, _, ok := strings.Cut(o.Key, "."); ok && g != group {
			group = g
			b.WriteString("\n")
		}
		if o.Description != "" {
			fmt.Fprintf(b, "# %s\n", o.Description)
		}
		if o.Default == "" {
			fmt.Fprintf(b, "# %s\n", o.Key)
			continue
		}
		fmt.Fprintf(b, "%s %s\n", o.Key, o.Default)
	}
}
