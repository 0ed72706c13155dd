package cmd

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"charm.land/lipgloss/v2"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/rowpick/internal/ui"
	"github.com/oakwood-commons/rowpick/pkg/columns"
	"github.com/oakwood-commons/rowpick/pkg/settings"
)

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// Config is the merged rowpick configuration.
type Config struct {
	App        AppConfig         `yaml:"app"`
	Picker     PickerConfig      `yaml:"picker"`
	Theme      ThemeConfig       `yaml:"theme"`
	Columns    []string          `yaml:"columns"`
	ColumnDefs columns.Defs      `yaml:"column_defs"`
	Keys       map[string]string `yaml:"keys"`
}

// AppConfig describes the application.
type AppConfig struct {
	Name  string `yaml:"name"`
	About string `yaml:"about"`
}

// PickerConfig holds picker defaults. nil means unset.
type PickerConfig struct {
	Mode        *string `yaml:"mode"`
	DebounceMS  *int    `yaml:"debounce_ms"`
	Output      *string `yaml:"output"`
	NoColor     *bool   `yaml:"no_color"`
	Title       *string `yaml:"title"`
	Description *string `yaml:"description"`
}

// ColorValue stores a color token (number or name) and marshals numerics as YAML ints.
type ColorValue string

func (c ColorValue) MarshalYAML() (any, error) {
	if c == "" {
		return "", nil
	}
	s := string(c)
	if _, err := strconv.Atoi(s); err == nil {
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!int",
			Value: s,
		}, nil
	}
	return s, nil
}

func (c *ColorValue) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*c = ""
		return nil
	}
	// Accept both ints and strings; store the literal value.
	*c = ColorValue(value.Value)
	return nil
}

// ThemeConfig is the YAML form of ui.Theme.
type ThemeConfig struct {
	TitleFG       ColorValue `yaml:"title_fg"`
	DescriptionFG ColorValue `yaml:"description_fg"`
	HeaderFG      ColorValue `yaml:"header_fg"`
	SelectedFG    ColorValue `yaml:"selected_fg"`
	SelectedBG    ColorValue `yaml:"selected_bg"`
	InputFG       ColorValue `yaml:"input_fg"`
	Status        ColorValue `yaml:"status"`
	Error         ColorValue `yaml:"error"`
	HelpKey       ColorValue `yaml:"help_key"`
	HelpValue     ColorValue `yaml:"help_value"`
}

// configLoader centralizes config loading so callers avoid duplicating merge logic.
type configLoader struct {
	defaultConfig func() ([]byte, error)
}

var cfgLoader = configLoader{defaultConfig: loadDefaultConfigYAML}

func loadMergedConfig(cfgPath string) (Config, error) {
	return cfgLoader.loadMergedConfig(cfgPath)
}

func loadDefaultConfigYAML() ([]byte, error) {
	if len(embeddedDefaultConfig) == 0 {
		return nil, errors.New("embedded default config is empty")
	}
	return embeddedDefaultConfig, nil
}

func (l configLoader) loadMergedConfig(cfgPath string) (Config, error) {
	var cfg Config

	defaultData, err := l.defaultConfig()
	if err != nil {
		return cfg, fmt.Errorf("load default config: %w", err)
	}
	if err := yaml.Unmarshal(defaultData, &cfg); err != nil {
		return cfg, fmt.Errorf("decode default config: %w", err)
	}

	if cfgPath != "" {
		data, err := os.ReadFile(cfgPath)
		if err != nil {
			return cfg, err
		}
		var user Config
		if err := yaml.Unmarshal(data, &user); err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", cfgPath, err)
		}
		cfg = mergeConfig(cfg, user)
	}

	cfg.App.About = processTemplateString(cfg.App.About, buildVersionData(cfg))
	return cfg, nil
}

// mergeConfig lays the set fields of override over base.
func mergeConfig(base, override Config) Config {
	out := base
	if override.App.Name != "" {
		out.App.Name = override.App.Name
	}
	if override.App.About != "" {
		out.App.About = override.App.About
	}

	p := &out.Picker
	if override.Picker.Mode != nil {
		p.Mode = override.Picker.Mode
	}
	if override.Picker.DebounceMS != nil {
		p.DebounceMS = override.Picker.DebounceMS
	}
	if override.Picker.Output != nil {
		p.Output = override.Picker.Output
	}
	if override.Picker.NoColor != nil {
		p.NoColor = override.Picker.NoColor
	}
	if override.Picker.Title != nil {
		p.Title = override.Picker.Title
	}
	if override.Picker.Description != nil {
		p.Description = override.Picker.Description
	}

	out.Theme = mergeThemeConfig(base.Theme, override.Theme)

	if len(override.Columns) > 0 {
		out.Columns = override.Columns
	}
	if len(override.ColumnDefs) > 0 {
		defs := make(columns.Defs, len(base.ColumnDefs)+len(override.ColumnDefs))
		for k, v := range base.ColumnDefs {
			defs[k] = v
		}
		for k, v := range override.ColumnDefs {
			defs[k] = v
		}
		out.ColumnDefs = defs
	}
	if len(override.Keys) > 0 {
		keys := make(map[string]string, len(base.Keys)+len(override.Keys))
		for k, v := range base.Keys {
			keys[k] = v
		}
		for k, v := range override.Keys {
			keys[k] = v
		}
		out.Keys = keys
	}
	return out
}

func mergeThemeConfig(base, override ThemeConfig) ThemeConfig {
	pick := func(b, o ColorValue) ColorValue {
		if o != "" {
			return o
		}
		return b
	}
	return ThemeConfig{
		TitleFG:       pick(base.TitleFG, override.TitleFG),
		DescriptionFG: pick(base.DescriptionFG, override.DescriptionFG),
		HeaderFG:      pick(base.HeaderFG, override.HeaderFG),
		SelectedFG:    pick(base.SelectedFG, override.SelectedFG),
		SelectedBG:    pick(base.SelectedBG, override.SelectedBG),
		InputFG:       pick(base.InputFG, override.InputFG),
		Status:        pick(base.Status, override.Status),
		Error:         pick(base.Error, override.Error),
		HelpKey:       pick(base.HelpKey, override.HelpKey),
		HelpValue:     pick(base.HelpValue, override.HelpValue),
	}
}

// uiTheme converts the config palette, keeping defaults for unset colors.
func (t ThemeConfig) uiTheme() ui.Theme {
	def := ui.DefaultTheme()
	pick := func(c ColorValue, fallback color.Color) color.Color {
		if s := strings.TrimSpace(string(c)); s != "" {
			return lipgloss.Color(s)
		}
		return fallback
	}
	return ui.Theme{
		TitleFG:       pick(t.TitleFG, def.TitleFG),
		DescriptionFG: pick(t.DescriptionFG, def.DescriptionFG),
		HeaderFG:      pick(t.HeaderFG, def.HeaderFG),
		SelectedFG:    pick(t.SelectedFG, def.SelectedFG),
		SelectedBG:    pick(t.SelectedBG, def.SelectedBG),
		InputFG:       pick(t.InputFG, def.InputFG),
		StatusColor:   pick(t.Status, def.StatusColor),
		StatusError:   pick(t.Error, def.StatusError),
		HelpKey:       pick(t.HelpKey, def.HelpKey),
		HelpValue:     pick(t.HelpValue, def.HelpValue),
	}
}

// keyBindings returns the default bindings extended by the configured keys.
func (c Config) keyBindings() (ui.KeyBindings, error) {
	kb := ui.DefaultKeyBindings()
	for key, action := range c.Keys {
		if err := kb.Bind(key, action); err != nil {
			return nil, fmt.Errorf("config keys: %w", err)
		}
	}
	return kb, nil
}

// buildVersionData collects version and build information for templating.
func buildVersionData(cfg Config) map[string]any {
	name := cfg.App.Name
	if name == "" {
		name = settings.CliBinaryName
	}
	return map[string]any{
		"Name":      name,
		"Version":   settings.VersionInformation.BuildVersion,
		"Commit":    settings.VersionInformation.Commit,
		"BuildTime": settings.VersionInformation.BuildTime,
	}
}

// processTemplateString processes a template string, returning the original string if templating fails.
func processTemplateString(text string, data map[string]any) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	tmpl, err := template.New("config").Parse(text)
	if err != nil {
		return text
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return text
	}
	return buf.String()
}

// resolveConfigPath returns the explicit configFile if set, otherwise the XDG path
// ($XDG_CONFIG_HOME/rowpick/config.yaml) or ~/.config/rowpick/config.yaml if present.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	candidate := ""
	if xdg != "" {
		candidate = filepath.Join(xdg, settings.CliBinaryName, "config.yaml")
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", settings.CliBinaryName, "config.yaml")
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}
