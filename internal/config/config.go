/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	applog "yamldialogue/internal/log"
)

// LoaderConfig controls how dialogue documents are read.
type LoaderConfig struct {
	Validate       bool `yaml:"validate"`         // check documents against the embedded JSON schema
	KeepFirstLabel bool `yaml:"keep_first_label"` // tolerate repeated labels instead of failing
}

// SessionConfig selects the store that persists traversal positions.
type SessionConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres"
	Path   string `yaml:"path"`   // sqlite database file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// LoggingConfig mirrors log.Options in file form.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied after the file.
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Loader        LoaderConfig  `yaml:"loader"`
	Session       SessionConfig `yaml:"session"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Session drivers accepted by SessionConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	dir, _ := Dir()
	return AppConfig{
		ConfigVersion: 1,
		Loader:        LoaderConfig{Validate: true, KeepFirstLabel: false},
		Session:       SessionConfig{Driver: DriverSQLite, Path: filepath.Join(dir, "sessions.sqlite")},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile     = "DLG_CONFIG"
	EnvValidate       = "DLG_VALIDATE"
	EnvKeepFirstLabel = "DLG_KEEP_FIRST_LABEL"
	EnvSessionDriver  = "DLG_SESSION_DRIVER"
	EnvSessionPath    = "DLG_SESSION_PATH"
	EnvSessionDSN     = "DLG_SESSION_DSN"
	EnvLogLevel       = "DLG_LOG_LEVEL"
	EnvLogFormat      = "DLG_LOG_FORMAT"
	EnvLogSource      = "DLG_LOG_SOURCE"
	EnvLogFile        = "DLG_LOG_FILE"
)

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "YamlDialogue")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "YamlDialogue")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "dialogue")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "dialogue")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// Path returns the config file path; DLG_CONFIG wins over the per-user default.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file (if present) over the defaults and applies environment overrides.
// A malformed file is an error; a missing one is not.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg, data)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg as YAML to the config path.
func Save(cfg AppConfig) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// mergeInto copies file values over dst. Booleans are only taken when the key is present
// in raw, so a file that omits loader.validate keeps the default.
func mergeInto(dst *AppConfig, src *AppConfig, raw []byte) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	present := presentKeys(raw)
	if present["loader.validate"] {
		dst.Loader.Validate = src.Loader.Validate
	}
	if present["loader.keep_first_label"] {
		dst.Loader.KeepFirstLabel = src.Loader.KeepFirstLabel
	}
	if v := strings.ToLower(strings.TrimSpace(src.Session.Driver)); v != "" {
		dst.Session.Driver = v
	}
	if v := strings.TrimSpace(src.Session.Path); v != "" {
		dst.Session.Path = v
	}
	if v := strings.TrimSpace(src.Session.DSN); v != "" {
		dst.Session.DSN = v
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	if present["logging.source"] {
		dst.Logging.Source = src.Logging.Source
	}
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

// presentKeys lists the "section.key" pairs set in a YAML config document.
func presentKeys(raw []byte) map[string]bool {
	out := map[string]bool{}
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return out
	}
	for section, node := range doc {
		if node.Kind != yaml.MappingNode {
			continue
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			out[section+"."+node.Content[i].Value] = true
		}
	}
	return out
}

func applyEnvOverrides(cfg *AppConfig) {
	if v, ok := lookupBool(EnvValidate); ok {
		cfg.Loader.Validate = v
	}
	if v, ok := lookupBool(EnvKeepFirstLabel); ok {
		cfg.Loader.KeepFirstLabel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSessionDriver)); v != "" {
		cfg.Session.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvSessionPath)); v != "" {
		cfg.Session.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSessionDSN)); v != "" {
		cfg.Session.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v, ok := lookupBool(EnvLogSource); ok {
		cfg.Logging.Source = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func lookupBool(key string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return false, false
	}
	return v == "1" || v == "true" || v == "on" || v == "yes", true
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"loader.validate":         EnvValidate,
		"loader.keep_first_label": EnvKeepFirstLabel,
		"session.driver":          EnvSessionDriver,
		"session.path":            EnvSessionPath,
		"session.dsn":             EnvSessionDSN,
		"logging.level":           EnvLogLevel,
		"logging.format":          EnvLogFormat,
		"logging.source":          EnvLogSource,
		"logging.file":            EnvLogFile,
	}[key]
	if env == "" || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Setting is one "section.key" entry of the configuration in display form.
type Setting struct {
	Key   string
	Value string
}

// Settings flattens c in file order. The DSN is masked since it may carry a password.
func (c AppConfig) Settings() []Setting {
	dsn := ""
	if c.Session.DSN != "" {
		dsn = "(set)"
	}
	return []Setting{
		{"loader.validate", strconv.FormatBool(c.Loader.Validate)},
		{"loader.keep_first_label", strconv.FormatBool(c.Loader.KeepFirstLabel)},
		{"session.driver", c.Session.Driver},
		{"session.path", c.Session.Path},
		{"session.dsn", dsn},
		{"logging.level", c.Logging.Level},
		{"logging.format", c.Logging.Format},
		{"logging.source", strconv.FormatBool(c.Logging.Source)},
		{"logging.file", c.Logging.File},
	}
}

// LogOptions converts the logging section for log.Init.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
