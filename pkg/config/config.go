// Package config loads SuperC settings from project and user config files and
// applies environment overrides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/compute"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/runtime"
)

// File names searched by Load.
const (
	ProjectFile = ".superc.json"
	UserDir     = ".superc"
	UserFile    = "config.json"
)

// Environment variables applied on top of the config file.
const (
	EnvPreference    = "SUPERC_PREFERENCE"
	EnvMaxIterations = "SUPERC_MAX_ITERATIONS"
	EnvPretty        = "SUPERC_PRETTY"
	EnvTrace         = "SUPERC_TRACE"
	EnvRunID         = "SUPERC_RUN_ID"
	EnvEmitTarget    = "SUPERC_EMIT_TARGET"
)

// File is the JSON structure of a config file.
type File struct {
	Preference    string `json:"preference,omitempty"`
	MaxIterations int64  `json:"maxIterations,omitempty"`
	TimeMs        int64  `json:"timeMs,omitempty"`
	Pretty        *bool  `json:"pretty,omitempty"`
	Trace         bool   `json:"trace,omitempty"`
	RunID         string `json:"runId,omitempty"`
	EmitTarget    string `json:"emitTarget,omitempty"`
}

// Config is the effective configuration.
type Config struct {
	Preference    compute.Preference `json:"preference"`
	MaxIterations int64              `json:"maxIterations"`
	TimeMs        int64              `json:"timeMs"`
	Pretty        bool               `json:"pretty"`
	Trace         bool               `json:"trace"`
	RunID         string             `json:"runId"`
	EmitTarget    runtime.Target     `json:"emitTarget"`

	// Source is the file the settings came from, empty for defaults.
	Source string `json:"source,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Preference: compute.PreferAuto,
		Pretty:     true,
		RunID:      "cli",
		EmitTarget: runtime.TargetRust,
	}
}

// Load reads the configuration for projectDir.
// Precedence: project (.superc.json) → user (~/.superc/config.json) → defaults,
// then SUPERC_* environment variables on top.
// A config file that exists but cannot be parsed is an error.
func Load(projectDir string) (*Config, error) {
	cfg := Default()

	paths := []string{filepath.Join(projectDir, ProjectFile)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, UserDir, UserFile))
	}
	for _, path := range paths {
		f, err := loadFile(path)
		if os.IsNotExist(errors.Cause(err)) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := cfg.apply(f); err != nil {
			return nil, errors.Wrapf(err, "config %s", path)
		}
		cfg.Source = path
		break
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, errors.Wrap(err, "environment")
	}
	return cfg, nil
}

func loadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return &f, nil
}

func (c *Config) apply(f *File) error {
	if f.Preference != "" {
		p, err := compute.ParsePreference(f.Preference)
		if err != nil {
			return err
		}
		c.Preference = p
	}
	if f.EmitTarget != "" {
		t, err := runtime.ParseTarget(f.EmitTarget)
		if err != nil {
			return err
		}
		c.EmitTarget = t
	}
	if f.Pretty != nil {
		c.Pretty = *f.Pretty
	}
	if f.RunID != "" {
		c.RunID = f.RunID
	}
	c.MaxIterations = f.MaxIterations
	c.TimeMs = f.TimeMs
	c.Trace = f.Trace
	return nil
}

func (c *Config) applyEnv() error {
	if s := strings.TrimSpace(env.Str(EnvPreference)); s != "" {
		p, err := compute.ParsePreference(s)
		if err != nil {
			return errors.Wrap(err, EnvPreference)
		}
		c.Preference = p
	}
	if s := strings.TrimSpace(env.Str(EnvEmitTarget)); s != "" {
		t, err := runtime.ParseTarget(s)
		if err != nil {
			return errors.Wrap(err, EnvEmitTarget)
		}
		c.EmitTarget = t
	}
	if env.Has(EnvMaxIterations) {
		c.MaxIterations = env.Int64(EnvMaxIterations, c.MaxIterations)
	}
	if env.Has(EnvPretty) {
		c.Pretty = env.Bool(EnvPretty)
	}
	if env.Has(EnvTrace) {
		c.Trace = env.Bool(EnvTrace)
	}
	c.RunID = env.Str(EnvRunID, c.RunID)
	return nil
}

// Options converts the configuration into runtime options.
func (c *Config) Options() []runtime.Option {
	return []runtime.Option{
		runtime.WithPreference(c.Preference),
		runtime.WithMaxIterations(c.MaxIterations),
		runtime.WithTimeBudget(c.TimeMs),
		runtime.WithRunID(c.RunID),
	}
}

// Budget returns the configured limits; zero values are unlimited.
func (c *Config) Budget() compute.Budget {
	var b compute.Budget
	if c.MaxIterations > 0 {
		b.MaxIterations = compute.Int64(c.MaxIterations)
	}
	if c.TimeMs > 0 {
		b.TimeMs = compute.Int64(c.TimeMs)
	}
	return b
}
