// Package config loads stubkeeper settings from .stubkeeper/config.yaml.
//
// A missing file is not an error: DefaultConfig describes the layout the
// backlog scripts have always used (coderef/working, coderef/archived and a
// projects.md counter at the root).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the per-root directory holding config and the ledger
	Dir = ".stubkeeper"

	// DateLayout is the canonical created/cutoff date format
	DateLayout = "2006-01-02"
)

// ReportsConfig holds report output paths
type ReportsConfig struct {
	Archive   string `yaml:"archive"`
	Migration string `yaml:"migration"`
}

// CutoffsConfig holds the fixed dates used by the age-based archival rules
type CutoffsConfig struct {
	InfraUtility string `yaml:"infra_utility"`
	LowPriority  string `yaml:"low_priority"`
}

// DuplicateGroup is a hand-curated set of stub names covering one concern
type DuplicateGroup struct {
	Label   string   `yaml:"label"`
	Members []string `yaml:"members"`
}

// ProjectKeywords maps a target project to the keywords that suggest it
type ProjectKeywords struct {
	Project  string   `yaml:"project"`
	Keywords []string `yaml:"keywords"`
}

// Config holds the runtime configuration
type Config struct {
	// Root is the directory every relative path resolves against. Not read
	// from YAML; set by the caller.
	Root string `yaml:"-"`

	WorkingDir    string        `yaml:"working_dir"`
	ArchiveDir    string        `yaml:"archive_dir"`
	RecordFile    string        `yaml:"record_file"`
	CounterPath   string        `yaml:"counter_path"`
	DefaultNextID int           `yaml:"default_next_id"`
	SchemaPath    string        `yaml:"schema_path"`
	LedgerPath    string        `yaml:"ledger_path"`
	Reports       ReportsConfig `yaml:"reports"`
	Cutoffs       CutoffsConfig `yaml:"cutoffs"`

	// Optional table overrides; nil means the built-in tables
	DuplicateGroups []DuplicateGroup  `yaml:"duplicate_groups,omitempty"`
	ProjectKeywords []ProjectKeywords `yaml:"project_keywords,omitempty"`
	UnknownStubs    []string          `yaml:"unknown_stubs,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Root:          ".",
		WorkingDir:    filepath.Join("coderef", "working"),
		ArchiveDir:    filepath.Join("coderef", "archived"),
		RecordFile:    "stub.json",
		CounterPath:   "projects.md",
		DefaultNextID: 84,
		SchemaPath:    "stub-schema.json",
		LedgerPath:    filepath.Join(Dir, "ledger.db"),
		Reports: ReportsConfig{
			Archive:   filepath.Join("coderef", "ARCHIVAL_REPORT.txt"),
			Migration: "STUB_MIGRATION_REPORT.txt",
		},
		Cutoffs: CutoffsConfig{
			InfraUtility: "2026-01-06",
			LowPriority:  "2025-12-20",
		},
	}
}

// DefaultPath returns the config file location under root
func DefaultPath(root string) string {
	return filepath.Join(root, Dir, "config.yaml")
}

// Load loads configuration from a YAML file. Defaults are returned when the
// file does not exist.
func Load(root, path string) (*Config, error) {
	cfg := DefaultConfig()
	if root != "" {
		cfg.Root = root
	}
	if path == "" {
		path = DefaultPath(cfg.Root)
	}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STUBKEEPER_WORKING_DIR"); v != "" {
		c.WorkingDir = v
	}
	if v := os.Getenv("STUBKEEPER_ARCHIVE_DIR"); v != "" {
		c.ArchiveDir = v
	}
	if v := os.Getenv("STUBKEEPER_COUNTER"); v != "" {
		c.CounterPath = v
	}
	if v := os.Getenv("STUBKEEPER_LEDGER"); v != "" {
		c.LedgerPath = v
	}
}

// Validate checks the settings that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.WorkingDir == "" {
		return errors.New("config: working_dir is required")
	}
	if c.ArchiveDir == "" {
		return errors.New("config: archive_dir is required")
	}
	if c.RecordFile == "" {
		return errors.New("config: record_file is required")
	}
	if _, err := c.InfraUtilityCutoff(); err != nil {
		return err
	}
	if _, err := c.LowPriorityCutoff(); err != nil {
		return err
	}
	for _, g := range c.DuplicateGroups {
		if len(g.Members) < 2 {
			return fmt.Errorf("config: duplicate group %q needs at least two members", g.Label)
		}
	}
	return nil
}

// InfraUtilityCutoff parses cutoffs.infra_utility
func (c *Config) InfraUtilityCutoff() (time.Time, error) {
	t, err := time.Parse(DateLayout, c.Cutoffs.InfraUtility)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: invalid cutoffs.infra_utility %q: %w", c.Cutoffs.InfraUtility, err)
	}
	return t, nil
}

// LowPriorityCutoff parses cutoffs.low_priority
func (c *Config) LowPriorityCutoff() (time.Time, error) {
	t, err := time.Parse(DateLayout, c.Cutoffs.LowPriority)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: invalid cutoffs.low_priority %q: %w", c.Cutoffs.LowPriority, err)
	}
	return t, nil
}

// resolve joins p onto Root unless it is already absolute
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// WorkingPath returns the working record store directory
func (c *Config) WorkingPath() string { return c.resolve(c.WorkingDir) }

// ArchivePath returns the archive store directory
func (c *Config) ArchivePath() string { return c.resolve(c.ArchiveDir) }

// CounterFile returns the shared id counter document
func (c *Config) CounterFile() string { return c.resolve(c.CounterPath) }

// SchemaFile returns the canonical schema document
func (c *Config) SchemaFile() string { return c.resolve(c.SchemaPath) }

// LedgerFile returns the SQLite ledger path
func (c *Config) LedgerFile() string { return c.resolve(c.LedgerPath) }

// ArchiveReportPath returns where the archival report is written
func (c *Config) ArchiveReportPath() string { return c.resolve(c.Reports.Archive) }

// MigrationReportPath returns where the migration report is written
func (c *Config) MigrationReportPath() string { return c.resolve(c.Reports.Migration) }
