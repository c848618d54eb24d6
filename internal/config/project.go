package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/vvka-141/pvsload/pkg/pvsload"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the project file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ProjectFileName is the optional per-directory settings file.
const ProjectFileName = "pvsload.yaml"

// ProjectConfig holds the run settings that may be pinned in pvsload.yaml.
// Unset fields take the built-in names.
type ProjectConfig struct {
	ConfigFile      string `yaml:"config_file" default:"database.ini"`
	Section         string `yaml:"section" default:"postgresql"`
	InputFile       string `yaml:"input_file" default:"all.csv"`
	ReferenceTable  string `yaml:"reference_table" default:"all_vms"`
	TablePrefix     string `yaml:"table_prefix" default:"all_vms_"`
	ViewName        string `yaml:"view" default:"pvsdata_all_vms"`
	LoadMode        string `yaml:"load_mode" default:"copy"`
	ContinueOnError bool   `yaml:"continue_on_error"`
	Timeout         string `yaml:"timeout"`
}

// DefaultProject returns a ProjectConfig with every default applied.
func DefaultProject() *ProjectConfig {
	cfg := &ProjectConfig{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("invalid project defaults: %v", err))
	}
	return cfg
}

// Load reads pvsload.yaml from dir.
func Load(dir string) (*ProjectConfig, error) {
	return LoadFile(filepath.Join(dir, ProjectFileName))
}

// LoadFile reads a project file from an explicit path.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w: %w", path, pvsload.ErrInvalidConfig, err)
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w: %w", path, pvsload.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// RunConfig converts the project settings into a RunConfig.
func (p *ProjectConfig) RunConfig() (pvsload.RunConfig, error) {
	mode, err := pvsload.ParseLoadMode(p.LoadMode)
	if err != nil {
		return pvsload.RunConfig{}, err
	}

	var timeout time.Duration
	if p.Timeout != "" {
		timeout, err = time.ParseDuration(p.Timeout)
		if err != nil {
			return pvsload.RunConfig{}, fmt.Errorf("invalid timeout %q: %w", p.Timeout, pvsload.ErrInvalidConfig)
		}
	}

	return pvsload.RunConfig{
		ConfigFile:      p.ConfigFile,
		ConfigSection:   p.Section,
		InputFile:       p.InputFile,
		ReferenceTable:  p.ReferenceTable,
		TablePrefix:     p.TablePrefix,
		ViewName:        p.ViewName,
		LoadMode:        mode,
		ContinueOnError: p.ContinueOnError,
		Timeout:         timeout,
	}, nil
}
