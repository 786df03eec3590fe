package core

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Pipeline pairs a trigger with the matrix it guards and the command to run
// per cell. Placeholders in Command reference axis names, e.g.
// "cargo +{toolchain} build --target {platform}".
type Pipeline struct {
	Name    string  `yaml:"name" json:"name" validate:"required"`
	Trigger Trigger `yaml:"trigger" json:"trigger"`
	Axes    []Axis  `yaml:"axes,omitempty" json:"axes,omitempty" validate:"dive"`
	Command string  `yaml:"command" json:"command" validate:"required"`
}

// Jobs expands the pipeline's matrix.
func (p Pipeline) Jobs() ([]JobSpec, error) {
	return Expand(p.Axes, p.Command)
}

// Config is the full declarative definition read once at startup: a list of
// named pipelines, each with its own trigger and axes.
type Config struct {
	Pipelines []Pipeline `yaml:"pipelines" json:"pipelines" validate:"required,min=1,dive"`
}

// ParseConfig parses and validates YAML pipeline definitions. Structural
// problems and semantic ones (empty axis, undeclared template placeholder)
// both come back as ConfigurationError so the caller aborts before any run.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	names := make(map[string]bool, len(cfg.Pipelines))
	for _, p := range cfg.Pipelines {
		if names[p.Name] {
			return nil, configErrorf("pipeline %q defined twice", p.Name)
		}
		names[p.Name] = true

		// expand now so template errors surface at load, not at run time
		if _, err := p.Jobs(); err != nil {
			return nil, errors.Wrapf(err, "pipeline %q", p.Name)
		}
	}
	return &cfg, nil
}

// LoadConfig reads and parses a pipeline definition file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data)
}
