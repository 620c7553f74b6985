package main

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// config is the weave.yaml file consumed by the CLI.
type config struct {
	// RouteCache is the serialized route table file.
	RouteCache string `yaml:"route_cache" validate:"required"`
	// QueueDir is the job queue store directory.
	QueueDir string `yaml:"queue_dir" validate:"required"`
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", path)
	}

	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %q", path)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errors.Wrapf(err, "invalid config %q", path)
	}
	return &cfg, nil
}
