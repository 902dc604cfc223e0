package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/niklvrr/em-metrics/internal/integrations/linear"
	"github.com/niklvrr/em-metrics/internal/teams"
	"gopkg.in/yaml.v3"
)

var (
	badConfigFileError      = errors.New("bad config file")
	ticketTypeSelectorError = errors.New("ticket_type_selector requires parent_label_id or allow_list")
)

type LinearTicketingConfig struct {
	IgnoreParentIssues *bool                      `yaml:"ignore_parent_issues"`
	TicketTypeSelector *linear.TicketTypeSelector `yaml:"ticket_type_selector"`
}

type TicketingConfig struct {
	Linear LinearTicketingConfig `yaml:"linear"`
}

// FileConfig содержимое файла из переменной CONFIG. JSON тоже валидный YAML.
type FileConfig struct {
	Teams     teams.Config    `yaml:"teams"`
	Ticketing TicketingConfig `yaml:"ticketing"`
}

// LoadFile читает и валидирует файл; пустой путь дает пустую конфигурацию
func LoadFile(path string) (*FileConfig, error) {
	if path == "" {
		return &FileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", badConfigFileError, err)
	}
	return ParseFile(data)
}

func ParseFile(data []byte) (*FileConfig, error) {
	fc := &FileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("%w: %w", badConfigFileError, err)
	}

	if sel := fc.Ticketing.Linear.TicketTypeSelector; sel != nil {
		if sel.ParentLabelId == "" && sel.AllowList == nil {
			return nil, fmt.Errorf("%w: %w", badConfigFileError, ticketTypeSelectorError)
		}
	}
	return fc, nil
}

// LinearConfig: ignore_parent_issues по умолчанию true
func (fc *FileConfig) LinearConfig() linear.Config {
	cfg := linear.Config{IgnoreParentIssues: true}
	if v := fc.Ticketing.Linear.IgnoreParentIssues; v != nil {
		cfg.IgnoreParentIssues = *v
	}
	if sel := fc.Ticketing.Linear.TicketTypeSelector; sel != nil {
		cfg.TicketTypeSelector = *sel
	}
	return cfg
}

func (fc *FileConfig) Resolver() *teams.Resolver {
	return teams.NewResolver(fc.Teams)
}
