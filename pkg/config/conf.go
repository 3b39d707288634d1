package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600
)

// Config holds the app's file locations and data source settings.
type Config struct {
	// CSVDir is where the raw Olist dataset CSVs live.
	CSVDir string `yaml:"csvDir"`

	// DatasetURL is an optional base URL to fetch missing CSVs from.
	DatasetURL string `yaml:"datasetUrl,omitempty"`

	// Artifact paths written by train and read by predict/server.
	ModelPath   string `yaml:"modelPath"`
	HistoryPath string `yaml:"historyPath"`
	GeoPath     string `yaml:"geoPath"`
}

func getDefaultConfig(dirPath string) *Config {
	return &Config{
		CSVDir:      filepath.Join(dirPath, "data", "raw"),
		ModelPath:   filepath.Join(dirPath, "models", "model.json"),
		HistoryPath: filepath.Join(dirPath, "models", "seller_history.json"),
		GeoPath:     filepath.Join(dirPath, "models", "geo_table.json"),
	}
}

// Save writes the config into dirPath.
func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("writing config file %s: %w", configFileName, err)
	}
	return nil
}

// ReadOrCreate reads the app config from dirPath or creates a default one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, fmt.Errorf("creating dir %s: %w", dirPath, err)
		}
	}

	path := filepath.Join(dirPath, configFileName)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		c := getDefaultConfig(dirPath)
		if err := Save(dirPath, c); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	c := &Config{}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return c, nil
}
