package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/apicomponents/blob-collection/blobstore/natsobj"
	"github.com/apicomponents/blob-collection/collection"
)

// FileConfig is the YAML configuration file layout. Every field is
// optional; absent fields keep the package defaults.
type FileConfig struct {
	Store struct {
		URL            string        `yaml:"url"`
		Bucket         string        `yaml:"bucket"`
		Description    string        `yaml:"description"`
		Replicas       int           `yaml:"replicas"`
		ConnectTimeout time.Duration `yaml:"connectTimeout"`
	} `yaml:"store"`
	Collection struct {
		Name             string        `yaml:"name"`
		Prefix           string        `yaml:"prefix"`
		DefaultLimit     int           `yaml:"defaultLimit"`
		DebounceInterval time.Duration `yaml:"debounceInterval"`
		FreshnessWindow  time.Duration `yaml:"freshnessWindow"`
		CutoffHeadroom   time.Duration `yaml:"cutoffHeadroom"`
	} `yaml:"collection"`
	MetricsPort int `yaml:"metricsPort"`
}

// loadConfig reads the optional YAML file at path and folds it over the
// store and collection defaults. An empty path returns pure defaults.
func loadConfig(path string) (natsobj.Config, collection.Config, int, error) {
	storeCfg := natsobj.DefaultConfig()
	colCfg := collection.DefaultConfig()

	if path == "" {
		return storeCfg, colCfg, 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return storeCfg, colCfg, 0, fmt.Errorf("read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return storeCfg, colCfg, 0, fmt.Errorf("parse config file: %w", err)
	}

	if fc.Store.URL != "" {
		storeCfg.URL = fc.Store.URL
	}
	if fc.Store.Bucket != "" {
		storeCfg.Bucket = fc.Store.Bucket
	}
	if fc.Store.Description != "" {
		storeCfg.Description = fc.Store.Description
	}
	if fc.Store.Replicas != 0 {
		storeCfg.Replicas = fc.Store.Replicas
	}
	if fc.Store.ConnectTimeout != 0 {
		storeCfg.ConnectTimeout = fc.Store.ConnectTimeout
	}

	if fc.Collection.Name != "" {
		colCfg.Name = fc.Collection.Name
	}
	if fc.Collection.Prefix != "" {
		colCfg.Prefix = fc.Collection.Prefix
	}
	if fc.Collection.DefaultLimit != 0 {
		colCfg.DefaultLimit = fc.Collection.DefaultLimit
	}
	if fc.Collection.DebounceInterval != 0 {
		colCfg.DebounceInterval = fc.Collection.DebounceInterval
	}
	if fc.Collection.FreshnessWindow != 0 {
		colCfg.FreshnessWindow = fc.Collection.FreshnessWindow
	}
	if fc.Collection.CutoffHeadroom != 0 {
		colCfg.CutoffHeadroom = fc.Collection.CutoffHeadroom
	}

	if err := storeCfg.Validate(); err != nil {
		return storeCfg, colCfg, 0, fmt.Errorf("store config: %w", err)
	}
	if err := colCfg.Validate(); err != nil {
		return storeCfg, colCfg, 0, fmt.Errorf("collection config: %w", err)
	}

	return storeCfg, colCfg, fc.MetricsPort, nil
}
