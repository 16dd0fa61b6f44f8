// Copyright 2025 The Datman Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package studyconfig loads the site config that maps study nicknames to
// their on-disk layout.
package studyconfig

import (
	"os"
	"path/filepath"

	"go.chromium.org/luci/common/errors"
	"gopkg.in/yaml.v2"
)

// A Config represents the site config for a datman install.
//
// Note that the YAML library unmarshals using the field name
// lowercased as the default key.
type Config struct {
	Studies map[string]*Study `yaml:"studies"`
}

// A Study describes where one study keeps its data.
type Study struct {
	// Base is the absolute path of the study directory.
	Base string `yaml:"base"`
	// Paths maps a path kind ("nii", "bids", "pipelines") to a
	// directory relative to Base. Unset kinds fall back to the
	// standard layout.
	Paths map[string]string `yaml:"paths"`
}

// defaultPaths is the standard study layout, used for kinds the config
// does not override.
var defaultPaths = map[string]string{
	"nii":       "data/nii",
	"bids":      "data/bids",
	"pipelines": "pipelines",
}

// Load parses the site config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "read site config").Err()
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Annotate(err, "parse site config %s", path).Err()
	}
	return cfg, nil
}

// Study looks up a study by nickname.
func (c *Config) Study(nickname string) (*Study, error) {
	s, ok := c.Studies[nickname]
	if !ok {
		return nil, errors.Reason("%q is not a valid study ID", nickname).Err()
	}
	if s.Base == "" {
		return nil, errors.Reason("study %q has no base path configured", nickname).Err()
	}
	return s, nil
}

// Path returns the absolute directory for a path kind.
func (s *Study) Path(kind string) string {
	rel, ok := s.Paths[kind]
	if !ok || rel == "" {
		rel, ok = defaultPaths[kind]
		if !ok {
			rel = kind
		}
	}
	return filepath.Join(s.Base, rel)
}

// PipelinePath returns the output directory for a named pipeline.
func (s *Study) PipelinePath(name string) string {
	return filepath.Join(s.Path("pipelines"), name)
}
