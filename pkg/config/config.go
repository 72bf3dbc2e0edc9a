// Copyright 2019 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package config loads bouncer settings from a TOML file.
//
// Example:
//
//	interfaces = true
//	asserted_interfaces = true
//
//	# Files which should not be checked, in .gitignore syntax,
//	# relative to the directory containing this file.
//	exclude = ["internal/generated", "*_mock.go"]
//
//	# Restrict a method that we cannot annotate in source.
//	[[method]]
//	type = "github.com/example/vendored.Client"
//	name = "Close"
//	allow = ["github.com/example/app.Pool"]
package config

import (
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/bouncer/pkg/allow"
	"github.com/cockroachdb/bouncer/pkg/resolve"
	"github.com/pkg/errors"
	ignore "github.com/sabhiram/go-gitignore"
)

// Config holds the settings which may be provided in a file.
type Config struct {
	// Fan out calls on interface values to the implementing types.
	Interfaces bool `toml:"interfaces"`
	// Only consider explicitly asserted implementations of interfaces.
	AssertedInterfaces bool `toml:"asserted_interfaces"`
	// Include test sources.
	Tests bool `toml:"tests"`
	// Patterns of files to skip when looking for calls.
	Exclude []string `toml:"exclude"`
	// Additional restrictions.
	Methods []Method `toml:"method"`

	// The directory which contains the configuration file.
	base     string
	excluded *ignore.GitIgnore
}

// A Method adds callers to the allowlist of a method.
type Method struct {
	// The fully-qualified name of the declaring type.
	Type string `toml:"type"`
	// The name of the method.
	Name string `toml:"name"`
	// The fully-qualified names of the permitted callers.
	Allow []string `toml:"allow"`
}

// Load reads a configuration file. Unknown keys are rejected to help
// with typos.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, errors.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.base = filepath.Dir(abs)
	if len(cfg.Exclude) > 0 {
		cfg.excluded = ignore.CompileIgnoreLines(cfg.Exclude...)
	}
	return cfg, nil
}

// Excluded returns true if the file matches an exclusion pattern.
// Files outside of the configuration's directory are matched by their
// full path.
func (c *Config) Excluded(filename string) bool {
	if c == nil || c.excluded == nil {
		return false
	}
	if rel, err := filepath.Rel(c.base, filename); err == nil && !strings.HasPrefix(rel, "..") {
		filename = rel
	}
	return c.excluded.MatchesPath(filepath.ToSlash(filename))
}

// Lists returns the configured allowlists.
func (c *Config) Lists() resolve.Lists {
	if c == nil || len(c.Methods) == 0 {
		return nil
	}
	ret := make(resolve.Lists, len(c.Methods))
	for _, m := range c.Methods {
		id := allow.MethodIdentity{Type: m.Type, Method: m.Name}
		ret[id] = append(ret[id], m.Allow...)
	}
	return ret
}

func (c *Config) validate() error {
	for i, m := range c.Methods {
		switch {
		case m.Type == "":
			return errors.Errorf("method %d: no type set", i)
		case m.Name == "":
			return errors.Errorf("method %d: no name set", i)
		case len(m.Allow) == 0:
			return errors.Errorf("method %d: no allowed callers set for %s", i, m.Name)
		}
	}
	return nil
}
