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

// Package gclplugin registers bouncer as a golangci-lint module plugin.
//
// Add the plugin to .custom-gcl.yml:
//
//	version: v2.7.0
//	plugins:
//	  - module: github.com/cockroachdb/bouncer
//	    import: github.com/cockroachdb/bouncer/pkg/gclplugin
//
// and enable it in .golangci.yml:
//
//	linters:
//	  enable:
//	    - bouncer
//	  settings:
//	    custom:
//	      bouncer:
//	        type: module
//	        settings:
//	          interfaces: true
package gclplugin

import (
	"github.com/cockroachdb/bouncer/pkg/analyzer"
	"github.com/golangci/plugin-module-register/register"
	"golang.org/x/tools/go/analysis"
)

func init() { register.Plugin("bouncer", New) }

// Settings are decoded from the golangci-lint configuration.
type Settings struct {
	// The path to a TOML configuration file.
	Config string `json:"config"`
	// Fan out calls on interface values to the implementing types.
	Interfaces bool `json:"interfaces"`
	// Only consider explicitly asserted implementations of interfaces.
	AssertedInterfaces bool `json:"asserted-interfaces"`
}

// Plugin implements register.LinterPlugin.
type Plugin struct {
	settings Settings
}

var _ register.LinterPlugin = Plugin{}

// New constructs a Plugin from its raw settings.
func New(rawSettings interface{}) (register.LinterPlugin, error) {
	settings, err := register.DecodeSettings[Settings](rawSettings)
	if err != nil {
		return nil, err
	}
	return Plugin{settings: settings}, nil
}

// BuildAnalyzers implements register.LinterPlugin.
func (p Plugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	return []*analysis.Analyzer{analyzer.New(analyzer.Options{
		Config:             p.settings.Config,
		Interfaces:         p.settings.Interfaces,
		AssertedInterfaces: p.settings.AssertedInterfaces,
	})}, nil
}

// GetLoadMode implements register.LinterPlugin.
func (Plugin) GetLoadMode() string {
	return register.LoadModeTypesInfo
}
