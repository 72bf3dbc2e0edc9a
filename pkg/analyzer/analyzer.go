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

// Package analyzer exposes bouncer as a go/analysis Analyzer, suitable
// for use with singlechecker, multichecker, or golangci-lint.
//
// Restrictions declared in one package are enforced in the packages
// which import it by exporting a Restricted fact on each restricted
// method.
package analyzer

import (
	"go/ast"
	"go/types"
	"strings"
	"sync"

	"github.com/cockroachdb/bouncer/pkg/allow"
	"github.com/cockroachdb/bouncer/pkg/config"
	"github.com/cockroachdb/bouncer/pkg/doc"
	"github.com/cockroachdb/bouncer/pkg/oracle"
	"github.com/cockroachdb/bouncer/pkg/resolve"
	"github.com/cockroachdb/bouncer/pkg/rule"
	"github.com/cockroachdb/bouncer/pkg/sites"
	"golang.org/x/tools/go/analysis"
)

const help = `enforce allow-only-from restrictions on method callers

A method may restrict the types which are permitted to call it:

	//bouncer:allow-only-from github.com/example/shop.Cart
	//bouncer:allow-only-from Checkout
	func (o *Order) AddLine(l Line) { ... }

Calls to AddLine are reported unless they are written inside a method of
Cart, Checkout, or Order, or are made upon the receiver of the enclosing
method.`

// Restricted is exported on each method which declares an allowlist.
type Restricted struct {
	Allowed []string
}

// AFact implements analysis.Fact.
func (*Restricted) AFact() {}

func (r *Restricted) String() string {
	return doc.AllowOnlyFrom + " " + strings.Join(r.Allowed, ", ")
}

// Options configure an Analyzer.
type Options struct {
	// The path to a TOML configuration file.
	Config string
	// Fan out calls on interface values to the implementing types.
	Interfaces bool
	// Only consider explicitly asserted implementations of interfaces.
	AssertedInterfaces bool
}

// Analyzer is configured by command-line flags.
var Analyzer = New(Options{})

// New constructs an Analyzer. The options may be further modified by
// the Analyzer's flags.
func New(opts Options) *analysis.Analyzer {
	r := &runner{opts: opts}
	a := &analysis.Analyzer{
		Name:      "bouncer",
		Doc:       help,
		Run:       r.run,
		FactTypes: []analysis.Fact{new(Restricted)},
	}
	a.Flags.StringVar(&r.opts.Config, "config", opts.Config,
		"a TOML configuration file")
	a.Flags.BoolVar(&r.opts.Interfaces, "interfaces", opts.Interfaces,
		"check calls made on interface values against their implementations")
	a.Flags.BoolVar(&r.opts.AssertedInterfaces, "asserted-interfaces", opts.AssertedInterfaces,
		"only consider types with an explicit var _ Intf = Impl{} assertion")
	return a
}

type runner struct {
	opts Options

	once struct {
		sync.Once
		cfg *config.Config
		err error
	}
}

// loadConfig reads the configuration file at most once.
func (r *runner) loadConfig() (*config.Config, error) {
	r.once.Do(func() {
		if r.opts.Config == "" {
			r.once.cfg = &config.Config{}
			return
		}
		r.once.cfg, r.once.err = config.Load(r.opts.Config)
	})
	return r.once.cfg, r.once.err
}

func (r *runner) run(pass *analysis.Pass) (interface{}, error) {
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, err
	}

	// Restrictions declared in this package.
	docs := make(resolve.Docs)
	objects := make(map[allow.MethodIdentity]*types.Func)
	for _, file := range pass.Files {
		sites.Methods(pass.TypesInfo, file, func(id allow.MethodIdentity, fn *types.Func, decl *ast.FuncDecl) {
			if decl.Doc != nil {
				docs[id] = doc.Raw(decl.Doc)
				objects[id] = fn
			}
		})
	}
	local := resolve.New(docs, nil, nil)
	for id, fn := range objects {
		if allowed := local.Resolve(id); len(allowed) > 0 {
			pass.ExportObjectFact(fn, &Restricted{Allowed: allowed})
		}
	}

	// Restrictions declared in dependencies.
	imported := make(resolve.Lists)
	for _, found := range pass.AllObjectFacts() {
		fn, ok := found.Object.(*types.Func)
		if !ok || fn.Pkg() == pass.Pkg {
			continue
		}
		if id, ok := sites.Identity(fn); ok {
			imported[id] = found.Fact.(*Restricted).Allowed
		}
	}

	check := rule.New(resolve.New(docs, nil, resolve.Merge(imported, cfg.Lists())))

	var impls sites.Implementors
	if r.opts.Interfaces || cfg.Interfaces {
		assertions := make(oracle.Assertions)
		candidates := oracle.Candidates(pass.Pkg)
		for _, file := range pass.Files {
			oracle.CollectAssertions(pass.TypesInfo, file, assertions.Add)
		}
		for _, imp := range pass.Pkg.Imports() {
			candidates = append(candidates, oracle.Candidates(imp)...)
		}
		impls = oracle.NewOracle(assertions, candidates, r.opts.AssertedInterfaces || cfg.AssertedInterfaces)
	}

	for _, file := range pass.Files {
		if ast.IsGenerated(file) || cfg.Excluded(pass.Fset.Position(file.Pos()).Filename) {
			continue
		}
		sites.Walk(pass.TypesInfo, file, impls, func(site allow.CallSite) {
			for _, d := range check.Check(site) {
				pass.Report(analysis.Diagnostic{
					Pos:      d.Pos,
					Category: doc.AllowOnlyFrom,
					Message:  d.Message,
				})
			}
		})
	}
	return nil, nil
}
