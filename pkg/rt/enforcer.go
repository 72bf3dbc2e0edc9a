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

package rt

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/cockroachdb/bouncer/pkg/allow"
	"github.com/cockroachdb/bouncer/pkg/config"
	"github.com/cockroachdb/bouncer/pkg/resolve"
	"github.com/cockroachdb/bouncer/pkg/rule"
	"github.com/cockroachdb/bouncer/pkg/sites"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/tools/go/packages"
)

// Enforcer is the main entrypoint for the standalone linter binary.
type Enforcer struct {
	// If true, we will only consider types to implement an interface
	// if there is an explicit assertion of the form:
	//   var _ Intf = &Impl{}
	AssertedInterfaces bool
	// An optional path to a TOML configuration file.
	Config string
	// Allows the working directory to be overridden.
	Dir string
	// If true, calls made on interface values are checked against
	// every implementation of the interface.
	Interfaces bool
	// An optional Logger to receive diagnostic messages.
	Logger *log.Logger
	// The name of the linter binary.
	Name string
	// The package-patterns to check.
	Packages []string
	// If true, Main() will call os.Exit(1) if any reports are generated.
	SetExitStatus bool
	// If true, the test sources for the package will be included.
	Tests bool
}

// A loaded program, ready to be checked.
type loaded struct {
	cfg     *config.Config
	roots   []*packages.Package
	session *session
}

// Execute allows an Enforcer to be called programmatically. The
// returned Results are sorted.
func (e *Enforcer) Execute(ctx context.Context) (Results, error) {
	l, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	s := l.session

	var impls sites.Implementors
	if e.Interfaces || l.cfg.Interfaces {
		impls = s.typeOracle(e.AssertedInterfaces || l.cfg.AssertedInterfaces)
	}
	check := rule.New(resolve.New(s, nil, l.cfg.Lists()))

	var work []fileWork
	for _, pkg := range l.roots {
		for _, file := range pkg.Syntax {
			filename := s.fset.Position(file.Pos()).Filename
			if ast.IsGenerated(file) || l.cfg.Excluded(filename) {
				e.println("skipping", filename)
				continue
			}
			work = append(work, fileWork{pkg, file})
		}
	}

	err = parallel(ctx, work, func(_ context.Context, w fileWork) error {
		e.printf("checking %s", s.fset.Position(w.file.Pos()).Filename)
		sites.Walk(w.pkg.TypesInfo, w.file, impls, func(site allow.CallSite) {
			for _, d := range check.Check(site) {
				s.report(d)
			}
		})
		return nil
	})

	ret := s.results()
	sort.Sort(ret)
	return ret, err
}

// Restricted returns every method, in the loaded packages or in the
// configuration, which declares an allowlist.
func (e *Enforcer) Restricted(ctx context.Context) (Restrictions, error) {
	l, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	s := l.session
	extra := l.cfg.Lists()
	resolver := resolve.New(s, nil, extra)

	ids := s.identities()
	for id := range extra {
		if _, found := s.Doc(id); !found {
			ids = append(ids, id)
		}
	}

	var ret Restrictions
	for _, id := range ids {
		allowed := resolver.Resolve(id)
		if len(allowed) == 0 {
			continue
		}
		r := Restriction{Allowed: allowed, Method: id}
		if pos := s.declaration(id); pos.IsValid() {
			r.Declaration = relative(e.Dir, pos)
		}
		ret = append(ret, r)
	}
	sort.Sort(ret)
	return ret, nil
}

// Main is called by the bouncer binary.
func (e *Enforcer) Main() {
	verbose := false
	setup := func(cmd *cobra.Command, args []string) (context.Context, func()) {
		ctx, cancel := context.WithCancel(context.Background())
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT)

		go func() {
			if _, open := <-sig; open {
				cmd.Println("Interrupted")
				cancel()
			}
		}()

		e.Packages = args
		if verbose {
			e.Logger = log.New(cmd.ErrOrStderr(), "" /* prefix */, 0 /* flags */)
		}
		return ctx, func() {
			signal.Stop(sig)
			close(sig)
			cancel()
		}
	}

	enforce := &cobra.Command{
		Use:           "enforce [packages]",
		Short:         "Report calls of restricted methods from unauthorized types",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done := setup(cmd, args)
			defer done()

			results, err := e.Execute(ctx)
			for _, result := range results {
				cmd.Printf("%s\n\n", result.StringRelative(e.Dir))
			}
			if err == nil && e.SetExitStatus && len(results) > 0 {
				err = errors.Errorf("%d unauthorized calls", len(results))
			}
			return err
		},
	}
	enforce.Flags().BoolVar(&e.SetExitStatus, "set_exit_status",
		false, "return a non-zero exit code if errors are reported")

	restricted := &cobra.Command{
		Use:           "restricted [packages]",
		Short:         "Lists all restricted methods and their permitted callers",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"./..."}
			}
			ctx, done := setup(cmd, args)
			defer done()

			found, err := e.Restricted(ctx)
			for _, r := range found {
				cmd.Println(r.String())
			}
			return err
		},
	}

	root := &cobra.Command{
		Use: e.Name,
	}
	e.bindFlags(root.PersistentFlags())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v",
		false, "enable additional diagnostic messages")
	root.AddCommand(enforce, restricted)

	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	os.Exit(0)
}

// bindFlags registers the flags which are common to all commands.
func (e *Enforcer) bindFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&e.AssertedInterfaces, "asserted_only",
		false, "only consider explicit type assertions")
	flags.StringVarP(&e.Config, "config", "c",
		"", "a TOML configuration file")
	flags.StringVarP(&e.Dir, "dir", "d",
		".", "override the current working directory")
	flags.BoolVarP(&e.Interfaces, "interfaces", "i",
		false, "check calls made on interface values")
	flags.BoolVarP(&e.Tests, "tests", "t",
		false, "include test sources in the analysis")
}

type fileWork struct {
	pkg  *packages.Package
	file *ast.File
}

// load reads the configuration, loads the requested packages, and
// indexes the method declarations of every package in the program.
//
// Since we're operating on a per-ast.File basis, we want to operate as
// concurrently as possible. We'll set up a limited number of goroutines
// and feed them (package, file) pairs.
func (e *Enforcer) load(ctx context.Context) (*loaded, error) {
	absDir, err := filepath.Abs(e.Dir)
	if err != nil {
		return nil, err
	}
	e.Dir = absDir
	if len(e.Packages) == 0 {
		return nil, errors.New("no packages specified")
	}

	cfg := &config.Config{}
	if e.Config != "" {
		if cfg, err = config.Load(e.Config); err != nil {
			return nil, err
		}
	}

	// Load the source
	fset := token.NewFileSet()
	pkgs, err := packages.Load(&packages.Config{
		Context: ctx,
		Dir:     e.Dir,
		Fset:    fset,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports |
			packages.NeedDeps | packages.NeedModule,
		Tests: e.Tests || cfg.Tests,
	}, e.Packages...)
	if err != nil {
		return nil, errors.Wrap(err, "could not load packages")
	}
	for _, pkg := range pkgs {
		if pkg.Errors != nil {
			return nil, errors.Wrap(pkg.Errors[0], "could not load source due to error(s)")
		}
	}

	s := newSession(fset)
	var work []fileWork
	for _, pkg := range variants(flattenImports(pkgs)) {
		if isStdlib(pkg) {
			continue
		}
		e.println("indexing", pkg.ID)
		s.addCandidates(pkg.Types)
		for _, file := range pkg.Syntax {
			work = append(work, fileWork{pkg, file})
		}
	}
	if err := parallel(ctx, work, func(_ context.Context, w fileWork) error {
		s.index(w.pkg, w.file)
		return nil
	}); err != nil {
		return nil, err
	}

	roots := make(map[string]*packages.Package, len(pkgs))
	for _, pkg := range pkgs {
		roots[pkg.ID] = pkg
	}
	return &loaded{cfg: cfg, roots: variants(roots), session: s}, nil
}

// variants selects one copy of each package. When test sources are
// loaded, a package may appear both as itself and as the variant which
// is recompiled with its tests; the latter is preferred. The generated
// test-main packages are discarded.
func variants(pkgs map[string]*packages.Package) []*packages.Package {
	byPath := make(map[string]*packages.Package, len(pkgs))
	for _, pkg := range pkgs {
		if strings.HasSuffix(pkg.ID, ".test") {
			continue
		}
		prev, found := byPath[pkg.PkgPath]
		switch {
		case !found:
			byPath[pkg.PkgPath] = pkg
		case isTestVariant(pkg) && !isTestVariant(prev):
			byPath[pkg.PkgPath] = pkg
		case isTestVariant(pkg) == isTestVariant(prev) && pkg.ID < prev.ID:
			// Stable choice between two variants of the same kind.
			byPath[pkg.PkgPath] = pkg
		}
	}
	ret := make([]*packages.Package, 0, len(byPath))
	for _, pkg := range byPath {
		ret = append(ret, pkg)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

// printf will emit a diagnostic message via e.Logger, if one is configured.
func (e *Enforcer) printf(format string, args ...interface{}) {
	if l := e.Logger; l != nil {
		l.Printf(format, args...)
	}
}

// println will emit a diagnostic message via e.Logger, if one is configured.
func (e *Enforcer) println(args ...interface{}) {
	if l := e.Logger; l != nil {
		l.Println(args...)
	}
}
