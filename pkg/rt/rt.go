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

// Package rt contains the standalone enforcer, which loads a module's
// packages, indexes every method declaration, and then reports calls of
// restricted methods made from types outside of their allowlists.
package rt

import (
	"context"
	"runtime"
	"sort"
	"strings"

	"github.com/cockroachdb/bouncer/pkg/allow"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"
)

// A Restriction describes a method which declares an allowlist.
type Restriction struct {
	// The permitted callers, in declaration order.
	Allowed allow.List
	// The position of the method declaration, if it was loaded.
	Declaration string
	// The restricted method.
	Method allow.MethodIdentity
}

// String is suitable for human consumption.
func (r Restriction) String() string {
	sb := &strings.Builder{}
	if r.Declaration != "" {
		sb.WriteString(r.Declaration)
		sb.WriteString(": ")
	}
	sb.WriteString(r.Method.String())
	for _, caller := range r.Allowed {
		sb.WriteString("\n  - ")
		sb.WriteString(caller)
	}
	return sb.String()
}

// Restrictions is sortable by method identity.
type Restrictions []Restriction

var _ sort.Interface = Restrictions{}

func (r Restrictions) Len() int { return len(r) }
func (r Restrictions) Less(i, j int) bool {
	if r[i].Method.Type != r[j].Method.Type {
		return r[i].Method.Type < r[j].Method.Type
	}
	return r[i].Method.Method < r[j].Method.Method
}
func (r Restrictions) Swap(i, j int) { r[i], r[j] = r[j], r[i] }

// flattenImports will return the given packages and their transitive
// imports as a map keyed by package ID.
func flattenImports(pkgs []*packages.Package) map[string]*packages.Package {
	seen := make(map[string]*packages.Package)
	for pkgs != nil {
		work := pkgs
		pkgs = nil
		for _, pkg := range work {
			if seen[pkg.ID] == nil {
				seen[pkg.ID] = pkg
				for _, imp := range pkg.Imports {
					pkgs = append(pkgs, imp)
				}
			}
		}
	}
	return seen
}

// isTestVariant follows the naming scheme described on packages.Config.
// The generated test-main package is not a variant.
func isTestVariant(pkg *packages.Package) bool {
	return strings.HasSuffix(pkg.ID, ".test]")
}

// isStdlib uses the convention that the first element of a non-standard
// import path contains a dot. Packages in a module are never standard.
func isStdlib(pkg *packages.Package) bool {
	if pkg.Module != nil {
		return false
	}
	first := pkg.PkgPath
	if idx := strings.IndexByte(first, '/'); idx >= 0 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}

// parallel feeds the work to a limited number of goroutines.
func parallel[T any](ctx context.Context, work []T, fn func(context.Context, T) error) error {
	ch := make(chan T, 1)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < runtime.NumCPU(); i++ {
		g.Go(func() error {
			for {
				select {
				case next, open := <-ch:
					if !open {
						return nil
					}
					if err := fn(ctx, next); err != nil {
						return err
					}
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		})
	}

sendLoop:
	for _, w := range work {
		select {
		case ch <- w:
		case <-ctx.Done():
			break sendLoop
		}
	}
	close(ch)

	return g.Wait()
}
