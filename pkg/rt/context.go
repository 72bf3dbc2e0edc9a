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
	"go/ast"
	"go/token"
	"go/types"
	"sync"

	"github.com/cockroachdb/bouncer/pkg/allow"
	"github.com/cockroachdb/bouncer/pkg/doc"
	"github.com/cockroachdb/bouncer/pkg/oracle"
	"github.com/cockroachdb/bouncer/pkg/resolve"
	"github.com/cockroachdb/bouncer/pkg/sites"
	"golang.org/x/tools/go/packages"
)

// A session accumulates the state of a single execution of the
// Enforcer. All methods are safe to call from multiple goroutines.
type session struct {
	fset *token.FileSet

	mu struct {
		sync.Mutex
		assertions oracle.Assertions
		candidates []*types.TypeName
		decls      map[allow.MethodIdentity]token.Position
		docs       resolve.Docs
		results    Results
	}
}

var _ resolve.DocSource = &session{}

func newSession(fset *token.FileSet) *session {
	s := &session{fset: fset}
	s.mu.assertions = make(oracle.Assertions)
	s.mu.decls = make(map[allow.MethodIdentity]token.Position)
	s.mu.docs = make(resolve.Docs)
	return s
}

// Doc implements resolve.DocSource.
func (s *session) Doc(id allow.MethodIdentity) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.docs.Doc(id)
}

// addCandidates records the named types which may implement interfaces.
func (s *session) addCandidates(pkg *types.Package) {
	found := oracle.Candidates(pkg)
	s.mu.Lock()
	s.mu.candidates = append(s.mu.candidates, found...)
	s.mu.Unlock()
}

// declaration returns the position of the method declaration, if it
// was indexed.
func (s *session) declaration(id allow.MethodIdentity) token.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.decls[id]
}

// identities returns every method which has documentation.
func (s *session) identities() []allow.MethodIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]allow.MethodIdentity, 0, len(s.mu.docs))
	for id := range s.mu.docs {
		ret = append(ret, id)
	}
	return ret
}

// index records the method declarations and interface assertions in
// the file.
func (s *session) index(pkg *packages.Package, file *ast.File) {
	sites.Methods(pkg.TypesInfo, file, func(id allow.MethodIdentity, _ *types.Func, decl *ast.FuncDecl) {
		pos := s.fset.Position(decl.Pos())
		s.mu.Lock()
		s.mu.decls[id] = pos
		if decl.Doc != nil {
			s.mu.docs[id] = doc.Raw(decl.Doc)
		}
		s.mu.Unlock()
	})
	oracle.CollectAssertions(pkg.TypesInfo, file, func(intf, impl types.Object) {
		s.mu.Lock()
		s.mu.assertions.Add(intf, impl)
		s.mu.Unlock()
	})
}

// typeOracle builds a TypeOracle from the indexed data.
func (s *session) typeOracle(assertedOnly bool) *oracle.TypeOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return oracle.NewOracle(s.mu.assertions, s.mu.candidates, assertedOnly)
}

// report converts the diagnostic into a Result.
func (s *session) report(d allow.Diagnostic) {
	r := &Result{
		Declaration: s.declaration(d.Method),
		Message:     d.Message,
		Method:      d.Method,
		Pos:         s.fset.Position(d.Pos),
	}
	s.mu.Lock()
	s.mu.results = append(s.mu.results, r)
	s.mu.Unlock()
}

// results returns the accumulated Results.
func (s *session) results() Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(Results(nil), s.mu.results...)
}
