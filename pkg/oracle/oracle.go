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

// Package oracle answers questions about which concrete types may be
// stored in an interface value.
package oracle

import (
	"go/ast"
	"go/token"
	"go/types"
	"sync"
)

// Assertions define type relationships that have been explicitly
// asserted in source.  Generally, these are declarations of the form
//
//	var _ A = B{}
type Assertions map[types.Object][]types.Object

// Add records that impl was asserted to implement intf.
func (a Assertions) Add(intf, impl types.Object) {
	a[intf] = append(a[intf], impl)
}

// CollectAssertions finds all top-level declarations of the forms
//
//	var _ SomeInterface = SomeStruct{}
//	var _ SomeInterface = &SomeStruct{}
//
// and reports them to the callback.
func CollectAssertions(info *types.Info, file *ast.File, fn func(intf, impl types.Object)) {
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			continue
		}
		for _, spec := range gen.Specs {
			v := spec.(*ast.ValueSpec)
			if v.Type == nil || len(v.Names) != len(v.Values) {
				continue
			}
			named, ok := types.Unalias(info.TypeOf(v.Type)).(*types.Named)
			if !ok || !types.IsInterface(named) {
				continue
			}
			for i, name := range v.Names {
				if name.Name != "_" {
					continue
				}
				var impl types.Object
				switch t := types.Unalias(info.TypeOf(v.Values[i])).(type) {
				case *types.Named:
					if !types.IsInterface(t) {
						impl = t.Obj()
					}
				case *types.Pointer:
					if named, ok := types.Unalias(t.Elem()).(*types.Named); ok && !types.IsInterface(named) {
						impl = named.Obj()
					}
				}
				if impl != nil {
					fn(named.Obj(), impl)
				}
			}
		}
	}
}

// A TypeOracle answers questions about a program's typesystem.
// All methods are safe to call from multiple goroutines.
type TypeOracle struct {
	assertedOnly         bool
	assertedImplementors map[*types.Interface][]types.Type
	candidates           []types.Type
	mu                   struct {
		sync.RWMutex
		typeImplementors map[*types.Interface][]types.Type
	}
}

// NewOracle constructs a TypeOracle. If assertedOnly is true, only
// types named by an assertion are considered to implement an interface.
// Otherwise, every candidate named type which implements an interface,
// directly or through a pointer, is returned.
func NewOracle(assertions Assertions, candidates []*types.TypeName, assertedOnly bool) *TypeOracle {
	ret := &TypeOracle{
		assertedOnly:         assertedOnly,
		assertedImplementors: make(map[*types.Interface][]types.Type, len(assertions)),
	}
	for k, v := range assertions {
		if intf, ok := k.Type().Underlying().(*types.Interface); ok {
			for _, impl := range v {
				ret.assertedImplementors[intf] = append(ret.assertedImplementors[intf], impl.Type())
			}
		}
	}
	for _, c := range candidates {
		// Generic types can't be used without instantiation.
		if named, ok := c.Type().(*types.Named); ok && named.TypeParams().Len() == 0 {
			if !types.IsInterface(named) {
				ret.candidates = append(ret.candidates, named)
			}
		}
	}
	ret.mu.typeImplementors = make(map[*types.Interface][]types.Type)
	return ret
}

// Candidates returns the named types declared at package scope.
func Candidates(pkg *types.Package) []*types.TypeName {
	var ret []*types.TypeName
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		if tn, ok := scope.Lookup(name).(*types.TypeName); ok && !tn.IsAlias() {
			ret = append(ret, tn)
		}
	}
	return ret
}

// Implementors returns the types which implement the given interface.
func (o *TypeOracle) Implementors(intf *types.Interface) []types.Type {
	var ret []types.Type

	if o.assertedOnly {
		ret = o.assertedImplementors[intf]
	} else {
		o.mu.RLock()
		// We may insert nil slices later on, so use comma-ok.
		maybe, found := o.mu.typeImplementors[intf]
		o.mu.RUnlock()

		if !found {
			for _, typ := range o.candidates {
				if types.Implements(typ, intf) {
					maybe = append(maybe, typ)
				} else if ptr := types.NewPointer(typ); types.Implements(ptr, intf) {
					maybe = append(maybe, ptr)
				}
			}

			o.mu.Lock()
			o.mu.typeImplementors[intf] = maybe
			o.mu.Unlock()
		}
		ret = maybe
	}

	// Return copies of non-nil slices.
	if ret != nil {
		ret = append(ret[:0:0], ret...)
	}
	return ret
}
