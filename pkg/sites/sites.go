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

// Package sites extracts method declarations and method call sites from
// type-checked source.
package sites

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/cockroachdb/bouncer/pkg/allow"
	"github.com/cockroachdb/bouncer/pkg/util"
)

// Implementors supplies the concrete types which may be stored in a
// variable of an interface type.
type Implementors interface {
	Implementors(intf *types.Interface) []types.Type
}

// Identity returns the identity of a method declared on a named,
// non-interface type.
func Identity(fn *types.Func) (allow.MethodIdentity, bool) {
	recv := fn.Signature().Recv()
	if recv == nil {
		return allow.MethodIdentity{}, false
	}
	named := util.NamedOf(recv.Type())
	if named == nil || types.IsInterface(named) {
		return allow.MethodIdentity{}, false
	}
	return allow.MethodIdentity{Type: util.Qualified(named.Obj()), Method: fn.Name()}, true
}

// Methods invokes the callback for every method declared in the file.
func Methods(
	info *types.Info, file *ast.File, fn func(allow.MethodIdentity, *types.Func, *ast.FuncDecl),
) {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv == nil {
			continue
		}
		obj, ok := info.Defs[fd.Name].(*types.Func)
		if !ok {
			continue
		}
		if id, ok := Identity(obj); ok {
			fn(id, obj, fd)
		}
	}
}

// Walk invokes the callback for every method call in the file.
// Calls of func-valued fields and package-level functions are not
// presented. The impls argument may be nil, in which case calls made on
// interface values have an Unknown receiver.
func Walk(info *types.Info, file *ast.File, impls Implementors, fn func(allow.CallSite)) {
	w := &walker{impls: impls, info: info}
	for _, decl := range file.Decls {
		// Package-level declarations and plain functions have no
		// enclosing type.
		var enclosing string
		var self *types.Var
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Recv != nil {
			enclosing, self = w.receiver(fd)
		}

		ast.Inspect(decl, func(node ast.Node) bool {
			if call, ok := node.(*ast.CallExpr); ok {
				if site, ok := w.site(call, enclosing, self); ok {
					fn(site)
				}
			}
			return true
		})
	}
}

type walker struct {
	impls Implementors
	info  *types.Info
}

// classify determines the receiver for a call of the method on a value
// of the given type.
func (w *walker) classify(typ types.Type, method *types.Func) allow.Receiver {
	typ = types.Unalias(typ)

	// A type parameter constrained by a union of types:
	//   func F[T interface{ *A | *B; Foo() }](t T) { t.Foo() }
	if tp, ok := typ.(*types.TypeParam); ok {
		intf, ok := tp.Constraint().Underlying().(*types.Interface)
		if !ok {
			return allow.Unknown{}
		}
		if terms, restricted := typeSet(intf); restricted {
			if len(terms) == 0 {
				return allow.Unknown{}
			}
			branches := make([]allow.Receiver, len(terms))
			for i, term := range terms {
				if term.Tilde() {
					// Any type with the given underlying type.
					branches[i] = allow.Unknown{}
				} else {
					branches[i] = w.classify(term.Type(), method)
				}
			}
			return allow.Union{Branches: branches}
		}
		// Otherwise, it behaves like any other interface value.
		typ = intf
	}

	// Interface values may be fanned out to their known implementations.
	if intf, ok := typ.Underlying().(*types.Interface); ok {
		if w.impls == nil {
			return allow.Unknown{}
		}
		impls := w.impls.Implementors(intf)
		if len(impls) == 0 {
			return allow.Unknown{}
		}
		branches := make([]allow.Receiver, 0, len(impls))
		for _, impl := range impls {
			if types.IsInterface(impl) {
				continue
			}
			branches = append(branches, w.classify(impl, method))
		}
		return allow.Union{Branches: branches}
	}

	// Find the method which will actually be invoked, which may have been
	// promoted from an embedded field.
	obj, _, _ := types.LookupFieldOrMethod(typ, true /* addressable */, method.Pkg(), method.Name())
	found, ok := obj.(*types.Func)
	if !ok {
		return allow.Unknown{}
	}
	id, ok := Identity(found)
	if !ok {
		// Promoted from an embedded interface.
		return allow.Unknown{}
	}
	return allow.Named{Class: id.Type}
}

// isSelf returns true if the expression refers to the receiver variable.
func (w *walker) isSelf(expr ast.Expr, self *types.Var) bool {
	for {
		switch e := expr.(type) {
		case *ast.ParenExpr:
			expr = e.X
		case *ast.StarExpr:
			expr = e.X
		case *ast.UnaryExpr:
			if e.Op != token.AND {
				return false
			}
			expr = e.X
		case *ast.Ident:
			return w.info.Uses[e] == self
		default:
			return false
		}
	}
}

// receiver returns the fully-qualified name of the method's receiver
// type and the receiver variable, if it is named.
func (w *walker) receiver(fd *ast.FuncDecl) (string, *types.Var) {
	obj, ok := w.info.Defs[fd.Name].(*types.Func)
	if !ok {
		return "", nil
	}
	recv := obj.Signature().Recv()
	if recv == nil {
		return "", nil
	}
	named := util.NamedOf(recv.Type())
	if named == nil {
		return "", nil
	}
	if recv.Name() == "" || recv.Name() == "_" {
		return util.Qualified(named.Obj()), nil
	}
	return util.Qualified(named.Obj()), recv
}

// site constructs a CallSite if the call is a method call.
func (w *walker) site(call *ast.CallExpr, enclosing string, self *types.Var) (allow.CallSite, bool) {
	sel, ok := ast.Unparen(call.Fun).(*ast.SelectorExpr)
	if !ok {
		return allow.CallSite{}, false
	}
	// Qualified identifiers, such as fmt.Println, have no selection.
	selection, ok := w.info.Selections[sel]
	if !ok {
		return allow.CallSite{}, false
	}
	method, ok := selection.Obj().(*types.Func)
	if !ok {
		return allow.CallSite{}, false
	}

	site := allow.CallSite{
		Enclosing: enclosing,
		Method:    method.Name(),
		Pos:       sel.Sel.Pos(),
	}
	switch selection.Kind() {
	case types.MethodVal:
		//   x.Foo()
		// A method promoted from an embedded field is declared on some
		// other type, and an embedded pointer may refer to any instance.
		promoted := len(selection.Index()) > 1
		if self != nil && !promoted && w.isSelf(sel.X, self) {
			site.Receiver = allow.Self{}
		} else {
			site.Receiver = w.classify(selection.Recv(), method)
		}
	case types.MethodExpr:
		//   (*T).Foo(x)
		site.Receiver = w.classify(selection.Recv(), method)
	default:
		return allow.CallSite{}, false
	}
	return site, true
}

// typeSet returns the explicitly-enumerated types permitted by the
// interface, or false if the interface does not restrict its types.
func typeSet(intf *types.Interface) ([]*types.Term, bool) {
	var ret []*types.Term
	restricted := false
	for i := 0; i < intf.NumEmbeddeds(); i++ {
		embedded := intf.EmbeddedType(i)
		var terms []*types.Term
		switch e := embedded.Underlying().(type) {
		case *types.Union:
			for j := 0; j < e.Len(); j++ {
				terms = append(terms, e.Term(j))
			}
		case *types.Interface:
			var ok bool
			if terms, ok = typeSet(e); !ok {
				continue
			}
		default:
			// A single type, e.g. interface{ *A; Foo() }
			terms = []*types.Term{types.NewTerm(false, embedded)}
		}

		if !restricted {
			ret, restricted = terms, true
			continue
		}
		ret = intersect(ret, terms)
	}
	return ret, restricted
}

// intersect returns the terms of a which also appear in b.
func intersect(a, b []*types.Term) []*types.Term {
	var ret []*types.Term
	for _, x := range a {
		for _, y := range b {
			if x.Tilde() == y.Tilde() && types.Identical(x.Type(), y.Type()) {
				ret = append(ret, x)
				break
			}
		}
	}
	return ret
}
