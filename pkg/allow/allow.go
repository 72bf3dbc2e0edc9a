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

// Package allow defines the data model shared by the allowlist resolver,
// the call-site rule, and the drivers which feed them.
//
// A method opts in to caller restrictions by carrying one or more magic
// comments in its doc group:
//
//	//bouncer:allow-only-from github.com/example/shop.Cart
//	//bouncer:allow-only-from Checkout
//	func (o *Order) AddLine(l Line) { ... }
//
// Every call to AddLine must then be written inside a method of Cart,
// of Checkout (an unqualified name refers to the declaring package),
// or of Order itself.
package allow

import (
	"fmt"
	"go/token"
	"strings"
)

// MethodIdentity names a method by its declaring type and its name.
// Type is a fully-qualified type name such as "github.com/x/y.Order".
type MethodIdentity struct {
	Type   string
	Method string
}

// String is suitable for human consumption.
func (m MethodIdentity) String() string {
	return m.Type + "::" + m.Method
}

// A List holds the names of the types which may call a restricted
// method, in declaration order. An empty List means that no
// restriction has been declared.
type List []string

// Permits returns true if a call written inside the enclosing type may
// call a method declared on the declaring type. Both arguments are
// fully-qualified type names.
//
// Entries are compared exactly, except that an entry without any
// package qualifier is resolved against the declaring type's package.
func (l List) Permits(enclosing, declaring string) bool {
	encPkg, encName := Split(enclosing)
	declPkg, _ := Split(declaring)
	for _, entry := range l {
		if entry == enclosing {
			return true
		}
		if !strings.Contains(entry, ".") && entry == encName && encPkg == declPkg {
			return true
		}
	}
	return false
}

// Split breaks a fully-qualified type name into its package path and
// its simple name. Import paths may contain dots, type names may not.
func Split(qualified string) (pkgPath, name string) {
	idx := strings.LastIndexByte(qualified, '.')
	if idx < 0 {
		return "", qualified
	}
	return qualified[:idx], qualified[idx+1:]
}

// A CallSite describes one method call which is to be checked.
type CallSite struct {
	// The fully-qualified name of the type whose method lexically
	// encloses the call, or the empty string if the call is made from a
	// plain function or a package-level initializer.
	Enclosing string
	// The position of the call expression.
	Pos token.Pos
	// The name of the called method. The declaring type is carried by
	// each Named receiver, since a Union may resolve to several.
	Method string
	// The statically-determined receiver.
	Receiver Receiver
}

// A Diagnostic reports a call which is not authorized.
type Diagnostic struct {
	Message string
	// The restricted method which was called.
	Method MethodIdentity
	Pos    token.Pos
}

// Message produces the text of a Diagnostic.
//
//	Call to a.AnEntity::RestrictedSetter is authorized only from:
//	- AnAggregate
//	- AnotherAggregate
func Message(id MethodIdentity, allowed List) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Call to %s is authorized only from:", id)
	for _, caller := range allowed {
		sb.WriteString("\n- ")
		sb.WriteString(caller)
	}
	return sb.String()
}
