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

// Package rule decides whether a method call is permitted by the
// allowlist of the called method.
package rule

import (
	"github.com/cockroachdb/bouncer/pkg/allow"
)

// A Resolver returns the allowlist declared on a method.
type Resolver interface {
	Resolve(id allow.MethodIdentity) allow.List
}

// A Rule checks call sites against the allowlists of the methods they
// call. A Rule holds no state of its own and may be used from multiple
// goroutines, provided that its Resolver may be.
type Rule struct {
	resolver Resolver
}

// New constructs a Rule.
func New(resolver Resolver) *Rule {
	return &Rule{resolver: resolver}
}

// Check returns a Diagnostic for every way in which the call may be
// unauthorized. A Union receiver produces one Diagnostic for each of its
// offending branches.
func (r *Rule) Check(site allow.CallSite) []allow.Diagnostic {
	return r.check(site, site.Receiver, nil)
}

func (r *Rule) check(
	site allow.CallSite, recv allow.Receiver, into []allow.Diagnostic,
) []allow.Diagnostic {
	switch t := recv.(type) {
	case allow.Self:
		// A method can always call its siblings on its own receiver.
		return into

	case allow.Unknown:
		// We can't prove anything.
		return into

	case allow.Union:
		for _, branch := range t.Branches {
			into = r.check(site, branch, into)
		}
		return into

	case allow.Named:
		id := allow.MethodIdentity{Type: t.Class, Method: site.Method}
		allowed := r.resolver.Resolve(id)
		if len(allowed) == 0 {
			return into
		}
		// A call made outside of any type can never be authorized.
		if site.Enclosing != "" {
			// The restriction applies to external callers only.
			if site.Enclosing == t.Class {
				return into
			}
			if allowed.Permits(site.Enclosing, t.Class) {
				return into
			}
		}
		return append(into, allow.Diagnostic{
			Message: allow.Message(id, allowed),
			Method:  id,
			Pos:     site.Pos,
		})

	default:
		// Includes a nil receiver.
		return into
	}
}
