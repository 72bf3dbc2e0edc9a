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

// Package resolve determines the allowlist declared upon a method.
package resolve

import (
	"sync"

	"github.com/cockroachdb/bouncer/pkg/allow"
	"github.com/cockroachdb/bouncer/pkg/doc"
)

// A DocSource provides the raw documentation of declared methods.
type DocSource interface {
	// Doc returns the raw doc comment attached to exactly the identified
	// method, or false if there is none.
	Doc(id allow.MethodIdentity) (text string, ok bool)
}

// Docs is a DocSource which is populated ahead of time, usually by a
// pass over all method declarations in a program.
type Docs map[allow.MethodIdentity]string

var _ DocSource = Docs{}

// Doc implements DocSource.
func (d Docs) Doc(id allow.MethodIdentity) (string, bool) {
	text, ok := d[id]
	return text, ok
}

// Lists maps methods to allowlists that have already been determined,
// such as those supplied by configuration or imported analysis facts.
type Lists map[allow.MethodIdentity]allow.List

// Merge concatenates the entries of the given maps into a new map.
func Merge(lists ...Lists) Lists {
	ret := make(Lists)
	for _, l := range lists {
		for id, callers := range l {
			ret[id] = append(ret[id], callers...)
		}
	}
	return ret
}

// A Resolver finds the allowlist for a method by parsing its
// documentation. Restrictions are not inherited: only the doc comment on
// the exact declaring type is consulted.
//
// A Resolver memoizes its results and should be used for the duration of
// a single analysis. All methods are safe to call from multiple
// goroutines.
type Resolver struct {
	docs   DocSource
	extra  Lists
	parser doc.Parser
	mu     struct {
		sync.RWMutex
		cache map[allow.MethodIdentity]allow.List
	}
}

// New constructs a Resolver. Any extra entries will be appended to the
// entries found in the documentation. The docs and extra arguments may
// be nil. If parser is nil, a doc.CommentParser will be used.
func New(docs DocSource, parser doc.Parser, extra Lists) *Resolver {
	if parser == nil {
		parser = doc.CommentParser{}
	}
	r := &Resolver{
		docs:   docs,
		extra:  extra,
		parser: parser,
	}
	r.mu.cache = make(map[allow.MethodIdentity]allow.List)
	return r
}

// Resolve returns the callers permitted to call the method. An empty
// result means that the method is unrestricted. The caller owns the
// returned slice.
func (r *Resolver) Resolve(id allow.MethodIdentity) allow.List {
	r.mu.RLock()
	// Empty results are cached too, so use comma-ok.
	found, ok := r.mu.cache[id]
	r.mu.RUnlock()

	if !ok {
		found = r.resolve(id)

		r.mu.Lock()
		r.mu.cache[id] = found
		r.mu.Unlock()
	}

	// Return copies of non-nil slices.
	if found != nil {
		found = append(found[:0:0], found...)
	}
	return found
}

func (r *Resolver) resolve(id allow.MethodIdentity) allow.List {
	var ret allow.List
	if r.docs != nil {
		if text, ok := r.docs.Doc(id); ok {
			for _, tag := range r.parser.Parse(text) {
				if tag.Name == doc.AllowOnlyFrom && tag.Value != "" {
					ret = append(ret, tag.Value)
				}
			}
		}
	}
	return append(ret, r.extra[id]...)
}
