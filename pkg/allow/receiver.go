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

package allow

// A Receiver is the statically-determined type of the expression that a
// method is called upon. The set of implementations is closed: Self,
// Named, Union, and Unknown.
type Receiver interface {
	isReceiver()
}

var (
	_ Receiver = Self{}
	_ Receiver = Named{}
	_ Receiver = Union{}
	_ Receiver = Unknown{}
)

// Self is a receiver which is provably the instance whose method is
// executing, e.g. r.Foo() inside of func (r *T) Bar(). This includes
// methods promoted to r through embedded fields.
type Self struct{}

func (Self) isReceiver() {}

// Named is a receiver whose method resolves statically to a method
// declared on the type Class.
type Named struct {
	// The fully-qualified name of the type which declares the method.
	Class string
}

func (Named) isReceiver() {}

// Union is a receiver which may have any one of several types, such as
// a type parameter constrained by a union of types.
type Union struct {
	Branches []Receiver
}

func (Union) isReceiver() {}

// Unknown is a receiver whose type cannot be determined well enough to
// perform a check.
type Unknown struct{}

func (Unknown) isReceiver() {}
