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

package testdata

// Setter is implemented by AnEntity.
type Setter interface {
	RestrictedSetter(v int)
}

var _ Setter = &AnEntity{}

// AnEntity may only be modified by an aggregate.
type AnEntity struct {
	something int
}

//bouncer:allow-only-from AnAggregate
//bouncer:allow-only-from AnotherAggregate
func (e *AnEntity) RestrictedSetter(v int) {
	e.something = v
}

func (e *AnEntity) SetSomething(v int) {
	e.something = v
}

func (e *AnEntity) Reset() {
	e.RestrictedSetter(0)
	e.SetSomething(0)
}

type AnAggregate struct {
	entity *AnEntity
}

func (a *AnAggregate) Update(v int) {
	a.entity.RestrictedSetter(v)
	a.entity.SetSomething(v) // flagged by config
}

type AnotherAggregate struct {
	entity AnEntity
}

func (a *AnotherAggregate) Update(v int) {
	a.entity.RestrictedSetter(v)
}

type NotTheAggregate struct {
	theEntity        AnEntity
	maybeTheEntity   *AnEntity
	theEntityForSure struct {
		*AnEntity
	}
}

func (n *NotTheAggregate) Fresh() {
	(&AnEntity{}).RestrictedSetter(1) // flagged
}

func (n *NotTheAggregate) Value() {
	n.theEntity.RestrictedSetter(2) // flagged
}

func (n *NotTheAggregate) Pointer() {
	n.maybeTheEntity.RestrictedSetter(3) // flagged
}

func (n *NotTheAggregate) Embedded() {
	n.theEntityForSure.RestrictedSetter(4) // flagged
}

func (n *NotTheAggregate) Unrestricted() {
	n.theEntity.SetSomething(5) // flagged by config
}

func Outside(e *AnEntity) {
	e.RestrictedSetter(6) // flagged
}

func ViaInterface(s Setter) {
	s.RestrictedSetter(7) // flagged with interfaces
}
