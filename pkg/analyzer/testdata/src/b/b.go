package b

import "a"

type Caller struct{}

func (Caller) Call(e *a.AnEntity) {
	e.RestrictedSetter() // want `Call to a\.AnEntity::RestrictedSetter is authorized only from:\n- AnAggregate\n- AnotherAggregate$`
	e.SetSomething()
}

// An unqualified allowlist entry refers to the declaring package only.
type AnAggregate struct{}

func (AnAggregate) Call(e *a.AnEntity) {
	e.RestrictedSetter() // want `Call to a\.AnEntity::RestrictedSetter`
}

func (AnAggregate) Delegate() {
	a.AnAggregate{}.DoSomething()
}
