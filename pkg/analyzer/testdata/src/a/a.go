package a

type AnEntity struct{}

// RestrictedSetter may only be called by the aggregates.
//
//bouncer:allow-only-from AnAggregate
//bouncer:allow-only-from AnotherAggregate
func (e *AnEntity) RestrictedSetter() {} // want RestrictedSetter:"allow-only-from AnAggregate, AnotherAggregate"

// SetSomething is not restricted.
func (e *AnEntity) SetSomething() {}

func (e *AnEntity) Act() {
	e.RestrictedSetter()
	e.SetSomething()
}

func (e *AnEntity) ActOn(other *AnEntity) {
	// Another instance of the declaring type is fine too.
	other.RestrictedSetter()
}

type AnAggregate struct{}

func (AnAggregate) DoSomething() {
	entity := &AnEntity{}
	entity.RestrictedSetter()
	entity.SetSomething()
	func() {
		entity.RestrictedSetter()
	}()
}

type Describer interface{ Describe() string }

type NotTheAggregate struct {
	theEntity        AnEntity
	maybeTheEntity   *AnEntity
	theEntityForSure struct {
		*AnEntity
		Describer
	}
}

func (n *NotTheAggregate) DoSomethingItShouldntDo() {
	entity := &AnEntity{}
	entity.RestrictedSetter() // want `^Call to a\.AnEntity::RestrictedSetter is authorized only from:\n- AnAggregate\n- AnotherAggregate$`
	entity.SetSomething()
	n.theEntity.RestrictedSetter() // want `Call to a\.AnEntity::RestrictedSetter is authorized only from:`
	n.theEntity.SetSomething()
	n.maybeTheEntity.RestrictedSetter() // want `Call to a\.AnEntity::RestrictedSetter is authorized only from:`
	n.maybeTheEntity.SetSomething()
	n.theEntityForSure.RestrictedSetter() // want `Call to a\.AnEntity::RestrictedSetter is authorized only from:`
	n.theEntityForSure.SetSomething()
}

// A Wrapper's embedded pointer may refer to any AnEntity.
type Wrapper struct {
	*AnEntity
}

func (w *Wrapper) Poke() {
	w.RestrictedSetter()          // want `Call to a\.AnEntity::RestrictedSetter`
	(*w).RestrictedSetter()       // want `Call to a\.AnEntity::RestrictedSetter`
	w.AnEntity.RestrictedSetter() // want `Call to a\.AnEntity::RestrictedSetter`
}

func (w *Wrapper) PokeOther(other *Wrapper) {
	other.RestrictedSetter() // want `Call to a\.AnEntity::RestrictedSetter`
}

type AnotherEntity struct{}

//bouncer:allow-only-from AnAggregate
func (*AnotherEntity) RestrictedSetter() {} // want RestrictedSetter:"allow-only-from AnAggregate"

type Entities interface {
	*AnEntity | *AnotherEntity
	RestrictedSetter()
}

func SetAll[T Entities](items ...T) {
	for _, item := range items {
		item.RestrictedSetter() // want `Call to a\.AnEntity::RestrictedSetter` `Call to a\.AnotherEntity::RestrictedSetter`
	}
}

type AnotherAggregate[T Entities] struct {
	item T
}

func (g *AnotherAggregate[T]) Set() {
	g.item.RestrictedSetter() // want `Call to a\.AnotherEntity::RestrictedSetter is authorized only from:\n- AnAggregate$`
}

type Restricter interface{ RestrictedSetter() }

var _ Restricter = &AnEntity{}

func viaInterface(r Restricter) {
	// Not checked unless interfaces are enabled.
	r.RestrictedSetter()
}

func outside() {
	anEntityOutsideOfAggregate := &AnEntity{}
	anEntityOutsideOfAggregate.RestrictedSetter() // want `Call to a\.AnEntity::RestrictedSetter`
	anEntityOutsideOfAggregate.SetSomething()
	(*AnEntity).RestrictedSetter(anEntityOutsideOfAggregate) // want `Call to a\.AnEntity::RestrictedSetter`
}

var _ = func() bool {
	(&AnEntity{}).RestrictedSetter() // want `Call to a\.AnEntity::RestrictedSetter`
	return true
}()
