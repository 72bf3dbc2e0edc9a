package c

type Restricter interface{ Restricted() }

type Impl struct{}

//bouncer:allow-only-from Owner
func (*Impl) Restricted() {} // want Restricted:"allow-only-from Owner"

type Unrestricted struct{}

func (Unrestricted) Restricted() {}

var _ Restricter = &Impl{}

type Owner struct{}

func (Owner) Use(r Restricter) {
	r.Restricted()
}

type Stranger struct{}

func (Stranger) Use(r Restricter) {
	r.Restricted() // want `Call to c\.Impl::Restricted is authorized only from:\n- Owner$`
}
