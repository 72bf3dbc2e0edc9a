package d

type Conn struct{}

// Close is restricted by configuration only.
func (*Conn) Close() {}

//bouncer:allow-only-from Pool
func (*Conn) Reset() {} // want Reset:"allow-only-from Pool"

type Pool struct{}

func (Pool) Release(c *Conn) {
	c.Reset()
	c.Close()
}

// Janitor is permitted by configuration.
type Janitor struct{}

func (Janitor) Sweep(c *Conn) {
	c.Reset()
	c.Close()
}

func leak(c *Conn) {
	c.Reset() // want `Call to d\.Conn::Reset is authorized only from:\n- Pool\n- d\.Janitor$`
	c.Close() // want `Call to d\.Conn::Close is authorized only from:\n- d\.Pool\n- d\.Janitor$`
}
