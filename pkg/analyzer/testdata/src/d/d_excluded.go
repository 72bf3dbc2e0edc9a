package d

func excluded(c *Conn) {
	c.Reset()
	c.Close()
}
