package stermcom

// pendingOutput is the FIFO of bytes waiting to be sent to the device.
type pendingOutput struct {
	buf []byte
}

func (p *pendingOutput) push(b []byte) {
	p.buf = append(p.buf, b...)
}

func (p *pendingOutput) empty() bool {
	return len(p.buf) == 0
}

func (p *pendingOutput) len() int {
	return len(p.buf)
}

// front returns the oldest byte; callers check empty first.
func (p *pendingOutput) front() byte {
	return p.buf[0]
}

func (p *pendingOutput) popFront() {
	p.buf = p.buf[1:]
	if len(p.buf) == 0 {
		// release the backing array once drained
		p.buf = nil
	}
}
