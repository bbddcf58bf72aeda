package coding

// MoveToFront remaps bytes to their rank in a recency list. The list starts
// in identity order and the coded byte is moved to the front after every
// step, so encoder and decoder stay in lockstep.
type MoveToFront struct {
	order [256]byte
}

// NewMoveToFront creates a coder in identity order.
func NewMoveToFront() *MoveToFront {
	m := &MoveToFront{}
	m.Reset()
	return m
}

// Reset restores the identity order.
func (m *MoveToFront) Reset() {
	for i := range m.order {
		m.order[i] = byte(i)
	}
}

// Encode returns the current rank of b and moves b to the front.
func (m *MoveToFront) Encode(b byte) byte {
	j := 0
	for m.order[j] != b {
		j++
	}
	copy(m.order[1:j+1], m.order[:j])
	m.order[0] = b
	return byte(j)
}

// Decode returns the byte at rank code and moves it to the front.
func (m *MoveToFront) Decode(code byte) byte {
	b := m.order[code]
	copy(m.order[1:int(code)+1], m.order[:code])
	m.order[0] = b
	return b
}

// EncodeInPlace runs the forward pass over buf.
func (m *MoveToFront) EncodeInPlace(buf []byte) {
	for i, b := range buf {
		buf[i] = m.Encode(b)
	}
}

// DecodeInPlace runs the inverse pass over buf.
func (m *MoveToFront) DecodeInPlace(buf []byte) {
	for i, code := range buf {
		buf[i] = m.Decode(code)
	}
}
