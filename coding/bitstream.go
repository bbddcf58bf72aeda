package coding

// bitWriter packs codewords MSB-first into bytes.
type bitWriter struct {
	buf   []byte
	acc   uint64
	nbits uint
}

func (bw *bitWriter) writeBits(code uint32, length uint8) {
	bw.acc = bw.acc<<length | uint64(code)
	bw.nbits += uint(length)
	for bw.nbits >= 8 {
		bw.nbits -= 8
		bw.buf = append(bw.buf, byte(bw.acc>>bw.nbits))
	}
}

// flush pads the last partial byte with zero bits.
func (bw *bitWriter) flush() []byte {
	if bw.nbits > 0 {
		bw.buf = append(bw.buf, byte(bw.acc<<(8-bw.nbits)))
		bw.nbits = 0
	}
	return bw.buf
}

// bitReader reads bits MSB-first from a byte slice.
type bitReader struct {
	buf  []byte
	pos  int  // index of the byte holding the next bit
	bit  uint // bits of buf[pos] already consumed
	cur  byte
	have bool
}

func newBitReader(buf []byte) *bitReader {
	return &bitReader{buf: buf}
}

func (br *bitReader) readBit() (uint64, bool) {
	if !br.have {
		if br.pos >= len(br.buf) {
			return 0, false
		}
		br.cur = br.buf[br.pos]
		br.have = true
	}
	v := uint64(br.cur>>(7-br.bit)) & 1
	br.bit++
	if br.bit == 8 {
		br.bit = 0
		br.pos++
		br.have = false
	}
	return v, true
}

// consumed returns the number of bytes touched, counting a partial byte.
func (br *bitReader) consumed() int {
	if br.bit > 0 {
		return br.pos + 1
	}
	return br.pos
}

// paddingIsZero reports whether the unread bits of a partial byte are zero.
func (br *bitReader) paddingIsZero() bool {
	if br.bit == 0 {
		return true
	}
	return br.cur&(0xFF>>br.bit) == 0
}
