package coding

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/INLOpen/textstore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveToFront(t *testing.T) {
	m := NewMoveToFront()
	assert.Equal(t, byte(3), m.Encode(3))
	assert.Equal(t, byte(0), m.Encode(3))
	assert.Equal(t, byte(1), m.Encode(0), "0 was pushed back by one")
	assert.Equal(t, byte(255), m.Encode(255))

	in := []byte("bananaaaa\x00\xff\xff")
	buf := append([]byte(nil), in...)
	m.Reset()
	m.EncodeInPlace(buf)
	assert.Equal(t, []byte{'b', 'b', 'n', 1, 1, 1, 0, 0, 0, 3, 255, 0}, buf)

	m.Reset()
	m.DecodeInPlace(buf)
	assert.Equal(t, in, buf)
}

func TestMoveToFront_RunsBecomeZeros(t *testing.T) {
	m := NewMoveToFront()
	buf := bytes.Repeat([]byte{200}, 10)
	m.EncodeInPlace(buf)
	assert.Equal(t, byte(200), buf[0])
	assert.Equal(t, make([]byte, 9), buf[1:])
}

func TestBlockCodec_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	codec := NewBlockCodec(nil)
	for n := 0; n <= 300; n++ {
		data := make([]byte, n)
		switch n % 3 {
		case 0:
			rng.Read(data)
		case 1:
			for i := range data {
				data[i] = byte('a' + rng.Intn(4))
			}
		default:
			for i := range data {
				data[i] = byte(i % 7)
			}
		}
		var buf bytes.Buffer
		require.NoError(t, codec.Encode(&buf, data))

		src := NewSource(buf.Bytes())
		out, err := codec.Decode(src)
		require.NoError(t, err, "n=%d", n)
		require.Equal(t, data, out, "n=%d", n)
		require.Zero(t, src.Remaining(), "n=%d: decoder must consume the whole block", n)
	}
}

func TestBlockCodec_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeBlock(&buf, nil))
	// n=0, start=0, empty table.
	assert.Equal(t, []byte{0, 0, 0}, buf.Bytes())

	out, consumed, err := DecodeBlock(buf.Bytes())
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 3, consumed)
}

func TestBlockCodec_Compresses(t *testing.T) {
	data := bytes.Repeat([]byte("Hello, World! "), 200)
	var buf bytes.Buffer
	require.NoError(t, EncodeBlock(&buf, data))
	assert.Less(t, buf.Len(), len(data)/4)
}

func TestBlockCodec_CorruptInput(t *testing.T) {
	var good bytes.Buffer
	require.NoError(t, EncodeBlock(&good, []byte("Smoke test, smoke test")))
	raw := good.Bytes()

	cases := map[string][]byte{
		"empty":              {},
		"missing start":      {5},
		"start out of range": {3, 3, 1, 'a', 1, 0},
		"start for empty":    {0, 1, 0},
		"varint overflow":    {0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01},
		"truncated stream":   raw[:len(raw)-1],
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodeBlock(in)
			require.Error(t, err)
			assert.True(t, core.IsCorruptBlock(err), "got %v", err)
		})
	}
}
