package coding

import (
	"sort"

	"github.com/INLOpen/textstore/core"
)

// BWTEncode computes the Burrows-Wheeler transform of data. It returns the
// last column of the sorted rotation matrix and the rank of rotation 0 among
// the sorted rotations. Equal rotations are ordered by start position.
func BWTEncode(data []byte) ([]byte, int) {
	out := make([]byte, len(data))
	return out, BWTEncodeTo(out, data)
}

// BWTEncodeTo is BWTEncode writing the last column into dst, which must be
// at least len(data) bytes long.
func BWTEncodeTo(dst, data []byte) int {
	n := len(data)
	if n == 0 {
		return 0
	}
	rotations := sortRotations(data)
	start := 0
	for i, p := range rotations {
		if p == 0 {
			start = i
			dst[i] = data[n-1]
			continue
		}
		dst[i] = data[p-1]
	}
	return start
}

// BWTDecode inverts BWTEncode. start must lie in [0, len(permuted)), except
// for the empty input where it must be 0.
func BWTDecode(start int, permuted []byte) ([]byte, error) {
	n := len(permuted)
	if n == 0 {
		if start != 0 {
			return nil, core.NewCorruptBlockError("bwt start %d for an empty block", start)
		}
		return []byte{}, nil
	}
	if start < 0 || start >= n {
		return nil, core.NewCorruptBlockError("bwt start %d outside [0, %d)", start, n)
	}

	// Stable counting sort of the last column yields the first column; lf
	// maps each row to the row of the rotation that starts one byte earlier.
	var next [256]int
	for _, b := range permuted {
		next[b]++
	}
	sum := 0
	for c := range next {
		cnt := next[c]
		next[c] = sum
		sum += cnt
	}
	lf := make([]int32, n)
	for i, b := range permuted {
		lf[i] = int32(next[b])
		next[b]++
	}

	out := make([]byte, n)
	row := int32(start)
	for k := n - 1; k >= 0; k-- {
		out[k] = permuted[row]
		row = lf[row]
	}
	return out, nil
}

// sortRotations returns the start positions of all cyclic rotations of data
// in lexicographic order, using prefix doubling with counting sorts.
func sortRotations(data []byte) []int32 {
	n := len(data)
	p := make([]int32, n)
	c := make([]int32, n)
	cntSize := n
	if cntSize < 256 {
		cntSize = 256
	}
	cnt := make([]int32, cntSize)

	for _, b := range data {
		cnt[b]++
	}
	for i := 1; i < 256; i++ {
		cnt[i] += cnt[i-1]
	}
	for i := n - 1; i >= 0; i-- {
		cnt[data[i]]--
		p[cnt[data[i]]] = int32(i)
	}
	classes := int32(1)
	c[p[0]] = 0
	for i := 1; i < n; i++ {
		if data[p[i]] != data[p[i-1]] {
			classes++
		}
		c[p[i]] = classes - 1
	}

	pn := make([]int32, n)
	cn := make([]int32, n)
	for h := 1; h < n && int(classes) < n; h <<= 1 {
		for i := 0; i < n; i++ {
			v := int(p[i]) - h
			if v < 0 {
				v += n
			}
			pn[i] = int32(v)
		}
		for i := int32(0); i < classes; i++ {
			cnt[i] = 0
		}
		for i := 0; i < n; i++ {
			cnt[c[pn[i]]]++
		}
		for i := int32(1); i < classes; i++ {
			cnt[i] += cnt[i-1]
		}
		for i := n - 1; i >= 0; i-- {
			cls := c[pn[i]]
			cnt[cls]--
			p[cnt[cls]] = pn[i]
		}
		cn[p[0]] = 0
		classes = 1
		for i := 1; i < n; i++ {
			cur, prev := int(p[i]), int(p[i-1])
			if c[cur] != c[prev] || c[(cur+h)%n] != c[(prev+h)%n] {
				classes++
			}
			cn[cur] = classes - 1
		}
		c, cn = cn, c
	}

	// Periodic inputs leave runs of identical rotations; order each run by
	// start position so the permutation is a total order.
	if int(classes) < n {
		for i := 0; i < n; {
			j := i + 1
			for j < n && c[p[j]] == c[p[i]] {
				j++
			}
			if j-i > 1 {
				run := p[i:j]
				sort.Slice(run, func(a, b int) bool { return run[a] < run[b] })
			}
			i = j
		}
	}
	return p
}
