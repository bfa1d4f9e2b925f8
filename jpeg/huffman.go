package jpeg

// huffRange maps the canonical codes of one bit length onto the value table.
// A 16-bit window v falls in the range when min <= v < max; its value index
// is offset + (v-min)>>shift and the code is 16-shift bits long.
type huffRange struct {
	min, max uint32
	shift    uint
	offset   int
}

// huffTable is a decoding table built from a DHT segment.
type huffTable struct {
	ranges  [16]huffRange
	nranges int
	values  [256]byte
	defined bool
}

// build fills t from the 16 code counts and the values of a DHT table.
func (t *huffTable) build(counts []byte, values []byte) error {
	t.nranges = 0
	t.defined = false

	code, offset := uint32(0), 0
	for i, n := range counts {
		bits := uint(i + 1)
		code += uint32(n)
		if code > 1<<bits {
			return ErrBadDHT
		}

		if n != 0 {
			shift := 16 - bits
			first := code - uint32(n)
			t.ranges[t.nranges] = huffRange{
				min:    first << shift,
				max:    code << shift,
				shift:  shift,
				offset: offset,
			}
			t.nranges++
			offset += int(n)
		}

		code <<= 1
	}

	if offset != len(values) || offset > len(t.values) {
		return ErrBadDHT
	}

	copy(t.values[:], values)
	t.defined = true

	return nil
}

// decodeHuff reads one symbol coded with t.
func (d *Decoder) decodeHuff(t *huffTable) int {
	v := uint32(d.showBits(16))

	for i := 0; i < t.nranges; i++ {
		r := &t.ranges[i]
		if v < r.max {
			if v < r.min {
				break
			}

			d.skipBits(int(16 - r.shift))

			return int(t.values[r.offset+int((v-r.min)>>r.shift)])
		}
	}

	d.panic(d.underflow(ErrDecoder))

	return 0
}

// adjust[s] is subtracted from an s-bit magnitude whose top bit is clear to
// obtain the negative coefficient it stands for.
var adjust [17]int32

func init() {
	for s := 1; s < len(adjust); s++ {
		adjust[s] = 1<<s - 1
	}
}

// extend sign-extends the s-bit magnitude v.
func extend(v int32, s int) int32 {
	if v < 1<<(s-1) {
		v -= adjust[s]
	}

	return v
}
