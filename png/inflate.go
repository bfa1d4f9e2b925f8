package png

import "sync"

const (
	maxBits      = 15
	maxLitCodes  = 286
	maxDistCodes = 30
	fixedLitLen  = 288
	fastBits     = 9
	fastMask     = 1<<fastBits - 1
)

// huffman is a canonical Huffman decoding table. Codes of up to fastBits bits are
// resolved with one lookup; longer codes walk the per-length counts.
type huffman struct {
	count  [maxBits + 1]uint16
	symbol [fixedLitLen]uint16
	// fast entries hold length<<9 | symbol, zero when the code is longer than fastBits.
	fast [1 << fastBits]uint16
}

// Length and distance base values and extra bits.
var (
	lengthBase  = [29]int{3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258}
	lengthExtra = [29]uint{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0}
	distBase    = [30]int{1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577}
	distExtra   = [30]uint{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}

	// Order in which code length code lengths are stored.
	clOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}
)

var (
	fixedOnce sync.Once
	fixedLit  huffman
	fixedDist huffman
)

func buildFixed() {
	var lens [fixedLitLen]uint8
	for i := range lens {
		switch {
		case i < 144:
			lens[i] = 8
		case i < 256:
			lens[i] = 9
		case i < 280:
			lens[i] = 7
		default:
			lens[i] = 8
		}
	}

	fixedLit.build(lens[:])

	var dl [maxDistCodes]uint8
	for i := range dl {
		dl[i] = 5
	}

	fixedDist.build(dl[:])
}

// build constructs the table from code lengths. It returns the number of unused
// code points (zero for a complete code) or a negative value for an
// over-subscribed code.
func (h *huffman) build(lengths []uint8) int {
	h.count = [maxBits + 1]uint16{}
	h.fast = [1 << fastBits]uint16{}

	for _, l := range lengths {
		h.count[l]++
	}

	if int(h.count[0]) == len(lengths) {
		return 0
	}

	left := 1
	for l := 1; l <= maxBits; l++ {
		left <<= 1
		left -= int(h.count[l])
		if left < 0 {
			return left
		}
	}

	var offs [maxBits + 2]int
	for l := 1; l <= maxBits; l++ {
		offs[l+1] = offs[l] + int(h.count[l])
	}

	for sym, l := range lengths {
		if l != 0 {
			h.symbol[offs[l]] = uint16(sym)
			offs[l]++
		}
	}

	// Assign canonical codes and fill the lookup for the short ones. Deflate
	// sends Huffman codes most significant bit first, so the index is bit reversed.
	var next [maxBits + 1]int
	code := 0
	for l := 1; l <= maxBits; l++ {
		next[l] = code
		code = (code + int(h.count[l])) << 1
	}

	for sym, l := range lengths {
		if l == 0 {
			continue
		}

		c := next[l]
		next[l]++

		if l > fastBits {
			continue
		}

		rev := 0
		for i := uint8(0); i < l; i++ {
			rev = rev<<1 | (c>>i)&1
		}

		entry := uint16(l)<<9 | uint16(sym)
		for i := rev; i < 1<<fastBits; i += 1 << l {
			h.fast[i] = entry
		}
	}

	return left
}

// decodeSym decodes one symbol with table h.
func (d *Decoder) decodeSym(h *huffman) int {
	for d.bitCnt < fastBits {
		b, ok := d.nextByte()
		if !ok {
			break
		}

		d.bitBuf |= uint32(b) << d.bitCnt
		d.bitCnt += 8
	}

	if e := h.fast[d.bitBuf&fastMask]; e != 0 {
		if n := uint(e >> 9); n <= d.bitCnt {
			d.bitBuf >>= n
			d.bitCnt -= n

			return int(e & 0x1ff)
		}
	}

	code, first, index := 0, 0, 0
	for l := 1; l <= maxBits; l++ {
		code |= d.bits(1)
		count := int(h.count[l])
		if code-count < first {
			return int(h.symbol[index+code-first])
		}

		index += count
		first += count
		first <<= 1
		code <<= 1
	}

	d.panic(ErrBadCode)

	return 0
}

// inflate decodes deflate blocks until the final one.
func (d *Decoder) inflate() {
	for {
		final := d.bits(1)

		switch d.bits(2) {
		case 0:
			d.stored()
		case 1:
			fixedOnce.Do(buildFixed)
			d.codes(&fixedLit, &fixedDist)
		case 2:
			d.dynamic()
			d.codes(&d.lit, &d.dist)
		default:
			d.panic(ErrBadBType)
		}

		if final == 1 {
			return
		}
	}
}

func (d *Decoder) stored() {
	d.alignByte()

	n := d.bits(16)
	if n != ^d.bits(16)&0xffff {
		d.panic(ErrBadBlkLen)
	}

	for ; n > 0; n-- {
		d.put(byte(d.bits(8)))
	}
}

// dynamic reads the code length tables of a dynamic block.
func (d *Decoder) dynamic() {
	nlen := d.bits(5) + 257
	ndist := d.bits(5) + 1
	ncode := d.bits(4) + 4

	if nlen > maxLitCodes || ndist > maxDistCodes {
		d.panic(ErrMaxCodes)
	}

	var clLens [19]uint8
	for i := 0; i < ncode; i++ {
		clLens[clOrder[i]] = uint8(d.bits(3))
	}

	var cl huffman
	if cl.build(clLens[:]) != 0 {
		d.panic(ErrNoCodes)
	}

	lens := d.lens[:nlen+ndist]
	for i := 0; i < len(lens); {
		sym := d.decodeSym(&cl)
		if sym < 16 {
			lens[i] = uint8(sym)
			i++

			continue
		}

		var v uint8
		var rep int
		switch sym {
		case 16:
			if i == 0 {
				d.panic(ErrBadCode)
			}

			v = lens[i-1]
			rep = 3 + d.bits(2)
		case 17:
			rep = 3 + d.bits(3)
		default:
			rep = 11 + d.bits(7)
		}

		if i+rep > len(lens) {
			d.panic(ErrBadCode)
		}

		for ; rep > 0; rep-- {
			lens[i] = v
			i++
		}
	}

	if lens[256] == 0 {
		d.panic(ErrNoCodes)
	}

	if left := d.lit.build(lens[:nlen]); left < 0 || (left > 0 && nlen-int(d.lit.count[0]) != 1) {
		d.panic(ErrNoCodes)
	}

	if left := d.dist.build(lens[nlen:]); left < 0 || (left > 0 && ndist-int(d.dist.count[0]) != 1) {
		d.panic(ErrNoCodes)
	}
}

// codes decodes literal, length and distance symbols of one block.
func (d *Decoder) codes(lit, dist *huffman) {
	for {
		sym := d.decodeSym(lit)
		if sym < 256 {
			d.put(byte(sym))

			continue
		}

		if sym == 256 {
			return
		}

		sym -= 257
		if sym >= len(lengthBase) {
			d.panic(ErrBadCode)
		}

		n := lengthBase[sym] + d.bits(lengthExtra[sym])

		ds := d.decodeSym(dist)
		if ds >= maxDistCodes {
			d.panic(ErrBadCode)
		}

		back := distBase[ds] + d.bits(distExtra[ds])
		if back > d.total || back > d.maxDist {
			d.panic(ErrBadCode)
		}

		for ; n > 0; n-- {
			d.put(d.window[(d.total-back)&windowMask])
		}
	}
}

// put appends one decompressed byte to the window and the scanline.
func (d *Decoder) put(b byte) {
	d.window[d.total&windowMask] = b
	d.total++
	d.scan(b)
}
