package gif

const (
	maxCodeSize = 12
	maxCodes    = 1 << maxCodeSize
	stackSize   = maxCodes
)

// Row passes as {first row, row step}.
var (
	interlacePasses = [...][2]int{{0, 8}, {4, 8}, {2, 4}, {1, 2}}
	linearPasses    = [...][2]int{{0, 1}}
)

// Decoder expands LZW frame data. Its tables live inside the struct, so a
// Decoder can be reused for any number of frames without allocating.
type Decoder struct {
	// code stream
	data      []byte
	pos, end  int
	blockLeft int
	eof       bool
	bitBuf    uint32
	nbits     uint

	// code table
	codeSize   int
	clearCode  int
	endCode    int
	firstCode  int
	curSize    uint
	slot       int
	topSlot    int
	code0      int
	code1      int
	sp         int
	stack      [stackSize]byte
	suffix     [maxCodes]byte
	prefix     [maxCodes]uint16
	scratch    []byte
	passes     [][2]int
	pass       int
	row, x     int
	fw, fh     int
	dst        []byte
	dstW, dstH int
	vflip      bool
	done       bool
}

// NewDecoder returns a new Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// reset restores the code table to its initial state after a clear code.
func (d *Decoder) reset() {
	d.curSize = uint(d.codeSize + 1)
	d.slot = d.firstCode
	d.topSlot = 1 << d.curSize
}

// nextByte returns the next byte of the sub-block chain.
func (d *Decoder) nextByte() (byte, bool) {
	if d.blockLeft == 0 {
		if d.eof || d.pos >= d.end {
			d.eof = true
			return 0, false
		}

		n := int(d.data[d.pos])
		d.pos++

		if n == 0 || d.end-d.pos < n {
			d.eof = true
			return 0, false
		}

		d.blockLeft = n
	}

	b := d.data[d.pos]
	d.pos++
	d.blockLeft--

	return b, true
}

// nextCode reads one variable-width code, least significant bit first.
// It returns -1 when the data runs out.
func (d *Decoder) nextCode() int {
	for d.nbits < d.curSize {
		b, ok := d.nextByte()
		if !ok {
			return -1
		}

		d.bitBuf |= uint32(b) << d.nbits
		d.nbits += 8
	}

	c := int(d.bitBuf & (1<<d.curSize - 1))
	d.bitBuf >>= d.curSize
	d.nbits -= d.curSize

	return c
}

func (d *Decoder) push(b byte) {
	if d.sp < stackSize {
		d.stack[d.sp] = b
		d.sp++
	}
}

// expand pushes the string for raw onto the stack and extends the table.
func (d *Decoder) expand(raw int) {
	code := raw

	// A code not yet in the table is the previous string plus its first byte.
	// Out of range codes are treated the same way.
	if code >= d.slot {
		code = d.code0
		d.push(byte(d.code1))
	}

	for code >= d.firstCode && d.sp < stackSize {
		d.push(d.suffix[code])
		code = int(d.prefix[code])
	}

	d.push(byte(code))

	if d.slot < d.topSlot {
		d.code1 = code
		d.suffix[d.slot] = byte(code)
		d.prefix[d.slot] = uint16(d.code0)
		d.slot++
		d.code0 = raw
	}

	if d.slot >= d.topSlot && d.curSize < maxCodeSize {
		d.topSlot <<= 1
		d.curSize++
	}
}

// flush pops the stack into the frame. It returns false once every row is written.
func (d *Decoder) flush() bool {
	for d.sp > 0 && !d.done {
		d.sp--
		d.put(d.stack[d.sp])
	}

	d.sp = 0

	return !d.done
}

// put stores one palette index and advances the interlace position.
func (d *Decoder) put(v byte) {
	y := d.row
	if d.vflip {
		y = d.fh - 1 - d.row
	}

	if d.x < d.dstW && y < d.dstH {
		d.dst[y*d.dstW+d.x] = v
	}

	d.x++
	if d.x < d.fw {
		return
	}

	d.x = 0
	d.row += d.passes[d.pass][1]

	for d.row >= d.fh {
		d.pass++
		if d.pass >= len(d.passes) {
			d.done = true
			return
		}

		d.row = d.passes[d.pass][0]
	}
}

// DecodeFrame decodes frame f of h as 8-bit palette indices into dst, a
// width x height buffer with a stride of width bytes. Pixels outside the
// destination are dropped and destination pixels outside the frame are left
// untouched. When vflip is set rows are written bottom-up.
//
// It returns the number of source bytes consumed from the frame's data.
func (d *Decoder) DecodeFrame(h *Header, f *Frame, dst []byte, width, height int, vflip bool) (int, error) {
	if width < 0 || height < 0 || len(dst) < width*height {
		return 0, ErrShortBuf
	}

	data := h.data
	if f.Start >= f.End || f.End > len(data) {
		return 0, ErrTruncated
	}

	d.codeSize = int(data[f.Start])
	if d.codeSize < 2 || d.codeSize > 9 {
		return 0, ErrBadCodeSize
	}

	d.data, d.pos, d.end = data, f.Start+1, f.End
	d.blockLeft, d.eof, d.bitBuf, d.nbits = 0, false, 0, 0

	d.clearCode = 1 << d.codeSize
	d.endCode = d.clearCode + 1
	d.firstCode = d.clearCode + 2
	d.reset()
	d.code0, d.code1, d.sp = 0, 0, 0

	d.passes = linearPasses[:]
	if f.Interlaced {
		d.passes = interlacePasses[:]
	}

	d.dst, d.dstW, d.dstH = dst, width, height
	d.fw, d.fh, d.vflip = f.Width, f.Height, vflip
	d.pass, d.row, d.x = 0, 0, 0
	d.done = d.fw == 0 || d.fh == 0

	// A stream without a leading clear code starts as if it had one.
	ended, cleared := false, true
	for !d.done {
		code := d.nextCode()
		if code < 0 {
			break
		}

		if code == d.endCode {
			ended = true
			break
		}

		if code == d.clearCode {
			d.reset()
			cleared = true

			continue
		}

		if cleared {
			if code >= d.slot {
				code = 0
			}

			d.code0, d.code1 = code, code
			d.push(byte(code))
			cleared = false
		} else {
			d.expand(code)
		}

		d.flush()
	}

	d.dst = nil
	if !ended && !d.done {
		return d.pos - f.Start, ErrTruncated
	}

	return d.pos - f.Start, nil
}
