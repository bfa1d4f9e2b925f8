package png

const (
	windowSize = 1 << 15
	windowMask = windowSize - 1
)

// Decoder holds the mutable state of one PNG image decode. Its tables and the
// sliding window are reused across images; the zero value is ready to use.
type Decoder struct {
	h *Header

	// Compressed input cursor. The stream spans consecutive IDAT chunks.
	data     []byte
	pos      int // next byte to read
	chunkEnd int // end of the current IDAT payload
	bitBuf   uint32
	bitCnt   uint

	window   [windowSize]byte
	total    int // bytes produced so far
	maxDist  int // window size declared by the zlib header
	lit      huffman
	dist     huffman
	lens     [maxLitCodes + maxDistCodes]uint8
	fixedLit *huffman
	fixedDst *huffman

	// Scanline state.
	dst          []byte
	dstW, dstH   int
	pass         int
	line         int
	lineBytes    int
	keep         int // leading bytes of the scanline that reach the destination
	filled       int // bytes of the current scanline including the filter byte
	bpp          int // bytes per complete pixel, at least 1
	cur, prev    []byte
	finished     bool
	clipW, clipH int
}

// errDecode carries an Error out of the inflate hot path.
type errDecode struct{ err Error }

func (d *Decoder) panic(err Error) {
	panic(errDecode{err})
}

// Reset clears the per-image state. Allocated scanline buffers are kept.
func (d *Decoder) Reset() {
	cur, prev := d.cur, d.prev
	fl, fd := d.fixedLit, d.fixedDst
	d.h = nil
	d.data = nil
	d.dst = nil
	d.pos, d.chunkEnd, d.bitBuf, d.bitCnt = 0, 0, 0, 0
	d.total, d.maxDist = 0, 0
	d.pass, d.line, d.lineBytes, d.keep, d.filled, d.bpp = 0, 0, 0, 0, 0, 0
	d.finished = false
	d.cur, d.prev = cur[:0], prev[:0]
	d.fixedLit, d.fixedDst = fl, fd
}

// DecodeImage inflates the image data described by h and writes it into dst as
// 32-bit A, R, G, B pixels with a stride of width*4. Only the part of the image
// inside width x height is written. The header must come from Parse.
func (d *Decoder) DecodeImage(h *Header, dst []byte, width, height int) (err error) {
	if h == nil || !h.parsed || h.idat == 0 {
		return ErrBadState
	}

	if width < 0 || height < 0 || len(dst) < width*height*4 {
		return ErrShortBuf
	}

	d.Reset()
	d.h = h
	d.data = h.data
	d.dst = dst
	d.dstW, d.dstH = width, height
	d.clipW, d.clipH = min(width, h.Width), min(height, h.Height)

	// Position the reader on the first IDAT payload.
	length := be32(d.data[h.idat:])
	d.pos = h.idat + 8
	d.chunkEnd = d.pos + length

	defer func() {
		if r := recover(); r != nil {
			if de, ok := r.(errDecode); ok {
				err = de.err
			} else {
				panic(r)
			}
		}
	}()

	if err := d.zlibHeader(); err != nil {
		return err
	}

	d.startImage()
	d.inflate()

	if !d.finished {
		return ErrIncomplete
	}

	return nil
}

// zlibHeader validates the two byte zlib stream header.
func (d *Decoder) zlibHeader() error {
	cmf, ok := d.nextByte()
	if !ok {
		return ErrTooShort
	}

	flg, ok := d.nextByte()
	if !ok {
		return ErrTooShort
	}

	if cmf&0x0f != 8 {
		return ErrBadCM
	}

	ci := cmf >> 4
	if ci > 7 {
		return ErrBadCI
	}

	if (int(cmf)<<8|int(flg))%31 != 0 {
		return ErrBadFlg
	}

	if flg&0x20 != 0 {
		return ErrFDictSet
	}

	d.maxDist = 1 << (ci + 8)

	return nil
}

// nextByte returns the next compressed byte, crossing IDAT chunk boundaries.
func (d *Decoder) nextByte() (byte, bool) {
	for d.pos >= d.chunkEnd {
		// Skip the CRC of the finished chunk and look at the next header.
		next := d.chunkEnd + 4
		if next+8 > len(d.data) || string(d.data[next+4:next+8]) != "IDAT" {
			return 0, false
		}

		length := be32(d.data[next:])
		d.pos = next + 8
		d.chunkEnd = d.pos + length
		if d.chunkEnd > len(d.data) {
			return 0, false
		}
	}

	b := d.data[d.pos]
	d.pos++

	return b, true
}

// bits reads n bits, least significant bit first.
func (d *Decoder) bits(n uint) int {
	for d.bitCnt < n {
		b, ok := d.nextByte()
		if !ok {
			d.panic(ErrNoBlkEnd)
		}

		d.bitBuf |= uint32(b) << d.bitCnt
		d.bitCnt += 8
	}

	v := int(d.bitBuf & (1<<n - 1))
	d.bitBuf >>= n
	d.bitCnt -= n

	return v
}

// alignByte drops the bits left in the current byte.
func (d *Decoder) alignByte() {
	drop := d.bitCnt & 7
	d.bitBuf >>= drop
	d.bitCnt -= drop
}
