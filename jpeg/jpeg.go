// Package jpeg implements a baseline JPEG decoder.
//
// Decoding is resumable: Decoder.DecodeHeader runs the marker state machine up
// to the start of the scan and saves its position, and Decoder.DecodeImage
// resumes from there and writes 32-bit A, R, G, B pixels into a caller owned
// buffer. Only 8-bit, Huffman coded, sequential images with one or three
// components are supported.
package jpeg

// JPEG markers.
const (
	markerSOF0 = 0xC0
	markerDHT  = 0xC4
	markerJPG  = 0xC8
	markerDAC  = 0xCC
	markerRST0 = 0xD0
	markerRST7 = 0xD7
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerDQT  = 0xDB
	markerDRI  = 0xDD
	markerAPP0 = 0xE0
	markerAPP1 = 0xE1
	markerTEM  = 0x01
)

// zigzag maps a zig-zag scan index to its natural order position.
var zigzag = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// Header describes a parsed JPEG image.
type Header struct {
	Width, Height int
	Components    int

	// Sampling holds the horizontal and vertical sampling factor of each
	// component in frame order.
	Sampling [3][2]int

	// Version is the JFIF version as major<<8|minor, zero without an APP0 JFIF segment.
	Version      int
	DensityUnits int
	XDensity     int
	YDensity     int

	RestartInterval int

	// Exif is the parsed APP1 Exif metadata, nil when absent or unreadable.
	Exif *Exif

	// Orientation is the Exif orientation (1 to 8), 1 when unknown.
	Orientation int

	data []byte
	scan int // offset of the entropy coded data
}

// Data returns the source buffer the header was parsed from.
func (h *Header) Data() []byte {
	return h.data
}

// Validate checks the fixed preamble of a JPEG file: SOI, an APP0 or APP1
// marker and a JFIF or Exif identifier.
func Validate(data []byte) error {
	if len(data) < 16 {
		return ErrTooShort
	}

	if data[0] != 0xFF || data[1] != markerSOI {
		return ErrNoMagic
	}

	if data[2] != 0xFF || (data[3] != markerAPP0 && data[3] != markerAPP1) {
		return ErrNoMagic
	}

	if id := string(data[6:10]); id != "JFIF" && id != "Exif" {
		return ErrNoFormat
	}

	return nil
}

// Identify reports whether data starts like a supported JPEG file.
func Identify(data []byte) bool {
	return Validate(data) == nil
}

func be16(b []byte) int {
	return int(b[0])<<8 | int(b[1])
}

// component is a frame component.
type component struct {
	id     int
	h, v   int // sampling factors
	tq     int // quantization table
	td, ta int // DC and AC huffman tables
	expX   int // horizontal replication factor
	expY   int // vertical replication factor
	pred   int32
}

// Decoder holds the tables and cursors of one JPEG decode. It is reused across
// images; the zero value is ready to use.
type Decoder struct {
	qt        [4][64]int32 // zig-zag order
	qtDefined [4]bool
	huff      [8]huffTable // class*4 + id

	comps   [3]component
	ncomp   int
	order   [3]int // frame component index of each scan component
	hmax    int
	vmax    int
	mcusX   int
	mcusY   int
	nextRST int

	header *Header

	// Bit reader over the entropy coded segment.
	data      []byte
	pos, end  int
	buf       uint64
	bufBits   int
	markerHit bool

	block [64]int32
	mcu   [3][32 * 32]byte

	dst          []byte
	dstW         int
	clipW, clipH int
}

// NewDecoder returns a new Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// errDecode carries an Error out of the scan decoding hot path.
type errDecode struct{ err Error }

func (d *Decoder) panic(err Error) {
	panic(errDecode{err})
}

// Reset forgets the tables and the saved scan position.
func (d *Decoder) Reset() {
	d.qtDefined = [4]bool{}
	for i := range d.huff {
		d.huff[i].defined = false
	}

	d.ncomp, d.hmax, d.vmax, d.mcusX, d.mcusY = 0, 0, 0, 0, 0
	d.header = nil
	d.data, d.dst = nil, nil
	d.pos, d.end, d.buf, d.bufBits, d.markerHit = 0, 0, 0, 0, false
}

// DecodeHeader parses data up to the start of the scan. The tables it reads stay
// in d for a following DecodeImage with the returned header.
func (d *Decoder) DecodeHeader(data []byte) (*Header, error) {
	d.Reset()

	if err := Validate(data); err != nil {
		return nil, err
	}

	h := &Header{Orientation: 1, data: data}
	if err := d.readMarkers(h); err != ErrNoBuffer {
		return nil, err
	}

	d.header = h

	return h, nil
}

// readMarkers walks the marker segments of h.data. It stops with ErrNoBuffer
// at the first scan, as no destination is known yet.
func (d *Decoder) readMarkers(h *Header) error {
	data := h.data

	pos := 2
	for {
		if pos >= len(data) {
			return ErrEndOfData
		}

		if data[pos] != 0xFF {
			return ErrBadMarker
		}

		// Fill bytes.
		for pos < len(data) && data[pos] == 0xFF {
			pos++
		}

		if pos >= len(data) {
			return ErrEndOfData
		}

		marker := data[pos]
		pos++

		switch {
		case marker == markerEOI:
			return ErrEndOfData
		case marker == markerTEM, marker >= markerRST0 && marker <= markerSOI:
			continue
		}

		if len(data)-pos < 2 {
			return ErrEndOfData
		}

		length := be16(data[pos:])
		if length < 2 {
			return ErrBadMarker
		}

		if len(data)-pos < length {
			return ErrEndOfData
		}

		seg := data[pos+2 : pos+length]
		pos += length

		var err error
		switch marker {
		case markerAPP0:
			err = d.decodeAPP0(h, seg)
		case markerAPP1:
			d.decodeAPP1(h, seg)
		case markerDQT:
			err = d.decodeDQT(seg)
		case markerDHT:
			err = d.decodeDHT(seg)
		case markerSOF0:
			err = d.decodeSOF0(h, seg)
		case markerDRI:
			err = d.decodeDRI(h, seg)
		case markerSOS:
			if err = d.decodeSOS(seg); err != nil {
				return err
			}

			// Everything up to the entropy coded data is known.
			h.scan = pos

			return ErrNoBuffer
		default:
			if marker > markerSOF0 && marker <= 0xCF && marker != markerDHT && marker != markerJPG {
				err = ErrNoSupport
			}
		}

		if err != nil {
			return err
		}
	}
}

// decodeAPP0 reads the JFIF version and pixel density.
func (d *Decoder) decodeAPP0(h *Header, seg []byte) error {
	if len(seg) < 5 || string(seg[:5]) != "JFIF\x00" {
		return nil
	}

	if len(seg) < 12 {
		return ErrBadVers
	}

	h.Version = be16(seg[5:])
	if h.Version < 0x0100 || h.Version > 0x0102 {
		return ErrBadVers
	}

	h.DensityUnits = int(seg[7])
	h.XDensity = be16(seg[8:])
	h.YDensity = be16(seg[10:])

	return nil
}

// decodeAPP1 reads Exif metadata. Unreadable metadata is ignored.
func (d *Decoder) decodeAPP1(h *Header, seg []byte) {
	if len(seg) < 6 || string(seg[:6]) != "Exif\x00\x00" {
		return
	}

	exif, err := ParseExif(seg[6:])
	if err != nil {
		return
	}

	h.Exif = exif
	if exif.Orientation >= 1 && exif.Orientation <= 8 {
		h.Orientation = exif.Orientation
	}
}

// decodeDQT reads one or more quantization tables.
func (d *Decoder) decodeDQT(seg []byte) error {
	if len(seg) == 0 {
		return ErrBadDQT
	}

	for len(seg) > 0 {
		pq, tq := int(seg[0]>>4), int(seg[0]&15)
		if pq > 1 || tq > 3 {
			return ErrBadDQT
		}

		seg = seg[1:]

		q := &d.qt[tq]
		if pq == 0 {
			if len(seg) < 64 {
				return ErrBadDQT
			}

			for i := range q {
				q[i] = int32(seg[i])
			}

			seg = seg[64:]
		} else {
			if len(seg) < 128 {
				return ErrBadDQT
			}

			for i := range q {
				q[i] = int32(be16(seg[2*i:]))
			}

			seg = seg[128:]
		}

		d.qtDefined[tq] = true
	}

	return nil
}

// decodeDHT reads one or more huffman tables.
func (d *Decoder) decodeDHT(seg []byte) error {
	if len(seg) == 0 {
		return ErrBadDHT
	}

	for len(seg) > 0 {
		tc := seg[0]
		if tc&0xEC != 0 {
			return ErrBadDHT
		}

		if len(seg) < 17 {
			return ErrBadDHT
		}

		counts := seg[1:17]

		n := 0
		for _, c := range counts {
			n += int(c)
		}

		if n > 256 || len(seg)-17 < n {
			return ErrBadDHT
		}

		t := &d.huff[int(tc>>4)*4+int(tc&3)]
		if err := t.build(counts, seg[17:17+n]); err != nil {
			return err
		}

		seg = seg[17+n:]
	}

	return nil
}

// decodeSOF0 reads the baseline frame header.
func (d *Decoder) decodeSOF0(h *Header, seg []byte) error {
	if d.ncomp != 0 || len(seg) < 6 {
		return ErrBadSOF0
	}

	if seg[0] != 8 {
		return ErrBitDepth
	}

	h.Height = be16(seg[1:])
	h.Width = be16(seg[3:])

	n := int(seg[5])
	switch {
	case n == 0 || n > 3:
		return ErrBadSOF0
	case n == 2:
		return ErrNoSupport
	case len(seg) != 6+3*n:
		return ErrBadSOF0
	case h.Width == 0 || h.Height == 0:
		return ErrBadSOF0
	}

	d.hmax, d.vmax = 1, 1
	for i := 0; i < n; i++ {
		p := seg[6+3*i:]
		c := &d.comps[i]
		c.id = int(p[0])
		c.h, c.v = int(p[1]>>4), int(p[1]&15)
		c.tq = int(p[2])

		if c.h == 0 || c.h > 4 || c.v == 0 || c.v > 4 || c.tq > 3 {
			return ErrBadSOF0
		}

		for j := 0; j < i; j++ {
			if d.comps[j].id == c.id {
				return ErrBadSOF0
			}
		}

		// A single component image is not interleaved and its MCU is one block.
		if n == 1 {
			c.h, c.v = 1, 1
		}

		d.hmax, d.vmax = max(d.hmax, c.h), max(d.vmax, c.v)
	}

	for i := 0; i < n; i++ {
		c := &d.comps[i]
		if d.hmax%c.h != 0 || d.vmax%c.v != 0 {
			return ErrNoSupport
		}

		c.expX, c.expY = d.hmax/c.h, d.vmax/c.v
		h.Sampling[i] = [2]int{c.h, c.v}
	}

	d.ncomp = n
	d.mcusX = (h.Width + 8*d.hmax - 1) / (8 * d.hmax)
	d.mcusY = (h.Height + 8*d.vmax - 1) / (8 * d.vmax)
	h.Components = n

	return nil
}

// decodeDRI reads the restart interval.
func (d *Decoder) decodeDRI(h *Header, seg []byte) error {
	if len(seg) != 2 {
		return ErrBadDRI
	}

	h.RestartInterval = be16(seg)

	return nil
}

// decodeSOS reads the scan header and binds each component to its tables.
func (d *Decoder) decodeSOS(seg []byte) error {
	if d.ncomp == 0 || len(seg) < 1 {
		return ErrBadSOS
	}

	ns := int(seg[0])
	if len(seg) != 1+2*ns+3 {
		return ErrBadSOS
	}

	if ns != d.ncomp {
		return ErrNoSupport
	}

	for i := 0; i < ns; i++ {
		id, tables := int(seg[1+2*i]), seg[2+2*i]

		ci := -1
		for j := 0; j < d.ncomp; j++ {
			if d.comps[j].id == id {
				ci = j
			}
		}

		if ci < 0 {
			return ErrBadSOS
		}

		for j := 0; j < i; j++ {
			if d.order[j] == ci {
				return ErrBadSOS
			}
		}

		c := &d.comps[ci]
		c.td, c.ta = int(tables>>4), int(tables&15)
		if c.td > 3 || c.ta > 3 {
			return ErrBadSOS
		}

		if !d.huff[c.td].defined || !d.huff[4+c.ta].defined || !d.qtDefined[c.tq] {
			return ErrNoTable
		}

		d.order[i] = ci
	}

	p := seg[1+2*ns:]
	if p[0] != 0 || p[1] != 63 || p[2] != 0 {
		return ErrNoSupport
	}

	return nil
}
