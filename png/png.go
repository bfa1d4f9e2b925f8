// Package png implements a PNG decoder with its own inflate engine.
//
// Decoding is split in two phases. Parse validates the signature, the IHDR chunk
// and the order and checksums of every chunk. Decoder.DecodeImage then inflates
// the IDAT stream and writes 32-bit pixels in A, R, G, B byte order into a
// caller supplied buffer.
package png

// Colour types.
const (
	ColorGray      = 0
	ColorRGB       = 2
	ColorPalette   = 3
	ColorGrayAlpha = 4
	ColorRGBA      = 6
)

const (
	signature = "\x89PNG\r\n\x1a\n"

	// Bytes in a chunk besides its payload: length, type and CRC.
	chunkOverhead = 12

	maxLineBytes = 1 << 26
)

// Adam7 pass geometry.
var (
	passStartX = [7]int{0, 4, 0, 2, 0, 1, 0}
	passStartY = [7]int{0, 0, 4, 0, 2, 0, 1}
	passStepX  = [7]int{8, 8, 4, 4, 2, 2, 1}
	passStepY  = [7]int{8, 8, 8, 4, 4, 2, 2}
)

// Header describes a parsed PNG image.
type Header struct {
	Width, Height int
	Depth         int
	ColorType     int
	Compression   int
	Filter        int
	Interlace     int

	// Channels is the number of samples per pixel.
	Channels int

	// Palette holds the raw PLTE payload (RGB triplets). It aliases the source buffer.
	Palette []byte

	// PassPixels and PassLines give the pixel and scanline count of each Adam7 pass.
	// For non-interlaced images only the last entry is used.
	PassPixels [7]int
	PassLines  [7]int

	// NumIDAT is the number of IDAT chunks.
	NumIDAT int

	data    []byte
	idat    int // offset of the first IDAT chunk
	ihdrEnd int
	parsed  bool
}

// Identify reports whether data starts with the PNG signature.
func Identify(data []byte) bool {
	return len(data) >= len(signature) && string(data[:len(signature)]) == signature
}

func be32(b []byte) int {
	return int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])
}

// readChunk validates the chunk at off and returns its type, payload and the
// offset of the following chunk.
func readChunk(data []byte, off int) (typ string, payload []byte, next int, err error) {
	if len(data)-off < chunkOverhead {
		return "", nil, 0, ErrTooShort
	}

	length := be32(data[off:])
	if length < 0 || length > len(data)-off-chunkOverhead {
		return "", nil, 0, ErrTooShort
	}

	body := data[off+4 : off+8+length]
	stored := uint32(be32(data[off+8+length:]))
	if crc32(body) != stored {
		return "", nil, 0, ErrBadCRC
	}

	return string(body[:4]), body[4:], off + chunkOverhead + length, nil
}

// ParseHeader validates the signature and the IHDR chunk.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < len(signature) {
		return nil, ErrTooShort
	}

	if !Identify(data) {
		return nil, ErrNoMagic
	}

	typ, p, next, err := readChunk(data, len(signature))
	if err != nil {
		return nil, err
	}

	if typ != "IHDR" || len(p) != 13 {
		return nil, ErrBadIHDR
	}

	h := &Header{
		Width:       be32(p[0:]),
		Height:      be32(p[4:]),
		Depth:       int(p[8]),
		ColorType:   int(p[9]),
		Compression: int(p[10]),
		Filter:      int(p[11]),
		Interlace:   int(p[12]),
		data:        data,
		ihdrEnd:     next,
	}

	if h.Width <= 0 || h.Height <= 0 || h.Width > 0x7fffffff || h.Height > 0x7fffffff {
		return nil, ErrBadSize
	}

	switch h.ColorType {
	case ColorGray:
		h.Channels = 1
		switch h.Depth {
		case 1, 2, 4, 8:
		default:
			return nil, ErrBadDepth
		}
	case ColorPalette:
		h.Channels = 1
		switch h.Depth {
		case 1, 2, 4, 8:
		default:
			return nil, ErrBadDepth
		}
	case ColorRGB:
		h.Channels = 3
	case ColorGrayAlpha:
		h.Channels = 2
	case ColorRGBA:
		h.Channels = 4
	default:
		return nil, ErrBadColor
	}

	if h.Channels > 1 && h.Depth != 8 {
		return nil, ErrBadDepth
	}

	if h.Compression != 0 {
		return nil, ErrBadCompr
	}

	if h.Filter != 0 {
		return nil, ErrBadFiltr
	}

	if h.Interlace > 1 {
		return nil, ErrBadIntrl
	}

	if h.lineBytes(h.Width) > maxLineBytes {
		return nil, ErrBadSize
	}

	w, ht := h.Width, h.Height
	if h.Interlace == 1 {
		h.PassPixels = [7]int{(w + 7) / 8, (w + 3) / 8, (w + 3) / 4, (w + 1) / 4, (w + 1) / 2, w / 2, w}
		h.PassLines = [7]int{(ht + 7) / 8, (ht + 7) / 8, (ht + 3) / 8, (ht + 3) / 4, (ht + 1) / 4, (ht + 1) / 2, ht / 2}
	} else {
		h.PassPixels[6] = w
		h.PassLines[6] = ht
	}

	return h, nil
}

// lineBytes returns the byte length of a scanline of n pixels, without the filter byte.
func (h *Header) lineBytes(n int) int {
	return (h.Channels*n*h.Depth + 7) / 8
}

// Chunk bits tracked while walking the stream.
const (
	seenPLTE = 1 << iota
	seenIDAT
	seenIDATDone
	seenTRNS
	seenCHRM
	seenGAMA
	seenICC
	seenSBIT
	seenBKGD
	seenHIST
	seenPHYS
)

// singletons maps the ancillary chunks that may appear once and only before
// IDAT to their tracking bit and whether they must also precede PLTE.
var singletons = map[string]struct {
	bit        int
	beforePLTE bool
}{
	"cHRM": {seenCHRM, true},
	"gAMA": {seenGAMA, true},
	"iCCP": {seenICC, true},
	"sRGB": {seenICC, true},
	"sBIT": {seenSBIT, true},
	"bKGD": {seenBKGD, false},
	"pHYs": {seenPHYS, false},
}

// ParseChunks walks the chunks following IHDR, enforcing ordering and duplication
// rules and validating every CRC. It records the location of the image data.
func (h *Header) ParseChunks() error {
	data := h.data
	off := h.ihdrEnd
	seen := 0
	h.NumIDAT = 0
	h.parsed = false

	for off < len(data) {
		start := off
		typ, p, next, err := readChunk(data, off)
		if err != nil {
			return err
		}

		off = next

		if typ != "IDAT" && seen&seenIDAT != 0 {
			seen |= seenIDATDone
		}

		switch typ {
		case "IHDR":
			return ErrTypeDupl
		case "IDAT":
			if seen&seenIDATDone != 0 {
				return ErrBadOrder
			}

			if h.ColorType == ColorPalette && seen&seenPLTE == 0 {
				return ErrTypeMiss
			}

			if seen&seenIDAT == 0 {
				h.idat = start
			}

			seen |= seenIDAT
			h.NumIDAT++
		case "IEND":
			if seen&seenIDAT == 0 {
				return ErrTypeMiss
			}

			h.parsed = true

			return nil
		case "PLTE":
			if seen&(seenIDAT|seenTRNS|seenBKGD|seenHIST) != 0 {
				return ErrBadOrder
			}

			if seen&seenPLTE != 0 {
				return ErrTypeDupl
			}

			if len(p) == 0 || len(p)%3 != 0 || len(p) > 768 {
				return ErrBadPLTE
			}

			if h.ColorType == ColorGray || h.ColorType == ColorGrayAlpha {
				return ErrBadPLTE
			}

			seen |= seenPLTE
			h.Palette = p
		case "tRNS":
			if seen&seenIDAT != 0 {
				return ErrBadOrder
			}

			if seen&seenTRNS != 0 {
				return ErrTypeDupl
			}

			if h.ColorType == ColorPalette && seen&seenPLTE == 0 {
				return ErrTypeMiss
			}

			seen |= seenTRNS
		case "hIST":
			if seen&seenPLTE == 0 {
				return ErrTypeMiss
			}

			if seen&seenIDAT != 0 {
				return ErrBadOrder
			}

			if seen&seenHIST != 0 {
				return ErrTypeDupl
			}

			seen |= seenHIST
		case "sPLT":
			if seen&seenIDAT != 0 {
				return ErrBadOrder
			}
		case "tEXt", "zTXt", "iTXt", "tIME":
		default:
			if s, ok := singletons[typ]; ok {
				if seen&seenIDAT != 0 || (s.beforePLTE && seen&seenPLTE != 0) {
					return ErrBadOrder
				}

				if seen&s.bit != 0 {
					return ErrTypeDupl
				}

				seen |= s.bit

				continue
			}

			// Ancillary chunks have bit 5 of the first type byte set.
			if typ[0]&0x20 == 0 {
				return ErrUnknCrit
			}
		}
	}

	// The stream ended on a chunk boundary without IEND.
	return ErrTooShort
}

// Parse runs ParseHeader followed by ParseChunks.
func Parse(data []byte) (*Header, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	if err := h.ParseChunks(); err != nil {
		return nil, err
	}

	return h, nil
}

// Data returns the source buffer the header was parsed from.
func (h *Header) Data() []byte {
	return h.data
}

// paletteColor returns the RGB entry at index i, or black when i is outside the palette.
func (h *Header) paletteColor(i int) (r, g, b byte) {
	if o := i * 3; o+2 < len(h.Palette) {
		return h.Palette[o], h.Palette[o+1], h.Palette[o+2]
	}

	return 0, 0, 0
}
