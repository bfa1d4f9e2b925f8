// Package gif implements a GIF87a/GIF89a decoder.
//
// Parse walks the block structure once and records where each frame's LZW data
// lives. Decoder.DecodeFrame expands one frame to 8-bit palette indices, and
// DecodeFrame32 and DecodeFrames32 compose frames into 32-bit A, R, G, B canvases.
package gif

const (
	blockExtension = 0x21
	blockImage     = 0x2c
	blockTrailer   = 0x3b

	extGraphicControl = 0xf9
	extApplication    = 0xff

	flagColorTable = 0x80
	flagInterlace  = 0x40
)

// Frame describes one image block.
type Frame struct {
	Left, Top     int
	Width, Height int
	Interlaced    bool

	// Palette is the local colour table as RGB triplets, nil when the frame uses
	// the global table. It aliases the source buffer.
	Palette []byte

	// HasAlpha reports whether Transparent is a transparent palette index.
	HasAlpha    bool
	Transparent int

	// Delay is the frame delay in milliseconds.
	Delay    int
	Disposal int

	// Start and End delimit the LZW data in the source buffer: Start is the
	// minimum code size byte, End follows the block terminator.
	Start, End int
}

// Header describes a parsed GIF file. The embedded Frame is the first frame.
type Header struct {
	Frame

	Version                   string
	ScreenWidth, ScreenHeight int
	Background                int
	Aspect                    int

	// GlobalPalette is the global colour table as RGB triplets, or nil.
	GlobalPalette []byte

	// LoopCount is the NETSCAPE2.0 repetition count, -1 when absent.
	LoopCount int

	// NumFrames counts every image block, including ones not recorded by ParseFrames.
	NumFrames int

	data []byte
}

// Identify reports whether data starts with a GIF signature.
func Identify(data []byte) bool {
	if len(data) < 6 {
		return false
	}

	s := string(data[:6])

	return s == "GIF87a" || s == "GIF89a"
}

// Data returns the source buffer the header was parsed from.
func (h *Header) Data() []byte {
	return h.data
}

func le16(b []byte) int {
	return int(b[0]) | int(b[1])<<8
}

// colorTable returns the colour table selected by flags starting at pos.
func colorTable(data []byte, pos int, flags byte) ([]byte, int, error) {
	if flags&flagColorTable == 0 {
		return nil, pos, nil
	}

	n := 3 * (2 << (flags & 7))
	if len(data)-pos < n {
		return nil, 0, ErrTruncated
	}

	return data[pos : pos+n], pos + n, nil
}

// skipSubBlocks skips a chain of data sub-blocks and its terminator.
func skipSubBlocks(data []byte, pos int) (int, error) {
	for {
		if pos >= len(data) {
			return 0, ErrTruncated
		}

		n := int(data[pos])
		pos++

		if n == 0 {
			return pos, nil
		}

		if len(data)-pos < n {
			return 0, ErrTruncated
		}

		pos += n
	}
}

// Parse validates the file structure, counts the frames and records the first one.
func Parse(data []byte) (*Header, error) {
	return ParseFrames(data, nil)
}

// ParseFrames is like Parse and also fills frames with the first len(frames)
// image blocks. Frames beyond that capacity are counted but not recorded.
func ParseFrames(data []byte, frames []Frame) (*Header, error) {
	if len(data) < 6 {
		return nil, ErrTruncated
	}

	if !Identify(data) {
		return nil, ErrNoMagic
	}

	if len(data) < 13 {
		return nil, ErrTruncated
	}

	h := &Header{
		Version:      string(data[3:6]),
		ScreenWidth:  le16(data[6:]),
		ScreenHeight: le16(data[8:]),
		Background:   int(data[11]),
		Aspect:       int(data[12]),
		LoopCount:    -1,
		data:         data,
	}

	var err error
	pos := 13
	if h.GlobalPalette, pos, err = colorTable(data, pos, data[10]); err != nil {
		return nil, err
	}

	// Graphic control state for the next image block.
	var gce Frame

	for pos < len(data) {
		switch data[pos] {
		case blockTrailer:
			return h, nil
		case blockExtension:
			if len(data)-pos < 3 {
				return nil, ErrTruncated
			}

			label, size := data[pos+1], int(data[pos+2])
			body := pos + 3
			if len(data)-body < size+1 {
				return nil, ErrTruncated
			}

			switch label {
			case extGraphicControl:
				if size < 4 {
					return nil, ErrBadExtension
				}

				b := data[body:]
				gce.HasAlpha = b[0]&1 != 0
				gce.Disposal = int(b[0]>>2) & 7
				gce.Delay = le16(b[1:]) * 10
				gce.Transparent = int(b[3])
			case extApplication:
				if size == 11 && string(data[body:body+11]) == "NETSCAPE2.0" {
					sub := body + 11
					if len(data)-sub >= 4 && data[sub] == 3 && data[sub+1] == 1 {
						h.LoopCount = le16(data[sub+2:])
					}
				}
			}

			if pos, err = skipSubBlocks(data, body+size); err != nil {
				return nil, err
			}
		case blockImage:
			if len(data)-pos < 10 {
				return nil, ErrTruncated
			}

			d := data[pos:]
			f := gce
			f.Left, f.Top = le16(d[1:]), le16(d[3:])
			f.Width, f.Height = le16(d[5:]), le16(d[7:])
			f.Interlaced = d[9]&flagInterlace != 0

			if f.Palette, pos, err = colorTable(data, pos+10, d[9]); err != nil {
				return nil, err
			}

			if pos >= len(data) {
				return nil, ErrTruncated
			}

			f.Start = pos
			if f.End, err = skipSubBlocks(data, pos+1); err != nil {
				return nil, err
			}

			pos = f.End
			gce = Frame{}

			if h.NumFrames == 0 {
				h.Frame = f
			}

			if h.NumFrames < len(frames) {
				frames[h.NumFrames] = f
			}

			h.NumFrames++
		default:
			return nil, ErrBadBlock
		}
	}

	return nil, ErrTruncated
}
