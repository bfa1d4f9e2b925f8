package jpeg

import (
	"strconv"

	"github.com/gen2brain/pixdec/internal/codes"
)

// Error is a JPEG decoding error code. All codes are negative.
type Error int

// JPEG error codes.
const (
	ErrTooShort  Error = -(iota + 1) // file shorter than the fixed preamble
	ErrNoMagic                       // no SOI or no APP0/APP1 after it
	ErrNoFormat                      // neither a JFIF nor an Exif identifier
	ErrBadVers                       // unsupported JFIF version
	ErrBadDQT                        // malformed quantization table
	ErrBadDHT                        // malformed huffman table
	ErrBadSOF0                       // malformed frame header
	ErrBitDepth                      // sample precision other than 8 bits
	ErrNoSupport                     // progressive, hierarchical, lossless or arithmetic coding
	ErrDecoder                       // invalid entropy coded data
	ErrNoBuffer                      // scan reached without a destination
	ErrEndOfData                     // data ends before the image is complete
	ErrBadState                      // image decode without a parsed header
	ErrBadDRI                        // malformed restart interval
	ErrBadSOS                        // malformed scan header
	ErrNoTable                       // scan refers to an undefined table
	ErrShortBuf                      // destination smaller than its declared dimensions
	ErrBadMarker                     // missing marker prefix or segment length below two
)

var errText = map[Error]string{
	ErrTooShort:  "data too short",
	ErrNoMagic:   "not a JPEG file",
	ErrNoFormat:  "missing JFIF or Exif identifier",
	ErrBadVers:   "unsupported JFIF version",
	ErrBadDQT:    "invalid DQT segment",
	ErrBadDHT:    "invalid DHT segment",
	ErrBadSOF0:   "invalid SOF0 segment",
	ErrBitDepth:  "unsupported sample precision",
	ErrNoSupport: "unsupported coding process",
	ErrDecoder:   "invalid entropy coded data",
	ErrNoBuffer:  "no destination buffer",
	ErrEndOfData: "unexpected end of data",
	ErrBadState:  "image decode without header",
	ErrBadDRI:    "invalid DRI segment",
	ErrBadSOS:    "invalid SOS segment",
	ErrNoTable:   "undefined table",
	ErrShortBuf:  "destination buffer too small",
	ErrBadMarker: "invalid marker",
}

func (e Error) Error() string {
	if s, ok := errText[e]; ok {
		return "jpeg: " + s
	}

	return "jpeg: error " + strconv.Itoa(int(e))
}

// Is reports whether e belongs to the error class target.
func (e Error) Is(target error) bool {
	switch e {
	case ErrTooShort, ErrEndOfData:
		return target == codes.ErrTruncated
	case ErrBadVers, ErrBitDepth, ErrNoSupport:
		return target == codes.ErrUnsupported
	case ErrBadState, ErrNoBuffer, ErrNoTable:
		return target == codes.ErrOrder
	default:
		return target == codes.ErrMalformed
	}
}
