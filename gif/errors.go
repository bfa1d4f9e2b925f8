package gif

import (
	"strconv"

	"github.com/gen2brain/pixdec/internal/codes"
)

// Error is a GIF decoding error code. All codes are negative.
type Error int

// GIF error codes.
const (
	ErrTruncated    Error = -(iota + 1) // data ends inside a block
	ErrNoMagic                          // bad signature
	ErrBadExtension                     // malformed extension block
	ErrBadBlock                         // unknown block kind
	ErrBadCodeSize                      // LZW minimum code size out of range
	ErrNoPalette                        // neither a local nor a global colour table
	ErrShortBuf                         // destination smaller than its declared dimensions
	ErrBadFrame                         // frame index out of range
)

var errText = map[Error]string{
	ErrTruncated:    "truncated data",
	ErrNoMagic:      "not a GIF file",
	ErrBadExtension: "invalid extension block",
	ErrBadBlock:     "invalid block kind",
	ErrBadCodeSize:  "invalid LZW code size",
	ErrNoPalette:    "no color table",
	ErrShortBuf:     "destination buffer too small",
	ErrBadFrame:     "frame index out of range",
}

func (e Error) Error() string {
	if s, ok := errText[e]; ok {
		return "gif: " + s
	}

	return "gif: error " + strconv.Itoa(int(e))
}

// Is reports whether e belongs to the error class target.
func (e Error) Is(target error) bool {
	if e == ErrTruncated {
		return target == codes.ErrTruncated
	}

	return target == codes.ErrMalformed
}
