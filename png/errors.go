package png

import (
	"strconv"

	"github.com/gen2brain/pixdec/internal/codes"
)

// Error is a PNG decoding error code. All codes are negative.
type Error int

// PNG error codes.
const (
	ErrTooShort  Error = -(iota + 1) // chunk or stream ends before its declared length
	ErrNoMagic                       // bad signature
	ErrBadCRC                        // chunk CRC mismatch
	ErrBadOrder                      // chunk out of order
	ErrTypeDupl                      // duplicate singleton chunk
	ErrTypeMiss                      // required chunk missing
	ErrUnknCrit                      // unknown critical chunk
	ErrBadIHDR                       // IHDR missing or wrong length
	ErrBadSize                       // zero or oversized image dimensions
	ErrBadColor                      // invalid colour type
	ErrBadDepth                      // invalid or unsupported bit depth
	ErrBadCompr                      // unsupported compression method
	ErrBadFiltr                      // unsupported filter method
	ErrBadIntrl                      // unsupported interlace method
	ErrBadPLTE                       // PLTE length invalid
	ErrBadCM                         // zlib compression method is not deflate
	ErrBadCI                         // zlib window size too large
	ErrBadFlg                        // zlib header check bits wrong
	ErrFDictSet                      // zlib preset dictionary requested
	ErrBadBType                      // reserved deflate block type
	ErrBadBlkLen                     // stored block length check failed
	ErrMaxCodes                      // too many literal/length or distance codes
	ErrNoCodes                       // empty or incomplete code table
	ErrBadCode                       // invalid symbol or distance
	ErrNoBlkEnd                      // compressed data ends before the final block ends
	ErrBadType                       // invalid scanline filter type
	ErrInvFile                       // data beyond the last scanline
	ErrIncomplete                    // image data ends before the last scanline
	ErrShortBuf                      // destination smaller than its declared dimensions
	ErrBadState                      // image decode without a parsed header
)

var errText = map[Error]string{
	ErrTooShort:   "data too short",
	ErrNoMagic:    "not a PNG file",
	ErrBadCRC:     "chunk CRC mismatch",
	ErrBadOrder:   "chunk out of order",
	ErrTypeDupl:   "duplicate chunk",
	ErrTypeMiss:   "required chunk missing",
	ErrUnknCrit:   "unknown critical chunk",
	ErrBadIHDR:    "invalid IHDR chunk",
	ErrBadSize:    "invalid image dimensions",
	ErrBadColor:   "invalid color type",
	ErrBadDepth:   "unsupported bit depth",
	ErrBadCompr:   "unsupported compression method",
	ErrBadFiltr:   "unsupported filter method",
	ErrBadIntrl:   "unsupported interlace method",
	ErrBadPLTE:    "invalid palette length",
	ErrBadCM:      "zlib compression method is not deflate",
	ErrBadCI:      "zlib window size too large",
	ErrBadFlg:     "zlib header check failed",
	ErrFDictSet:   "zlib preset dictionary not supported",
	ErrBadBType:   "invalid deflate block type",
	ErrBadBlkLen:  "stored block length mismatch",
	ErrMaxCodes:   "too many huffman codes",
	ErrNoCodes:    "empty huffman code table",
	ErrBadCode:    "invalid huffman code or distance",
	ErrNoBlkEnd:   "deflate stream ends before block end",
	ErrBadType:    "invalid filter type",
	ErrInvFile:    "too much image data",
	ErrIncomplete: "not enough image data",
	ErrShortBuf:   "destination buffer too small",
	ErrBadState:   "image decode without header",
}

func (e Error) Error() string {
	if s, ok := errText[e]; ok {
		return "png: " + s
	}

	return "png: error " + strconv.Itoa(int(e))
}

// Is reports whether e belongs to the error class target.
func (e Error) Is(target error) bool {
	switch e {
	case ErrTooShort, ErrNoBlkEnd, ErrIncomplete:
		return target == codes.ErrTruncated
	case ErrBadCRC, ErrBadBlkLen, ErrBadFlg:
		return target == codes.ErrIntegrity
	case ErrBadDepth, ErrBadColor, ErrBadCompr, ErrBadFiltr, ErrBadIntrl, ErrBadCM, ErrFDictSet:
		return target == codes.ErrUnsupported
	case ErrBadOrder, ErrTypeDupl, ErrTypeMiss, ErrBadState:
		return target == codes.ErrOrder
	case ErrMaxCodes, ErrBadCode:
		return target == codes.ErrExhausted
	default:
		return target == codes.ErrMalformed
	}
}
