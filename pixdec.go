// Package pixdec decodes GIF, baseline JPEG and PNG images into 32-bit
// A, R, G, B pixel buffers.
//
// A Decoder identifies the format with DecodeHeader and decodes into a caller
// owned buffer with DecodeImage. Animated GIF files can be decoded all at once
// with DecodeImageMulti or one frame at a time with DecodeImageFrame.
//
// Decode, DecodeAll and DecodeConfig wrap the same decoders for use with the
// standard image package, where the formats are also registered.
package pixdec

import (
	"errors"

	"github.com/gen2brain/pixdec/gif"
	"github.com/gen2brain/pixdec/internal/codes"
	"github.com/gen2brain/pixdec/jpeg"
	"github.com/gen2brain/pixdec/png"
)

// Error classes. Every error returned by the gif, jpeg and png packages
// matches exactly one of them with errors.Is.
var (
	ErrMalformed   = codes.ErrMalformed
	ErrIntegrity   = codes.ErrIntegrity
	ErrUnsupported = codes.ErrUnsupported
	ErrOrder       = codes.ErrOrder
	ErrExhausted   = codes.ErrExhausted
	ErrTruncated   = codes.ErrTruncated
)

// Facade errors.
var (
	ErrUnknownFormat   = errors.New("pixdec: unknown image format")
	ErrInvalidArgument = errors.New("pixdec: invalid argument")
	ErrBadState        = errors.New("pixdec: image info does not match decoder state")
	ErrTooLarge        = errors.New("pixdec: image dimensions too large")
)

// Type is an image format.
type Type int

// Image formats.
const (
	TypeUnknown Type = iota
	TypeGIF
	TypeJPEG
	TypePNG
)

// String returns the lower case format name.
func (t Type) String() string {
	switch t {
	case TypeGIF:
		return "gif"
	case TypeJPEG:
		return "jpeg"
	case TypePNG:
		return "png"
	default:
		return "unknown"
	}
}

// SelectorAnim asks ImageInfo for the frame delays of an animation.
const SelectorAnim = 0x616e696d // 'anim'

// Info describes an image identified by DecodeHeader.
type Info struct {
	Type      Type
	Width     int
	Height    int
	NumFrames int

	// Data is the source buffer, nil when the format is unknown.
	Data []byte
}

// Decoder holds the state of each format decoder. A Decoder is not safe for
// concurrent use; separate Decoders share nothing.
type Decoder struct {
	gif  *gif.Decoder
	jpeg *jpeg.Decoder
	png  *png.Decoder

	info    *Info
	gifHdr  *gif.Header
	frames  []gif.Frame
	jpegHdr *jpeg.Header
	pngHdr  *png.Header

	// 8-bit frame buffer for DecodeImageFrame.
	scratch            []byte
	scratchW, scratchH int
}

// NewDecoder returns a new Decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		gif:  gif.NewDecoder(),
		jpeg: jpeg.NewDecoder(),
		png:  &png.Decoder{},
	}
}

// Reset drops the parsed header. Scratch buffers are kept.
func (d *Decoder) Reset() {
	d.info = nil
	d.gifHdr, d.jpegHdr, d.pngHdr = nil, nil, nil
	d.frames = d.frames[:0]
	d.jpeg.Reset()
	d.png.Reset()
}

// DecodeHeader identifies data and parses its header. Formats are tried in the
// order GIF, JPEG, PNG. The returned Info is valid for the following
// DecodeImage calls until the next DecodeHeader or Reset.
//
// When no format matches, the Info has TypeUnknown and no data, and the error
// is ErrUnknownFormat. Header errors of an identified format are returned as
// reported by its package.
func (d *Decoder) DecodeHeader(data []byte) (*Info, error) {
	d.Reset()

	info := &Info{Data: data}

	switch {
	case gif.Identify(data):
		h, err := gif.Parse(data)
		if err != nil {
			return info, err
		}

		if cap(d.frames) < h.NumFrames {
			d.frames = make([]gif.Frame, h.NumFrames)
		}

		d.frames = d.frames[:h.NumFrames]
		if h, err = gif.ParseFrames(data, d.frames); err != nil {
			return info, err
		}

		d.gifHdr = h
		info.Type = TypeGIF
		info.Width, info.Height = h.ScreenWidth, h.ScreenHeight
		info.NumFrames = h.NumFrames
	case jpeg.Identify(data):
		h, err := d.jpeg.DecodeHeader(data)
		if err != nil {
			return info, err
		}

		d.jpegHdr = h
		info.Type = TypeJPEG
		info.Width, info.Height = h.Width, h.Height
		info.NumFrames = 1
	case png.Identify(data):
		h, err := png.Parse(data)
		if err != nil {
			return info, err
		}

		d.pngHdr = h
		info.Type = TypePNG
		info.Width, info.Height = h.Width, h.Height
		info.NumFrames = 1
	default:
		info.Data = nil

		return info, ErrUnknownFormat
	}

	d.info = info

	return info, nil
}

// DecodeImage decodes the image described by info into dst as 32-bit A, R, G, B
// pixels with a stride of width*4. Only the first frame of a GIF is decoded.
func (d *Decoder) DecodeImage(info *Info, dst []byte, width, height int) error {
	if info == nil || info != d.info {
		return ErrBadState
	}

	switch info.Type {
	case TypeGIF:
		if len(d.frames) == 0 {
			return gif.ErrBadFrame
		}

		return d.gif.DecodeFrames32(d.gifHdr, d.frames[:1], dst, width, height, false)
	case TypeJPEG:
		return d.jpeg.DecodeImage(d.jpegHdr, dst, width, height)
	case TypePNG:
		return d.png.DecodeImage(d.pngHdr, dst, width, height)
	}

	return ErrUnknownFormat
}

// DecodeImageMulti decodes every frame of a GIF into dst, which holds
// NumFrames consecutive width x height canvases. Each frame is composed over
// the one before it.
func (d *Decoder) DecodeImageMulti(info *Info, dst []byte, width, height int) error {
	if info == nil || info != d.info {
		return ErrBadState
	}

	if info.Type != TypeGIF {
		return ErrInvalidArgument
	}

	return d.gif.DecodeFrames32(d.gifHdr, d.frames, dst, width, height, false)
}

// DecodeImageFrame decodes GIF frame n over the canvas in dst. Frames must be
// decoded in order starting at 0, and dst must keep the previous frame between
// calls.
func (d *Decoder) DecodeImageFrame(info *Info, dst []byte, width, height, n int) error {
	if info == nil || info != d.info {
		return ErrBadState
	}

	if info.Type != TypeGIF {
		return ErrInvalidArgument
	}

	if n < 0 || n >= len(d.frames) {
		return gif.ErrBadFrame
	}

	if width < 0 || height < 0 {
		return gif.ErrShortBuf
	}

	if d.scratch == nil || d.scratchW != width || d.scratchH != height {
		d.scratch = make([]byte, width*height)
		d.scratchW, d.scratchH = width, height
	}

	return d.gif.DecodeFrame32(d.gifHdr, &d.frames[n], dst, dst, width, height, d.scratch, false)
}

// ImageInfo answers an extended query about info. With SelectorAnim it fills
// buf with the delay of every GIF frame in milliseconds and returns the frame
// count; buf must hold exactly NumFrames entries.
func (d *Decoder) ImageInfo(info *Info, selector int, buf []int) (int, error) {
	if info == nil || info != d.info {
		return 0, ErrBadState
	}

	if selector != SelectorAnim || info.Type != TypeGIF || len(buf) != info.NumFrames {
		return 0, ErrInvalidArgument
	}

	for i := range d.frames {
		buf[i] = d.frames[i].Delay
	}

	return len(d.frames), nil
}
