package pixdec

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/gen2brain/pixdec/gif"
)

// Options specifies decoding parameters.
type Options struct {
	// Frame selects the GIF frame returned by Decode. Earlier frames are
	// composed first, so the result is the canvas as shown at that frame.
	Frame int
	// AutoRotate applies the EXIF orientation of a JPEG image, so the decoded
	// image is rotated or flipped to its intended viewing orientation.
	AutoRotate bool
}

// Animation is a decoded GIF with every frame composed on the full canvas.
type Animation struct {
	Frames []*image.NRGBA
	// Delay is the delay of each frame in milliseconds.
	Delay []int
	// LoopCount is the NETSCAPE2.0 repetition count, -1 when absent.
	LoopCount int
}

// MaxImageBytes limits the pixel memory Decode and DecodeAll allocate for one
// image, counting every frame of an animation.
var MaxImageBytes = 1 << 30

// canvasSize returns the byte size of one width x height canvas, failing when
// frames of them would exceed MaxImageBytes.
func canvasSize(width, height, frames int) (int, error) {
	if width < 0 || height < 0 || frames < 0 {
		return 0, ErrTooLarge
	}

	if width == 0 || height == 0 {
		return 0, nil
	}

	limit := MaxImageBytes / 4
	if width > limit/height {
		return 0, ErrTooLarge
	}

	size := width * height * 4
	if frames > 0 && frames > MaxImageBytes/size {
		return 0, ErrTooLarge
	}

	return size, nil
}

// decoderPool is a pool of decoders to reduce allocation overhead.
var decoderPool = sync.Pool{
	New: func() interface{} {
		return NewDecoder()
	},
}

func getDecoder() *Decoder {
	return decoderPool.Get().(*Decoder)
}

func putDecoder(d *Decoder) {
	d.Reset()
	decoderPool.Put(d)
}

// Interface to check if a reader knows its remaining length.
type readerWithLen interface {
	Len() int
}

// readAllData reads data from r, pre-allocating if the size is known.
func readAllData(r io.Reader) ([]byte, error) {
	if rl, ok := r.(readerWithLen); ok {
		size := rl.Len()
		if size > 0 {
			data := make([]byte, size)
			_, err := io.ReadFull(r, data)
			if err != nil {
				return nil, fmt.Errorf("failed to read image data: %w", err)
			}

			return data, nil
		}
	}

	return io.ReadAll(r)
}

// Decode reads a GIF, JPEG or PNG image from r. The image is returned as
// *image.NRGBA. It accepts an optional Options struct to control decoding.
func Decode(r io.Reader, opts ...*Options) (image.Image, error) {
	data, err := readAllData(r)
	if err != nil {
		return nil, err
	}

	var o Options
	if len(opts) > 0 && opts[0] != nil {
		o = *opts[0]
	}

	d := getDecoder()
	defer putDecoder(d)

	info, err := d.DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	w, h := info.Width, info.Height
	if _, err := canvasSize(w, h, 1); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	if info.Type == TypeGIF && o.Frame != 0 {
		if o.Frame < 0 || o.Frame >= info.NumFrames {
			return nil, gif.ErrBadFrame
		}

		for i := 0; i <= o.Frame; i++ {
			if err := d.DecodeImageFrame(info, img.Pix, w, h, i); err != nil {
				return nil, err
			}
		}
	} else if err := d.DecodeImage(info, img.Pix, w, h); err != nil {
		return nil, err
	}

	argbToNRGBA(img.Pix)

	if o.AutoRotate && info.Type == TypeJPEG && d.jpegHdr.Orientation > 1 {
		img = transform(img, d.jpegHdr.Orientation)
	}

	return img, nil
}

// DecodeAll reads every frame of an image from r. Formats other than GIF
// produce a single frame with no delay.
func DecodeAll(r io.Reader) (*Animation, error) {
	data, err := readAllData(r)
	if err != nil {
		return nil, err
	}

	d := getDecoder()
	defer putDecoder(d)

	info, err := d.DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	w, h := info.Width, info.Height

	frames := 1
	if info.Type == TypeGIF {
		frames = info.NumFrames
	}

	size, err := canvasSize(w, h, frames)
	if err != nil {
		return nil, err
	}

	if info.Type != TypeGIF {
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		if err := d.DecodeImage(info, img.Pix, w, h); err != nil {
			return nil, err
		}

		argbToNRGBA(img.Pix)

		return &Animation{Frames: []*image.NRGBA{img}, Delay: []int{0}, LoopCount: -1}, nil
	}

	pix := make([]byte, size*info.NumFrames)
	if err := d.DecodeImageMulti(info, pix, w, h); err != nil {
		return nil, err
	}

	argbToNRGBA(pix)

	anim := &Animation{
		Frames:    make([]*image.NRGBA, info.NumFrames),
		Delay:     make([]int, info.NumFrames),
		LoopCount: d.gifHdr.LoopCount,
	}

	for i := range anim.Frames {
		anim.Frames[i] = &image.NRGBA{
			Pix:    pix[i*size : (i+1)*size : (i+1)*size],
			Stride: w * 4,
			Rect:   image.Rect(0, 0, w, h),
		}
	}

	if _, err := d.ImageInfo(info, SelectorAnim, anim.Delay); err != nil {
		return nil, err
	}

	return anim, nil
}

// DecodeConfig returns the colour model and dimensions of an image without
// decoding its pixels. The dimensions are as stored in the file, ignoring any
// EXIF orientation.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := readAllData(r)
	if err != nil {
		return image.Config{}, err
	}

	d := getDecoder()
	defer putDecoder(d)

	info, err := d.DecodeHeader(data)
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      info.Width,
		Height:     info.Height,
	}, nil
}

// argbToNRGBA reorders A, R, G, B pixels to R, G, B, A in place.
func argbToNRGBA(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = pix[i+1], pix[i+2], pix[i+3], pix[i]
	}
}

// transform applies an EXIF orientation (2 to 8) to img.
func transform(img *image.NRGBA, orientation int) *image.NRGBA {
	srcWidth, srcHeight := img.Rect.Dx(), img.Rect.Dy()
	src := img.Pix
	srcStride := img.Stride

	dstWidth, dstHeight := srcWidth, srcHeight

	// Orientations 5-8 swap width and height.
	if orientation >= 5 {
		dstWidth, dstHeight = srcHeight, srcWidth
	}

	dst := image.NewNRGBA(image.Rect(0, 0, dstWidth, dstHeight))

	for sy := 0; sy < srcHeight; sy++ {
		for sx := 0; sx < srcWidth; sx++ {
			var dx, dy int

			switch orientation {
			case 2: // Flip horizontal
				dx, dy = srcWidth-1-sx, sy
			case 3: // Rotate 180
				dx, dy = srcWidth-1-sx, srcHeight-1-sy
			case 4: // Flip vertical
				dx, dy = sx, srcHeight-1-sy
			case 5: // Transpose
				dx, dy = sy, sx
			case 6: // Rotate 90 CW
				dx, dy = srcHeight-1-sy, sx
			case 7: // Transverse
				dx, dy = srcHeight-1-sy, srcWidth-1-sx
			case 8: // Rotate 270 CW
				dx, dy = sy, srcWidth-1-sx
			default:
				return img
			}

			so := sy*srcStride + sx*4
			do := dy*dst.Stride + dx*4
			copy(dst.Pix[do:do+4], src[so:so+4])
		}
	}

	return dst
}

// init registers the formats with the standard library's image package.
func init() {
	decodeWrapper := func(r io.Reader) (image.Image, error) {
		return Decode(r)
	}

	image.RegisterFormat("gif", "GIF8?a", decodeWrapper, DecodeConfig)
	image.RegisterFormat("jpeg", "\xff\xd8", decodeWrapper, DecodeConfig)
	image.RegisterFormat("png", "\x89PNG\r\n\x1a\n", decodeWrapper, DecodeConfig)
}
