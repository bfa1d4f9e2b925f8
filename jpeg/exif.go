package jpeg

import "errors"

// Exif tags.
const (
	tagImageWidth       = 0x0100
	tagImageLength      = 0x0101
	tagMake             = 0x010F
	tagModel            = 0x0110
	tagOrientation      = 0x0112
	tagSoftware         = 0x0131
	tagDateTime         = 0x0132
	tagArtist           = 0x013B
	tagCopyright        = 0x8298
	tagExposureTime     = 0x829A
	tagFNumber          = 0x829D
	tagExifIFDPointer   = 0x8769
	tagISOSpeedRatings  = 0x8827
	tagDateTimeOriginal = 0x9003
	tagFlash            = 0x9209
	tagFocalLength      = 0x920A
)

// Exif field types.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
)

var (
	errExifShort     = errors.New("jpeg: exif data too short")
	errExifByteOrder = errors.New("jpeg: invalid exif byte order")
	errExifMagic     = errors.New("jpeg: invalid exif magic number")
	errExifIFD       = errors.New("jpeg: invalid exif IFD offset")
)

// Exif holds the metadata read from an APP1 Exif segment.
type Exif struct {
	Orientation   int
	Width, Height int

	Make, Model      string
	Software         string
	DateTime         string
	DateTimeOriginal string
	Artist           string
	Copyright        string

	ExposureTime float64
	FNumber      float64
	FocalLength  float64
	ISOSpeed     int
	Flash        int
}

// tiffReader reads TIFF structures in either byte order. Reads past the end
// of the data return zero.
type tiffReader struct {
	data         []byte
	littleEndian bool
}

func (r *tiffReader) uint16(off int) int {
	if off < 0 || off+2 > len(r.data) {
		return 0
	}

	b := r.data[off:]
	if r.littleEndian {
		return int(b[0]) | int(b[1])<<8
	}

	return int(b[0])<<8 | int(b[1])
}

func (r *tiffReader) uint32(off int) int {
	if off < 0 || off+4 > len(r.data) {
		return 0
	}

	b := r.data[off:]
	if r.littleEndian {
		return int(b[0]) | int(b[1])<<8 | int(b[2])<<16 | int(b[3])<<24
	}

	return int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])
}

func (r *tiffReader) string(off, n int) string {
	if off < 0 || off >= len(r.data) {
		return ""
	}

	end := off
	for end < len(r.data) && end < off+n && r.data[end] != 0 {
		end++
	}

	return string(r.data[off:end])
}

func (r *tiffReader) rational(off int) float64 {
	num, den := r.uint32(off), r.uint32(off+4)
	if den == 0 {
		return 0
	}

	return float64(num) / float64(den)
}

// ifdEntry is one directory entry. value is the offset of the value, which is
// inside the entry itself when it fits in four bytes.
type ifdEntry struct {
	tag, typ int
	count    int
	value    int
}

// integer returns a SHORT or LONG value.
func (r *tiffReader) integer(e ifdEntry) (int, bool) {
	switch e.typ {
	case typeShort:
		return r.uint16(e.value), true
	case typeLong:
		return r.uint32(e.value), true
	}

	return 0, false
}

// walkIFD calls fn for every entry of the directory at off.
func (r *tiffReader) walkIFD(off int, fn func(e ifdEntry)) {
	if off < 8 || off+2 > len(r.data) {
		return
	}

	n := r.uint16(off)
	for i := 0; i < n; i++ {
		p := off + 2 + i*12
		if p+12 > len(r.data) {
			return
		}

		e := ifdEntry{
			tag:   r.uint16(p),
			typ:   r.uint16(p + 2),
			count: r.uint32(p + 4),
			value: p + 8,
		}

		if typeSize(e.typ)*e.count > 4 {
			e.value = r.uint32(p + 8)
			if e.value >= len(r.data) {
				continue
			}
		}

		fn(e)
	}
}

// ParseExif parses TIFF structured Exif data, the APP1 payload after its
// "Exif\x00\x00" identifier. IFD0 and the Exif sub-IFD are read.
func ParseExif(data []byte) (*Exif, error) {
	if len(data) < 8 {
		return nil, errExifShort
	}

	r := &tiffReader{data: data}
	switch string(data[:2]) {
	case "II":
		r.littleEndian = true
	case "MM":
	default:
		return nil, errExifByteOrder
	}

	if r.uint16(2) != 42 {
		return nil, errExifMagic
	}

	ifd := r.uint32(4)
	if ifd < 8 || ifd >= len(data) {
		return nil, errExifIFD
	}

	x := &Exif{}
	sub := 0

	r.walkIFD(ifd, func(e ifdEntry) {
		switch e.tag {
		case tagOrientation:
			if e.typ == typeShort {
				x.Orientation = r.uint16(e.value)
			}
		case tagImageWidth:
			x.Width, _ = r.integer(e)
		case tagImageLength:
			x.Height, _ = r.integer(e)
		case tagExifIFDPointer:
			if e.typ == typeLong {
				sub = r.uint32(e.value)
			}
		default:
			if e.typ != typeASCII {
				return
			}

			s := r.string(e.value, e.count)
			switch e.tag {
			case tagMake:
				x.Make = s
			case tagModel:
				x.Model = s
			case tagSoftware:
				x.Software = s
			case tagDateTime:
				x.DateTime = s
			case tagArtist:
				x.Artist = s
			case tagCopyright:
				x.Copyright = s
			}
		}
	})

	if sub != 0 && sub != ifd {
		r.walkIFD(sub, func(e ifdEntry) {
			switch e.tag {
			case tagExposureTime:
				if e.typ == typeRational {
					x.ExposureTime = r.rational(e.value)
				}
			case tagFNumber:
				if e.typ == typeRational {
					x.FNumber = r.rational(e.value)
				}
			case tagFocalLength:
				if e.typ == typeRational {
					x.FocalLength = r.rational(e.value)
				}
			case tagISOSpeedRatings:
				x.ISOSpeed, _ = r.integer(e)
			case tagFlash:
				x.Flash, _ = r.integer(e)
			case tagDateTimeOriginal:
				if e.typ == typeASCII {
					x.DateTimeOriginal = r.string(e.value, e.count)
				}
			}
		})
	}

	return x, nil
}

// typeSize returns the size in bytes of one value of the given type.
func typeSize(typ int) int {
	switch typ {
	case typeShort, typeSShort:
		return 2
	case typeLong, typeSLong, typeFloat:
		return 4
	case typeRational, typeSRational, typeDouble:
		return 8
	default:
		return 1
	}
}
