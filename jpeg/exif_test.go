package jpeg

import (
	"encoding/binary"
	"testing"
)

type tiffEntry struct {
	tag, typ uint16
	count    uint32
	data     []byte // value bytes, stored inline when four bytes or less
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// buildTIFF lays out IFD0 at offset 8, followed by the Exif sub-IFD when sub
// is not empty, followed by out-of-line values.
func buildTIFF(order byteOrder, ifd0, sub []tiffEntry) []byte {
	out := make([]byte, 8)
	if order == binary.LittleEndian {
		copy(out, "II")
	} else {
		copy(out, "MM")
	}

	order.PutUint16(out[2:], 42)
	order.PutUint32(out[4:], 8)

	ifdSize := func(n int) int { return 2 + 12*n + 4 }

	extra := 8 + ifdSize(len(ifd0))
	if len(sub) > 0 {
		subOff := 8 + ifdSize(len(ifd0)+1)
		ifd0 = append(ifd0, tiffEntry{tagExifIFDPointer, typeLong, 1, order.AppendUint32(nil, uint32(subOff))})
		extra = subOff + ifdSize(len(sub))
	}

	var tail []byte
	writeIFD := func(entries []tiffEntry) {
		out = order.AppendUint16(out, uint16(len(entries)))
		for _, e := range entries {
			out = order.AppendUint16(out, e.tag)
			out = order.AppendUint16(out, e.typ)
			out = order.AppendUint32(out, e.count)

			if len(e.data) <= 4 {
				v := make([]byte, 4)
				copy(v, e.data)
				out = append(out, v...)
			} else {
				out = order.AppendUint32(out, uint32(extra+len(tail)))
				tail = append(tail, e.data...)
			}
		}

		out = order.AppendUint32(out, 0)
	}

	writeIFD(ifd0)
	if len(sub) > 0 {
		writeIFD(sub)
	}

	return append(out, tail...)
}

func short(order byteOrder, v uint16) []byte {
	return order.AppendUint16(nil, v)
}

func rational(order byteOrder, num, den uint32) []byte {
	return order.AppendUint32(order.AppendUint32(nil, num), den)
}

func ascii(s string) []byte {
	return append([]byte(s), 0)
}

// TestParseExif parses IFD0 and the Exif sub-IFD in both byte orders.
func TestParseExif(t *testing.T) {
	for _, order := range []byteOrder{binary.BigEndian, binary.LittleEndian} {
		t.Run(order.String(), func(t *testing.T) {
			ifd0 := []tiffEntry{
				{tagOrientation, typeShort, 1, short(order, 6)},
				{tagImageWidth, typeLong, 1, order.AppendUint32(nil, 4000)},
				{tagImageLength, typeShort, 1, short(order, 3000)},
				{tagMake, typeASCII, 6, ascii("Canon")},
				{tagModel, typeASCII, 4, ascii("EOS")},
				{tagDateTime, typeASCII, 20, ascii("2024:01:02 03:04:05")},
			}

			sub := []tiffEntry{
				{tagExposureTime, typeRational, 1, rational(order, 1, 250)},
				{tagFNumber, typeRational, 1, rational(order, 28, 10)},
				{tagISOSpeedRatings, typeShort, 1, short(order, 400)},
				{tagFocalLength, typeRational, 1, rational(order, 50, 1)},
				{tagFlash, typeShort, 1, short(order, 16)},
				{tagDateTimeOriginal, typeASCII, 20, ascii("2024:01:02 03:04:05")},
			}

			x, err := ParseExif(buildTIFF(order, ifd0, sub))
			if err != nil {
				t.Fatalf("ParseExif failed: %v", err)
			}

			if x.Orientation != 6 || x.Width != 4000 || x.Height != 3000 {
				t.Errorf("orientation and size = %d, %dx%d", x.Orientation, x.Width, x.Height)
			}

			if x.Make != "Canon" || x.Model != "EOS" || x.DateTime != "2024:01:02 03:04:05" {
				t.Errorf("strings = %q %q %q", x.Make, x.Model, x.DateTime)
			}

			if x.ExposureTime != 1.0/250 || x.FNumber != 2.8 || x.FocalLength != 50 {
				t.Errorf("exposure = %v f/%v %vmm", x.ExposureTime, x.FNumber, x.FocalLength)
			}

			if x.ISOSpeed != 400 || x.Flash != 16 || x.DateTimeOriginal != "2024:01:02 03:04:05" {
				t.Errorf("ISO %d flash %d original %q", x.ISOSpeed, x.Flash, x.DateTimeOriginal)
			}
		})
	}
}

// TestParseExifInvalid checks malformed TIFF headers and out of range offsets.
func TestParseExifInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"Short", []byte("MM\x00\x2a"), errExifShort},
		{"ByteOrder", []byte("XX\x00\x2a\x00\x00\x00\x08"), errExifByteOrder},
		{"Magic", []byte("MM\x00\x2b\x00\x00\x00\x08"), errExifMagic},
		{"IFDOffset", []byte("MM\x00\x2a\x00\x00\x01\x00"), errExifIFD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseExif(tt.data); err != tt.want {
				t.Errorf("ParseExif() error = %v, want %v", err, tt.want)
			}
		})
	}

	// Entries pointing past the data are skipped.
	data := buildTIFF(binary.BigEndian, []tiffEntry{
		{tagOrientation, typeShort, 1, short(binary.BigEndian, 3)},
		{tagMake, typeASCII, 100, make([]byte, 100)},
	}, nil)

	x, err := ParseExif(data[:len(data)-100])
	if err != nil {
		t.Fatal(err)
	}

	if x.Orientation != 3 || x.Make != "" {
		t.Errorf("got orientation %d, make %q", x.Orientation, x.Make)
	}
}

// TestDecodeHeaderExif reads the orientation from an APP1 segment.
func TestDecodeHeaderExif(t *testing.T) {
	tiff := buildTIFF(binary.LittleEndian, []tiffEntry{{tagOrientation, typeShort, 1, short(binary.LittleEndian, 8)}}, nil)
	app1 := segment(markerAPP1, append([]byte("Exif\x00\x00"), tiff...)...)

	flat := dcImage{width: 8, height: 8, sampling: [][2]int{{1, 1}}, dc: func(c, bx, by int) int { return 0 }}.bytes()
	data := append([]byte{0xFF, markerSOI}, app1...)
	data = append(data, flat[2:]...)

	h, _ := decode(t, data)
	if h.Exif == nil || h.Orientation != 8 {
		t.Fatalf("Exif = %+v, Orientation = %d", h.Exif, h.Orientation)
	}

	if h, _ := decode(t, flat); h.Exif != nil || h.Orientation != 1 {
		t.Errorf("without Exif: Exif = %+v, Orientation = %d", h.Exif, h.Orientation)
	}
}
