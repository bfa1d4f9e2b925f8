package png

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/adler32"
	stdcrc "hash/crc32"
	"testing"

	"github.com/gen2brain/pixdec/internal/codes"
	"github.com/klauspost/compress/zlib"
)

// chunk encodes one PNG chunk with a valid CRC.
func chunk(typ string, payload []byte) []byte {
	b := make([]byte, 8, 12+len(payload))
	binary.BigEndian.PutUint32(b, uint32(len(payload)))
	copy(b[4:], typ)
	b = append(b, payload...)

	return binary.BigEndian.AppendUint32(b, stdcrc.ChecksumIEEE(b[4:]))
}

func ihdr(w, h, depth, colorType, interlace int) []byte {
	p := make([]byte, 13)
	binary.BigEndian.PutUint32(p[0:], uint32(w))
	binary.BigEndian.PutUint32(p[4:], uint32(h))
	p[8], p[9], p[12] = byte(depth), byte(colorType), byte(interlace)

	return chunk("IHDR", p)
}

// buildPNG assembles a PNG file from an IHDR and a list of chunks.
func buildPNG(hdr []byte, chunks ...[]byte) []byte {
	out := append([]byte(signature), hdr...)
	for _, c := range chunks {
		out = append(out, c...)
	}

	return append(out, chunk("IEND", nil)...)
}

// storedZlib wraps raw in a zlib stream made of a single stored deflate block.
func storedZlib(raw []byte) []byte {
	out := []byte{0x78, 0x01, 0x01}
	out = binary.LittleEndian.AppendUint16(out, uint16(len(raw)))
	out = binary.LittleEndian.AppendUint16(out, ^uint16(len(raw)))
	out = append(out, raw...)

	return binary.BigEndian.AppendUint32(out, adler32.Checksum(raw))
}

// compress deflates raw with the given zlib level.
func compress(t testing.TB, raw []byte, level int) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		t.Fatalf("zlib.NewWriterLevel failed: %v", err)
	}

	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("zlib write failed: %v", err)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close failed: %v", err)
	}

	return buf.Bytes()
}

// rgb8x8 returns an 8x8 RGB PNG with filter type none and a single stored block,
// together with its raw pixel bytes.
func rgb8x8() ([]byte, []byte) {
	pix := make([]byte, 8*8*3)
	for i := range pix {
		pix[i] = byte(i*7 + 3)
	}

	var raw []byte
	for y := 0; y < 8; y++ {
		raw = append(raw, filterNone)
		raw = append(raw, pix[y*24:(y+1)*24]...)
	}

	return buildPNG(ihdr(8, 8, 8, ColorRGB, 0), chunk("IDAT", storedZlib(raw))), pix
}

// TestIdentify tests signature detection.
func TestIdentify(t *testing.T) {
	data, _ := rgb8x8()
	if !Identify(data) {
		t.Error("Identify returned false for a PNG file")
	}

	if Identify([]byte("GIF89a")) {
		t.Error("Identify returned true for a GIF signature")
	}

	if Identify(data[:7]) {
		t.Error("Identify returned true for a short buffer")
	}
}

// TestCRC tests the chunk CRC against hash/crc32.
func TestCRC(t *testing.T) {
	for _, s := range []string{"", "IEND", "IHDR\x00\x00\x00\x01", "The quick brown fox jumps over the lazy dog"} {
		if got, want := crc32([]byte(s)), stdcrc.ChecksumIEEE([]byte(s)); got != want {
			t.Errorf("crc32(%q) = %08x, want %08x", s, got, want)
		}
	}
}

// TestParseHeader tests IHDR validation.
func TestParseHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"RGB8", buildPNG(ihdr(4, 3, 8, ColorRGB, 0)), nil},
		{"Gray1", buildPNG(ihdr(4, 3, 1, ColorGray, 1)), nil},
		{"Palette4", buildPNG(ihdr(4, 3, 4, ColorPalette, 0)), nil},
		{"Depth16", buildPNG(ihdr(4, 3, 16, ColorRGB, 0)), ErrBadDepth},
		{"Gray16", buildPNG(ihdr(4, 3, 16, ColorGray, 0)), ErrBadDepth},
		{"RGB4", buildPNG(ihdr(4, 3, 4, ColorRGB, 0)), ErrBadDepth},
		{"ColorType5", buildPNG(ihdr(4, 3, 8, 5, 0)), ErrBadColor},
		{"Interlace2", buildPNG(ihdr(4, 3, 8, ColorRGB, 2)), ErrBadIntrl},
		{"ZeroWidth", buildPNG(ihdr(0, 3, 8, ColorRGB, 0)), ErrBadSize},
		{"NoMagic", append([]byte("\x89PNX\r\n\x1a\n"), ihdr(4, 3, 8, ColorRGB, 0)...), ErrNoMagic},
		{"NoIHDR", buildPNG(chunk("IDAT", []byte{1, 2})), ErrBadIHDR},
		{"Short", []byte(signature)[:5], ErrTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.data)
			if !errors.Is(err, tt.want) && err != tt.want {
				t.Fatalf("ParseHeader() error = %v, want %v", err, tt.want)
			}
		})
	}

	h, err := ParseHeader(buildPNG(ihdr(10, 9, 8, ColorRGBA, 1)))
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}

	wantPx := [7]int{2, 1, 3, 2, 5, 5, 10}
	wantLines := [7]int{2, 2, 1, 3, 2, 5, 4}
	if h.PassPixels != wantPx || h.PassLines != wantLines {
		t.Errorf("Adam7 passes = %v/%v, want %v/%v", h.PassPixels, h.PassLines, wantPx, wantLines)
	}
}

// TestUnsupportedDepthClass tests that a 16-bit IHDR is reported as unsupported.
func TestUnsupportedDepthClass(t *testing.T) {
	_, err := Parse(buildPNG(ihdr(2, 2, 16, ColorRGBA, 0), chunk("IDAT", storedZlib(make([]byte, 2*17)))))
	if !errors.Is(err, codes.ErrUnsupported) {
		t.Fatalf("Parse() error = %v, want unsupported class", err)
	}
}

// TestParseChunks tests chunk ordering, duplication and checksum rules.
func TestParseChunks(t *testing.T) {
	plte := chunk("PLTE", []byte{0, 0, 0, 255, 255, 255})
	idat := chunk("IDAT", storedZlib([]byte{0, 0}))
	rgb := ihdr(1, 1, 8, ColorRGB, 0)
	pal := ihdr(1, 1, 1, ColorPalette, 0)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"Minimal", buildPNG(pal, plte, idat), nil},
		{"Ancillary", buildPNG(rgb, chunk("gAMA", []byte{0, 0, 0xb1, 0x8f}), chunk("pHYs", make([]byte, 9)), idat, chunk("tEXt", []byte("a\x00b"))), nil},
		{"UnknownAncillary", buildPNG(rgb, chunk("prVt", nil), idat), nil},
		{"SplitIDAT", buildPNG(rgb, idat, chunk("IDAT", nil)), nil},
		{"UnknownCritical", buildPNG(rgb, chunk("ABCD", nil), idat), ErrUnknCrit},
		{"NoIDAT", buildPNG(rgb), ErrTypeMiss},
		{"PaletteMissing", buildPNG(pal, idat), ErrTypeMiss},
		{"PLTEAfterIDAT", buildPNG(rgb, idat, plte), ErrBadOrder},
		{"PLTETwice", buildPNG(pal, plte, plte, idat), ErrTypeDupl},
		{"PLTELength", buildPNG(pal, chunk("PLTE", []byte{1, 2}), idat), ErrBadPLTE},
		{"GammaAfterPLTE", buildPNG(pal, plte, chunk("gAMA", make([]byte, 4)), idat), ErrBadOrder},
		{"GammaTwice", buildPNG(rgb, chunk("gAMA", make([]byte, 4)), chunk("gAMA", make([]byte, 4)), idat), ErrTypeDupl},
		{"SRGBAfterICC", buildPNG(rgb, chunk("iCCP", nil), chunk("sRGB", []byte{0}), idat), ErrTypeDupl},
		{"TRNSAfterIDAT", buildPNG(rgb, idat, chunk("tRNS", make([]byte, 6))), ErrBadOrder},
		{"TRNSBeforePLTE", buildPNG(pal, chunk("tRNS", []byte{0}), plte, idat), ErrTypeMiss},
		{"HISTWithoutPLTE", buildPNG(rgb, chunk("hIST", nil), idat), ErrTypeMiss},
		{"IDATNotConsecutive", buildPNG(rgb, idat, chunk("tEXt", []byte("a\x00b")), idat), ErrBadOrder},
		{"SecondIHDR", buildPNG(rgb, rgb, idat), ErrTypeDupl},
		{"OneByteIDAT", buildPNG(rgb, chunk("IDAT", []byte{0x78})), nil},
		{"EmptyIDAT", buildPNG(rgb, chunk("IDAT", nil), idat), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if err != tt.want {
				t.Fatalf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestParseChunksBadCRC tests that a tampered IDAT fails with an integrity error.
func TestParseChunksBadCRC(t *testing.T) {
	data, _ := rgb8x8()

	h, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}

	// First IDAT payload byte sits right after signature, IHDR and the IDAT header.
	data[len(signature)+25+8] ^= 0x40

	err = h.ParseChunks()
	if err != ErrBadCRC {
		t.Fatalf("ParseChunks() error = %v, want %v", err, ErrBadCRC)
	}

	if !errors.Is(err, codes.ErrIntegrity) {
		t.Errorf("errors.Is(%v, ErrIntegrity) = false", err)
	}
}

// TestErrorText tests error strings.
func TestErrorText(t *testing.T) {
	if got := ErrBadCRC.Error(); got != "png: chunk CRC mismatch" {
		t.Errorf("ErrBadCRC.Error() = %q", got)
	}

	if got := Error(-1000).Error(); got != "png: error -1000" {
		t.Errorf("Error(-1000).Error() = %q", got)
	}
}
