package main

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xfmoulet/qoi"
	"golang.org/x/image/bmp"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 9, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 9; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 28), G: uint8(y * 40), B: 200, A: 255})
		}
	}

	return img
}

func writePNG(t *testing.T, path string, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	return buf.Bytes()
}

func readImage(t *testing.T, path string, decode func(r *os.File) (image.Image, error)) image.Image {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := decode(f)
	require.NoError(t, err)

	return img
}

func requireSame(t *testing.T, want, got image.Image) {
	t.Helper()

	require.Equal(t, want.Bounds(), got.Bounds())
	for y := 0; y < want.Bounds().Dy(); y++ {
		for x := 0; x < want.Bounds().Dx(); x++ {
			w := color.NRGBAModel.Convert(want.At(x, y))
			g := color.NRGBAModel.Convert(got.At(x, y))
			require.Equal(t, w, g, "pixel (%d, %d)", x, y)
		}
	}
}

// TestRunFormats converts a PNG file to each output format.
func TestRunFormats(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	src := testImage()
	writePNG(t, in, src)

	tests := []struct {
		format string
		decode func(r *os.File) (image.Image, error)
	}{
		{"png", func(r *os.File) (image.Image, error) { return png.Decode(r) }},
		{"qoi", func(r *os.File) (image.Image, error) { return qoi.Decode(r) }},
		{"bmp", func(r *os.File) (image.Image, error) { return bmp.Decode(r) }},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out := filepath.Join(dir, "out."+tt.format)
			require.NoError(t, run([]string{"-format", tt.format, in, out}, os.Stdout))

			requireSame(t, src, readImage(t, out, tt.decode))
		})
	}
}

// TestRunZstd reads a zstd compressed input and derives the output name.
func TestRunZstd(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	src := testImage()
	require.NoError(t, png.Encode(&buf, src))

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)

	in := filepath.Join(dir, "image.png.zst")
	require.NoError(t, os.WriteFile(in, enc.EncodeAll(buf.Bytes(), nil), 0o644))
	require.NoError(t, enc.Close())

	require.NoError(t, run([]string{"-v", in}, os.Stdout))

	requireSame(t, src, readImage(t, filepath.Join(dir, "image.png"), func(r *os.File) (image.Image, error) { return png.Decode(r) }))
}

// TestRunInfo prints the header and frame delays of an animation.
func TestRunInfo(t *testing.T) {
	dir := t.TempDir()

	frame := func(r image.Rectangle) *image.Paletted {
		return image.NewPaletted(r, palette.Plan9[:4])
	}

	g := &gif.GIF{
		Image: []*image.Paletted{frame(image.Rect(0, 0, 4, 3)), frame(image.Rect(1, 1, 3, 2))},
		Delay: []int{7, 12},
	}

	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))

	in := filepath.Join(dir, "anim.gif")
	require.NoError(t, os.WriteFile(in, buf.Bytes(), 0o644))

	var out strings.Builder
	require.NoError(t, run([]string{"-info", in}, &out))
	assert.Equal(t, "format: gif\nsize: 4x3\nframes: 2\ndelays: [70 120]\n", out.String())

	require.NoError(t, run([]string{"-all", in}, &out))
	for _, name := range []string{"anim-000.png", "anim-001.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

// TestRunErrors checks argument validation and decode failures.
func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))

	assert.ErrorIs(t, run(nil, os.Stdout), errUsage)
	assert.ErrorIs(t, run([]string{"a", "b", "c"}, os.Stdout), errUsage)
	assert.ErrorIs(t, run([]string{"-nope", "a"}, os.Stdout), errUsage)
	assert.Error(t, run([]string{"-format", "tiff", bad}, os.Stdout))
	assert.Error(t, run([]string{bad}, os.Stdout))
	assert.Error(t, run([]string{filepath.Join(dir, "missing.png")}, os.Stdout))
}

// TestOutputName checks the derived output paths.
func TestOutputName(t *testing.T) {
	assert.Equal(t, "a/b.qoi", outputName("a/b.png", "qoi", -1))
	assert.Equal(t, "b.png", outputName("b.gif.ZST", "png", -1))
	assert.Equal(t, "anim-004.bmp", outputName("anim.gif", "bmp", 4))
	assert.Equal(t, "noext.png", outputName("noext", "png", -1))
}
