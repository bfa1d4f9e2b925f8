// Command pixdec decodes a GIF, JPEG or PNG file and writes it as PNG, QOI or BMP.
//
// Usage:
//
//	pixdec [flags] input [output]
//
// Inputs ending in .zst are decompressed first. Without an output path the
// result is written next to the input with the extension of the output format.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
	"github.com/xfmoulet/qoi"
	"golang.org/x/image/bmp"

	"github.com/gen2brain/pixdec"
)

var errUsage = errors.New("usage: pixdec [flags] input [output]")

type config struct {
	format  string
	frame   int
	all     bool
	rotate  bool
	info    bool
	verbose bool
	input   string
	output  string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*config, error) {
	fs := flag.NewFlagSet("pixdec", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	c := &config{}
	fs.StringVar(&c.format, "format", "png", "output format: png, qoi or bmp")
	fs.IntVar(&c.frame, "frame", 0, "GIF frame to write")
	fs.BoolVar(&c.all, "all", false, "write every GIF frame, numbered")
	fs.BoolVar(&c.rotate, "rotate", false, "apply the EXIF orientation of JPEG files")
	fs.BoolVar(&c.info, "info", false, "print image information and exit")
	fs.BoolVar(&c.verbose, "v", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	switch fs.NArg() {
	case 1:
		c.input = fs.Arg(0)
	case 2:
		c.input, c.output = fs.Arg(0), fs.Arg(1)
	default:
		return nil, errUsage
	}

	switch c.format {
	case "png", "qoi", "bmp":
	default:
		return nil, fmt.Errorf("unknown output format %q", c.format)
	}

	return c, nil
}

func run(args []string, stdout io.Writer) error {
	c, err := parseFlags(args)
	if err != nil {
		return err
	}

	if c.verbose {
		log.SetLevel(log.DebugLevel)
	}

	data, err := readInput(c.input)
	if err != nil {
		return err
	}

	if c.info {
		return printInfo(stdout, data)
	}

	if c.all {
		return writeAll(c, data)
	}

	img, err := pixdec.Decode(bytes.NewReader(data), &pixdec.Options{Frame: c.frame, AutoRotate: c.rotate})
	if err != nil {
		return fmt.Errorf("%s: %w", c.input, err)
	}

	out := c.output
	if out == "" {
		out = outputName(c.input, c.format, -1)
	}

	log.WithFields(log.Fields{
		"file":   out,
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	}).Debug("writing image")

	return writeImage(out, c.format, img)
}

// readInput reads a file, decompressing it when it has a .zst extension.
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(filepath.Ext(path), ".zst") {
		return data, nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	plain, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.WithFields(log.Fields{"file": path, "compressed": len(data), "size": len(plain)}).Debug("decompressed input")

	return plain, nil
}

func printInfo(w io.Writer, data []byte) error {
	d := pixdec.NewDecoder()

	info, err := d.DecodeHeader(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "format: %s\nsize: %dx%d\nframes: %d\n", info.Type, info.Width, info.Height, info.NumFrames)

	if info.Type == pixdec.TypeGIF {
		delays := make([]int, info.NumFrames)
		if _, err := d.ImageInfo(info, pixdec.SelectorAnim, delays); err != nil {
			return err
		}

		fmt.Fprintf(w, "delays: %v\n", delays)
	}

	return nil
}

func writeAll(c *config, data []byte) error {
	anim, err := pixdec.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", c.input, err)
	}

	log.WithFields(log.Fields{"file": c.input, "frames": len(anim.Frames)}).Info("decoded animation")

	base := c.output
	if base == "" {
		base = c.input
	}

	for i, img := range anim.Frames {
		if err := writeImage(outputName(base, c.format, i), c.format, img); err != nil {
			return err
		}
	}

	return nil
}

// outputName replaces the extensions of path (including .zst) with the one of
// format, inserting the frame number when frame is not negative.
func outputName(path, format string, frame int) string {
	base := path
	if strings.EqualFold(filepath.Ext(base), ".zst") {
		base = base[:len(base)-len(".zst")]
	}

	base = strings.TrimSuffix(base, filepath.Ext(base))

	if frame >= 0 {
		return fmt.Sprintf("%s-%03d.%s", base, frame, format)
	}

	return base + "." + format
}

func writeImage(path, format string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	switch format {
	case "qoi":
		err = qoi.Encode(f, img)
	case "bmp":
		err = bmp.Encode(f, img)
	default:
		err = png.Encode(f, img)
	}

	return err
}
