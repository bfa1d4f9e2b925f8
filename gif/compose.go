package gif

// Palette returns the colour table used by f as A, R, G, B entries. Entries
// past the end of the table are opaque black and the transparent index, if
// any, has zero alpha.
func Palette(h *Header, f *Frame) ([256][4]byte, error) {
	var pal [256][4]byte

	table := f.Palette
	if table == nil {
		table = h.GlobalPalette
	}

	if table == nil {
		return pal, ErrNoPalette
	}

	for i := range pal {
		pal[i][0] = 0xff
		if 3*i+2 < len(table) {
			pal[i][1], pal[i][2], pal[i][3] = table[3*i], table[3*i+1], table[3*i+2]
		}
	}

	if f.HasAlpha {
		pal[f.Transparent&0xff][0] = 0
	}

	return pal, nil
}

// DecodeFrame32 decodes frame f of h and composes it onto dst, a width x height
// canvas of 32-bit A, R, G, B pixels.
//
// Canvas pixels outside the frame, and pixels of the transparent index, are
// taken from prev. prev may be dst itself, in which case they keep their
// current value. With a nil prev they are cleared to zero.
//
// scratch holds the 8-bit part of the frame that overlaps the canvas and is
// grown from the Decoder when it is nil or too small. When vflip is set canvas rows are stored bottom-up.
func (d *Decoder) DecodeFrame32(h *Header, f *Frame, dst, prev []byte, width, height int, scratch []byte, vflip bool) error {
	if width < 0 || height < 0 || len(dst) < width*height*4 {
		return ErrShortBuf
	}

	if prev != nil && len(prev) < width*height*4 {
		return ErrShortBuf
	}

	pal, err := Palette(h, f)
	if err != nil {
		return err
	}

	// Only the part of the frame that can land on the canvas is kept.
	fw, fh := f.Width, f.Height
	cw := min(max(width-f.Left, 0), fw)
	ch := min(max(height-f.Top, 0), fh)

	if len(scratch) < cw*ch {
		if cap(d.scratch) < cw*ch {
			d.scratch = make([]byte, cw*ch)
		}

		scratch = d.scratch[:cw*ch]
	}

	if _, err := d.DecodeFrame(h, f, scratch, cw, ch, false); err != nil {
		return err
	}

	inPlace := prev != nil && len(dst) > 0 && &prev[0] == &dst[0]
	stride := width * 4

	for y := 0; y < height; y++ {
		row := y
		if vflip {
			row = height - 1 - y
		}

		fy := y - f.Top
		line := dst[row*stride : row*stride+stride]

		for x := 0; x < width; x++ {
			fx := x - f.Left
			o := x * 4

			if fy >= 0 && fy < ch && fx >= 0 && fx < cw {
				c := pal[scratch[fy*cw+fx]]
				if c[0] != 0 || !f.HasAlpha {
					line[o], line[o+1], line[o+2], line[o+3] = c[0], c[1], c[2], c[3]

					continue
				}
			}

			switch {
			case prev == nil:
				line[o], line[o+1], line[o+2], line[o+3] = 0, 0, 0, 0
			case !inPlace:
				copy(line[o:o+4], prev[row*stride+o:row*stride+o+4])
			}
		}
	}

	return nil
}

// DecodeFrames32 decodes frames in order into consecutive width x height
// canvases of dst. Every frame is composed over the canvas of the frame before
// it. Decoding stops at the first error.
func (d *Decoder) DecodeFrames32(h *Header, frames []Frame, dst []byte, width, height int, vflip bool) error {
	size := width * height * 4
	if width < 0 || height < 0 || len(dst) < size*len(frames) {
		return ErrShortBuf
	}

	var prev []byte
	for i := range frames {
		canvas := dst[i*size : (i+1)*size]
		if err := d.DecodeFrame32(h, &frames[i], canvas, prev, width, height, nil, vflip); err != nil {
			return err
		}

		prev = canvas
	}

	return nil
}
