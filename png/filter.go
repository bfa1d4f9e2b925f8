package png

// Scanline filter types.
const (
	filterNone = iota
	filterSub
	filterUp
	filterAverage
	filterPaeth
)

// startImage prepares the scanline buffers for the first non-empty pass.
func (d *Decoder) startImage() {
	h := d.h

	d.bpp = h.Channels * h.Depth / 8
	if d.bpp < 1 {
		d.bpp = 1
	}

	// Filters only refer to bytes on the left and above, so columns right of
	// the destination are counted but never stored.
	n := h.lineBytes(d.clipW) + 1
	if cap(d.cur) < n {
		d.cur = make([]byte, n)
		d.prev = make([]byte, n)
	}

	d.pass = -1
	d.nextPass()
}

// nextPass advances to the next pass that has data, or marks the image finished.
func (d *Decoder) nextPass() {
	for d.pass++; d.pass < 7; d.pass++ {
		px, lines := d.h.PassPixels[d.pass], d.h.PassLines[d.pass]
		if px == 0 || lines == 0 {
			continue
		}

		d.line = 0
		d.filled = 0
		d.lineBytes = d.h.lineBytes(px) + 1
		d.keep = d.h.lineBytes(passClip(d.pass, px, d.clipW)) + 1
		d.cur = d.cur[:d.keep]
		d.prev = d.prev[:d.keep]
		clear(d.prev)

		return
	}

	d.finished = true
}

// passClip returns how many of the px pixels of a scanline in pass fall left
// of clipW.
func passClip(pass, px, clipW int) int {
	x0, dx := passStartX[pass], passStepX[pass]
	if clipW <= x0 {
		return 0
	}

	return min(px, (clipW-x0+dx-1)/dx)
}

// scan sorts one decompressed byte into the current scanline.
func (d *Decoder) scan(b byte) {
	if d.finished {
		d.panic(ErrInvFile)
	}

	if d.filled < d.keep {
		d.cur[d.filled] = b
	}

	d.filled++

	if d.filled < d.lineBytes {
		return
	}

	if d.cur[0] > filterPaeth {
		d.panic(ErrBadType)
	}

	unfilter(d.cur[0], d.cur[1:], d.prev[1:], d.bpp)
	d.emit()

	d.cur, d.prev = d.prev, d.cur
	d.filled = 0
	d.line++

	if d.line == d.h.PassLines[d.pass] {
		d.nextPass()
	}
}

// unfilter reverses the scanline filter ft in place.
func unfilter(ft byte, cur, prev []byte, bpp int) {
	switch ft {
	case filterSub:
		for i := bpp; i < len(cur); i++ {
			cur[i] += cur[i-bpp]
		}
	case filterUp:
		for i := range cur {
			cur[i] += prev[i]
		}
	case filterAverage:
		for i := 0; i < bpp && i < len(cur); i++ {
			cur[i] += prev[i] / 2
		}

		for i := bpp; i < len(cur); i++ {
			cur[i] += byte((int(cur[i-bpp]) + int(prev[i])) / 2)
		}
	case filterPaeth:
		for i := 0; i < bpp && i < len(cur); i++ {
			cur[i] += prev[i]
		}

		for i := bpp; i < len(cur); i++ {
			cur[i] += paeth(cur[i-bpp], prev[i], prev[i-bpp])
		}
	}
}

// paeth returns whichever of a (left), b (above) and c (upper left) is closest
// to a + b - c, preferring a, then b.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))

	if pa <= pb && pa <= pc {
		return a
	}

	if pb <= pc {
		return b
	}

	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}

	return x
}

// emit writes the unfiltered current scanline into the destination.
func (d *Decoder) emit() {
	h := d.h
	row := d.cur[1:]

	y := passStartY[d.pass] + d.line*passStepY[d.pass]
	x0, dx := passStartX[d.pass], passStepX[d.pass]
	if h.Interlace == 0 {
		y, x0, dx = d.line, 0, 1
	}

	if y >= d.clipH {
		return
	}

	depth := h.Depth
	maxVal := 1<<depth - 1
	stride := d.dstW * 4
	px := h.PassPixels[d.pass]

	for i := 0; i < px; i++ {
		x := x0 + i*dx
		if x >= d.clipW {
			break
		}

		var a, r, g, b byte = 0xff, 0, 0, 0

		switch h.ColorType {
		case ColorGray, ColorPalette:
			var v int
			if depth == 8 {
				v = int(row[i])
			} else {
				bit := i * depth
				v = int(row[bit>>3]>>(8-depth-bit&7)) & maxVal
			}

			if h.ColorType == ColorPalette {
				r, g, b = h.paletteColor(v)
			} else {
				v = v * 255 / maxVal
				r, g, b = byte(v), byte(v), byte(v)
			}
		case ColorGrayAlpha:
			r, a = row[i*2], row[i*2+1]
			g, b = r, r
		case ColorRGB:
			r, g, b = row[i*3], row[i*3+1], row[i*3+2]
		case ColorRGBA:
			r, g, b, a = row[i*4], row[i*4+1], row[i*4+2], row[i*4+3]
		}

		o := y*stride + x*4
		p := d.dst[o : o+4 : o+4]
		p[0], p[1], p[2], p[3] = a, r, g, b
	}
}
