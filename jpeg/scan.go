package jpeg

// DecodeImage decodes the scan of the image described by h into dst as 32-bit
// A, R, G, B pixels with a stride of width*4. Only the part of the image inside
// width x height is written. h must be the header returned by the last
// successful DecodeHeader call on d.
func (d *Decoder) DecodeImage(h *Header, dst []byte, width, height int) (err error) {
	if h == nil || d.header != h {
		return ErrBadState
	}

	if width < 0 || height < 0 || len(dst) < width*height*4 {
		return ErrShortBuf
	}

	d.dst, d.dstW = dst, width
	d.clipW, d.clipH = min(width, h.Width), min(height, h.Height)

	d.data, d.pos, d.end = h.data, h.scan, len(h.data)
	d.buf, d.bufBits, d.markerHit = 0, 0, false
	d.nextRST = 0
	for i := range d.comps {
		d.comps[i].pred = 0
	}

	defer func() {
		d.dst = nil

		if r := recover(); r != nil {
			if de, ok := r.(errDecode); ok {
				err = de.err
			} else {
				panic(r)
			}
		}
	}()

	d.decodeScan(h.RestartInterval)

	return d.seekEOI()
}

// decodeScan decodes every MCU of the interleaved scan.
func (d *Decoder) decodeScan(interval int) {
	n := 0
	for my := 0; my < d.mcusY; my++ {
		for mx := 0; mx < d.mcusX; mx++ {
			if interval > 0 && n > 0 && n%interval == 0 {
				d.restart()
			}

			d.decodeMCU()
			d.putColor(mx, my)
			n++
		}
	}
}

// restart consumes the expected RSTn marker and resets the DC predictors.
func (d *Decoder) restart() {
	d.byteAlign()

	if d.getBits(16) != 0xFF00|int(markerRST0+d.nextRST) {
		d.panic(ErrDecoder)
	}

	d.nextRST = (d.nextRST + 1) & 7
	for i := range d.comps {
		d.comps[i].pred = 0
	}
}

// decodeMCU decodes the blocks of one MCU into the component planes and
// replicates subsampled components to full MCU resolution.
func (d *Decoder) decodeMCU() {
	stride := d.hmax * 8

	for i := 0; i < d.ncomp; i++ {
		ci := d.order[i]
		c := &d.comps[ci]
		plane := d.mcu[ci][:]

		for by := 0; by < c.v; by++ {
			for bx := 0; bx < c.h; bx++ {
				d.decodeBlock(c)

				off := by*8*c.expY*stride + bx*8*c.expX
				idct(&d.block, plane, off, c.expX, c.expY*stride)
			}
		}

		expand(plane, stride, d.vmax*8, c.expX, c.expY)
	}
}

// decodeBlock decodes and dequantizes one 8x8 block into d.block.
func (d *Decoder) decodeBlock(c *component) {
	q := &d.qt[c.tq]
	b := &d.block
	clear(b[:])

	s := d.decodeHuff(&d.huff[c.td])
	if s > 11 {
		d.panic(ErrDecoder)
	}

	if s > 0 {
		c.pred += extend(int32(d.getBits(s)), s)
	}

	b[0] = c.pred * q[0]

	ac := &d.huff[4+c.ta]
	for k := 1; k < 64; {
		rs := d.decodeHuff(ac)
		r, s := rs>>4, rs&15

		if s == 0 {
			if r != 15 {
				break
			}

			k += 16

			continue
		}

		k += r
		if k > 63 {
			d.panic(ErrDecoder)
		}

		b[zigzag[k]] = extend(int32(d.getBits(s)), s) * q[k]
		k++
	}
}

// seekEOI walks the markers that follow the scan up to EOI.
func (d *Decoder) seekEOI() error {
	data, pos := d.data, d.pos

	for {
		if pos >= len(data) {
			return ErrEndOfData
		}

		if data[pos] != 0xFF {
			pos++

			continue
		}

		if pos+1 >= len(data) {
			return ErrEndOfData
		}

		m := data[pos+1]
		switch {
		case m == 0xFF:
			pos++
		case m == 0x00, m == markerTEM, m >= markerRST0 && m <= markerSOI:
			pos += 2
		case m == markerEOI:
			return nil
		case m == markerSOS:
			return ErrNoSupport
		default:
			if len(data)-pos < 4 {
				return ErrEndOfData
			}

			length := be16(data[pos+2:])
			if length < 2 {
				return ErrBadMarker
			}

			if len(data)-pos-2 < length {
				return ErrEndOfData
			}

			pos += 2 + length
		}
	}
}
