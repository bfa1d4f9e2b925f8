package jpeg

// Chroma lookup tables, truncated toward zero. The green terms carry four
// extra bits of precision.
var (
	crR [256]int16 // 1.402 (Cr-128)
	cbB [256]int16 // 1.772 (Cb-128)
	crG [256]int16 // -0.71414 (Cr-128) << 4
	cbG [256]int16 // -0.34414 (Cb-128) << 4
)

func init() {
	for i := 0; i < 256; i++ {
		c := float64(i - 128)
		crR[i] = int16(1.402 * c)
		cbB[i] = int16(1.772 * c)
		crG[i] = int16(-0.71414 * 16 * c)
		cbG[i] = int16(-0.34414 * 16 * c)
	}
}

// expand replicates the samples of a subsampled component over the whole MCU
// plane. Samples were stored every expX columns and every expY rows.
func expand(p []byte, stride, height, expX, expY int) {
	switch {
	case expX == 1 && expY == 1:
	case expX == 2 && expY == 1:
		for y := 0; y < height; y++ {
			row := p[y*stride : y*stride+stride]
			for x := 0; x < stride; x += 2 {
				row[x+1] = row[x]
			}
		}
	case expX == 2 && expY == 2:
		for y := 0; y < height; y += 2 {
			row, next := p[y*stride:y*stride+stride], p[(y+1)*stride:(y+1)*stride+stride]
			for x := 0; x < stride; x += 2 {
				v := row[x]
				row[x+1], next[x], next[x+1] = v, v, v
			}
		}
	default:
		expandAny(p, stride, height, expX, expY)
	}
}

func expandAny(p []byte, stride, height, expX, expY int) {
	if expY > 1 {
		for y := 0; y < height; y += expY {
			src := p[y*stride : y*stride+stride]
			for k := 1; k < expY; k++ {
				copy(p[(y+k)*stride:], src)
			}
		}
	}

	if expX > 1 {
		for y := 0; y < height; y++ {
			row := p[y*stride : y*stride+stride]
			for x := 0; x < stride; x += expX {
				v := row[x]
				for k := 1; k < expX; k++ {
					row[x+k] = v
				}
			}
		}
	}
}

// putColor converts the MCU at column mx, row my to A, R, G, B and stores the
// part of it that falls inside both the image and the destination.
func (d *Decoder) putColor(mx, my int) {
	mcuW, mcuH := d.hmax*8, d.vmax*8
	x0, y0 := mx*mcuW, my*mcuH

	w := min(mcuW, d.clipW-x0)
	h := min(mcuH, d.clipH-y0)
	if w <= 0 || h <= 0 {
		return
	}

	stride := d.dstW * 4

	if d.ncomp == 1 {
		yp := d.mcu[0][:]
		for y := 0; y < h; y++ {
			src := yp[y*mcuW : y*mcuW+w]
			o := (y0+y)*stride + x0*4
			dst := d.dst[o : o+w*4]

			for x, v := range src {
				dst[x*4], dst[x*4+1], dst[x*4+2], dst[x*4+3] = 0xff, v, v, v
			}
		}

		return
	}

	yp, cbp, crp := d.mcu[0][:], d.mcu[1][:], d.mcu[2][:]
	for y := 0; y < h; y++ {
		i := y * mcuW
		o := (y0+y)*stride + x0*4
		dst := d.dst[o : o+w*4]

		for x := 0; x < w; x++ {
			yy := int32(yp[i+x])
			cb, cr := cbp[i+x], crp[i+x]

			dst[x*4] = 0xff
			dst[x*4+1] = clamp(yy + int32(crR[cr]))
			dst[x*4+2] = clamp(yy + int32(crG[cr]+cbG[cb])>>4)
			dst[x*4+3] = clamp(yy + int32(cbB[cb]))
		}
	}
}
