package jpeg

// Fixed-point constants of the Loeffler, Ligtenberg and Moschytz IDCT, scaled by 1<<constBits.
const (
	constBits = 13
	pass1Bits = 2

	fix0298631336 = 2446
	fix0390180644 = 3196
	fix0541196100 = 4433
	fix0765366865 = 6270
	fix0899976223 = 7373
	fix1175875602 = 9633
	fix1501321110 = 12299
	fix1847759065 = 15137
	fix1961570560 = 16069
	fix2053119869 = 16819
	fix2562915447 = 20995
	fix3072711026 = 25172
)

// ranger clamps [-256, 511] to [0, 255] when indexed with an offset of 256.
var ranger [768]byte

func init() {
	for i := range ranger {
		ranger[i] = byte(min(max(i-256, 0), 255))
	}
}

func clamp(x int32) byte {
	if uint32(x+256) < uint32(len(ranger)) {
		return ranger[x+256]
	}

	if x < 0 {
		return 0
	}

	return 255
}

// idct computes the inverse DCT of the dequantized block (natural order) and
// stores the 8x8 samples into dst starting at off. Consecutive samples of a row
// are stepX bytes apart and consecutive rows stepY bytes apart.
func idct(block *[64]int32, dst []byte, off, stepX, stepY int) {
	var ws [64]int32

	// Pass 1: columns from the input into the work array. The results are
	// scaled up by 1<<pass1Bits.
	for c := 0; c < 8; c++ {
		in := block[c:]

		if in[8]|in[16]|in[24]|in[32]|in[40]|in[48]|in[56] == 0 {
			dc := in[0] << pass1Bits
			for r := 0; r < 8; r++ {
				ws[r*8+c] = dc
			}

			continue
		}

		// Even part.
		z2, z3 := in[16], in[48]
		z1 := (z2 + z3) * fix0541196100
		tmp2 := z1 - z3*fix1847759065
		tmp3 := z1 + z2*fix0765366865

		z2, z3 = in[0], in[32]
		tmp0 := (z2 + z3) << constBits
		tmp1 := (z2 - z3) << constBits

		tmp10, tmp13 := tmp0+tmp3, tmp0-tmp3
		tmp11, tmp12 := tmp1+tmp2, tmp1-tmp2

		// Odd part.
		tmp0, tmp1, tmp2, tmp3 = in[56], in[40], in[24], in[8]
		tmp0, tmp1, tmp2, tmp3 = oddPart(tmp0, tmp1, tmp2, tmp3)

		const shift = constBits - pass1Bits
		ws[0*8+c] = (tmp10 + tmp3) >> shift
		ws[7*8+c] = (tmp10 - tmp3) >> shift
		ws[1*8+c] = (tmp11 + tmp2) >> shift
		ws[6*8+c] = (tmp11 - tmp2) >> shift
		ws[2*8+c] = (tmp12 + tmp1) >> shift
		ws[5*8+c] = (tmp12 - tmp1) >> shift
		ws[3*8+c] = (tmp13 + tmp0) >> shift
		ws[4*8+c] = (tmp13 - tmp0) >> shift
	}

	// Pass 2: rows from the work array into dst, descaled by 8 and 1<<pass1Bits
	// and level shifted by 128.
	for r := 0; r < 8; r++ {
		w := ws[r*8 : r*8+8]

		z2, z3 := w[2], w[6]
		z1 := (z2 + z3) * fix0541196100
		tmp2 := z1 - z3*fix1847759065
		tmp3 := z1 + z2*fix0765366865

		tmp0 := (w[0] + w[4]) << constBits
		tmp1 := (w[0] - w[4]) << constBits

		tmp10, tmp13 := tmp0+tmp3, tmp0-tmp3
		tmp11, tmp12 := tmp1+tmp2, tmp1-tmp2

		tmp0, tmp1, tmp2, tmp3 = oddPart(w[7], w[5], w[3], w[1])

		const shift = constBits + pass1Bits + 3
		o := off + r*stepY
		dst[o+0*stepX] = clamp((tmp10+tmp3)>>shift + 128)
		dst[o+7*stepX] = clamp((tmp10-tmp3)>>shift + 128)
		dst[o+1*stepX] = clamp((tmp11+tmp2)>>shift + 128)
		dst[o+6*stepX] = clamp((tmp11-tmp2)>>shift + 128)
		dst[o+2*stepX] = clamp((tmp12+tmp1)>>shift + 128)
		dst[o+5*stepX] = clamp((tmp12-tmp1)>>shift + 128)
		dst[o+3*stepX] = clamp((tmp13+tmp0)>>shift + 128)
		dst[o+4*stepX] = clamp((tmp13-tmp0)>>shift + 128)
	}
}

// oddPart runs the odd half of the butterfly on inputs 7, 5, 3 and 1.
func oddPart(tmp0, tmp1, tmp2, tmp3 int32) (int32, int32, int32, int32) {
	z1 := tmp0 + tmp3
	z2 := tmp1 + tmp2
	z3 := tmp0 + tmp2
	z4 := tmp1 + tmp3
	z5 := (z3 + z4) * fix1175875602

	tmp0 *= fix0298631336
	tmp1 *= fix2053119869
	tmp2 *= fix3072711026
	tmp3 *= fix1501321110
	z1 *= -fix0899976223
	z2 *= -fix2562915447
	z3 = z3*-fix1961570560 + z5
	z4 = z4*-fix0390180644 + z5

	return tmp0 + z1 + z3, tmp1 + z2 + z4, tmp2 + z2 + z3, tmp3 + z1 + z4
}
