package jpeg

// Bitstream handling

// fill appends bytes of the entropy coded segment to d.buf until at least 57
// bits are buffered, the data ends or a marker is reached. Stuffed 0xFF00
// sequences yield a single 0xFF. Restart markers are passed through as data so
// that restart handling can read them with getBits.
func (d *Decoder) fill() {
	for d.bufBits <= 56 && !d.markerHit && d.pos < d.end {
		b := d.data[d.pos]
		d.pos++

		if b == 0xFF && d.pos < d.end {
			b2 := d.data[d.pos]

			switch {
			case b2 == 0x00:
				d.pos++
			case b2 >= markerRST0 && b2 <= markerRST7:
			default:
				// Any other marker ends the segment. Rewind so the 0xFF is seen again.
				d.pos--
				d.markerHit = true

				return
			}
		}

		d.buf = d.buf<<8 | uint64(b)
		d.bufBits += 8
	}
}

// showBits returns the next 'bits' bits (at most 32) without consuming them.
// Missing bits past the end of the segment read as zero.
func (d *Decoder) showBits(bits int) int {
	if d.bufBits < bits {
		d.fill()
	}

	mask := uint64(1)<<bits - 1
	if d.bufBits >= bits {
		return int((d.buf >> (d.bufBits - bits)) & mask)
	}

	return int((d.buf << (bits - d.bufBits)) & mask)
}

// skipBits consumes 'bits' bits. Consuming bits that are not there is fatal.
func (d *Decoder) skipBits(bits int) {
	if d.bufBits < bits {
		d.fill()
	}

	if d.bufBits < bits {
		d.panic(d.underflow(ErrDecoder))
	}

	d.bufBits -= bits
}

// getBits reads and consumes 'bits' bits.
func (d *Decoder) getBits(bits int) int {
	if bits == 0 {
		return 0
	}

	res := d.showBits(bits)
	d.skipBits(bits)

	return res
}

// byteAlign drops the bits up to the next byte boundary.
func (d *Decoder) byteAlign() {
	d.bufBits &^= 7
}

// underflow picks the error for a read that ran past the buffered bits: running
// off the end of the data is a truncation, anything else is reported as err.
func (d *Decoder) underflow(err Error) Error {
	if !d.markerHit && d.pos >= d.end {
		return ErrEndOfData
	}

	return err
}
