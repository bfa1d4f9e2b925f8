package png

import "sync"

var (
	crcTable [256]uint32
	crcOnce  sync.Once
)

func makeCRCTable() {
	for n := range crcTable {
		c := uint32(n)
		for k := 0; k < 8; k++ {
			if c&1 != 0 {
				c = 0xedb88320 ^ (c >> 1)
			} else {
				c >>= 1
			}
		}

		crcTable[n] = c
	}
}

// crc32 computes the CRC used by PNG chunks over buf.
func crc32(buf []byte) uint32 {
	crcOnce.Do(makeCRCTable)

	c := uint32(0xffffffff)
	for _, b := range buf {
		c = crcTable[byte(c)^b] ^ (c >> 8)
	}

	return ^c
}
