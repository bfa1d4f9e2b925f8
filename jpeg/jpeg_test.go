package jpeg

import "testing"

// FuzzDecode tests that arbitrary input never panics.
func FuzzDecode(f *testing.F) {
	f.Add(encodeStd(f, noiseRGBA(24, 16, 1), 75))
	f.Add(encodeStd(f, noiseGray(9, 7, 2), 90))
	f.Add(dcImage{
		width: 16, height: 16, restart: 1,
		sampling: [][2]int{{2, 2}, {1, 1}, {1, 1}},
		dc:       func(c, bx, by int) int { return c + bx - by },
	}.bytes())

	d := NewDecoder()

	f.Fuzz(func(t *testing.T, data []byte) {
		h, err := d.DecodeHeader(data)
		if err != nil {
			return
		}

		w, ht := min(h.Width, 512), min(h.Height, 512)
		dst := make([]byte, w*ht*4)

		_ = d.DecodeImage(h, dst, w, ht)
	})
}
