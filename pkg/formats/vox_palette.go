package formats

// voxRampSteps are the channel values of the trailing single-channel and gray ramps.
var voxRampSteps = [10]uint8{0xee, 0xdd, 0xbb, 0xaa, 0x88, 0x77, 0x55, 0x44, 0x22, 0x11}

// DefaultVOXPalette returns the palette MagicaVoxel uses when a file has no
// RGBA chunk: the 6x6x6 color cube without black, followed by red, green,
// blue and gray ramps.
func DefaultVOXPalette() [PaletteSize]VOXColor {
	var pal [PaletteSize]VOXColor
	cube := [6]uint8{0xff, 0xcc, 0x99, 0x66, 0x33, 0x00}

	i := 0
	for _, r := range cube {
		for _, g := range cube {
			for _, b := range cube {
				if r == 0 && g == 0 && b == 0 {
					continue
				}
				pal[i] = rgba8(r, g, b, 0xff)
				i++
			}
		}
	}
	for ch := 0; ch < 3; ch++ {
		for _, s := range voxRampSteps {
			var c [3]uint8
			c[ch] = s
			pal[i] = rgba8(c[0], c[1], c[2], 0xff)
			i++
		}
	}
	for _, s := range voxRampSteps {
		pal[i] = rgba8(s, s, s, 0xff)
		i++
	}
	return pal
}

func rgba8(r, g, b, a uint8) VOXColor {
	return VOXColor{float32(r) / 255, float32(g) / 255, float32(b) / 255, float32(a) / 255}
}
