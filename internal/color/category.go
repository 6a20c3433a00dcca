// Package color assigns stable tints to category names.
package color

import (
	"fmt"
	"hash/fnv"
)

// Tint saturation and lightness. Light enough that black text stays readable.
const (
	saturation = 0.55
	lightness  = 0.85
)

// ForCategory returns a "#RRGGBB" tint for name. The same name always gets the
// same tint; the empty name is gray.
func ForCategory(name string) string {
	if name == "" {
		r, g, b := hslToRGB(0, 0, lightness)
		return hex(r, g, b)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, saturation, lightness)
	return hex(r, g, b)
}

func hex(r, g, b uint8) string {
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hslToRGB converts h (0-360), s and l (0-1) to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := to8(l)
		return v, v, v
	}

	h /= 360
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q

	return to8(channel(p, q, h+1.0/3)), to8(channel(p, q, h)), to8(channel(p, q, h-1.0/3))
}

func channel(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

func to8(v float64) uint8 {
	return uint8(v*255 + 0.5)
}
