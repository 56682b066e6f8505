// Package analysis computes simple image statistics on decoded frames, used
// by the tools to help with focusing and exposure.
package analysis

import (
	"image"
	"math"
	"math/cmplx"

	"github.com/kevmo314/go-openmv/pkg/decode"
	"github.com/mjibson/go-dsp/fft"
)

// FocusWindow is the edge length of the centered square used by FocusScore.
const FocusWindow = 64

// Luma returns the BT.601 luminance of an RGB triple.
func Luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

func MeanLuminance(img *decode.RGB) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			sum += Luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		}
	}
	return sum / float64(n)
}

// Histogram counts pixels by rounded luminance.
func Histogram(img *decode.RGB) [256]int {
	var h [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			v := int(math.Round(Luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2])))
			if v > 255 {
				v = 255
			}
			h[v]++
		}
	}
	return h
}

// FocusScore is the share of spectral energy above a quarter of the Nyquist
// radius, measured over a window at the center of the frame. Sharp images
// score higher. A flat image scores 0.
func FocusScore(img *decode.RGB) float64 {
	b := img.Bounds()
	w, h := min(FocusWindow, b.Dx()), min(FocusWindow, b.Dy())
	if w < 2 || h < 2 {
		return 0
	}
	win := image.Rect(0, 0, w, h).Add(b.Min).Add(image.Pt((b.Dx()-w)/2, (b.Dy()-h)/2))

	var mean float64
	m := make([][]float64, h)
	for y := range m {
		m[y] = make([]float64, w)
		for x := range m[y] {
			i := img.PixOffset(win.Min.X+x, win.Min.Y+y)
			m[y][x] = Luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			mean += m[y][x]
		}
	}
	mean /= float64(w * h)
	for y := range m {
		for x := range m[y] {
			m[y][x] -= mean
		}
	}

	spectrum := fft.FFT2Real(m)
	var total, high float64
	for v, row := range spectrum {
		fy := freq(v, h)
		for u, c := range row {
			e := cmplx.Abs(c)
			e *= e
			total += e
			fx := freq(u, w)
			if math.Hypot(fx, fy) > 0.125 {
				high += e
			}
		}
	}
	if total < 1e-9 {
		return 0
	}
	return high / total
}

// freq maps an FFT bin to cycles per sample in [-0.5, 0.5].
func freq(i, n int) float64 {
	if i > n/2 {
		i -= n
	}
	return float64(i) / float64(n)
}
