package ocr

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Bank derives the fixed set of enhanced renderings from img, all computed
// from a grayscale conversion of the input. The set, its order and its names
// never change: the scorer relies on that for tie-break reproducibility.
// No single enhancement wins on every document class, so the bank generates
// all of them and lets the scorer discriminate.
func Bank(img image.Image) []Rendering {
	gray := toPlane(img)
	return []Rendering{
		{Method: "basic", Image: basicEnhance(gray).toNRGBA()},
		{Method: "morphological", Image: morphOpenClose(gray, 2).toNRGBA()},
		{Method: "adaptive_thresh", Image: adaptiveThreshold(gaussianBlur(gray, 1.1), 11, 2).toNRGBA()},
		{Method: "otsu", Image: otsuThreshold(gaussianBlur(gray, 0.8)).toNRGBA()},
		{Method: "sharpened", Image: unsharpSharpen(bilateralFilter(gray, 4, 75, 75)).toNRGBA()},
		{Method: "nlm_denoised", Image: nlmDenoise(gray, 10)},
	}
}

// BankMethods lists the rendering names in bank order.
func BankMethods() []string {
	return []string{"basic", "morphological", "adaptive_thresh", "otsu", "sharpened", "nlm_denoised"}
}

// grayPlane is a single-channel working buffer for the pixel kernels below.
type grayPlane struct {
	w, h int
	pix  []uint8
}

func newPlane(w, h int) *grayPlane {
	return &grayPlane{w: w, h: h, pix: make([]uint8, w*h)}
}

func (p *grayPlane) at(x, y int) uint8 {
	if x < 0 {
		x = 0
	} else if x >= p.w {
		x = p.w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= p.h {
		y = p.h - 1
	}
	return p.pix[y*p.w+x]
}

func (p *grayPlane) toNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, p.w, p.h))
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			v := p.pix[y*p.w+x]
			out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

// toPlane normalizes any decoded image to an 8-bit grayscale plane.
func toPlane(img image.Image) *grayPlane {
	g := imaging.Grayscale(img)
	b := g.Bounds()
	p := newPlane(b.Dx(), b.Dy())
	for y := 0; y < p.h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < p.w; x++ {
			p.pix[y*p.w+x] = row[x*4] // R==G==B after Grayscale
		}
	}
	return p
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// basicEnhance is the "basic" rendering: 3x3 median denoise followed by
// clip-limited tile-based contrast equalization.
func basicEnhance(p *grayPlane) *grayPlane {
	return claheEqualize(medianBlur3(p), 2.0, 8)
}

// medianBlur3 applies a 3x3 median filter.
func medianBlur3(p *grayPlane) *grayPlane {
	out := newPlane(p.w, p.h)
	var win [9]uint8
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			i := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					win[i] = p.at(x+dx, y+dy)
					i++
				}
			}
			// insertion sort of 9 values, median at index 4
			for a := 1; a < 9; a++ {
				v := win[a]
				b := a - 1
				for b >= 0 && win[b] > v {
					win[b+1] = win[b]
					b--
				}
				win[b+1] = v
			}
			out.pix[y*p.w+x] = win[4]
		}
	}
	return out
}

// claheEqualize performs contrast-limited adaptive histogram equalization on a
// tiles x tiles grid, interpolating bilinearly between neighboring tile
// mappings to avoid block seams.
func claheEqualize(p *grayPlane, clipLimit float64, tiles int) *grayPlane {
	if tiles < 1 {
		tiles = 1
	}
	tileW := (p.w + tiles - 1) / tiles
	tileH := (p.h + tiles - 1) / tiles
	if tileW < 1 || tileH < 1 {
		return p
	}
	luts := make([][256]uint8, tiles*tiles)
	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := x0+tileW, y0+tileH
			if x1 > p.w {
				x1 = p.w
			}
			if y1 > p.h {
				y1 = p.h
			}
			var hist [256]int
			n := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[p.pix[y*p.w+x]]++
					n++
				}
			}
			if n == 0 {
				continue
			}
			// clip histogram and redistribute the excess evenly
			limit := int(clipLimit * float64(n) / 256.0)
			if limit < 1 {
				limit = 1
			}
			excess := 0
			for v := 0; v < 256; v++ {
				if hist[v] > limit {
					excess += hist[v] - limit
					hist[v] = limit
				}
			}
			share := excess / 256
			for v := 0; v < 256; v++ {
				hist[v] += share
			}
			cum := 0
			for v := 0; v < 256; v++ {
				cum += hist[v]
				luts[ty*tiles+tx][v] = clampU8(255.0 * float64(cum) / float64(n))
			}
		}
	}
	out := newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		fy := (float64(y)-float64(tileH)/2 + 0.5) / float64(tileH)
		ty0 := int(math.Floor(fy))
		wy := fy - float64(ty0)
		ty1 := ty0 + 1
		if ty0 < 0 {
			ty0, ty1, wy = 0, 0, 0
		}
		if ty1 >= tiles {
			ty1 = tiles - 1
			if ty0 >= tiles {
				ty0, wy = tiles-1, 0
			}
		}
		for x := 0; x < p.w; x++ {
			fx := (float64(x)-float64(tileW)/2 + 0.5) / float64(tileW)
			tx0 := int(math.Floor(fx))
			wx := fx - float64(tx0)
			tx1 := tx0 + 1
			if tx0 < 0 {
				tx0, tx1, wx = 0, 0, 0
			}
			if tx1 >= tiles {
				tx1 = tiles - 1
				if tx0 >= tiles {
					tx0, wx = tiles-1, 0
				}
			}
			v := p.pix[y*p.w+x]
			top := (1-wx)*float64(luts[ty0*tiles+tx0][v]) + wx*float64(luts[ty0*tiles+tx1][v])
			bot := (1-wx)*float64(luts[ty1*tiles+tx0][v]) + wx*float64(luts[ty1*tiles+tx1][v])
			out.pix[y*p.w+x] = clampU8((1-wy)*top + wy*bot)
		}
	}
	return out
}

// morphOpenClose applies grayscale opening then closing with a k x k square
// structuring element: opening thins stray noise, closing rejoins broken
// strokes.
func morphOpenClose(p *grayPlane, k int) *grayPlane {
	opened := morphDilate(morphErode(p, k), k)
	return morphErode(morphDilate(opened, k), k)
}

func morphErode(p *grayPlane, k int) *grayPlane {
	out := newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			mn := uint8(255)
			for dy := 0; dy < k; dy++ {
				for dx := 0; dx < k; dx++ {
					if v := p.at(x+dx, y+dy); v < mn {
						mn = v
					}
				}
			}
			out.pix[y*p.w+x] = mn
		}
	}
	return out
}

func morphDilate(p *grayPlane, k int) *grayPlane {
	out := newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			mx := uint8(0)
			for dy := 0; dy < k; dy++ {
				for dx := 0; dx < k; dx++ {
					if v := p.at(x+dx, y+dy); v > mx {
						mx = v
					}
				}
			}
			out.pix[y*p.w+x] = mx
		}
	}
	return out
}

// gaussianBlur smooths through imaging's gaussian kernel.
func gaussianBlur(p *grayPlane, sigma float64) *grayPlane {
	return toPlane(imaging.Blur(p.toNRGBA(), sigma))
}

// adaptiveThreshold binarizes against the local window mean (integral-image
// based) minus a constant bias.
func adaptiveThreshold(p *grayPlane, window, bias int) *grayPlane {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	half := window / 2
	// integral image with a zero border row/column
	ints := make([]int64, (p.w+1)*(p.h+1))
	for y := 0; y < p.h; y++ {
		var rowSum int64
		for x := 0; x < p.w; x++ {
			rowSum += int64(p.pix[y*p.w+x])
			ints[(y+1)*(p.w+1)+(x+1)] = ints[y*(p.w+1)+(x+1)] + rowSum
		}
	}
	out := newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			x0, y0 := x-half, y-half
			x1, y1 := x+half, y+half
			if x0 < 0 {
				x0 = 0
			}
			if y0 < 0 {
				y0 = 0
			}
			if x1 >= p.w {
				x1 = p.w - 1
			}
			if y1 >= p.h {
				y1 = p.h - 1
			}
			area := int64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := ints[(y1+1)*(p.w+1)+(x1+1)] - ints[(y0)*(p.w+1)+(x1+1)] -
				ints[(y1+1)*(p.w+1)+(x0)] + ints[(y0)*(p.w+1)+(x0)]
			mean := sum / area
			if int64(p.pix[y*p.w+x]) > mean-int64(bias) {
				out.pix[y*p.w+x] = 255
			}
		}
	}
	return out
}

// otsuThreshold binarizes at the global threshold maximizing between-class
// variance.
func otsuThreshold(p *grayPlane) *grayPlane {
	var hist [256]int
	for _, v := range p.pix {
		hist[v]++
	}
	total := len(p.pix)
	var sum float64
	for v := 0; v < 256; v++ {
		sum += float64(v) * float64(hist[v])
	}
	var sumB, wB float64
	bestVar, thresh := -1.0, 0
	for v := 0; v < 256; v++ {
		wB += float64(hist[v])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(v) * float64(hist[v])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			thresh = v
		}
	}
	out := newPlane(p.w, p.h)
	for i, v := range p.pix {
		if int(v) > thresh {
			out.pix[i] = 255
		}
	}
	return out
}

// bilateralFilter smooths while preserving edges: spatial gaussian weight
// times an intensity-difference gaussian weight.
func bilateralFilter(p *grayPlane, radius int, sigmaColor, sigmaSpace float64) *grayPlane {
	size := 2*radius + 1
	spatial := make([]float64, size*size)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[(dy+radius)*size+(dx+radius)] = math.Exp(-d2 / (2 * sigmaSpace * sigmaSpace))
		}
	}
	var colorW [256]float64
	for d := 0; d < 256; d++ {
		colorW[d] = math.Exp(-float64(d*d) / (2 * sigmaColor * sigmaColor))
	}
	out := newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			center := p.pix[y*p.w+x]
			var acc, wsum float64
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					v := p.at(x+dx, y+dy)
					d := int(v) - int(center)
					if d < 0 {
						d = -d
					}
					w := spatial[(dy+radius)*size+(dx+radius)] * colorW[d]
					acc += w * float64(v)
					wsum += w
				}
			}
			out.pix[y*p.w+x] = clampU8(acc / wsum)
		}
	}
	return out
}

// unsharpSharpen applies an unsharp mask: 1.5*src - 0.5*gaussian(src, 2.0).
func unsharpSharpen(p *grayPlane) *grayPlane {
	blurred := gaussianBlur(p, 2.0)
	out := newPlane(p.w, p.h)
	for i := range p.pix {
		out.pix[i] = clampU8(1.5*float64(p.pix[i]) - 0.5*float64(blurred.pix[i]))
	}
	return out
}

// nlmDenoise is a reduced non-local-means pass for heavy sensor noise:
// 3x3 patches compared over a 7x7 search window, weighted by patch MSE.
func nlmDenoise(p *grayPlane, h float64) *image.NRGBA {
	const patch = 1  // 3x3 patches
	const search = 3 // 7x7 search window
	h2 := h * h
	out := newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			var acc, wsum float64
			for sy := -search; sy <= search; sy++ {
				for sx := -search; sx <= search; sx++ {
					var dist float64
					for py := -patch; py <= patch; py++ {
						for px := -patch; px <= patch; px++ {
							d := float64(p.at(x+px, y+py)) - float64(p.at(x+sx+px, y+sy+py))
							dist += d * d
						}
					}
					dist /= float64((2*patch + 1) * (2*patch + 1))
					w := math.Exp(-dist / h2)
					acc += w * float64(p.at(x+sx, y+sy))
					wsum += w
				}
			}
			out.pix[y*p.w+x] = clampU8(acc / wsum)
		}
	}
	return out.toNRGBA()
}
