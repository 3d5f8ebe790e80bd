package seeing

import (
	"math"
	"math/rand/v2"
)

// noiseImage returns a width x height image of Gaussian noise around level.
func noiseImage(width, height int, level, std float64, seed uint64) *Image {
	r := rand.New(rand.NewPCG(seed, seed^0x5eed))
	pix := make([]float64, width*height)
	for i := range pix {
		pix[i] = level + std*r.NormFloat64()
	}
	return &Image{Width: width, Height: height, Pix: pix}
}

// addStar adds a circular Gaussian of peak amp centred on (x0, y0).
func addStar(img *Image, x0, y0, amp, sigma float64) {
	radius := int(math.Ceil(6 * sigma))
	for y := max(0, int(y0)-radius); y <= min(img.Height-1, int(y0)+radius); y++ {
		for x := max(0, int(x0)-radius); x <= min(img.Width-1, int(x0)+radius); x++ {
			dx, dy := float64(x)-x0, float64(y)-y0
			img.Pix[y*img.Width+x] += amp * math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
		}
	}
}

// gaussianCutout renders a noise-free Gaussian of total flux on a size x size
// grid, evaluated at integer pixel coordinates.
func gaussianCutout(size int, x0, y0, flux, sigmaX, sigmaY, theta float64) *Cutout {
	amp := flux / (2 * math.Pi * sigmaX * sigmaY)
	p := []float64{pAmp: amp, pX0: x0, pY0: y0, pSigX: sigmaX, pSigY: sigmaY, pTheta: theta}
	pix := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			pix[y*size+x] = gaussianValue(p, float64(x), float64(y))
		}
	}
	return &Cutout{Image: Image{Width: size, Height: size, Pix: pix}}
}

type starPos struct{ X, Y float64 }

// starField places 20 stars on a jittered 5x4 grid, at least 60 pixels from
// the edges of a 500x500 image and 95 pixels from each other.
func starField() []starPos {
	stars := make([]starPos, 0, 20)
	for row := 0; row < 4; row++ {
		for col := 0; col < 5; col++ {
			i := row*5 + col
			stars = append(stars, starPos{
				X: 60 + float64(col)*95 + 0.1*float64((i*7)%10),
				Y: 70 + float64(row)*110 + 0.1*float64((i*3)%10),
			})
		}
	}
	return stars
}

// syntheticField renders starField with sigma 3 stars of amplitude 500 on a
// background of 10 with noise std 2.
func syntheticField(seed uint64) (*Image, []starPos) {
	img := noiseImage(500, 500, 10, 2, seed)
	stars := starField()
	for _, s := range stars {
		addStar(img, s.X, s.Y, 500, 3.0)
	}
	return img, stars
}

// randomStarPositions draws n positions uniformly in a size x size image, at
// least margin pixels from the edges and minSep pixels from each other.
func randomStarPositions(r *rand.Rand, n, size int, margin, minSep float64) []starPos {
	stars := make([]starPos, 0, n)
	span := float64(size) - 2*margin
	for len(stars) < n {
		c := starPos{X: margin + span*r.Float64(), Y: margin + span*r.Float64()}
		ok := true
		for _, s := range stars {
			if math.Hypot(s.X-c.X, s.Y-c.Y) < minSep {
				ok = false
				break
			}
		}
		if ok {
			stars = append(stars, c)
		}
	}
	return stars
}

// randomStarField renders 20 sigma 3 stars of amplitude 500 at random
// non-overlapping positions on a 500x500 background of 10 with noise std 2.
func randomStarField(seed uint64) (*Image, []starPos) {
	img := noiseImage(500, 500, 10, 2, seed)
	stars := randomStarPositions(rand.New(rand.NewPCG(seed, 0xf1e1d)), 20, 500, 25, 40)
	for _, s := range stars {
		addStar(img, s.X, s.Y, 500, 3.0)
	}
	return img, stars
}
