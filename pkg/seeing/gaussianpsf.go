/*
Extracted from HocusFocus plugin by George Hilios.
Original Copyright © 2021 George Hilios <ghilios+NINA@googlemail.com>
Licensed under Mozilla Public License 2.0.
Ported to Go.
*/

package seeing

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Parameter order of the Gaussian model.
const (
	pAmp = iota
	pX0
	pY0
	pSigX
	pSigY
	pTheta
	numParams
)

const (
	costTolerance = 1e-12
	maxLambda     = 1e16
	// The solver works on ln(sigma); one step changes either log width by
	// at most maxLogWidthStep.
	maxLogWidthStep = 0.7
	maxLogWidth     = 20.0
)

// FitProfile fits a rotated 2D Gaussian without background to the cutout
// pixels by Levenberg-Marquardt least squares. The fit starts from the
// brightest pixel, with both widths set to the standard deviation of the
// cutout intensities.
func FitProfile(c *Cutout, p FitterParams) (*FittedProfile, error) {
	if c == nil || c.Empty() {
		return nil, fmt.Errorf("%w: empty cutout", ErrFitConvergence)
	}
	lo, hi := c.Range()
	if !(hi > lo) {
		return nil, fmt.Errorf("%w: flat cutout", ErrFitConvergence)
	}
	for _, v := range c.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite pixel in cutout", ErrFitConvergence)
		}
	}

	argmax := floats.MaxIdx(c.Pix)
	_, std := stat.PopMeanStdDev(c.Pix, nil)
	x0 := []float64{
		pAmp:   c.Pix[argmax],
		pX0:    float64(argmax % c.Width),
		pY0:    float64(argmax / c.Width),
		pSigX:  std,
		pSigY:  std,
		pTheta: 0,
	}

	solution, iterations, err := levenbergMarquardt(&c.Image, x0, p)
	if err != nil {
		return nil, err
	}

	profile := &FittedProfile{
		Amplitude:  solution[pAmp],
		XMean:      solution[pX0],
		YMean:      solution[pY0],
		XStdDev:    math.Abs(solution[pSigX]),
		YStdDev:    math.Abs(solution[pSigY]),
		Theta:      normalizeTheta(solution[pTheta]),
		Iterations: iterations,
	}
	fwhm := profile.FWHM()
	if profile.XStdDev == 0 || profile.YStdDev == 0 {
		return nil, fmt.Errorf("%w: zero width", ErrFitConvergence)
	}
	if math.IsNaN(fwhm) || math.IsInf(fwhm, 0) || fwhm <= 0 {
		return nil, fmt.Errorf("%w: FWHM %f", ErrFitConvergence, fwhm)
	}
	profile.RSquared = computeRSquared(&c.Image, solution)
	return profile, nil
}

// AverageFWHM fits the cutout and returns the mean of the two axis FWHMs.
func AverageFWHM(c *Cutout, p FitterParams) (float64, error) {
	profile, err := FitProfile(c, p)
	if err != nil {
		return 0, err
	}
	return profile.FWHM(), nil
}

func euclidianModulus(x, y float64) float64 {
	return math.Mod(math.Mod(x, y)+y, y)
}

// normalizeTheta maps an angle into (-pi/2, pi/2].
func normalizeTheta(theta float64) float64 {
	t := euclidianModulus(theta, math.Pi)
	if t > math.Pi/2.0 {
		t -= math.Pi
	}
	return t
}

func gaussianValue(p []float64, x, y float64) float64 {
	A := p[pAmp]
	x0, y0 := p[pX0], p[pY0]
	U, V, T := p[pSigX], p[pSigY], p[pTheta]

	cosT, sinT := math.Cos(T), math.Sin(T)
	X := (x-x0)*cosT + (y-y0)*sinT
	Y := -(x-x0)*sinT + (y-y0)*cosT
	E := X*X/(2*U*U) + Y*Y/(2*V*V)
	return A * math.Exp(-E)
}

func gaussianGradient(p []float64, x, y float64, grad []float64) {
	A := p[pAmp]
	x0, y0 := p[pX0], p[pY0]
	U, V, T := p[pSigX], p[pSigY], p[pTheta]

	cosT, sinT := math.Cos(T), math.Sin(T)
	X := (x-x0)*cosT + (y-y0)*sinT
	Y := -(x-x0)*sinT + (y-y0)*cosT
	X2 := X * X
	Y2 := Y * Y
	U2 := U * U
	U3 := U2 * U
	V2 := V * V
	V3 := V2 * V
	E := X2/(2*U2) + Y2/(2*V2)
	eE := math.Exp(-E)

	grad[pAmp] = eE
	grad[pX0] = A * (cosT*X/U2 - sinT*Y/V2) * eE
	grad[pY0] = A * (sinT*X/U2 + cosT*Y/V2) * eE
	grad[pSigX] = A * X2 / U3 * eE
	grad[pSigY] = A * Y2 / V3 * eE
	grad[pTheta] = A * X * Y * (1.0/V2 - 1.0/U2) * eE
}

func computeRSquared(img *Image, p []float64) float64 {
	yBar := floats.Sum(img.Pix) / float64(len(img.Pix))

	tss, rss := 0.0, 0.0
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := img.Pix[y*img.Width+x]
			res := gaussianValue(p, float64(x), float64(y)) - v
			disp := v - yBar
			rss += res * res
			tss += disp * disp
		}
	}
	if tss > 0 {
		return 1.0 - rss/tss
	}
	return 0.0
}

// residuals writes model minus data for every pixel of img into fi and
// returns the sum of squares.
func residuals(img *Image, p []float64, fi []float64) float64 {
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := y*img.Width + x
			fi[i] = gaussianValue(p, float64(x), float64(y)) - img.Pix[i]
		}
	}
	return floats.Dot(fi, fi)
}

// jacobian fills jac with the derivatives of the model with respect to the
// solver parameters. The width columns are scaled by sigma for ln(sigma).
func jacobian(img *Image, p []float64, jac *mat.Dense) {
	grad := make([]float64, numParams)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			gaussianGradient(p, float64(x), float64(y), grad)
			grad[pSigX] *= p[pSigX]
			grad[pSigY] *= p[pSigY]
			jac.SetRow(y*img.Width+x, grad)
		}
	}
}

// toModel converts solver parameters, which hold ln(sigma), to model parameters.
func toModel(q, p []float64) {
	copy(p, q)
	p[pSigX] = math.Exp(q[pSigX])
	p[pSigY] = math.Exp(q[pSigY])
}

func validStep(q []float64) bool {
	for _, v := range q {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return math.Abs(q[pSigX]) <= maxLogWidth && math.Abs(q[pSigY]) <= maxLogWidth
}

// clampWidthStep scales dx so that neither log width moves by more than
// maxLogWidthStep.
func clampWidthStep(dx *mat.VecDense) {
	largest := math.Max(math.Abs(dx.AtVec(pSigX)), math.Abs(dx.AtVec(pSigY)))
	if largest > maxLogWidthStep {
		dx.ScaleVec(maxLogWidthStep/largest, dx)
	}
}

// levenbergMarquardt minimizes the squared residuals of the Gaussian model
// against img, starting from the model parameters x0, and returns the fitted
// model parameters. The damping term is scaled by the diagonal of J^T J,
// floored so that parameters the data does not constrain (theta of a round
// profile) stay solvable. Reaching p.MaxIterations is a failure.
func levenbergMarquardt(img *Image, x0 []float64, p FitterParams) ([]float64, int, error) {
	n := numParams
	m := len(img.Pix)
	if m < n {
		return nil, 0, fmt.Errorf("%w: %d pixels for %d parameters", ErrFitConvergence, m, n)
	}
	if !(x0[pSigX] > 0) || !(x0[pSigY] > 0) {
		return nil, 0, fmt.Errorf("%w: initial widths %f, %f", ErrFitConvergence, x0[pSigX], x0[pSigY])
	}

	q := make([]float64, n)
	copy(q, x0)
	q[pSigX] = math.Log(x0[pSigX])
	q[pSigY] = math.Log(x0[pSigY])
	model := make([]float64, n)
	toModel(q, model)

	qNew := make([]float64, n)
	modelNew := make([]float64, n)
	fi := make([]float64, m)
	fiNew := make([]float64, m)
	jac := mat.NewDense(m, n, nil)
	jtj := mat.NewSymDense(n, nil)
	damped := mat.NewSymDense(n, nil)
	diag := make([]float64, n)
	var jtf, rhs, dx mat.VecDense
	var chol mat.Cholesky

	cost := residuals(img, model, fi)
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return nil, 0, fmt.Errorf("%w: non-finite initial cost", ErrFitConvergence)
	}
	jacobian(img, model, jac)

	lambda := 1e-3
	nu := 2.0

	for iter := 1; iter <= p.MaxIterations; iter++ {
		jtj.SymOuterK(1, jac.T())
		jtf.MulVec(jac.T(), mat.NewVecDense(m, fi))
		if cost == 0 || mat.Norm(&jtf, math.Inf(1)) == 0 {
			return model, iter, nil
		}
		rhs.ScaleVec(-1, &jtf)

		maxDiag := 0.0
		for i := 0; i < n; i++ {
			diag[i] = jtj.At(i, i)
			maxDiag = math.Max(maxDiag, diag[i])
		}
		floor := math.Max(1e-9*maxDiag, 1e-300)
		for i := range diag {
			diag[i] = math.Max(diag[i], floor)
		}

		for {
			damped.CopySym(jtj)
			for i := 0; i < n; i++ {
				damped.SetSym(i, i, jtj.At(i, i)+lambda*diag[i])
			}

			solved := chol.Factorize(damped)
			if solved {
				if err := chol.SolveVecTo(&dx, &rhs); err != nil {
					var cond mat.Condition
					solved = errors.As(err, &cond)
				}
			}

			if solved {
				clampWidthStep(&dx)
				for j := 0; j < n; j++ {
					qNew[j] = q[j] + dx.AtVec(j)
				}
				if validStep(qNew) {
					toModel(qNew, modelNew)
					costNew := residuals(img, modelNew, fiNew)
					if costNew < cost {
						improvement := (cost - costNew) / cost
						stepSmall := mat.Norm(&dx, 2) <= p.Tolerance*(floats.Norm(q, 2)+p.Tolerance)
						copy(q, qNew)
						copy(model, modelNew)
						copy(fi, fiNew)
						cost = costNew
						lambda = math.Max(lambda/3.0, 1e-15)
						nu = 2.0
						if stepSmall || improvement < costTolerance {
							return model, iter, nil
						}
						jacobian(img, model, jac)
						break
					}
				}
			}

			lambda *= nu
			nu *= 2.0
			if lambda > maxLambda {
				// No step improves the cost any more.
				return model, iter, nil
			}
		}
	}
	return nil, p.MaxIterations, fmt.Errorf("%w: no convergence after %d iterations", ErrFitConvergence, p.MaxIterations)
}
