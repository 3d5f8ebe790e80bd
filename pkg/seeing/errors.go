package seeing

import "errors"

var (
	// ErrDetection indicates the input image or mask cannot be searched for sources.
	ErrDetection = errors.New("source detection failed")

	// ErrFitConvergence indicates the Gaussian fit did not produce a usable profile.
	ErrFitConvergence = errors.New("profile fit did not converge")

	// ErrCutoutClipped indicates the cutout window extends past the image edge.
	ErrCutoutClipped = errors.New("cutout extends past image edge")

	// ErrImplausibleFWHM indicates a fitted FWHM outside the plausibility window.
	ErrImplausibleFWHM = errors.New("implausible FWHM")

	// ErrInsufficientData indicates no plausible FWHM values survived aggregation.
	ErrInsufficientData = errors.New("insufficient data for seeing estimate")

	// ErrInvalidParams indicates a parameter value the pipeline cannot run with.
	ErrInvalidParams = errors.New("invalid parameters")
)
