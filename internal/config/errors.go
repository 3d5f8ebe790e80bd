package config

import "errors"

// Configuration errors returned by Load and Config.Validate.
var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidFormat is returned when the output format is not text, json or markdown.
	ErrInvalidFormat = errors.New("invalid output format: must be text, json or markdown")

	// ErrInvalidROI is returned when the region of interest is outside (0, 1].
	ErrInvalidROI = errors.New("invalid roi: must be in (0, 1]")

	// ErrInvalidExcludeCenter is returned when the excluded centre is outside
	// [0, 1) or does not fit inside the region of interest.
	ErrInvalidExcludeCenter = errors.New("invalid exclude-center: must be in [0, roi)")

	// ErrInvalidPixelScale is returned when the pixel scale is negative.
	ErrInvalidPixelScale = errors.New("invalid pixel scale: must be non-negative")
)
