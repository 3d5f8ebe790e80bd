package fitsimage

import "errors"

var (
	// ErrUnsupportedFormat indicates a file whose format cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrInvalidFITS indicates a FITS file without a usable 2-D primary image.
	ErrInvalidFITS = errors.New("invalid FITS image")
)
