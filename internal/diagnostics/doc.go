// Package diagnostics renders images that help judge a seeing measurement:
// the 3x3 field overlay, a stretched preview of the frame with the measured
// stars circled, a montage of the star cutouts and a histogram of the
// per-star FWHM values.
package diagnostics
