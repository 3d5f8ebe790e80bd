//go:build purego || js

package fitsimage

func readRaster(path string) (*Frame, error) {
	return decodeRasterFile(path)
}
