package fitsimage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fitsBlock = 2880

func card(key, value string) string {
	return fmt.Sprintf("%-80s", fmt.Sprintf("%-8s= %20s", key, value))
}

func stringCard(key, value string) string {
	return fmt.Sprintf("%-80s", fmt.Sprintf("%-8s= '%-8s'", key, value))
}

func pad(b []byte, fill byte) []byte {
	for len(b)%fitsBlock != 0 {
		b = append(b, fill)
	}
	return b
}

// buildFITS assembles a single-HDU FITS file with the given extra header cards.
func buildFITS(bitpix, width, height int, extra []string, data []byte) []byte {
	var hdr strings.Builder
	hdr.WriteString(card("SIMPLE", "T"))
	hdr.WriteString(card("BITPIX", fmt.Sprint(bitpix)))
	hdr.WriteString(card("NAXIS", "2"))
	hdr.WriteString(card("NAXIS1", fmt.Sprint(width)))
	hdr.WriteString(card("NAXIS2", fmt.Sprint(height)))
	for _, c := range extra {
		hdr.WriteString(c)
	}
	hdr.WriteString(fmt.Sprintf("%-80s", "END"))

	out := pad([]byte(hdr.String()), ' ')
	return append(out, pad(append([]byte(nil), data...), 0)...)
}

func TestDecodeFITS(t *testing.T) {
	t.Parallel()

	t.Run("int16 with BZERO", func(t *testing.T) {
		t.Parallel()
		raw := []int16{-32768, 0, 100, 32767, -100, 5}
		var data bytes.Buffer
		require.NoError(t, binary.Write(&data, binary.BigEndian, raw))

		file := buildFITS(16, 3, 2, []string{
			card("BZERO", "32768"),
			card("BSCALE", "1"),
			stringCard("OBJECT", "M42"),
			card("EXPTIME", "30.0"),
		}, data.Bytes())

		frame, err := ReadFITSFromBytes(file)
		require.NoError(t, err)
		assert.Equal(t, 3, frame.Image.Width)
		assert.Equal(t, 2, frame.Image.Height)
		assert.Equal(t, 16, frame.BitDepth)
		assert.Equal(t, []float64{0, 32768, 32868, 65535, 32668, 32773}, frame.Image.Pix)
		assert.Equal(t, "M42", frame.Metadata.ObjectName())
		exp, ok := frame.Metadata.ExposureTime()
		require.True(t, ok)
		assert.InDelta(t, 30.0, exp, 1e-12)
	})

	t.Run("float32", func(t *testing.T) {
		t.Parallel()
		raw := []float32{0.5, -1.25, 1000, 3}
		var data bytes.Buffer
		require.NoError(t, binary.Write(&data, binary.BigEndian, raw))

		frame, err := ReadFITSFromBytes(buildFITS(-32, 2, 2, nil, data.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, []float64{0.5, -1.25, 1000, 3}, frame.Image.Pix)
		assert.Equal(t, 32, frame.BitDepth)
	})

	t.Run("read from file", func(t *testing.T) {
		t.Parallel()
		data := []byte{1, 2, 3, 4}
		path := filepath.Join(t.TempDir(), "frame.fits")
		require.NoError(t, os.WriteFile(path, buildFITS(8, 2, 2, nil, data), 0o644))

		frame, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3, 4}, frame.Image.Pix)
	})

	t.Run("not a FITS file", func(t *testing.T) {
		t.Parallel()
		_, err := ReadFITSFromBytes([]byte("definitely not fits"))
		require.ErrorIs(t, err, ErrInvalidFITS)
	})
}

func TestDecodePixels(t *testing.T) {
	t.Parallel()

	var data bytes.Buffer
	require.NoError(t, binary.Write(&data, binary.BigEndian, []float64{math.Pi, -2}))
	pix, err := decodePixels(data.Bytes(), -64, 2, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{2*math.Pi + 1, -3}, pix)

	_, err = decodePixels([]byte{0, 0}, 16, 2, 1, 0)
	require.ErrorIs(t, err, ErrInvalidFITS)

	_, err = decodePixels([]byte{0, 0, 0}, 24, 1, 1, 0)
	require.ErrorIs(t, err, ErrInvalidFITS)
}

func TestIsFITS(t *testing.T) {
	t.Parallel()
	assert.True(t, IsFITS("light_001.fits"))
	assert.True(t, IsFITS("/data/LIGHT.FIT"))
	assert.True(t, IsFITS("x.fts"))
	assert.False(t, IsFITS("preview.png"))
	assert.False(t, IsFITS("fits"))
}
