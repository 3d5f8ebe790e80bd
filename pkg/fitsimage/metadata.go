package fitsimage

import (
	"strconv"
	"strings"
	"time"
)

// Metadata holds parsed FITS header key-value pairs.
type Metadata struct {
	Headers map[string]string
}

// NewMetadata creates an empty Metadata.
func NewMetadata() *Metadata {
	return &Metadata{Headers: make(map[string]string)}
}

func (m *Metadata) Set(key, value string) {
	m.Headers[strings.ToUpper(key)] = value
}

func (m *Metadata) GetString(key string) string {
	if v, ok := m.Headers[strings.ToUpper(key)]; ok {
		return v
	}
	return ""
}

func (m *Metadata) GetDouble(key string) (float64, bool) {
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (m *Metadata) GetInt(key string) (int, bool) {
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

// GetDateTime parses DATE-OBS style values, with or without a zone.
func (m *Metadata) GetDateTime(key string) (time.Time, bool) {
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return time.Time{}, false
	}
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (m *Metadata) ObjectName() string    { return m.GetString("OBJECT") }
func (m *Metadata) CameraName() string    { return m.GetString("INSTRUME") }
func (m *Metadata) Filter() string        { return m.GetString("FILTER") }
func (m *Metadata) TelescopeName() string { return m.GetString("TELESCOP") }
func (m *Metadata) BayerPattern() string  { return m.GetString("BAYERPAT") }

func (m *Metadata) ExposureTime() (float64, bool) {
	if v, ok := m.GetDouble("EXPTIME"); ok {
		return v, true
	}
	return m.GetDouble("EXPOSURE")
}

func (m *Metadata) FocalLength() (float64, bool) { return m.GetDouble("FOCALLEN") }
func (m *Metadata) PixelSizeX() (float64, bool)  { return m.GetDouble("XPIXSZ") }

// PixelScale returns the plate scale in arcsec per pixel, from PIXSCALE or
// derived from XPIXSZ (microns) and FOCALLEN (millimetres).
func (m *Metadata) PixelScale() (float64, bool) {
	if v, ok := m.GetDouble("PIXSCALE"); ok && v > 0 {
		return v, true
	}
	size, okSize := m.PixelSizeX()
	focal, okFocal := m.FocalLength()
	if !okSize || !okFocal || size <= 0 || focal <= 0 {
		return 0, false
	}
	return 206.265 * size / focal, true
}
