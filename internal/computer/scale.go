// Copyright 2025 Tomas Cupr
//
// Coordinate scaling between virtual and real screen space

package computer

import "math"

// Resolution is a display size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// DefaultVirtualResolution is the fixed resolution advertised to callers.
// Sizes above FWXGA are not recommended for vision models, so screenshots
// and coordinates are scaled to this target by default.
var DefaultVirtualResolution = Resolution{Width: 1366, Height: 768}

// Scaler maps coordinates between the virtual resolution advertised to the
// API and the real screen resolution probed at startup. Both resolutions
// are fixed for the process lifetime; the scaler is safe for concurrent use.
type Scaler struct {
	virtual Resolution
	real    Resolution
	enabled bool
}

// NewScaler builds a scaler for the given resolutions. When enabled is
// false both directions are the identity.
func NewScaler(virtual, real Resolution, enabled bool) *Scaler {
	return &Scaler{virtual: virtual, real: real, enabled: enabled}
}

// Enabled reports whether scaling is active.
func (s *Scaler) Enabled() bool { return s.enabled }

// Virtual returns the virtual resolution advertised to callers.
func (s *Scaler) Virtual() Resolution { return s.virtual }

// ToReal scales an API-space coordinate up to real screen space. Inputs
// beyond the virtual resolution are rejected as out of bounds. Rounding is
// half away from zero, applied uniformly in both directions so round trips
// are stable within one pixel.
func (s *Scaler) ToReal(x, y int) (int, int, error) {
	if !s.enabled {
		return x, y, nil
	}
	if x > s.virtual.Width || y > s.virtual.Height {
		return 0, 0, invalidArgf("coordinate",
			"coordinates %d, %d are out of bounds for %dx%d",
			x, y, s.virtual.Width, s.virtual.Height)
	}
	fx := float64(s.virtual.Width) / float64(s.real.Width)
	fy := float64(s.virtual.Height) / float64(s.real.Height)
	return int(math.Round(float64(x) / fx)), int(math.Round(float64(y) / fy)), nil
}

// ToVirtual scales a real screen coordinate down to API space. It never
// fails.
func (s *Scaler) ToVirtual(x, y int) (int, int) {
	if !s.enabled {
		return x, y
	}
	fx := float64(s.virtual.Width) / float64(s.real.Width)
	fy := float64(s.virtual.Height) / float64(s.real.Height)
	return int(math.Round(float64(x) * fx)), int(math.Round(float64(y) * fy))
}
