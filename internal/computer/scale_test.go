// Copyright 2025 Tomas Cupr

package computer

import (
	"strings"
	"testing"
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestScaler_RoundTripWithinOnePixel(t *testing.T) {
	virtual := Resolution{Width: 1366, Height: 768}
	reals := []Resolution{
		{Width: 2732, Height: 1536}, // exact 2x
		{Width: 1920, Height: 1080},
		{Width: 2560, Height: 1440},
		{Width: 1440, Height: 900},
		{Width: 3456, Height: 2234},
	}

	for _, real := range reals {
		s := NewScaler(virtual, real, true)
		for x := 0; x <= virtual.Width; x += 7 {
			for y := 0; y <= virtual.Height; y += 7 {
				rx, ry, err := s.ToReal(x, y)
				if err != nil {
					t.Fatalf("ToReal(%d, %d) on %dx%d: %v", x, y, real.Width, real.Height, err)
				}
				vx, vy := s.ToVirtual(rx, ry)
				if abs(vx-x) > 1 || abs(vy-y) > 1 {
					t.Fatalf("round trip (%d,%d) -> (%d,%d) -> (%d,%d) drifted more than 1px on %dx%d",
						x, y, rx, ry, vx, vy, real.Width, real.Height)
				}
			}
		}
	}
}

func TestScaler_ToRealRejectsOutOfBounds(t *testing.T) {
	s := NewScaler(Resolution{Width: 1366, Height: 768}, Resolution{Width: 1920, Height: 1080}, true)

	tests := []struct {
		name string
		x, y int
	}{
		{"x beyond virtual width", 1367, 0},
		{"y beyond virtual height", 0, 769},
		{"both beyond", 5000, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.ToReal(tt.x, tt.y)
			if !IsInvalidArgument(err) {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
			if !strings.Contains(err.Error(), "out of bounds") {
				t.Errorf("expected out of bounds message, got %v", err)
			}
		})
	}
}

func TestScaler_BoundaryAccepted(t *testing.T) {
	s := NewScaler(Resolution{Width: 1366, Height: 768}, Resolution{Width: 2732, Height: 1536}, true)
	x, y, err := s.ToReal(1366, 768)
	if err != nil {
		t.Fatalf("boundary coordinate rejected: %v", err)
	}
	if x != 2732 || y != 1536 {
		t.Errorf("expected (2732, 1536), got (%d, %d)", x, y)
	}
}

func TestScaler_DisabledIsIdentity(t *testing.T) {
	s := NewScaler(Resolution{Width: 1366, Height: 768}, Resolution{Width: 1920, Height: 1080}, false)

	x, y, err := s.ToReal(5000, 5000)
	if err != nil {
		t.Fatalf("disabled scaler must not bounds-check: %v", err)
	}
	if x != 5000 || y != 5000 {
		t.Errorf("expected identity, got (%d, %d)", x, y)
	}

	vx, vy := s.ToVirtual(123, 456)
	if vx != 123 || vy != 456 {
		t.Errorf("expected identity, got (%d, %d)", vx, vy)
	}
}

func TestScaler_ToVirtualScalesDown(t *testing.T) {
	s := NewScaler(Resolution{Width: 1366, Height: 768}, Resolution{Width: 2732, Height: 1536}, true)
	x, y := s.ToVirtual(2732, 1536)
	if x != 1366 || y != 768 {
		t.Errorf("expected (1366, 768), got (%d, %d)", x, y)
	}
}
