// Copyright 2025 Tomas Cupr
//
// Real display resolution probe

package computer

import (
	"context"
	"strconv"
	"strings"
)

// desktopBoundsScript asks Finder for the desktop bounds, which come back
// as "0, 0, <width>, <height>" for the main display.
const desktopBoundsScript = `tell application "Finder" to get bounds of window of desktop`

// ProbeResolution queries the real screen resolution once at startup. The
// result is immutable for the process lifetime.
func ProbeResolution(ctx context.Context, runner Runner) (Resolution, error) {
	code, stdout, stderr, err := runner.Run(ctx, "osascript", "-e", desktopBoundsScript)
	if err != nil {
		return Resolution{}, execErrorf("failed to probe display resolution: %v", err)
	}
	if code != 0 {
		return Resolution{}, execErrorf("failed to probe display resolution: %s", strings.TrimSpace(stderr))
	}

	res, err := parseDesktopBounds(stdout)
	if err != nil {
		return Resolution{}, err
	}
	return res, nil
}

func parseDesktopBounds(out string) (Resolution, error) {
	fields := strings.Split(strings.TrimSpace(out), ",")
	if len(fields) != 4 {
		return Resolution{}, execErrorf("unexpected desktop bounds output: %q", strings.TrimSpace(out))
	}

	width, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Resolution{}, execErrorf("unexpected desktop bounds output: %q", strings.TrimSpace(out))
	}
	height, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return Resolution{}, execErrorf("unexpected desktop bounds output: %q", strings.TrimSpace(out))
	}
	if width <= 0 || height <= 0 {
		return Resolution{}, execErrorf("invalid display resolution %dx%d", width, height)
	}
	return Resolution{Width: width, Height: height}, nil
}
