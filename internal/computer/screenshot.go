// Copyright 2025 Tomas Cupr
//
// Screen capture via the OS screencapture facility

package computer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// screenshot captures the full screen to a uniquely named file, downscales
// it to the virtual resolution when scaling is enabled, and reads it back
// into memory. A missing output file is an execution error carrying the
// captured stderr.
func (c *Computer) screenshot(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(c.opts.OutputDir, 0o755); err != nil {
		return nil, execErrorf("failed to create output directory: %v", err)
	}
	path := filepath.Join(c.opts.OutputDir, fmt.Sprintf("screenshot_%s.png", uuid.NewString()))

	_, stdout, stderr, err := c.runner.Run(ctx, c.opts.ScreencaptureBin, "-x", path)
	if err != nil {
		return nil, execErrorf("failed to take screenshot: %v", err)
	}

	if c.scaler.Enabled() {
		// sips resizes in place; a resize failure is tolerated, the
		// unscaled image is still usable.
		v := c.scaler.Virtual()
		_, _, sipsErr, err := c.runner.Run(ctx, c.opts.SipsBin,
			"-z", strconv.Itoa(v.Height), strconv.Itoa(v.Width), path)
		if err != nil || sipsErr != "" {
			c.log.Warn("screenshot downscale failed",
				zap.String("stderr", strings.TrimSpace(sipsErr)),
				zap.Error(err))
		}
	}

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, execErrorf("failed to take screenshot: %s", strings.TrimSpace(stderr))
	}
	if err := os.Remove(path); err != nil {
		c.log.Warn("failed to remove screenshot file",
			zap.String("path", path), zap.Error(err))
	}

	return &Result{Output: stdout, Error: stderr, Image: data}, nil
}
