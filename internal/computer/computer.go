// Copyright 2025 Tomas Cupr
//
// Action dispatcher: translates automation requests into cliclick and
// screencapture invocations.

package computer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Options is the immutable dispatcher configuration, constructed once at
// startup from the probed real resolution and the environment.
type Options struct {
	Virtual        Resolution
	Real           Resolution
	ScalingEnabled bool

	// SettleDelay is the unconditional pause after an interactive action
	// before the trailing screenshot, letting UI state stabilize.
	SettleDelay time.Duration

	// TypingDelay is the inter-chunk delay passed to cliclick to avoid
	// dropped keystrokes; TypingGroupSize is the chunk length in runes.
	TypingDelay     time.Duration
	TypingGroupSize int

	OutputDir string

	CliclickBin      string
	ScreencaptureBin string
	SipsBin          string
}

func (o Options) withDefaults() Options {
	if o.Virtual == (Resolution{}) {
		o.Virtual = DefaultVirtualResolution
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = time.Second
	}
	if o.TypingDelay == 0 {
		o.TypingDelay = 12 * time.Millisecond
	}
	if o.TypingGroupSize == 0 {
		o.TypingGroupSize = 50
	}
	if o.OutputDir == "" {
		o.OutputDir = "/tmp/outputs"
	}
	if o.CliclickBin == "" {
		o.CliclickBin = "cliclick"
	}
	if o.ScreencaptureBin == "" {
		o.ScreencaptureBin = "screencapture"
	}
	if o.SipsBin == "" {
		o.SipsBin = "sips"
	}
	return o
}

// Computer dispatches automation actions against the local desktop. The
// desktop is a single shared mutable resource, so Execute serializes: only
// one action is in flight at a time.
type Computer struct {
	opts   Options
	scaler *Scaler
	runner Runner
	log    *zap.Logger
	mu     sync.Mutex
}

// New creates a dispatcher. A nil runner defaults to os/exec execution; a
// nil logger defaults to a no-op logger.
func New(opts Options, runner Runner, log *zap.Logger) *Computer {
	opts = opts.withDefaults()
	if runner == nil {
		runner = NewExecRunner()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Computer{
		opts:   opts,
		scaler: NewScaler(opts.Virtual, opts.Real, opts.ScalingEnabled),
		runner: runner,
		log:    log,
	}
}

// Scaler exposes the coordinate scaler, primarily for adapters that report
// resolutions to callers.
func (c *Computer) Scaler() *Scaler { return c.scaler }

// Execute validates a request against the action grammar, runs the
// corresponding external command(s), and returns the normalized result.
// Grammar violations are InvalidArgument; failures to run a command or
// produce a screenshot file are Internal.
func (c *Computer) Execute(ctx context.Context, req *Request) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := req.validate(); err != nil {
		return nil, err
	}

	c.log.Debug("executing action",
		zap.String("action", string(req.Action)),
		zap.Ints("coordinate", req.Coordinate))

	switch req.Action {
	case ActionMouseMove:
		x, y, err := c.scaler.ToReal(req.Coordinate[0], req.Coordinate[1])
		if err != nil {
			return nil, err
		}
		return c.shell(ctx, true, fmt.Sprintf("m:%d,%d", x, y))

	case ActionLeftClickDrag:
		x, y, err := c.scaler.ToReal(req.Coordinate[0], req.Coordinate[1])
		if err != nil {
			return nil, err
		}
		return c.shell(ctx, true, fmt.Sprintf("dd:%d,%d", x, y))

	case ActionKey:
		return c.shell(ctx, true, keyArgs(*req.Text)...)

	case ActionType:
		return c.typeText(ctx, *req.Text)

	case ActionLeftClick, ActionRightClick, ActionMiddleClick,
		ActionDoubleClick, ActionTripleClick,
		ActionLeftMouseDown, ActionLeftMouseUp:
		return c.shell(ctx, true, clickArgs[req.Action])

	case ActionScreenshot:
		return c.screenshot(ctx)

	case ActionCursorPosition:
		return c.cursorPosition(ctx)

	case ActionScroll:
		return c.scroll(ctx, req)

	case ActionHoldKey:
		// Key-down only: release is the caller's responsibility, via a
		// subsequent key action.
		return c.shell(ctx, true, "kd:"+holdKeyName(*req.Text))

	case ActionWait:
		return c.wait(ctx, req)
	}

	return nil, invalidArgf("action", "invalid action: %s", req.Action)
}

// shell runs cliclick with the given arguments and, when takeScreenshot is
// set, waits out the settle delay and attaches a trailing screenshot.
func (c *Computer) shell(ctx context.Context, takeScreenshot bool, args ...string) (*Result, error) {
	_, stdout, stderr, err := c.runner.Run(ctx, c.opts.CliclickBin, args...)
	if err != nil {
		return nil, execErrorf("failed to run %s: %v", c.opts.CliclickBin, err)
	}

	res := &Result{Output: stdout, Error: stderr}

	if takeScreenshot {
		if err := sleepCtx(ctx, c.opts.SettleDelay); err != nil {
			return nil, err
		}
		shot, err := c.screenshot(ctx)
		if err != nil {
			return nil, err
		}
		res.Image = shot.Image
	}
	return res, nil
}

// typeText sends text in fixed-size chunks to work around cliclick's input
// buffer limits. Outputs and errors of the chunks are concatenated in
// order; a failing chunk does not abort the remaining ones. A single
// screenshot follows the final chunk.
func (c *Computer) typeText(ctx context.Context, text string) (*Result, error) {
	var output, errOut strings.Builder
	delayArg := "w:" + strconv.FormatInt(c.opts.TypingDelay.Milliseconds(), 10)

	for _, chunk := range chunkRunes(text, c.opts.TypingGroupSize) {
		_, stdout, stderr, err := c.runner.Run(ctx, c.opts.CliclickBin, delayArg, "t:"+chunk)
		if err != nil {
			errOut.WriteString(err.Error())
			continue
		}
		output.WriteString(stdout)
		errOut.WriteString(stderr)
	}

	shot, err := c.screenshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{
		Output: output.String(),
		Error:  errOut.String(),
		Image:  shot.Image,
	}, nil
}

// cursorPosition queries the current position and scales it down to the
// virtual coordinate space. No screenshot is taken.
func (c *Computer) cursorPosition(ctx context.Context) (*Result, error) {
	res, err := c.shell(ctx, false, "p")
	if err != nil {
		return nil, err
	}
	if res.Output == "" {
		return res, nil
	}

	x, y, err := parseCursorPosition(res.Output)
	if err != nil {
		return nil, err
	}
	vx, vy := c.scaler.ToVirtual(x, y)
	res.Output = fmt.Sprintf("X=%d,Y=%d", vx, vy)
	return res, nil
}

func parseCursorPosition(out string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(out), ",")
	if len(parts) != 2 {
		return 0, 0, execErrorf("unexpected cursor position output: %q", strings.TrimSpace(out))
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return 0, 0, execErrorf("unexpected cursor position output: %q", strings.TrimSpace(out))
	}
	return x, y, nil
}

// scroll moves to the scaled coordinate and scrolls there. Positive values
// scroll up/left, negative values down/right; horizontal scrolling brackets
// the wheel action with a held shift.
func (c *Computer) scroll(ctx context.Context, req *Request) (*Result, error) {
	x, y, err := c.scaler.ToReal(req.Coordinate[0], req.Coordinate[1])
	if err != nil {
		return nil, err
	}

	direction := req.ScrollDirection
	if direction == "" {
		direction = "down"
	}
	amount := 5
	if req.ScrollAmount != nil {
		amount = *req.ScrollAmount
	}

	multiplier := -1
	switch direction {
	case "up", "left":
		multiplier = 1
	}
	value := amount * multiplier

	move := fmt.Sprintf("m:%d,%d", x, y)
	wheel := fmt.Sprintf("w:%d", value)
	if direction == "left" || direction == "right" {
		return c.shell(ctx, true, move, "kd:shift", wheel, "ku:shift")
	}
	return c.shell(ctx, true, move, wheel)
}

// wait suspends for the requested duration (default one second) and then
// takes a screenshot. No timeout is imposed beyond context cancellation.
func (c *Computer) wait(ctx context.Context, req *Request) (*Result, error) {
	duration := 1.0
	if req.Duration != nil {
		duration = *req.Duration
	}

	if err := sleepCtx(ctx, time.Duration(duration*float64(time.Second))); err != nil {
		return nil, err
	}

	shot, err := c.screenshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{
		Output: fmt.Sprintf("Waited for %g seconds", duration),
		Image:  shot.Image,
	}, nil
}

// chunkRunes splits s into rune-safe chunks of at most size runes.
func chunkRunes(s string, size int) []string {
	runes := []rune(s)
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// sleepCtx sleeps for d, aborting early if the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
