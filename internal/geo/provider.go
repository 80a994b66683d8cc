package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Provider is the platform location capability. On a desktop or mobile
// terminal this is an external locator helper (termux-location,
// CoreLocationCLI and the like) configured by the user; when no helper
// is configured the capability is simply unavailable and the acquirer
// skips straight to IP lookup.
type Provider interface {
	// Available reports whether the platform can attempt a GPS fix at all.
	Available() bool

	// CurrentPosition requests a fix. Implementations must honor ctx
	// cancellation and classify failures as ErrPermissionDenied or
	// ErrPositionUnavailable so the acquirer can decide how to proceed.
	CurrentPosition(ctx context.Context, highAccuracy bool) (Coordinate, error)
}

// CommandProvider runs a configured locator command and parses its JSON
// output. The command is expected to print an object with latitude,
// longitude and optional accuracy fields, which the common helpers do.
type CommandProvider struct {
	command string
}

// NewCommandProvider wraps the given locator command line. An empty
// command yields an unavailable provider.
func NewCommandProvider(command string) *CommandProvider {
	return &CommandProvider{command: command}
}

func (p *CommandProvider) Available() bool {
	return strings.TrimSpace(p.command) != ""
}

type commandFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

func (p *CommandProvider) CurrentPosition(ctx context.Context, highAccuracy bool) (Coordinate, error) {
	if !p.Available() {
		return Coordinate{}, ErrPositionUnavailable
	}

	fields := strings.Fields(p.command)
	args := fields[1:]
	if !highAccuracy {
		args = append(args, "--coarse")
	}

	out, err := exec.CommandContext(ctx, fields[0], args...).Output()
	if err != nil {
		return Coordinate{}, classifyCommandError(ctx, err)
	}

	var fix commandFix
	if err := json.Unmarshal(out, &fix); err != nil {
		return Coordinate{}, fmt.Errorf("%w: locator output not understood: %v", ErrPositionUnavailable, err)
	}
	if fix.Latitude == 0 && fix.Longitude == 0 {
		return Coordinate{}, fmt.Errorf("%w: locator returned no fix", ErrPositionUnavailable)
	}

	source := SourceGPSHigh
	if !highAccuracy {
		source = SourceGPSLow
	}
	return Coordinate{
		Lat:            fix.Latitude,
		Lon:            fix.Longitude,
		AccuracyMeters: fix.Accuracy,
		Source:         source,
	}, nil
}

// classifyCommandError maps locator process failures onto the package
// sentinels. A "permission" or "denied" marker on stderr is the
// conventional way the helpers report a refused OS prompt.
func classifyCommandError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.ToLower(string(exitErr.Stderr))
		if strings.Contains(stderr, "permission") || strings.Contains(stderr, "denied") {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(string(exitErr.Stderr)))
		}
	}
	return fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
}
