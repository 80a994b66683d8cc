// Package geo obtains a best-effort coordinate for the current user,
// degrading through GPS accuracy levels down to IP-based lookup.
package geo

import "errors"

var (
	// ErrPermissionDenied means the user or OS refused location access.
	// Denial is a hard stop: no retry, no IP fallback.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrPositionUnavailable means the platform could not produce a fix
	// (no signal, no provider). Transient; later strategies may succeed.
	ErrPositionUnavailable = errors.New("position unavailable")

	// ErrExhausted means every strategy failed. The user-facing remedy
	// is to check device and browser location settings.
	ErrExhausted = errors.New("unable to determine location; check your device location settings")
)

// Source records which strategy produced a coordinate.
type Source int

const (
	SourceGPSHigh Source = iota
	SourceGPSLow
	SourceIP
)

func (s Source) String() string {
	switch s {
	case SourceGPSHigh:
		return "gps_high"
	case SourceGPSLow:
		return "gps_low"
	case SourceIP:
		return "ip"
	default:
		return "unknown"
	}
}

// Coordinate is a resolved position. It lives only for the current
// invocation; nothing is cached across runs.
type Coordinate struct {
	Lat            float64
	Lon            float64
	AccuracyMeters float64
	Source         Source
}
