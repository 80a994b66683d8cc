package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// ipAccuracyMeters is the confidence attached to an IP-derived
// position. City-level lookup is rarely better than a few kilometers.
const ipAccuracyMeters = 5000

// IPLocator queries a third-party geolocation-by-IP service. The
// service is outside our control and fails in bursts, so calls go
// through a circuit breaker rather than hammering it on every retry.
type IPLocator struct {
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewIPLocator builds a locator for the given endpoint, which must
// return JSON with latitude/longitude fields.
func NewIPLocator(endpoint string, timeout time.Duration) *IPLocator {
	return &IPLocator{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "ip-geolocation",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

type ipLookupResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Locate resolves the caller's public IP to a low-confidence coordinate.
func (l *IPLocator) Locate(ctx context.Context) (Coordinate, error) {
	result, err := l.breaker.Execute(func() (interface{}, error) {
		return l.lookup(ctx)
	})
	if err != nil {
		return Coordinate{}, fmt.Errorf("ip geolocation: %w", err)
	}
	return result.(Coordinate), nil
}

func (l *IPLocator) lookup(ctx context.Context) (Coordinate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return Coordinate{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return Coordinate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinate{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Coordinate{}, err
	}
	if body.Latitude == 0 && body.Longitude == 0 {
		return Coordinate{}, fmt.Errorf("service returned no position")
	}

	return Coordinate{
		Lat:            body.Latitude,
		Lon:            body.Longitude,
		AccuracyMeters: ipAccuracyMeters,
		Source:         SourceIP,
	}, nil
}
