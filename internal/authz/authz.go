// Package authz submits collected credentials to the server-side link
// authorization check and interprets the result.
package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/getmyuri/getmyuri-client/internal/geo"
	"github.com/getmyuri/getmyuri-client/internal/requirement"
)

// Mode selects how the authorization request completes.
type Mode int

const (
	// ModeNavigate follows redirects like a browser navigation would:
	// the server redirects to the destination on success, or back to
	// the access page with a reason parameter on rejection.
	ModeNavigate Mode = iota

	// ModeProgrammatic issues the request without following redirects
	// and extracts the destination from the Location header or a JSON
	// redirectUrl field, then navigates explicitly.
	ModeProgrammatic
)

var (
	// ErrRejected means the server declined the credentials. Retryable:
	// the user can correct the password or refresh location.
	ErrRejected = errors.New("authentication failed")

	// ErrTimedOut means the authorization request exceeded its bound.
	ErrTimedOut = errors.New("authorization request timed out")
)

// Credentials is what the form collected for one submit attempt.
type Credentials struct {
	Password   string
	Coordinate *geo.Coordinate
}

// Outcome is where the visitor goes next. External targets are absolute
// URLs opened outside the app; internal targets stay on our routes.
type Outcome struct {
	RedirectURL string
	External    bool
}

// BrowserURL returns the URL to hand to the system browser. Plain-http
// destinations are upgraded: the access check already ran over https
// and the destination should not downgrade the session.
func (o Outcome) BrowserURL() string {
	return strings.Replace(o.RedirectURL, "http://", "https://", 1)
}

// LocationSource acquires a coordinate when one is still missing at
// submit time (the user typed the password faster than the automatic
// acquisition finished).
type LocationSource interface {
	Acquire(ctx context.Context) (geo.Coordinate, error)
}

// Requester performs the authorization check against the link server.
type Requester struct {
	baseURL    string
	mode       Mode
	locations  LocationSource
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRequester builds a requester against the server base URL. The
// timeout is applied explicitly to every request; inheriting platform
// defaults left past incidents undiagnosed.
func NewRequester(baseURL string, mode Mode, locations LocationSource, timeout time.Duration, logger *slog.Logger) *Requester {
	client := &http.Client{Timeout: timeout}
	if mode == ModeProgrammatic {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return &Requester{
		baseURL:    strings.TrimRight(baseURL, "/"),
		mode:       mode,
		locations:  locations,
		httpClient: client,
		logger:     logger,
	}
}

// AccessURL builds the authorization check URL for the given
// requirement and credentials. The longitude key is `lon`; the server
// briefly accepted `long` as well, but the client sends exactly one
// canonical form.
func AccessURL(base string, req requirement.Requirement, creds Credentials) string {
	params := url.Values{}
	if req.PasswordRequired {
		params.Set("passcode", creds.Password)
	}
	if req.LocationRequired && creds.Coordinate != nil {
		params.Set("lat", formatCoord(creds.Coordinate.Lat))
		params.Set("lon", formatCoord(creds.Coordinate.Lon))
	}

	target := strings.TrimRight(base, "/") + "/r/" + req.AliasPath
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target
}

// formatCoord renders a coordinate with full precision so it
// round-trips losslessly through the query string.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Submit runs one authorization attempt: resolve a missing coordinate
// if the link demands one, call the server, and interpret the reply.
// Acquisition always completes (or fails) before the server is
// contacted; an acquisition failure aborts without a network call.
func (r *Requester) Submit(ctx context.Context, req requirement.Requirement, creds Credentials) (Outcome, error) {
	if req.LocationRequired && creds.Coordinate == nil {
		coord, err := r.locations.Acquire(ctx)
		if err != nil {
			return Outcome{}, fmt.Errorf("unable to get location: %w", err)
		}
		creds.Coordinate = &coord
	}

	target := AccessURL(r.baseURL, req, creds)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if r.mode == ModeProgrammatic {
		// Navigation sends whatever the browser sends; only the
		// programmatic check asks the server for the JSON form.
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return Outcome{}, ErrTimedOut
		}
		r.logger.Warn("authorization request failed", slog.String("error", err.Error()))
		return Outcome{}, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	defer resp.Body.Close()

	if r.mode == ModeNavigate {
		return r.interpretNavigation(req, resp)
	}
	return r.interpretResponse(req, resp)
}

// interpretNavigation inspects where the redirect chain landed. Ending
// back on an access page with a failure signal is a rejection; any
// other landing is the destination itself.
func (r *Requester) interpretNavigation(req requirement.Requirement, resp *http.Response) (Outcome, error) {
	final := resp.Request.URL
	query := final.Query()
	if query.Get("reason") != "" || query.Get("error") != "" {
		return Outcome{}, rejectionError(req, query)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Outcome{}, ErrRejected
	}
	return r.classify(final.String()), nil
}

// interpretResponse handles the programmatic mode: the redirect target
// comes from the Location header or the JSON body, never from actually
// following the redirect.
func (r *Requester) interpretResponse(req requirement.Requirement, resp *http.Response) (Outcome, error) {
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location := resp.Header.Get("Location")
		if location == "" {
			return Outcome{}, ErrRejected
		}
		if target, err := url.Parse(location); err == nil {
			if failure := target.Query(); failure.Get("reason") != "" || failure.Get("error") != "" {
				return Outcome{}, rejectionError(req, failure)
			}
		}
		return r.classify(location), nil
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: %v", ErrRejected, err)
		}
		var payload struct {
			RedirectURL string `json:"redirectUrl"`
			Message     string `json:"message"`
		}
		if err := json.Unmarshal(body, &payload); err != nil || payload.RedirectURL == "" {
			return Outcome{}, ErrRejected
		}
		return r.classify(payload.RedirectURL), nil
	}

	return Outcome{}, rejectionError(req, nil)
}

// classify splits internal routes from external absolute URLs. External
// targets must never be routed internally.
func (r *Requester) classify(target string) Outcome {
	external := strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
	if external {
		// A destination on the service's own host is still internal
		// navigation (e.g. a dashboard route issued absolutely).
		if parsed, err := url.Parse(target); err == nil {
			if base, err := url.Parse(r.baseURL); err == nil && parsed.Host == base.Host && base.Host != "" {
				external = false
			}
		}
	}
	return Outcome{RedirectURL: target, External: external}
}

// rejectionError decorates ErrRejected with the server's failure
// attribution, or with the ambiguous combined message when the server
// does not disambiguate.
func rejectionError(req requirement.Requirement, query url.Values) error {
	reason := req.PriorFailure
	if query != nil {
		bounced := url.Values{"aliasPath": {req.AliasPath}}
		if req.PasswordRequired {
			bounced.Set("password_required", "true")
		}
		if req.LocationRequired {
			bounced.Set("location_required", "true")
		}
		for key, vals := range query {
			bounced[key] = vals
		}
		if parsed, err := requirement.Parse(bounced); err == nil {
			reason = parsed.PriorFailure
		}
	}
	if reason == requirement.FailureNone {
		switch {
		case req.PasswordRequired && req.LocationRequired:
			reason = requirement.FailurePasswordOrLocation
		case req.PasswordRequired:
			reason = requirement.FailurePassword
		case req.LocationRequired:
			reason = requirement.FailureLocation
		}
	}
	if msg := reason.Message(); msg != "" {
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return ErrRejected
}
