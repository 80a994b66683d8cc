package client

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/getmyuri/getmyuri-client/internal/model"
)

// reservedAliases collide with the service's own route prefixes.
var reservedAliases = map[string]bool{"api": true, "r": true, "auth": true}

// serviceTimezone is the wall-clock zone link expirations are entered
// in. The service has always presented expiry as MST.
const serviceTimezone = "America/Denver"

// NormalizeShortenURL prepares a destination for the anonymous shorten
// endpoint. The endpoint serves links over plain http, so the scheme is
// coerced to http; a missing scheme gets one prefixed.
func NormalizeShortenURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	switch {
	case strings.HasPrefix(raw, "https://"):
		raw = "http://" + strings.TrimPrefix(raw, "https://")
	case !strings.HasPrefix(raw, "http://"):
		raw = "http://" + raw
	}

	if _, err := url.ParseRequestURI(raw); err != nil {
		return "", ErrInvalidURL
	}
	return raw, nil
}

// NormalizeDestination prepares a destination for custom-link creation,
// which defaults to https for schemeless input.
func NormalizeDestination(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.ParseRequestURI(raw)
	if err != nil || parsed.Host == "" {
		return "", ErrInvalidURL
	}
	return raw, nil
}

// ValidateAliases checks every path segment of a custom alias.
func ValidateAliases(aliases []string) error {
	if len(aliases) == 0 {
		return ErrAliasTooShort
	}
	for _, alias := range aliases {
		if len(alias) < 3 {
			return fmt.Errorf("%w: %q", ErrAliasTooShort, alias)
		}
		if reservedAliases[alias] {
			return fmt.Errorf("%w: %q", ErrAliasReserved, alias)
		}
	}
	return nil
}

// AliasPath joins alias segments into the path used under /r/.
func AliasPath(aliases []string) string {
	return strings.Join(aliases, "/")
}

// ValidateExpiry enforces that an expiration, if set, lies in the
// future of the service timezone's wall clock.
func ValidateExpiry(expiresAt *time.Time, now time.Time) error {
	if expiresAt == nil {
		return nil
	}
	loc, err := time.LoadLocation(serviceTimezone)
	if err != nil {
		return err
	}
	if !expiresAt.In(loc).After(now.In(loc)) {
		return ErrExpiryInPast
	}
	return nil
}

// GeofenceSpec is a user-entered geofence with its radius unit.
type GeofenceSpec struct {
	Lat    float64
	Lon    float64
	Radius float64
	Unit   string // "miles" or "feet"
}

const (
	metersPerMile = 1609.34
	metersPerFoot = 0.3048
)

// Wire converts the radius into meters for the API payload.
func (g GeofenceSpec) Wire() model.Geofence {
	radius := g.Radius * metersPerMile
	if g.Unit == "feet" {
		radius = g.Radius * metersPerFoot
	}
	return model.Geofence{Lat: g.Lat, Lon: g.Lon, RadiusMeters: radius}
}

var (
	nameRe  = regexp.MustCompile(`^[A-Za-z\s]+$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidateContact mirrors the contact form's field rules.
func ValidateContact(req model.ContactRequest) error {
	switch {
	case strings.TrimSpace(req.FirstName) == "":
		return errors.New("first name is required")
	case !nameRe.MatchString(req.FirstName):
		return errors.New("first name should only contain letters")
	case strings.TrimSpace(req.LastName) == "":
		return errors.New("last name is required")
	case !nameRe.MatchString(req.LastName):
		return errors.New("last name should only contain letters")
	case strings.TrimSpace(req.Email) == "":
		return errors.New("email is required")
	case !emailRe.MatchString(req.Email):
		return errors.New("please enter a valid email address")
	case strings.TrimSpace(req.Message) == "":
		return errors.New("message is required")
	case len(req.Message) < 10:
		return errors.New("message must be at least 10 characters long")
	}
	return nil
}
