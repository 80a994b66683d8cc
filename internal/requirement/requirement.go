// Package requirement interprets the query parameters of an inbound
// access-page URL into the set of credentials the link owner demands.
package requirement

import (
	"errors"
	"net/url"
	"strings"
)

// ErrMissingAlias is returned when the URL carries no alias path, which
// makes the link unresolvable. There is nothing the visitor can do to
// recover; the caller renders a terminal "invalid link" message.
var ErrMissingAlias = errors.New("short link alias is missing")

// FailureReason identifies which credential check a previous attempt
// failed, as reported by the server through the reason/error parameter
// on the redirect back to the access page.
type FailureReason int

const (
	FailureNone FailureReason = iota
	FailurePassword
	FailureLocation
	// FailurePasswordOrLocation covers links that require both
	// credentials: the server does not say which check failed, so the
	// client must not guess.
	FailurePasswordOrLocation
)

// String returns a short identifier for logging.
func (f FailureReason) String() string {
	switch f {
	case FailurePassword:
		return "password"
	case FailureLocation:
		return "location"
	case FailurePasswordOrLocation:
		return "password_or_location"
	default:
		return "none"
	}
}

// Message returns the user-facing explanation for a prior failure.
func (f FailureReason) Message() string {
	switch f {
	case FailurePassword:
		return "The password was incorrect. Please try again."
	case FailureLocation:
		return "You are outside the area this link is restricted to."
	case FailurePasswordOrLocation:
		return "Either the password is wrong or you are outside the permitted area."
	default:
		return ""
	}
}

// Requirement is the normalized credential policy parsed from the
// access-page URL. It is parsed once per invocation and never mutated;
// a fresh navigation produces a fresh value.
type Requirement struct {
	AliasPath        string
	PasswordRequired bool
	LocationRequired bool
	PriorFailure     FailureReason
}

// None reports whether the link demands no credentials at all, in which
// case submission proceeds immediately using only the alias.
func (r Requirement) None() bool {
	return !r.PasswordRequired && !r.LocationRequired
}

// Parse derives a Requirement from the access-page query parameters.
//
// Two requirement encodings are accepted because the server has used
// both over time: the composite form `required=pass,loc` and the legacy
// pair `password_required=true&location_required=true`. The composite
// form wins whenever it is present; the boolean flags are only
// consulted in its absence.
func Parse(query url.Values) (Requirement, error) {
	alias := strings.Trim(query.Get("aliasPath"), "/")
	if alias == "" {
		return Requirement{}, ErrMissingAlias
	}

	req := Requirement{AliasPath: alias}

	if composite := query.Get("required"); composite != "" {
		req.PasswordRequired = strings.Contains(composite, "pass")
		req.LocationRequired = strings.Contains(composite, "loc")
	} else {
		req.PasswordRequired = query.Get("password_required") == "true"
		req.LocationRequired = query.Get("location_required") == "true"
	}

	req.PriorFailure = parseFailure(query, req)
	return req, nil
}

// parseFailure decodes the reason/error signal left by the server when
// it bounced a previous attempt back to the access page. The parameter
// content may enumerate the failed factor, but older servers send an
// opaque value, so the active requirements are the fallback.
func parseFailure(query url.Values, req Requirement) FailureReason {
	signal := query.Get("reason")
	if signal == "" {
		signal = query.Get("error")
	}
	if signal == "" {
		return FailureNone
	}

	hasPass := strings.Contains(signal, "pass")
	hasLoc := strings.Contains(signal, "loc")
	switch {
	case hasPass && hasLoc:
		return FailurePasswordOrLocation
	case hasPass:
		return FailurePassword
	case hasLoc:
		return FailureLocation
	}

	// Opaque signal: attribute the failure to whatever was required.
	switch {
	case req.PasswordRequired && req.LocationRequired:
		return FailurePasswordOrLocation
	case req.PasswordRequired:
		return FailurePassword
	case req.LocationRequired:
		return FailureLocation
	default:
		return FailurePasswordOrLocation
	}
}
