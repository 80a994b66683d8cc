// Package model holds the wire types exchanged with the getmyuri
// service.
package model

import "time"

// ShortenRequest is the body of the anonymous shorten endpoint.
type ShortenRequest struct {
	Link string `json:"link" binding:"required"`
}

// ShortenResponse carries the generated alias back to the client.
type ShortenResponse struct {
	ShortURL string `json:"shortUrl"`
}

// Geofence restricts a link to a circle around a center point.
// RadiusMeters is always meters on the wire; unit conversion is a
// client-side concern.
type Geofence struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	RadiusMeters float64 `json:"radius_m"`
}

// CreateLinkRequest is the payload for authenticated custom-link
// creation: alias path segments plus the optional access policy.
type CreateLinkRequest struct {
	Destination string     `json:"destination" binding:"required"`
	Aliases     []string   `json:"aliases" binding:"required"`
	Password    string     `json:"password,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Geofence    *Geofence  `json:"geofence,omitempty"`
}

// CreateLinkResponse confirms a created custom link.
type CreateLinkResponse struct {
	AliasPath string `json:"alias_path"`
	ShortURL  string `json:"shortUrl"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// AccessResponse is the JSON form of a successful authorization check.
type AccessResponse struct {
	RedirectURL string `json:"redirectUrl"`
	Message     string `json:"message,omitempty"`
}

// ContactRequest is a message sent through the contact form.
type ContactRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Message   string `json:"message" binding:"required"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
