// Package client is the HTTP client for the getmyuri service API:
// anonymous shortening, authenticated custom-link creation and the
// contact form.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/getmyuri/getmyuri-client/internal/model"
)

var (
	ErrInvalidURL    = errors.New("invalid URL")
	ErrAliasTooShort = errors.New("alias must be at least 3 characters long")
	ErrAliasReserved = errors.New("cannot use restricted words: api, r, auth")
	ErrAliasExists   = errors.New("custom alias already exists")
	ErrExpiryInPast  = errors.New("expiration date and time must be in the future (MST)")
	ErrUnauthorized  = errors.New("sign in required")
)

// Client talks to the service API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a client for the given API base URL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Shorten submits a destination URL for anonymous shortening and
// returns the full short URL.
func (c *Client) Shorten(ctx context.Context, link string) (string, error) {
	normalized, err := NormalizeShortenURL(link)
	if err != nil {
		return "", err
	}

	var resp model.ShortenResponse
	if err := c.post(ctx, "/api/default/shorten", model.ShortenRequest{Link: normalized}, &resp); err != nil {
		return "", fmt.Errorf("shorten: %w", err)
	}

	c.logger.Debug("link shortened", slog.String("short_url", resp.ShortURL))
	return resp.ShortURL, nil
}

// CreateLinkSpec is the user-level description of a custom link before
// validation and unit conversion.
type CreateLinkSpec struct {
	Destination string
	Aliases     []string
	Password    string
	ExpiresAt   *time.Time
	Geofence    *GeofenceSpec
}

// CreateLink validates the description and creates the custom link.
func (c *Client) CreateLink(ctx context.Context, spec CreateLinkSpec) (model.CreateLinkResponse, error) {
	destination, err := NormalizeDestination(spec.Destination)
	if err != nil {
		return model.CreateLinkResponse{}, err
	}
	if err := ValidateAliases(spec.Aliases); err != nil {
		return model.CreateLinkResponse{}, err
	}
	if err := ValidateExpiry(spec.ExpiresAt, time.Now()); err != nil {
		return model.CreateLinkResponse{}, err
	}

	req := model.CreateLinkRequest{
		Destination: destination,
		Aliases:     spec.Aliases,
		Password:    spec.Password,
		ExpiresAt:   spec.ExpiresAt,
	}
	if spec.Geofence != nil {
		fence := spec.Geofence.Wire()
		req.Geofence = &fence
	}

	var resp model.CreateLinkResponse
	if err := c.post(ctx, "/api/links", req, &resp); err != nil {
		return model.CreateLinkResponse{}, fmt.Errorf("create link: %w", err)
	}
	return resp, nil
}

// Contact validates and sends a contact-form message.
func (c *Client) Contact(ctx context.Context, req model.ContactRequest) error {
	if err := ValidateContact(req); err != nil {
		return err
	}
	if err := c.post(ctx, "/api/contact", req, nil); err != nil {
		return fmt.Errorf("contact: %w", err)
	}
	return nil
}

// post sends a JSON body and decodes a JSON reply, mapping the API's
// error envelope onto the package sentinels.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var apiErr model.ErrorResponse
	_ = json.Unmarshal(raw, &apiErr)

	switch resp.StatusCode {
	case http.StatusConflict:
		return ErrAliasExists
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		if apiErr.Message != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
