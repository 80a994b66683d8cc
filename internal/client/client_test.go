package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmyuri/getmyuri-client/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNormalizeShortenURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"bare host gets scheme", "example.com/page", "http://example.com/page", false},
		{"http preserved", "http://example.com", "http://example.com", false},
		{"https coerced to http", "https://example.com/x", "http://example.com/x", false},
		{"whitespace trimmed", "  example.com  ", "http://example.com", false},
		{"empty input", "", "", true},
		{"garbage", "http://%zz", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeShortenURL(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeDestination(t *testing.T) {
	got, err := NormalizeDestination("www.example.com/doc")
	require.NoError(t, err)
	assert.Equal(t, "https://www.example.com/doc", got)

	got, err = NormalizeDestination("http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", got, "explicit schemes are kept")

	_, err = NormalizeDestination("")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestValidateAliases(t *testing.T) {
	assert.NoError(t, ValidateAliases([]string{"myportfolio"}))
	assert.NoError(t, ValidateAliases([]string{"team", "q3", "report"}))

	assert.ErrorIs(t, ValidateAliases([]string{"ab"}), ErrAliasTooShort)
	assert.ErrorIs(t, ValidateAliases(nil), ErrAliasTooShort)
	assert.ErrorIs(t, ValidateAliases([]string{"api"}), ErrAliasReserved)
	// Reserved words are also refused mid-path.
	assert.ErrorIs(t, ValidateAliases([]string{"team", "auth"}), ErrAliasReserved)
	// "r" is reserved but also shorter than three characters; the
	// length check fires first and that is fine either way.
	assert.Error(t, ValidateAliases([]string{"r"}))
}

func TestAliasPath(t *testing.T) {
	assert.Equal(t, "team/q3/report", AliasPath([]string{"team", "q3", "report"}))
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	future := now.Add(time.Hour)
	assert.NoError(t, ValidateExpiry(&future, now))

	past := now.Add(-time.Hour)
	assert.ErrorIs(t, ValidateExpiry(&past, now), ErrExpiryInPast)

	assert.ErrorIs(t, ValidateExpiry(&now, now), ErrExpiryInPast, "exactly now is not in the future")
	assert.NoError(t, ValidateExpiry(nil, now), "no expiry is always valid")
}

func TestGeofenceSpec_Wire(t *testing.T) {
	miles := GeofenceSpec{Lat: 37, Lon: -122, Radius: 1, Unit: "miles"}.Wire()
	assert.InDelta(t, 1609.34, miles.RadiusMeters, 1e-6)

	feet := GeofenceSpec{Lat: 37, Lon: -122, Radius: 5280, Unit: "feet"}.Wire()
	assert.InDelta(t, 1609.344, feet.RadiusMeters, 1e-3, "5280 ft is one mile")
}

func TestValidateContact(t *testing.T) {
	valid := model.ContactRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Message:   "I have a question about custom aliases.",
	}
	assert.NoError(t, ValidateContact(valid))

	tests := []struct {
		name   string
		mutate func(*model.ContactRequest)
		want   string
	}{
		{"empty first name", func(r *model.ContactRequest) { r.FirstName = " " }, "first name is required"},
		{"numeric name", func(r *model.ContactRequest) { r.LastName = "L0velace" }, "only contain letters"},
		{"bad email", func(r *model.ContactRequest) { r.Email = "not-an-email" }, "valid email"},
		{"short message", func(r *model.ContactRequest) { r.Message = "hi" }, "at least 10 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := ValidateContact(req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClient_Shorten(t *testing.T) {
	var received model.ShortenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/default/shorten", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(model.ShortenResponse{ShortURL: "http://www.getmyuri.com/r/Ab3dE9"})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, time.Second, testLogger())
	shortURL, err := c.Shorten(context.Background(), "https://example.com/long")

	require.NoError(t, err)
	assert.Equal(t, "http://www.getmyuri.com/r/Ab3dE9", shortURL)
	assert.Equal(t, "http://example.com/long", received.Link, "link is normalized before submission")
}

func TestClient_Shorten_InvalidURLNeverHitsServer(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	t.Cleanup(srv.Close)

	c := New(srv.URL, time.Second, testLogger())
	_, err := c.Shorten(context.Background(), "")

	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.Zero(t, hits)
}

func TestClient_CreateLink(t *testing.T) {
	var received model.CreateLinkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/links", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(model.CreateLinkResponse{
			AliasPath: "myportfolio",
			ShortURL:  "http://www.getmyuri.com/r/myportfolio",
		})
	}))
	t.Cleanup(srv.Close)

	expiry := time.Now().Add(24 * time.Hour)
	c := New(srv.URL, time.Second, testLogger())
	resp, err := c.CreateLink(context.Background(), CreateLinkSpec{
		Destination: "www.example.com",
		Aliases:     []string{"myportfolio"},
		Password:    "abc123",
		ExpiresAt:   &expiry,
		Geofence:    &GeofenceSpec{Lat: 37, Lon: -122, Radius: 2, Unit: "miles"},
	})

	require.NoError(t, err)
	assert.Equal(t, "myportfolio", resp.AliasPath)
	assert.Equal(t, "https://www.example.com", received.Destination)
	require.NotNil(t, received.Geofence)
	assert.InDelta(t, 3218.68, received.Geofence.RadiusMeters, 0.01)
}

func TestClient_CreateLink_AliasConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(model.ErrorResponse{Error: "Conflict", Message: "Custom alias already exists"})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, time.Second, testLogger())
	_, err := c.CreateLink(context.Background(), CreateLinkSpec{
		Destination: "example.com",
		Aliases:     []string{"taken"},
	})

	assert.ErrorIs(t, err, ErrAliasExists)
}

func TestClient_Contact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, time.Second, testLogger())
	err := c.Contact(context.Background(), model.ContactRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Message:   "I have a question about custom aliases.",
	})
	assert.NoError(t, err)
}
