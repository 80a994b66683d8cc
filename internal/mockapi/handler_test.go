package mockapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmyuri/getmyuri-client/internal/model"
)

func newTestRouter(t *testing.T, store *Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	logger := slog.New(slog.DiscardHandler)
	NewHandler(store, "http://short.test", "/auth", logger).RegisterRoutes(r)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(t, NewStore())

	w := doJSON(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestShorten(t *testing.T) {
	t.Run("generates a short url", func(t *testing.T) {
		store := NewStore()
		r := newTestRouter(t, store)

		w := doJSON(r, http.MethodPost, "/api/default/shorten", `{"link":"https://example.com/page"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp model.ShortenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, strings.HasPrefix(resp.ShortURL, "http://short.test/r/"))

		code := strings.TrimPrefix(resp.ShortURL, "http://short.test/r/")
		link, err := store.Get(code)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/page", link.Destination)
	})

	t.Run("rejects missing link", func(t *testing.T) {
		r := newTestRouter(t, NewStore())

		w := doJSON(r, http.MethodPost, "/api/default/shorten", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("same url resolves to the same code", func(t *testing.T) {
		r := newTestRouter(t, NewStore())

		first := doJSON(r, http.MethodPost, "/api/default/shorten", `{"link":"https://example.com/page"}`)
		second := doJSON(r, http.MethodPost, "/api/default/shorten", `{"link":"https://example.com/page"}`)
		require.Equal(t, http.StatusOK, first.Code)
		require.Equal(t, http.StatusOK, second.Code)
		assert.JSONEq(t, first.Body.String(), second.Body.String())
	})

	t.Run("retries on collision", func(t *testing.T) {
		store := NewStore()
		r := newTestRouter(t, store)

		first, err := generateCode("https://example.com/page", 0)
		require.NoError(t, err)
		require.NoError(t, store.Put(&Link{AliasPath: first, Destination: "https://other.example"}))

		w := doJSON(r, http.MethodPost, "/api/default/shorten", `{"link":"https://example.com/page"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp model.ShortenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEqual(t, "http://short.test/r/"+first, resp.ShortURL)
	})
}

func TestCreateLink(t *testing.T) {
	t.Run("creates a custom link", func(t *testing.T) {
		store := NewStore()
		r := newTestRouter(t, store)

		w := doJSON(r, http.MethodPost, "/api/links",
			`{"destination":"https://example.com","aliases":["team","docs"],"password":"s3cret"}`)
		require.Equal(t, http.StatusCreated, w.Code)

		var resp model.CreateLinkResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "team/docs", resp.AliasPath)
		assert.Equal(t, "http://short.test/r/team/docs", resp.ShortURL)

		link, err := store.Get("team/docs")
		require.NoError(t, err)
		assert.True(t, link.PasswordRequired())
		assert.False(t, link.LocationRequired())
	})

	t.Run("rejects short alias", func(t *testing.T) {
		r := newTestRouter(t, NewStore())

		w := doJSON(r, http.MethodPost, "/api/links",
			`{"destination":"https://example.com","aliases":["ab"]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects reserved alias", func(t *testing.T) {
		r := newTestRouter(t, NewStore())

		w := doJSON(r, http.MethodPost, "/api/links",
			`{"destination":"https://example.com","aliases":["api"]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("conflict on duplicate alias", func(t *testing.T) {
		store := NewStore()
		r := newTestRouter(t, store)
		require.NoError(t, store.Put(&Link{AliasPath: "docs", Destination: "https://a.example"}))

		w := doJSON(r, http.MethodPost, "/api/links",
			`{"destination":"https://b.example","aliases":["docs"]}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestContact(t *testing.T) {
	r := newTestRouter(t, NewStore())

	w := doJSON(r, http.MethodPost, "/api/contact",
		`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","message":"hello from the test suite"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(r, http.MethodPost, "/api/contact", `{"first_name":"Ada"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func redirectQuery(t *testing.T, w *httptest.ResponseRecorder) url.Values {
	t.Helper()
	loc := w.Header().Get("Location")
	u, err := url.Parse(loc)
	require.NoError(t, err)
	return u.Query()
}

func TestResolve(t *testing.T) {
	fence := &model.Geofence{Lat: 39.7392, Lon: -104.9903, RadiusMeters: 1000}

	seed := func(t *testing.T, links ...*Link) (*Store, *gin.Engine) {
		t.Helper()
		store := NewStore()
		for _, l := range links {
			require.NoError(t, store.Put(l))
		}
		return store, newTestRouter(t, store)
	}

	t.Run("open link redirects to destination", func(t *testing.T) {
		store, r := seed(t, &Link{AliasPath: "docs", Destination: "https://example.com/docs"})

		w := doJSON(r, http.MethodGet, "/r/docs", "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.com/docs", w.Header().Get("Location"))

		link, err := store.Get("docs")
		require.NoError(t, err)
		assert.Equal(t, int64(1), link.Visits)
	})

	t.Run("json requested returns redirect target", func(t *testing.T) {
		_, r := seed(t, &Link{AliasPath: "docs", Destination: "https://example.com/docs"})

		req := httptest.NewRequest(http.MethodGet, "/r/docs", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp model.AccessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "https://example.com/docs", resp.RedirectURL)
	})

	t.Run("unknown alias is 404", func(t *testing.T) {
		_, r := seed(t)

		w := doJSON(r, http.MethodGet, "/r/missing", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("expired link is 410", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		_, r := seed(t, &Link{AliasPath: "docs", Destination: "https://example.com", ExpiresAt: &past})

		w := doJSON(r, http.MethodGet, "/r/docs", "")
		assert.Equal(t, http.StatusGone, w.Code)
	})

	t.Run("missing passcode bounces without reason", func(t *testing.T) {
		_, r := seed(t, &Link{AliasPath: "docs", Destination: "https://example.com", Passcode: "s3cret"})

		w := doJSON(r, http.MethodGet, "/r/docs", "")
		require.Equal(t, http.StatusFound, w.Code)

		q := redirectQuery(t, w)
		assert.Equal(t, "docs", q.Get("aliasPath"))
		assert.Equal(t, "pass", q.Get("required"))
		assert.Empty(t, q.Get("reason"))
	})

	t.Run("wrong passcode bounces with reason", func(t *testing.T) {
		_, r := seed(t, &Link{AliasPath: "docs", Destination: "https://example.com", Passcode: "s3cret"})

		w := doJSON(r, http.MethodGet, "/r/docs?passcode=guess", "")
		require.Equal(t, http.StatusFound, w.Code)

		q := redirectQuery(t, w)
		assert.Equal(t, "pass", q.Get("reason"))
	})

	t.Run("correct passcode passes", func(t *testing.T) {
		_, r := seed(t, &Link{AliasPath: "docs", Destination: "https://example.com", Passcode: "s3cret"})

		w := doJSON(r, http.MethodGet, "/r/docs?passcode=s3cret", "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.com", w.Header().Get("Location"))
	})

	t.Run("inside geofence passes", func(t *testing.T) {
		_, r := seed(t, &Link{AliasPath: "hq", Destination: "https://example.com", Geofence: fence})

		w := doJSON(r, http.MethodGet, "/r/hq?lat=39.7395&lon=-104.9900", "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.com", w.Header().Get("Location"))
	})

	t.Run("outside geofence bounces with reason", func(t *testing.T) {
		_, r := seed(t, &Link{AliasPath: "hq", Destination: "https://example.com", Geofence: fence})

		w := doJSON(r, http.MethodGet, "/r/hq?lat=40.0150&lon=-105.2705", "")
		require.Equal(t, http.StatusFound, w.Code)

		q := redirectQuery(t, w)
		assert.Equal(t, "loc", q.Get("required"))
		assert.Equal(t, "loc", q.Get("reason"))
	})

	t.Run("legacy long parameter is accepted", func(t *testing.T) {
		_, r := seed(t, &Link{AliasPath: "hq", Destination: "https://example.com", Geofence: fence})

		w := doJSON(r, http.MethodGet, "/r/hq?lat=39.7395&long=-104.9900", "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.com", w.Header().Get("Location"))
	})

	t.Run("both factors required does not disambiguate", func(t *testing.T) {
		_, r := seed(t, &Link{
			AliasPath:   "vault",
			Destination: "https://example.com",
			Passcode:    "s3cret",
			Geofence:    fence,
		})

		// Passcode correct but position outside; the reason still names
		// both factors.
		w := doJSON(r, http.MethodGet, "/r/vault?passcode=s3cret&lat=40.0150&lon=-105.2705", "")
		require.Equal(t, http.StatusFound, w.Code)

		q := redirectQuery(t, w)
		assert.Equal(t, "pass,loc", q.Get("required"))
		assert.Equal(t, "pass,loc", q.Get("reason"))
	})

	t.Run("nested alias resolves", func(t *testing.T) {
		_, r := seed(t, &Link{AliasPath: "team/docs", Destination: "https://example.com/d"})

		w := doJSON(r, http.MethodGet, "/r/team/docs", "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.com/d", w.Header().Get("Location"))
	})
}
