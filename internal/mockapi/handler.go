package mockapi

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/getmyuri/getmyuri-client/internal/model"
)

// reserved route prefixes that custom aliases must not shadow.
var reservedAliases = map[string]bool{"api": true, "r": true, "auth": true}

// Handler serves the reference implementation of the service contract.
type Handler struct {
	store      *Store
	baseURL    string
	accessPage string
	logger     *slog.Logger
}

// NewHandler wires the handler to its store. baseURL is used when
// composing full short URLs; accessPage is where unauthorized visitors
// are bounced to.
func NewHandler(store *Store, baseURL, accessPage string, logger *slog.Logger) *Handler {
	return &Handler{
		store:      store,
		baseURL:    strings.TrimRight(baseURL, "/"),
		accessPage: accessPage,
		logger:     logger,
	}
}

// RegisterRoutes registers all route definitions on the given Gin
// engine. The caller creates the engine and attaches middleware first.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.healthCheck)

	api := r.Group("/api")
	{
		api.POST("/default/shorten", h.shorten)
		api.POST("/links", h.createLink)
		api.POST("/contact", h.contact)
	}

	// The access page is a real SPA in production; here a plain page is
	// enough for navigate-mode clients to land on.
	r.GET(h.accessPage, h.accessPageStub)

	// Wildcard so nested alias paths (a/b/c) resolve.
	r.GET("/r/*alias", h.resolve)
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// shorten handles POST /api/default/shorten
// Response codes:
//   - 200 OK: short URL generated
//   - 400 Bad Request: missing or invalid link
//   - 500 Internal Server Error: code space exhausted for this URL
func (h *Handler) shorten(c *gin.Context) {
	var req model.ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	for attempt := 0; attempt < shortCodeRetries; attempt++ {
		code, err := generateCode(req.Link, attempt)
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, "Invalid URL")
			return
		}
		putErr := h.store.Put(&Link{AliasPath: code, Destination: req.Link})
		if errors.Is(putErr, ErrAliasConflict) {
			// Same URL shortened twice resolves to the existing code.
			if existing, getErr := h.store.Get(code); getErr == nil && existing.Destination == req.Link {
				c.JSON(http.StatusOK, model.ShortenResponse{ShortURL: h.baseURL + "/r/" + code})
				return
			}
			continue
		}
		if putErr != nil {
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		c.JSON(http.StatusOK, model.ShortenResponse{ShortURL: h.baseURL + "/r/" + code})
		return
	}
	h.errorResponse(c, http.StatusInternalServerError, "Failed to generate short URL")
}

// createLink handles POST /api/links
// Response codes:
//   - 201 Created: link stored
//   - 400 Bad Request: invalid body or alias
//   - 409 Conflict: alias already exists
func (h *Handler) createLink(c *gin.Context) {
	var req model.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	for _, alias := range req.Aliases {
		if len(alias) < 3 {
			h.errorResponse(c, http.StatusBadRequest, "Alias must be at least 3 characters long")
			return
		}
		if reservedAliases[alias] {
			h.errorResponse(c, http.StatusBadRequest, "Cannot use restricted words: api, r, auth")
			return
		}
	}

	aliasPath := strings.Join(req.Aliases, "/")
	link := &Link{
		AliasPath:   aliasPath,
		Destination: req.Destination,
		Passcode:    req.Password,
		Geofence:    req.Geofence,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := h.store.Put(link); err != nil {
		if errors.Is(err, ErrAliasConflict) {
			h.errorResponse(c, http.StatusConflict, "Custom alias already exists")
			return
		}
		h.errorResponse(c, http.StatusBadRequest, "Invalid alias")
		return
	}

	resp := model.CreateLinkResponse{
		AliasPath: aliasPath,
		ShortURL:  h.baseURL + "/r/" + aliasPath,
	}
	if req.ExpiresAt != nil {
		resp.ExpiresAt = req.ExpiresAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusCreated, resp)
}

// contact handles POST /api/contact
func (h *Handler) contact(c *gin.Context) {
	var req model.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.logger.Info("contact message received",
		slog.String("from", req.Email))
	c.Status(http.StatusAccepted)
}

func (h *Handler) accessPageStub(c *gin.Context) {
	c.String(http.StatusOK, "Authentication Required")
}

// resolve handles GET /r/*alias, the authorization check.
//
// Missing credentials bounce the visitor to the access page with the
// requirement encoding; failed credentials bounce with a reason as
// well. When both factors are required the reason never says which one
// failed. Success redirects to the destination, or returns the target
// as JSON when the caller asked for it.
func (h *Handler) resolve(c *gin.Context) {
	aliasPath := strings.Trim(c.Param("alias"), "/")

	link, err := h.store.Get(aliasPath)
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "URL not found")
		return
	}
	if link.Expired(time.Now()) {
		h.errorResponse(c, http.StatusGone, "URL has expired")
		return
	}

	passcode := c.Query("passcode")
	lat := queryFloat(c, "lat")
	lon := queryFloat(c, "lon")
	if lon == nil {
		// Legacy clients sent `long`.
		lon = queryFloat(c, "long")
	}

	missing := (link.PasswordRequired() && passcode == "") ||
		(link.LocationRequired() && (lat == nil || lon == nil))
	if missing {
		c.Redirect(http.StatusFound, h.bounceURL(link, false))
		return
	}

	passOK, locOK := link.authorize(passcode, lat, lon)
	if !passOK || !locOK {
		c.Redirect(http.StatusFound, h.bounceURL(link, true))
		return
	}

	h.store.Visit(link.AliasPath)

	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.JSON(http.StatusOK, model.AccessResponse{RedirectURL: link.Destination})
		return
	}
	c.Redirect(http.StatusFound, link.Destination)
}

// bounceURL composes the access-page redirect for a link, with the
// requirement encoding and, for failed attempts, the reason signal.
func (h *Handler) bounceURL(link Link, failed bool) string {
	required := requirementMarkers(link)

	params := url.Values{}
	params.Set("aliasPath", link.AliasPath)
	if required != "" {
		params.Set("required", required)
	}
	if failed {
		params.Set("reason", required)
	}
	return h.accessPage + "?" + params.Encode()
}

// requirementMarkers encodes the policy in the composite form the
// access page parses.
func requirementMarkers(link Link) string {
	var markers []string
	if link.PasswordRequired() {
		markers = append(markers, "pass")
	}
	if link.LocationRequired() {
		markers = append(markers, "loc")
	}
	return strings.Join(markers, ",")
}

func queryFloat(c *gin.Context, key string) *float64 {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// errorResponse sends a standardized JSON error response.
func (h *Handler) errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, model.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
