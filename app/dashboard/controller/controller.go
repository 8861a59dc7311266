package controller

import (
	"net/http"
	"net/url"
	"slices"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/canopy-network/hydrodash/app/dashboard/types"
	"github.com/canopy-network/hydrodash/pkg/session"
)

const (
	sessionCookie = "hydrodash_session"
	sessionHeader = "X-Session-ID"
)

type Controller struct {
	App      *types.App
	upgrader websocket.Upgrader
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	allowed := app.Config.AllowedOrigins
	return &Controller{
		App: app,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r, allowed)
			},
		},
	}
}

// originAllowed accepts requests without an Origin header, same-origin requests and
// origins listed in allowed.
func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	return slices.Contains(allowed, origin)
}

// WithCORS is a middleware that adds CORS headers to the response. Requests from
// origins outside allowedOrigins are refused.
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		w.Header().Set("Vary", "Origin")

		if !originAllowed(r, allowedOrigins) {
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}

		// Echo back the origin so the session cookie travels with credentialed requests.
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+sessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, "+sessionHeader)
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodPut+", "+http.MethodDelete+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/api/health", http.HandlerFunc(c.HandleHealth)).Methods(http.MethodGet)

	r.HandleFunc("/api/session", c.HandleSession).Methods(http.MethodGet)
	r.HandleFunc("/api/session", c.HandleEndSession).Methods(http.MethodDelete)
	r.HandleFunc("/api/session/history", c.HandleSessionHistory).Methods(http.MethodGet)

	// Dataset loading
	r.HandleFunc("/api/dataset/url", c.HandleLoadURL).Methods(http.MethodPost)
	r.HandleFunc("/api/dataset/upload", c.HandleUpload).Methods(http.MethodPost)

	// Filters
	r.HandleFunc("/api/filters", c.HandleGetFilters).Methods(http.MethodGet)
	r.HandleFunc("/api/filters", c.HandlePutFilters).Methods(http.MethodPut)
	r.HandleFunc("/api/filters", c.HandleResetFilters).Methods(http.MethodDelete)
	r.HandleFunc("/api/options", c.HandleOptions).Methods(http.MethodGet)

	// Derived views
	r.HandleFunc("/api/view", c.HandleView).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics", c.HandleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/api/records", c.HandleRecords).Methods(http.MethodGet)

	// Exports and charts
	r.HandleFunc("/api/export.csv", c.HandleExportCSV).Methods(http.MethodGet)
	r.HandleFunc("/api/export.xlsx", c.HandleExportXLSX).Methods(http.MethodGet)
	r.HandleFunc("/api/charts/monthly.png", c.HandleMonthlyChart).Methods(http.MethodGet)
	r.HandleFunc("/api/charts/{dimension}.png", c.HandleRankingChart).Methods(http.MethodGet)

	// WebSocket endpoint for live session events
	r.HandleFunc("/api/ws", c.HandleWebSocket).Methods(http.MethodGet)

	return r, nil
}

// currentSession returns the session named by the request for read-only handlers.
// Callers naming no live session read the default one; nothing is created.
func (c *Controller) currentSession(w http.ResponseWriter, r *http.Request) *session.Session {
	s := c.App.Sessions.Default()
	if id := sessionID(r); id != "" {
		if own, ok := c.App.Sessions.Get(id); ok {
			s = own
		}
	}
	w.Header().Set(sessionHeader, s.ID())
	return s
}

// session returns the caller's session for handlers that change it: the X-Session-ID
// header wins over the cookie, and a caller with neither gets a fresh session and cookie.
func (c *Controller) session(w http.ResponseWriter, r *http.Request) *session.Session {
	id := sessionID(r)
	if id == "" {
		id = session.NewID()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.Header().Set(sessionHeader, id)
	return c.App.Sessions.GetOrCreate(r.Context(), id)
}

// sessionID returns the session named by the request, "" when it names none.
func sessionID(r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	if ck, err := r.Cookie(sessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
