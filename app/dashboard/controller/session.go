package controller

import (
	"net/http"
	"strconv"

	"github.com/canopy-network/hydrodash/pkg/session"
)

const defaultHistory = 20

// HandleSession returns the caller's session status, the default session's when the
// caller has none yet.
func (c *Controller) HandleSession(w http.ResponseWriter, r *http.Request) {
	s := c.currentSession(w, r)
	writeJSON(w, http.StatusOK, s.Status())
}

// HandleEndSession drops the caller's session and expires its cookie. The default
// session cannot be ended.
func (c *Controller) HandleEndSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" || id == session.DefaultID {
		writeError(w, http.StatusBadRequest, "no session to end")
		return
	}
	if !c.App.Sessions.Delete(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	w.WriteHeader(http.StatusNoContent)
}

// HandleSessionHistory returns the session's most recent events, oldest first.
// Only available with Redis.
func (c *Controller) HandleSessionHistory(w http.ResponseWriter, r *http.Request) {
	if c.App.RedisClient == nil {
		writeError(w, http.StatusServiceUnavailable, "event history not available (Redis disabled)")
		return
	}

	count := defaultHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errInvalidLimit.Error())
			return
		}
		count = min(n, maxLimit)
	}

	s := c.currentSession(w, r)
	entries, err := c.App.RedisClient.History(r.Context(), s.ID(), int64(count))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
