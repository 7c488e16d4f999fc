package server

import (
	"encoding/json"
	"errors"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/property360/usersession/internal/profile"
	"github.com/property360/usersession/internal/serviceerr"
	"github.com/property360/usersession/internal/usersession"
)

type errorModel struct {
	Error string `json:"error"`
}

type shortlistedModel struct {
	ID          string `json:"id"`
	Shortlisted bool   `json:"shortlisted"`
}

var errBadRequest = errors.New("bad request")

func httpStatusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, serviceerr.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, serviceerr.ErrProfileIDMismatch):
		return http.StatusForbidden
	case errors.Is(err, serviceerr.ErrNotInitialised):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slogctx.Error(r.Context(), "Failed to encode the response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusOf(err)
	if status >= http.StatusInternalServerError {
		slogctx.Error(r.Context(), "Request failed", "error", err)
	} else {
		slogctx.Debug(r.Context(), "Request rejected", "error", err)
	}

	writeJSON(w, r, status, errorModel{Error: err.Error()})
}

func decodeProfile(r *http.Request) (profile.Profile, error) {
	var p profile.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return profile.Profile{}, errors.Join(errBadRequest, err)
	}
	if p.ID == "" {
		return profile.Profile{}, errors.Join(errBadRequest, errors.New("profile id is required"))
	}
	return p, nil
}

// facadeHandler resolves the facade injected by usersession.Middleware.
func facadeHandler(fn func(http.ResponseWriter, *http.Request, *usersession.Facade)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := usersession.FromContext(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		fn(w, r, f)
	}
}

func getSession(w http.ResponseWriter, r *http.Request, f *usersession.Facade) {
	s, err := f.Snapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s)
}

func putCurrentUser(w http.ResponseWriter, r *http.Request, f *usersession.Facade) {
	var p *profile.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, r, errors.Join(errBadRequest, err))
		return
	}

	if err := f.SetCurrentUser(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	getSession(w, r, f)
}

func postLogout(w http.ResponseWriter, r *http.Request, f *usersession.Facade) {
	if err := f.Logout(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	getSession(w, r, f)
}

func postRecentlyViewed(w http.ResponseWriter, r *http.Request, f *usersession.Facade) {
	p, err := decodeProfile(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := f.RecordView(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}

	items, err := f.RecentlyViewed()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func putShortlist(w http.ResponseWriter, r *http.Request, f *usersession.Facade) {
	p, err := decodeProfile(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := f.AddToShortlist(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}

	items, err := f.Shortlist()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func getShortlisted(w http.ResponseWriter, r *http.Request, f *usersession.Facade) {
	id := r.PathValue("id")

	ok, err := f.IsShortlisted(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, shortlistedModel{ID: id, Shortlisted: ok})
}

func deleteShortlisted(w http.ResponseWriter, r *http.Request, f *usersession.Facade) {
	if err := f.RemoveFromShortlist(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	items, err := f.Shortlist()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}
