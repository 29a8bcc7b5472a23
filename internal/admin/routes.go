package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/courseloop/lti-tool/internal/registration"
)

/*
Package admin exposes a read-only HTTP API over the registered platforms so
operators can inspect what the dynamic-registration flow has produced.

Records are created exclusively by the registration completer and never
mutated; deletion and key rotation are handled out of band, so no write
endpoints exist here.

Route prefix (suggested): /admin
*/

// Routes returns list/get endpoints for registered platforms.
// Mount it under something like: r.Mount("/admin", admin.Routes(store))
func Routes(store registration.PlatformStore) http.Handler {
	r := chi.NewRouter()
	r.Get("/platforms", listPlatforms(store))
	r.Get("/platforms/{platformURL}/{clientID}", getPlatform(store))
	return r
}

func listPlatforms(store registration.PlatformStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit := parsePage(r, 0, 100)
		items, err := store.List(r.Context(), offset, limit)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// getPlatform looks up one record. The platform URL path segment is
// URL-escaped (issuers contain "://").
func getPlatform(store registration.PlatformStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		platformURL, err := url.PathUnescape(chi.URLParam(r, "platformURL"))
		if err != nil {
			writeErr(w, http.StatusBadRequest, "bad platform URL encoding")
			return
		}
		clientID := chi.URLParam(r, "clientID")
		rec, err := store.Get(r.Context(), platformURL, clientID)
		if err != nil {
			if errors.Is(err, registration.ErrPlatformNotFound) {
				writeErr(w, http.StatusNotFound, "platform not found")
				return
			}
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

/* ------------------------------ Utilities --------------------------------- */

func parsePage(r *http.Request, defOffset, defLimit int) (offset, limit int) {
	q := r.URL.Query()
	offset = defOffset
	limit = defLimit

	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	return
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errResp struct {
	Error string `json:"error"`
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}
