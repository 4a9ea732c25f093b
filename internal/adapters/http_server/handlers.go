// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"pnr_cleaner/internal/domain"
)

// Queries is the read side the handlers depend on.
type Queries interface {
	GetReservation(ctx context.Context, id string) (domain.ReservationView, error)
	GetRun(ctx context.Context, id string) (domain.RunView, error)
}

type Handlers struct{ Q Queries }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

var runIDPattern = regexp.MustCompile(`^[0-9a-f-]{36}$`)

// validReservationID accepts any id the repository can store: non-empty UTF-8
// without control characters, at most domain.MaxIDLen characters.
func validReservationID(id string) bool {
	if id == "" || !utf8.ValidString(id) || utf8.RuneCountInString(id) > domain.MaxIDLen {
		return false
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/reservations/{id}", h.getReservation)
	s.mux.Get("/v1/runs/{id}", h.getRun)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "encoding failed")
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write response body")
	}
}

func writeLookupError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found")
		return
	}
	log.Error().Err(err).Str("what", what).Msg("lookup failed")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "lookup failed")
}

func (h *Handlers) getReservation(w http.ResponseWriter, r *http.Request) {
	// chi matches on the escaped path when one exists
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || !validReservationID(id) {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a reservation identifier")
		return
	}
	resp, err := h.Q.GetReservation(r.Context(), id)
	if err != nil {
		writeLookupError(w, err, "reservation")
		return
	}
	writeJSON(w, r, resp)
}

func (h *Handlers) getRun(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(chi.URLParam(r, "id"))
	if !runIDPattern.MatchString(id) {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a run UUID")
		return
	}
	resp, err := h.Q.GetRun(r.Context(), id)
	if err != nil {
		writeLookupError(w, err, "run")
		return
	}
	writeJSON(w, r, resp)
}
