package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/tysiac/internal/auth"
	"github.com/jason-s-yu/tysiac/internal/database"
	"github.com/jason-s-yu/tysiac/internal/game"
	"github.com/jason-s-yu/tysiac/internal/models"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// adminCookieName holds the admin token issued by the login endpoint.
const adminCookieName = "admin_token"

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) (int, string) {
	switch {
	case game.IsRejection(err):
		return http.StatusUnprocessableEntity, game.Kind(err)
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrInvalidPlayerName):
		return http.StatusBadRequest, "invalid_player_name"
	case errors.Is(err, auth.ErrNoConfiguredSecret):
		return http.StatusForbidden, "no_configured_secret"
	case errors.Is(err, auth.ErrInvalidCredential):
		return http.StatusUnauthorized, "invalid_credential"
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, database.ErrRoundConflict):
		return http.StatusConflict, "round_conflict"
	case errors.Is(err, game.ErrPersistenceFailure):
		return http.StatusInternalServerError, game.Kind(err)
	}
	return http.StatusInternalServerError, "internal"
}

// writeError replies with the mapped status. Server-side failures are logged and
// their details kept out of the response.
func writeError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	status, kind := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
		}).Error("request failed")
		msg = http.StatusText(status)
		if kind == "persistence_failure" {
			msg = game.ErrPersistenceFailure.Error()
		}
	}
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

// decodeJSON reads the request body into v. An unknown bid winner surfaces as the
// validation kind; every other decoding problem is a bad request.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, models.ErrNotAValidPlayer) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// gameIDParam parses the {id} URL parameter.
func gameIDParam(r *http.Request) (int32, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid game id %q", errBadRequest, raw)
	}
	return int32(id), nil
}

// bearerToken extracts an admin token from the Authorization header or the admin cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(adminCookieName); err == nil {
		return c.Value
	}
	return ""
}
