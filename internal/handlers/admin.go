// internal/handlers/admin.go
package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/tysiac/internal/models"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type editRequest struct {
	Password string             `json:"password,omitempty"`
	Edits    []models.RoundEdit `json:"edits"`
}

// LoginHandler exchanges the admin password for a token.
//
// Request:
//
//	{ "password": "..." }
//
// Response:
//
//	{ "token": "{jwt}", "expires_at": "..." }
//
// The token is also set as the admin_token cookie.
func LoginHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}

		token, exp, err := gs.Login(req.Password)
		if err != nil {
			logger.WithField("remote", r.RemoteAddr).Warnf("admin login refused: %v", err)
			writeError(w, r, logger, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     adminCookieName,
			Value:    token,
			HttpOnly: true,
			Path:     "/tysiac",
			Expires:  exp,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp})
	}
}

// EditHandler applies an admin batch edit and answers with the refreshed game view.
func EditHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := gameIDParam(r)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		var req editRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}

		cred := Credential{Password: req.Password, Token: bearerToken(r)}
		if err := gs.ApplyEdits(r.Context(), id, cred, req.Edits); err != nil {
			writeError(w, r, logger, err)
			return
		}

		view, err := gs.LoadGame(r.Context(), id)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
