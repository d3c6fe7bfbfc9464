// internal/handlers/game.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/tysiac/internal/models"
)

type createGameRequest struct {
	PlayerNames [3]string `json:"player_names"`
}

type createGameResponse struct {
	GameID int32 `json:"game_id"`
}

type addScoresResponse struct {
	GameID int32 `json:"game_id"`
	Index  int32 `json:"index"`
}

type latestResponse struct {
	Latest int32 `json:"latest"`
}

// IndexHandler reports the newest game so clients can jump straight to it.
func IndexHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := gs.LatestGameID(r.Context())
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, latestResponse{Latest: id})
	}
}

// ListGamesHandler lists games newest first. ?limit= caps the result.
func ListGamesHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		games, err := gs.ListGames(r.Context(), limit)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		if games == nil {
			games = []models.GameSummary{}
		}
		writeJSON(w, http.StatusOK, games)
	}
}

// CreateGameHandler handles POST /tysiac/new.
func CreateGameHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGameRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		id, err := gs.CreateGame(r.Context(), req.PlayerNames)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.Header().Set("Location", "/tysiac/"+strconv.Itoa(int(id)))
		writeJSON(w, http.StatusCreated, createGameResponse{GameID: id})
	}
}

// GetGameHandler serves the aggregated view of one game.
func GetGameHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := gameIDParam(r)
		if err != nil {
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

// AddScoresHandler handles POST /tysiac/{id}/add-scores. Any index in the body is
// ignored; the round always goes after the last one.
func AddScoresHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := gameIDParam(r)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		var round models.Round
		if err := decodeJSON(w, r, &round); err != nil {
			writeError(w, r, logger, err)
			return
		}
		index, err := gs.SubmitRound(r.Context(), id, round)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, addScoresResponse{GameID: id, Index: index})
	}
}
