// internal/handlers/game_server.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jason-s-yu/tysiac/internal/auth"
	"github.com/jason-s-yu/tysiac/internal/database"
	"github.com/jason-s-yu/tysiac/internal/game"
	"github.com/jason-s-yu/tysiac/internal/hub"
	"github.com/jason-s-yu/tysiac/internal/metrics"
	"github.com/jason-s-yu/tysiac/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxPlayerNameLength bounds a player name, counted in runes.
const MaxPlayerNameLength = 64

// ErrInvalidPlayerName is returned when a name is blank or too long.
var ErrInvalidPlayerName = errors.New("invalid player name")

// ChangeRecorder receives every accepted round mutation for the audit trail.
type ChangeRecorder interface {
	Record(ctx context.Context, rec models.RoundChangeRecord) error
}

// Credential is what an editor presents: a password, a previously issued admin token, or both.
type Credential struct {
	Password string
	Token    string
}

// GameServer owns the scoring workflow: it reads prior totals, validates, persists,
// and announces changes on the hub.
type GameServer struct {
	store    database.Store
	hub      *hub.Hub
	gate     *auth.Gate
	tokens   *auth.TokenIssuer
	recorder ChangeRecorder
	metrics  *metrics.Metrics
	logger   *logrus.Logger

	// locks serializes read-validate-append per game; an entry lives only while
	// some request holds or waits on it
	locksMu sync.Mutex
	locks   map[int32]*gameLock
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

// ServerOption configures optional GameServer collaborators.
type ServerOption func(*GameServer)

// WithRecorder sets where accepted changes are recorded.
func WithRecorder(r ChangeRecorder) ServerOption {
	return func(gs *GameServer) { gs.recorder = r }
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(gs *GameServer) { gs.metrics = m }
}

// WithLogger sets the server logger.
func WithLogger(l *logrus.Logger) ServerOption {
	return func(gs *GameServer) {
		if l != nil {
			gs.logger = l
		}
	}
}

// NewGameServer wires a GameServer. gate and tokens guard the edit path; a nil gate
// refuses every edit.
func NewGameServer(store database.Store, h *hub.Hub, gate *auth.Gate, tokens *auth.TokenIssuer, opts ...ServerOption) *GameServer {
	gs := &GameServer{
		store:  store,
		hub:    h,
		gate:   gate,
		tokens: tokens,
		logger: logrus.StandardLogger(),
		locks:  make(map[int32]*gameLock),
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs
}

// Hub returns the hub events are published on.
func (gs *GameServer) Hub() *hub.Hub {
	return gs.hub
}

// lockGame blocks until the caller holds game id's lock and returns its release func.
func (gs *GameServer) lockGame(id int32) (unlock func()) {
	gs.locksMu.Lock()
	l, ok := gs.locks[id]
	if !ok {
		l = &gameLock{}
		gs.locks[id] = l
	}
	l.refs++
	gs.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		gs.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(gs.locks, id)
		}
		gs.locksMu.Unlock()
	}
}

// storeError keeps ErrNotFound and ErrRoundConflict visible and classifies everything
// else as a persistence failure.
func storeError(op string, err error) error {
	if err == nil || errors.Is(err, database.ErrNotFound) || errors.Is(err, database.ErrRoundConflict) {
		return err
	}
	return game.Persistence(op, err)
}

// NormalizeNames trims the three names and checks each is non-empty and short enough.
func NormalizeNames(names [3]string) ([3]string, error) {
	var out [3]string
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return out, fmt.Errorf("%w: player %d is empty", ErrInvalidPlayerName, i+1)
		}
		if utf8.RuneCountInString(n) > MaxPlayerNameLength {
			return out, fmt.Errorf("%w: player %d is longer than %d characters", ErrInvalidPlayerName, i+1, MaxPlayerNameLength)
		}
		out[i] = n
	}
	return out, nil
}

// CreateGame stores a new scoresheet and announces it.
func (gs *GameServer) CreateGame(ctx context.Context, names [3]string) (int32, error) {
	names, err := NormalizeNames(names)
	if err != nil {
		return 0, err
	}
	id, err := gs.store.CreateGame(ctx, names)
	if err != nil {
		return 0, storeError("create game", err)
	}
	gs.logger.WithField("gameId", id).Info("game created")
	gs.hub.Publish(hub.Event{Type: hub.EventNewGameCreated, GameID: id})
	return id, nil
}

// SubmitRound validates round against the game's current totals and appends it.
// The returned index is the one the store assigned.
func (gs *GameServer) SubmitRound(ctx context.Context, gameID int32, round models.Round) (int32, error) {
	unlock := gs.lockGame(gameID)
	index, err := gs.appendLocked(ctx, gameID, round)
	unlock()
	if err != nil {
		return 0, err
	}

	round.Index = index
	gs.metrics.RoundChanged(models.ChangeAppend, 1)
	gs.hub.Publish(hub.Event{Type: hub.EventScoresUpdated, GameID: gameID})
	gs.record(ctx, models.RoundChangeRecord{GameID: gameID, RoundIndex: index, Action: models.ChangeAppend, Round: &round})
	return index, nil
}

func (gs *GameServer) appendLocked(ctx context.Context, gameID int32, round models.Round) (int32, error) {
	prior, err := gs.store.PriorTotals(ctx, gameID)
	if err != nil {
		return 0, storeError("read prior totals", err)
	}
	if err := game.Validate(round, prior); err != nil {
		gs.metrics.RoundRejected(game.Kind(err))
		gs.logger.WithFields(logrus.Fields{
			"gameId": gameID,
			"kind":   game.Kind(err),
		}).Debugf("round rejected: %v", err)
		return 0, err
	}
	index, err := gs.store.AppendRound(ctx, gameID, round)
	if err != nil {
		return 0, storeError("append round", err)
	}
	return index, nil
}

// LoadGame reads a game and folds it into its view.
func (gs *GameServer) LoadGame(ctx context.Context, id int32) (game.GameView, error) {
	g, err := gs.store.GetGame(ctx, id)
	if err != nil {
		return game.GameView{}, storeError("load game", err)
	}
	return game.Aggregate(*g), nil
}

// LatestGameID returns the id of the newest game.
func (gs *GameServer) LatestGameID(ctx context.Context) (int32, error) {
	id, err := gs.store.LatestGameID(ctx)
	return id, storeError("latest game", err)
}

// ListGames returns the newest games first.
func (gs *GameServer) ListGames(ctx context.Context, limit int) ([]models.GameSummary, error) {
	games, err := gs.store.ListGames(ctx, limit)
	if err != nil {
		return nil, storeError("list games", err)
	}
	return games, nil
}

// Authorize checks an editor's credential. With no admin hash configured every
// credential is refused, tokens included.
func (gs *GameServer) Authorize(cred Credential) error {
	if !gs.gate.Configured() {
		return auth.ErrNoConfiguredSecret
	}
	if cred.Token != "" && gs.tokens != nil {
		if err := gs.tokens.Verify(cred.Token); err == nil {
			return nil
		}
	}
	return gs.gate.Check(cred.Password)
}

// Login exchanges the admin password for a short-lived token.
func (gs *GameServer) Login(password string) (string, time.Time, error) {
	if err := gs.gate.Check(password); err != nil {
		return "", time.Time{}, err
	}
	if gs.tokens == nil {
		return "", time.Time{}, errors.New("token issuing is not configured")
	}
	return gs.tokens.Issue()
}

// ApplyEdits checks the credential, then validates and applies the batch under the
// game's lock. Writes that succeeded before a failure are not rolled back.
func (gs *GameServer) ApplyEdits(ctx context.Context, gameID int32, cred Credential, edits []models.RoundEdit) error {
	if err := gs.Authorize(cred); err != nil {
		return err
	}
	if _, err := gs.store.PriorTotals(ctx, gameID); err != nil {
		return storeError("check game", err)
	}
	if len(edits) == 0 {
		return nil
	}

	unlock := gs.lockGame(gameID)
	err := game.ApplyEdits(ctx, gs.store, gameID, edits)
	unlock()

	if err != nil && game.IsRejection(err) {
		gs.metrics.RoundRejected(game.Kind(err))
		return err
	}

	// validation passed, so some writes may have landed even if others failed
	gs.hub.Publish(hub.Event{Type: hub.EventScoresUpdated, GameID: gameID})
	if err != nil {
		gs.logger.WithError(err).WithField("gameId", gameID).Error("batch edit partially failed")
		return err
	}

	var updates, deletes int
	for _, e := range edits {
		rec := models.RoundChangeRecord{GameID: gameID, RoundIndex: e.Index}
		if e.Delete {
			deletes++
			rec.Action = models.ChangeDelete
		} else {
			updates++
			round := e.Round
			round.Index = e.Index
			rec.Action = models.ChangeUpdate
			rec.Round = &round
		}
		gs.record(ctx, rec)
	}
	gs.metrics.RoundChanged(models.ChangeUpdate, updates)
	gs.metrics.RoundChanged(models.ChangeDelete, deletes)
	gs.logger.WithFields(logrus.Fields{
		"gameId":  gameID,
		"updates": updates,
		"deletes": deletes,
	}).Info("batch edit applied")
	return nil
}

// record hands rec to the recorder. Failures are logged; the change itself already succeeded.
func (gs *GameServer) record(ctx context.Context, rec models.RoundChangeRecord) {
	if gs.recorder == nil {
		return
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	if err := gs.recorder.Record(ctx, rec); err != nil {
		gs.logger.WithError(err).WithField("gameId", rec.GameID).Warn("failed to record round change")
	}
}
