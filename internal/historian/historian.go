// Package historian drains queued round changes from Redis and persists them as an
// audit trail in tysiac_round_history.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/tysiac/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink persists one batch of change records.
type Sink interface {
	InsertChanges(ctx context.Context, records []models.RoundChangeRecord) error
}

// Config tunes batching.
type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
}

// Service pops change records off the queue, accumulates them and flushes them to the
// sink either when the batch is full or on every flush tick.
type Service struct {
	rdb    *redis.Client
	sink   Sink
	cfg    Config
	logger *logrus.Logger

	batchMu sync.Mutex
	batch   []models.RoundChangeRecord
}

// New builds a Service. Zero config values fall back to 20 records / 500ms.
func New(rdb *redis.Client, sink Sink, cfg Config, logger *logrus.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		rdb:    rdb,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		batch:  make([]models.RoundChangeRecord, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is left.
func (s *Service) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"queue":     s.cfg.Queue,
		"batchSize": s.cfg.BatchSize,
	}).Info("historian started")

	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// the run context is gone; give the last flush its own deadline
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.flush(flushCtx)
			cancel()
			s.logger.Info("historian shutting down")
			return nil

		case <-ticker.C:
			s.flush(ctx)

		default:
			res, err := s.rdb.BLPop(ctx, s.cfg.FlushDelay, s.cfg.Queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					s.logger.WithError(err).Error("BLPop failed")
					time.Sleep(s.cfg.FlushDelay)
				}
				continue
			}
			// res[0] is the queue name and res[1] the payload
			if len(res) < 2 {
				continue
			}
			s.handlePayload(ctx, res[1])
		}
	}
}

// handlePayload decodes one queued record and adds it to the batch.
func (s *Service) handlePayload(ctx context.Context, payload string) {
	var rec models.RoundChangeRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.logger.WithError(err).Warn("invalid round change record")
		return
	}
	if s.append(rec) {
		s.flush(ctx)
	}
}

// append adds rec and reports whether the batch reached its size threshold.
func (s *Service) append(rec models.RoundChangeRecord) bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.batch = append(s.batch, rec)
	return len(s.batch) >= s.cfg.BatchSize
}

// flush hands the pending batch to the sink. A failed batch is logged and dropped.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]models.RoundChangeRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertChanges(ctx, pending); err != nil {
		s.logger.WithError(err).WithField("records", len(pending)).Error("failed to flush round changes")
		return
	}
	s.logger.WithField("records", len(pending)).Debug("flushed round changes")
}

// PostgresSink writes batches into tysiac_round_history in one transaction.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

func (p *PostgresSink) InsertChanges(ctx context.Context, records []models.RoundChangeRecord) error {
	q := `
		INSERT INTO tysiac_round_history (game_id, round_index, action, payload, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			var payload []byte
			if rec.Round != nil {
				data, err := json.Marshal(rec.Round)
				if err != nil {
					return fmt.Errorf("marshal round %d: %w", rec.RoundIndex, err)
				}
				payload = data
			}
			if _, err := tx.Exec(ctx, q, rec.GameID, rec.RoundIndex, rec.Action, payload, time.UnixMilli(rec.Timestamp)); err != nil {
				return fmt.Errorf("insert change for game %d: %w", rec.GameID, err)
			}
		}
		return nil
	})
}
