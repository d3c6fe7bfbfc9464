// internal/game/edits.go
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jason-s-yu/tysiac/internal/models"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentWrites bounds the number of store calls a batch keeps in flight.
const maxConcurrentWrites = 8

// RoundWriter is the slice of the store the edit path mutates through.
type RoundWriter interface {
	DeleteRound(ctx context.Context, gameID, index int32) error
	UpdateRound(ctx context.Context, gameID, index int32, round models.Round) error
}

// ValidateEdits replays a batch as if it were the whole game: running totals start at
// zero, deleted entries contribute nothing, and every kept entry must pass Validate
// against the totals of the entries before it. The first failure is returned.
func ValidateEdits(edits []models.RoundEdit) error {
	seen := make(map[int32]struct{}, len(edits))
	var running models.Totals
	for pos, e := range edits {
		if _, dup := seen[e.Index]; dup {
			return fmt.Errorf("edit %d: %w: %d", pos, ErrDuplicateRoundIndex, e.Index)
		}
		seen[e.Index] = struct{}{}

		if e.Delete {
			continue
		}
		if err := Validate(e.Round, running); err != nil {
			return fmt.Errorf("round %d: %w", e.Index, err)
		}
		running = running.Add(e.Round.Deltas())
	}
	return nil
}

// ApplyEdits validates the whole batch and, only if it passes, issues one write per
// entry. Writes run concurrently and are awaited together. A failed write does not
// undo the ones that succeeded; every failure is returned joined, each matching
// ErrPersistenceFailure.
func ApplyEdits(ctx context.Context, w RoundWriter, gameID int32, edits []models.RoundEdit) error {
	if err := ValidateEdits(edits); err != nil {
		return err
	}

	mutations := make([]func(context.Context) error, 0, len(edits))
	for _, e := range edits {
		if e.Delete {
			mutations = append(mutations, func(ctx context.Context) error {
				return Persistence(fmt.Sprintf("delete round %d", e.Index), w.DeleteRound(ctx, gameID, e.Index))
			})
			continue
		}
		round := e.Round
		round.Index = e.Index
		mutations = append(mutations, func(ctx context.Context) error {
			return Persistence(fmt.Sprintf("update round %d", e.Index), w.UpdateRound(ctx, gameID, e.Index, round))
		})
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(maxConcurrentWrites)
	for _, m := range mutations {
		g.Go(func() error {
			if err := m(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
