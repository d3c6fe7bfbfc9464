package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/tysiac/internal/models"
)

type recordingWriter struct {
	mu      sync.Mutex
	updated map[int32]models.Round
	deleted []int32
	failOn  map[int32]error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{
		updated: make(map[int32]models.Round),
		failOn:  make(map[int32]error),
	}
}

func (w *recordingWriter) DeleteRound(_ context.Context, _ int32, index int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.failOn[index]; err != nil {
		return err
	}
	w.deleted = append(w.deleted, index)
	return nil
}

func (w *recordingWriter) UpdateRound(_ context.Context, _ int32, index int32, round models.Round) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.failOn[index]; err != nil {
		return err
	}
	w.updated[index] = round
	return nil
}

func (w *recordingWriter) writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.updated) + len(w.deleted)
}

func TestApplyEditsRejectsWholeBatch(t *testing.T) {
	// the second entry only breaks the 880 ceiling because of the first one
	edits := []models.RoundEdit{
		{Index: 1, Round: bidRound(0, 800, 0, models.PlayerTwo, 100, 800)},
		{Index: 2, Round: bidRound(100, 100, 0, models.PlayerOne, 100, 100)},
	}
	w := newRecordingWriter()

	err := ApplyEdits(context.Background(), w, 1, edits)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScoreTooHigh)
	assert.Equal(t, 0, w.writes(), "no entry may be written when the batch is rejected")
}

func TestValidateEditsSkipsDeletedEntries(t *testing.T) {
	edits := []models.RoundEdit{
		{Index: 1, Delete: true, Round: bidRound(0, 800, 0, models.PlayerTwo, 100, 800)},
		{Index: 2, Round: bidRound(100, 100, 0, models.PlayerOne, 100, 100)},
	}
	assert.NoError(t, ValidateEdits(edits))
}

func TestValidateEditsRejectsDuplicateIndex(t *testing.T) {
	edits := []models.RoundEdit{
		{Index: 3, Round: bidRound(100, 0, 0, models.PlayerOne, 100, 100)},
		{Index: 3, Delete: true},
	}
	err := ValidateEdits(edits)
	assert.ErrorIs(t, err, ErrDuplicateRoundIndex)
}

func TestValidateEditsReportsRoundIndex(t *testing.T) {
	edits := []models.RoundEdit{
		{Index: 4, Round: bidRound(100, 3, 0, models.PlayerOne, 100, 100)},
	}
	err := ValidateEdits(edits)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAMultipleOfFive)
	assert.Contains(t, err.Error(), "round 4")
}

func TestApplyEditsWritesEveryEntry(t *testing.T) {
	edits := []models.RoundEdit{
		{Index: 1, Round: bidRound(100, -50, -50, models.PlayerOne, 80, 100)},
		{Index: 2, Delete: true},
		{Index: 3, Round: bidRound(-120, 40, 60, models.PlayerOne, 100, 120)},
	}
	w := newRecordingWriter()

	require.NoError(t, ApplyEdits(context.Background(), w, 9, edits))

	assert.Equal(t, []int32{2}, w.deleted)
	require.Len(t, w.updated, 2)
	assert.Equal(t, int32(1), w.updated[1].Index)
	assert.Equal(t, int32(-120), w.updated[3].Player1)
}

func TestApplyEditsJoinsWriteFailures(t *testing.T) {
	edits := []models.RoundEdit{
		{Index: 1, Round: bidRound(100, -50, -50, models.PlayerOne, 80, 100)},
		{Index: 2, Delete: true},
		{Index: 3, Round: bidRound(-120, 40, 60, models.PlayerOne, 100, 120)},
	}
	boom := errors.New("connection reset")
	w := newRecordingWriter()
	w.failOn[2] = boom
	w.failOn[3] = boom

	err := ApplyEdits(context.Background(), w, 9, edits)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "persistence_failure", Kind(err))
	assert.False(t, IsRejection(err))
	// no rollback: the write that succeeded stays applied
	assert.Contains(t, w.updated, int32(1))
}

func TestValidateEditsRejectsWrappingBatch(t *testing.T) {
	round := bidRound(100, -2147483000, 0, models.PlayerOne, 100, 100)
	err := ValidateEdits([]models.RoundEdit{
		{Index: 1, Round: round},
		{Index: 2, Round: round},
	})
	require.ErrorIs(t, err, ErrScoreOutOfRange)
	assert.Contains(t, err.Error(), "round 2")
}
