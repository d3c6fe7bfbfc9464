package game

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/tysiac/internal/models"
)

func sampleGame() models.Game {
	return models.Game{
		ID:          7,
		PlayerNames: [3]string{"Ala", "Bartek", "Celina"},
		Rounds: []models.Round{
			{Index: 1, Player1: 100, Player2: -50, Player3: -50},
			{Index: 2, Player1: 20, Player2: -120, Player3: 40},
			{Index: 3, Player1: 0, Player2: 60, Player3: 200},
		},
		Prev: models.Int32(6),
	}
}

func TestAggregateRunningTotals(t *testing.T) {
	view := Aggregate(sampleGame())

	want := []models.Totals{
		{100, -50, -50},
		{120, -170, -10},
		{120, -110, 190},
	}
	if diff := cmp.Diff(want, view.CumulativeScores); diff != "" {
		t.Errorf("cumulative scores mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, models.Totals{120, -110, 190}, view.Totals)
	assert.Equal(t, int32(-120), view.MinScore)
	assert.Equal(t, int32(7), view.GameID)
	require.NotNil(t, view.Prev)
	assert.Equal(t, int32(6), *view.Prev)
	assert.Nil(t, view.Next)
	assert.Nil(t, view.Winner)
	assert.False(t, view.Finished)
	assert.Len(t, view.Rounds, 3)
}

func TestAggregateEmptyGame(t *testing.T) {
	view := Aggregate(models.Game{ID: 1, PlayerNames: [3]string{"a", "b", "c"}})

	assert.Empty(t, view.Rounds)
	assert.Empty(t, view.CumulativeScores)
	assert.Equal(t, models.Totals{}, view.Totals)
	assert.Equal(t, int32(0), view.MinScore)
	assert.Nil(t, view.Winner)
}

func TestAggregateMinScoreWithOnlyPositiveDeltas(t *testing.T) {
	view := Aggregate(models.Game{Rounds: []models.Round{
		{Index: 1, Player1: 120, Player2: 30, Player3: 45},
		{Index: 2, Player1: 60, Player2: 80, Player3: 90},
	}})
	assert.Equal(t, int32(30), view.MinScore)
}

func TestAggregateIsIdempotent(t *testing.T) {
	g := sampleGame()
	first := Aggregate(g)
	second := Aggregate(g)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("aggregate is not stable (-first +second):\n%s", diff)
	}
}

func TestAggregateDoesNotAliasInput(t *testing.T) {
	g := sampleGame()
	view := Aggregate(g)
	view.Rounds[0].Player1 = 999

	assert.Equal(t, int32(100), g.Rounds[0].Player1)
}

func TestAggregateFindsWinner(t *testing.T) {
	view := Aggregate(models.Game{Rounds: []models.Round{
		{Index: 1, Player1: 880, Player2: 0, Player3: 0},
		{Index: 2, Player1: 0, Player2: 0, Player3: 120},
		{Index: 3, Player1: 120, Player2: 0, Player3: 0},
	}})

	require.NotNil(t, view.Winner)
	assert.Equal(t, models.PlayerOne, *view.Winner)
	assert.True(t, view.Finished)
}
