package engagement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreSingleClubIsItsOwnMax(t *testing.T) {
	out := Score([]Counts{{ClubID: "c1", Members: 10, Events: 5, Posts: 5, Polls: 2}})
	require.Len(t, out, 1)
	assert.InDelta(t, 5.4, out[0].RawScore, 1e-9)
	assert.Equal(t, 100.0, out[0].Percentage)
}

func TestScoreIsRelativeToBatchMax(t *testing.T) {
	out := Score([]Counts{
		{ClubID: "a", Members: 10, Events: 5, Posts: 5, Polls: 2},
		{ClubID: "b", Members: 5, Events: 2, Posts: 1, Polls: 1},
		{ClubID: "c"},
	})
	require.Len(t, out, 3)
	assert.Equal(t, 100.0, out[0].Percentage)
	// (1.0 + 0.6 + 0.3 + 0.2) / 5.4
	assert.InDelta(t, 2.1, out[1].RawScore, 1e-9)
	assert.InDelta(t, 38.888888, out[1].Percentage, 1e-5)
	assert.Equal(t, 0.0, out[2].Percentage)
}

func TestScoreEmptyAndAllZero(t *testing.T) {
	assert.Empty(t, Score(nil))

	out := Score([]Counts{{ClubID: "a"}, {ClubID: "b"}})
	for _, s := range out {
		assert.Equal(t, 0.0, s.RawScore)
		assert.Equal(t, 0.0, s.Percentage)
	}
}

func TestScoreChangesWithBatch(t *testing.T) {
	small := Counts{ClubID: "s", Members: 1}
	alone := Score([]Counts{small})
	withBigger := Score([]Counts{small, {ClubID: "b", Members: 4}})
	assert.Equal(t, 100.0, alone[0].Percentage)
	assert.Equal(t, 25.0, withBigger[0].Percentage)
}

func TestRankedOrdersByPercentageThenName(t *testing.T) {
	out := Ranked([]Counts{
		{ClubID: "1", ClubName: "Drama", Members: 1},
		{ClubID: "2", ClubName: "Chess", Members: 5},
		{ClubID: "3", ClubName: "Art", Members: 1},
	})
	require.Len(t, out, 3)
	assert.Equal(t, []string{"Chess", "Art", "Drama"}, []string{out[0].ClubName, out[1].ClubName, out[2].ClubName})
}

func TestRankedKeepsPrecisionAndRoundsForDisplay(t *testing.T) {
	// Art and Drama both show as 33.33 but Drama is ahead.
	out := Ranked([]Counts{
		{ClubID: "1", ClubName: "Art", Members: 30000},
		{ClubID: "2", ClubName: "Drama", Members: 30001},
		{ClubID: "3", ClubName: "Chess", Members: 90000},
	})
	require.Len(t, out, 3)
	assert.Equal(t, []string{"Chess", "Drama", "Art"}, []string{out[0].ClubName, out[1].ClubName, out[2].ClubName})
	assert.Greater(t, out[1].Percentage, out[2].Percentage)

	shown := Rounded(out)
	assert.Equal(t, 33.33, shown[1].Percentage)
	assert.Equal(t, 33.33, shown[2].Percentage)
	assert.Equal(t, 6000.2, shown[1].RawScore)
	assert.NotEqual(t, 33.33, out[2].Percentage)
}
