package simulate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickwire/twentyeight/internal/rules"
)

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()
	opts := Options{Mode: rules.Mode28, Rounds: 25, Seed: 42, Even: "aggressive", Odd: "cautious"}

	a, err := Run(opts)
	require.NoError(t, err)
	b, err := Run(opts)
	require.NoError(t, err)

	a.Elapsed, b.Elapsed = 0, 0
	assert.Equal(t, a, b)
}

func TestRunTotalsAddUp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		mode       rules.Mode
		deckPoints int
	}{
		{rules.Mode28, 28},
		{rules.Mode56, 56},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			res, err := Run(Options{Mode: tt.mode, Rounds: 30, Seed: 7})
			require.NoError(t, err)

			assert.Equal(t, 30, res.Rounds)
			assert.Equal(t, 30, res.Even.RoundsWon+res.Odd.RoundsWon)
			assert.Equal(t, 30, res.Even.BidsWon+res.Odd.BidsWon)

			captured := res.Even.TotalPoints + res.Odd.TotalPoints
			if tt.mode == rules.Mode28 {
				// 32 cards over 4 seats deal out exactly, so every card
				// point lands with one team or the other.
				assert.Equal(t, 30*tt.deckPoints, captured)
			} else {
				// 64 cards over 6 seats leave a 4-card kitty per round;
				// its points (at most 10) go to nobody.
				assert.LessOrEqual(t, captured, 30*tt.deckPoints)
				assert.GreaterOrEqual(t, captured, 30*(tt.deckPoints-10))
			}

			assert.GreaterOrEqual(t, res.AvgBid, float64(tt.mode.MinBid()))
			assert.LessOrEqual(t, res.AvgBid, float64(tt.mode.TotalPoints()))
			assert.LessOrEqual(t, res.Even.BidsMade, res.Even.BidsWon)
			assert.LessOrEqual(t, res.Odd.BidsMade, res.Odd.BidsWon)
		})
	}
}

func TestRunDefaults(t *testing.T) {
	t.Parallel()
	res, err := Run(Options{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, rules.Mode28, res.Mode)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, "default", res.Even.Strategy)
	assert.Equal(t, "default", res.Odd.Strategy)
}

func TestRenderMentionsBothTeams(t *testing.T) {
	t.Parallel()
	res, err := Run(Options{Rounds: 5, Seed: 3, Even: "aggressive", Odd: "cautious"})
	require.NoError(t, err)

	out := res.Render()
	assert.True(t, strings.Contains(out, "aggressive"))
	assert.True(t, strings.Contains(out, "cautious"))
	assert.True(t, strings.Contains(out, "average winning bid"))
}
