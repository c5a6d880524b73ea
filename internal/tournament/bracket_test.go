package tournament

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/pong-tournament/internal/engine"
	"github.com/gokatarajesh/pong-tournament/internal/match"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

func participants(n int) []ParticipantID {
	out := make([]ParticipantID, n)
	for i := range out {
		out[i] = ParticipantID(fmt.Sprintf("p%02d", i))
	}
	return out
}

func TestBuildBracket_Shape(t *testing.T) {
	for _, n := range []int{2, 4, 8, 16} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			input := participants(n)
			b, err := BuildBracket(input, rand.New(rand.NewSource(int64(n))))
			require.NoError(t, err)

			wantRanks := 0
			for 1<<wantRanks < n {
				wantRanks++
			}
			require.Equal(t, wantRanks, b.NRanks())

			for r := 0; r < b.NRanks(); r++ {
				assert.Len(t, b.Rank(r), 1<<r)
			}

			seen := map[ParticipantID]int{}
			for _, slot := range b.Rank(b.NRanks() - 1) {
				require.NotNil(t, slot.A)
				require.NotNil(t, slot.B)
				seen[*slot.A]++
				seen[*slot.B]++
			}
			assert.Len(t, seen, n)
			for _, p := range input {
				assert.Equal(t, 1, seen[p], "participant %s", p)
			}

			for r := 0; r < b.NRanks()-1; r++ {
				for _, slot := range b.Rank(r) {
					assert.Nil(t, slot.A)
					assert.Nil(t, slot.B)
					assert.False(t, slot.Decided())
				}
			}
		})
	}
}

func TestBuildBracket_Rejects(t *testing.T) {
	for _, n := range []int{0, 1, 3, 6, 12} {
		_, err := BuildBracket(participants(n), rand.New(rand.NewSource(1)))
		assert.ErrorIs(t, err, ErrParticipantCount, "n=%d", n)
	}

	_, err := BuildBracket([]ParticipantID{"a", "a"}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestBuildBracket_DoesNotMutateInput(t *testing.T) {
	input := participants(8)
	orig := append([]ParticipantID(nil), input...)

	_, err := BuildBracket(input, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.Equal(t, orig, input)
}

func TestBracket_RecordAndAdvance(t *testing.T) {
	b, err := BuildBracket(participants(4), rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	now := time.Now()

	first, second := b.Rank(1)[0], b.Rank(1)[1]
	require.NoError(t, b.RecordResult(1, 0, match.Result{Winner: engine.PlayerB, ScoreA: 1, ScoreB: 3, Start: now, End: now.Add(time.Second)}))

	err = b.Advance(1)
	assert.ErrorIs(t, err, ErrRankIncomplete)

	require.NoError(t, b.RecordResult(1, 1, match.Result{Winner: engine.PlayerA, ScoreA: 3, ScoreB: 2, Start: now, End: now.Add(time.Second)}))
	err = b.RecordResult(1, 1, match.Result{Winner: engine.PlayerB})
	assert.ErrorIs(t, err, ErrSlotDecided)

	require.NoError(t, b.Advance(1))
	final := b.Rank(0)[0]
	require.NotNil(t, final.A)
	require.NotNil(t, final.B)
	assert.Equal(t, *first.B, *final.A, "winner of the left slot plays as A")
	assert.Equal(t, *second.A, *final.B, "winner of the right slot plays as B")

	assert.Nil(t, b.Champion())
	require.NoError(t, b.RecordResult(0, 0, match.Result{Winner: engine.PlayerA, ScoreA: 3}))
	require.NoError(t, b.Advance(0))
	require.NotNil(t, b.Champion())
	assert.Equal(t, *first.B, *b.Champion())

	placements := b.Placements()
	assert.Equal(t, -1, placements[*first.B])
	assert.Equal(t, 0, placements[*second.A])
	assert.Equal(t, 1, placements[*first.A])
	assert.Equal(t, 1, placements[*second.B])
}

func TestBracket_RecordResultValidation(t *testing.T) {
	b, err := BuildBracket(participants(2), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Error(t, b.RecordResult(1, 0, match.Result{Winner: engine.PlayerA}))
	assert.Error(t, b.RecordResult(0, 1, match.Result{Winner: engine.PlayerA}))
	assert.Error(t, b.RecordResult(0, 0, match.Result{}))
	assert.Error(t, b.Advance(3))
}

func TestBracket_Snapshot(t *testing.T) {
	b, err := BuildBracket(participants(4), rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	start := time.Unix(1700000000, 0)
	require.NoError(t, b.RecordResult(1, 0, match.Result{Winner: engine.PlayerA, ScoreA: 3, ScoreB: 1, Start: start, End: start.Add(1500 * time.Millisecond)}))

	snap := b.Snapshot(ws.DefaultPrecision(), 1, start)
	assert.Equal(t, 2, snap.NRanks)
	assert.Equal(t, 1, snap.RankOngoing)
	require.Len(t, snap.Subgames, 2)
	require.Len(t, snap.Subgames[1], 2)

	decided := snap.Subgames[1][0]
	assert.Equal(t, "A", decided.Winner)
	assert.Equal(t, 3, decided.ScoreA)
	require.NotNil(t, decided.TStart)
	require.NotNil(t, decided.TEnd)
	assert.InDelta(t, 1700000001.5, *decided.TEnd, 1e-6)

	final := snap.Subgames[0][0]
	assert.Nil(t, final.PlayerA)
	assert.Nil(t, final.TStart)
	assert.Equal(t, "NOBODY", final.Winner)
}
