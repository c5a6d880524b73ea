package tournament

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand"
	"time"

	"github.com/gokatarajesh/pong-tournament/internal/engine"
	"github.com/gokatarajesh/pong-tournament/internal/match"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

var (
	// ErrParticipantCount is returned when the participant count is not a power of two >= 2.
	ErrParticipantCount = errors.New("participant count must be a power of two >= 2")
	// ErrSlotDecided is returned when a result is reported twice for the same slot.
	ErrSlotDecided = errors.New("slot already decided")
	// ErrRankIncomplete is returned when advancing a rank that still has undecided slots.
	ErrRankIncomplete = errors.New("rank has undecided slots")
)

// ParticipantID identifies a player in the external account service.
type ParticipantID string

func (p ParticipantID) String() string { return string(p) }

// Slot is one cell of the bracket. It becomes immutable once Winner is set.
type Slot struct {
	A      *ParticipantID
	B      *ParticipantID
	Winner engine.Player
	ScoreA int
	ScoreB int
	Start  time.Time
	End    time.Time
}

// Decided reports whether the slot has a winner.
func (s *Slot) Decided() bool { return s.Winner != engine.PlayerNone }

// WinnerID returns the winning participant, or nil while undecided.
func (s *Slot) WinnerID() *ParticipantID {
	switch s.Winner {
	case engine.PlayerA:
		return s.A
	case engine.PlayerB:
		return s.B
	}
	return nil
}

// LoserID returns the losing participant, or nil while undecided.
func (s *Slot) LoserID() *ParticipantID {
	switch s.Winner {
	case engine.PlayerA:
		return s.B
	case engine.PlayerB:
		return s.A
	}
	return nil
}

// Bracket is a single-elimination tree. Rank 0 is the final and rank
// NRanks()-1 the first round; rank r holds 2^r slots.
type Bracket struct {
	ranks [][]*Slot
}

// BuildBracket shuffles the participants and seeds adjacent pairs into the
// first round. Every other slot starts empty.
func BuildBracket(participants []ParticipantID, rng *rand.Rand) (*Bracket, error) {
	n := len(participants)
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrParticipantCount, n)
	}
	seen := make(map[ParticipantID]struct{}, n)
	for _, p := range participants {
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("duplicate participant %q", p)
		}
		seen[p] = struct{}{}
	}

	shuffled := make([]ParticipantID, n)
	copy(shuffled, participants)
	rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	nRanks := bits.TrailingZeros(uint(n))
	b := &Bracket{ranks: make([][]*Slot, nRanks)}
	for r := 0; r < nRanks; r++ {
		b.ranks[r] = make([]*Slot, 1<<r)
		for i := range b.ranks[r] {
			b.ranks[r][i] = &Slot{}
		}
	}

	for i, slot := range b.ranks[nRanks-1] {
		a, bb := shuffled[2*i], shuffled[2*i+1]
		slot.A, slot.B = &a, &bb
	}
	return b, nil
}

func (b *Bracket) NRanks() int { return len(b.ranks) }

// Rank returns the slots of rank r.
func (b *Bracket) Rank(r int) []*Slot { return b.ranks[r] }

// RecordResult stores the outcome of the match played in a slot.
func (b *Bracket) RecordResult(rank, idx int, res match.Result) error {
	slot, err := b.slot(rank, idx)
	if err != nil {
		return err
	}
	if slot.Decided() {
		return fmt.Errorf("%w: rank %d slot %d", ErrSlotDecided, rank, idx)
	}
	if res.Winner != engine.PlayerA && res.Winner != engine.PlayerB {
		return fmt.Errorf("rank %d slot %d: result has no winner", rank, idx)
	}
	slot.Winner = res.Winner
	slot.ScoreA = res.ScoreA
	slot.ScoreB = res.ScoreB
	slot.Start = res.Start
	slot.End = res.End
	return nil
}

// Advance copies the winners of rank into rank-1: the winner of slot 2i
// becomes A and the winner of slot 2i+1 becomes B of slot i. Advancing the
// final is a no-op.
func (b *Bracket) Advance(rank int) error {
	if rank < 0 || rank >= len(b.ranks) {
		return fmt.Errorf("rank %d out of range", rank)
	}
	if rank == 0 {
		return nil
	}
	for i, slot := range b.ranks[rank] {
		if !slot.Decided() {
			return fmt.Errorf("%w: rank %d slot %d", ErrRankIncomplete, rank, i)
		}
	}
	for i, next := range b.ranks[rank-1] {
		next.A = b.ranks[rank][2*i].WinnerID()
		next.B = b.ranks[rank][2*i+1].WinnerID()
	}
	return nil
}

// Champion is the winner of the final, or nil while undecided.
func (b *Bracket) Champion() *ParticipantID {
	return b.ranks[0][0].WinnerID()
}

// Placements maps every participant to the rank they were eliminated in.
// The champion is placed at -1.
func (b *Bracket) Placements() map[ParticipantID]int {
	out := make(map[ParticipantID]int)
	for r := len(b.ranks) - 1; r >= 0; r-- {
		for _, slot := range b.ranks[r] {
			if w := slot.WinnerID(); w != nil {
				out[*w] = r - 1
			}
			if l := slot.LoserID(); l != nil {
				out[*l] = r
			}
		}
	}
	return out
}

// Snapshot serializes the whole bracket for an update_tournament event.
func (b *Bracket) Snapshot(p ws.Precision, rankOngoing int, now time.Time) ws.TournamentPayload {
	subgames := make([][]ws.SlotPayload, len(b.ranks))
	for r, slots := range b.ranks {
		subgames[r] = make([]ws.SlotPayload, len(slots))
		for i, slot := range slots {
			subgames[r][i] = slotPayload(p, slot)
		}
	}
	return ws.TournamentPayload{
		TEvent:      p.Time(now),
		NRanks:      len(b.ranks),
		RankOngoing: rankOngoing,
		Subgames:    subgames,
	}
}

func slotPayload(p ws.Precision, s *Slot) ws.SlotPayload {
	out := ws.SlotPayload{
		PlayerA: idString(s.A),
		PlayerB: idString(s.B),
		Winner:  s.Winner.String(),
		ScoreA:  s.ScoreA,
		ScoreB:  s.ScoreB,
	}
	if !s.Start.IsZero() {
		t := p.Time(s.Start)
		out.TStart = &t
	}
	if !s.End.IsZero() {
		t := p.Time(s.End)
		out.TEnd = &t
	}
	return out
}

func idString(id *ParticipantID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func (b *Bracket) slot(rank, idx int) (*Slot, error) {
	if rank < 0 || rank >= len(b.ranks) || idx < 0 || idx >= len(b.ranks[rank]) {
		return nil, fmt.Errorf("slot rank %d index %d out of range", rank, idx)
	}
	return b.ranks[rank][idx], nil
}
