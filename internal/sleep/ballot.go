// Package sleep aggregates per-zone sleep votes and decides when enough
// eligible players are asleep to skip the night.
package sleep

import (
	"math"

	"github.com/aelexs/timetuner/internal/domain"
)

// Ballot is the set of players currently voting to skip in one zone.
type Ballot struct {
	votes map[domain.PlayerID]struct{}
}

// NewBallot returns an empty ballot.
func NewBallot() *Ballot {
	return &Ballot{votes: make(map[domain.PlayerID]struct{})}
}

// Add records a vote. Returns false if the player had already voted.
func (b *Ballot) Add(p domain.PlayerID) bool {
	if _, ok := b.votes[p]; ok {
		return false
	}
	b.votes[p] = struct{}{}
	return true
}

// Remove drops a vote. Returns false if the player had not voted.
func (b *Ballot) Remove(p domain.PlayerID) bool {
	if _, ok := b.votes[p]; !ok {
		return false
	}
	delete(b.votes, p)
	return true
}

// Has reports whether the player is voting.
func (b *Ballot) Has(p domain.PlayerID) bool {
	_, ok := b.votes[p]
	return ok
}

// Len returns the number of votes.
func (b *Ballot) Len() int { return len(b.votes) }

// Clear removes every vote. The ballot stays usable.
func (b *Ballot) Clear() { clear(b.votes) }

// Policy decides whether a ballot carries.
type Policy struct {
	UseRequiredPlayers bool
	RequiredPlayers    int
	Percentage         float64
}

// Sanitize clamps the percentage into [0, 1] and the required count to at
// least 1.
func (p Policy) Sanitize() Policy {
	if math.IsNaN(p.Percentage) || p.Percentage < 0 {
		p.Percentage = 0
	}
	if p.Percentage > 1 {
		p.Percentage = 1
	}
	if p.RequiredPlayers < 1 {
		p.RequiredPlayers = 1
	}
	return p
}

// ShouldSkip applies the policy to a vote count. A lone eligible player
// always carries the vote; nobody online never does. The fixed-count rule
// is capped at the number of eligible players online.
func (p Policy) ShouldSkip(votes, eligibleOnline int) bool {
	if eligibleOnline <= 0 || votes <= 0 {
		return false
	}
	if eligibleOnline == 1 {
		return true
	}
	if p.UseRequiredPlayers {
		return votes >= min(p.RequiredPlayers, eligibleOnline)
	}
	return float64(votes)/float64(eligibleOnline) >= p.Percentage
}

// Blocked reports whether a bed-enter outcome can never count as a vote.
func Blocked(result domain.BedEnterResult) bool {
	switch result {
	case domain.BedEnterNotPossibleHere, domain.BedEnterNotSafe, domain.BedEnterObstructed, domain.BedEnterTooFarAway:
		return true
	default:
		return false
	}
}

// Needed returns how many votes carry the ballot with eligibleOnline players.
func (p Policy) Needed(eligibleOnline int) int {
	if eligibleOnline <= 1 {
		return 1
	}
	if p.UseRequiredPlayers {
		return max(1, min(p.RequiredPlayers, eligibleOnline))
	}
	return max(1, int(math.Ceil(p.Percentage*float64(eligibleOnline)-1e-9)))
}
