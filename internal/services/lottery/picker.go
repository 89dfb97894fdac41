package lottery

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/heartlink/backend/internal/models"
)

// Rand is the source of randomness for winner selection. Tests substitute a
// deterministic implementation.
type Rand interface {
	Intn(n int) int
}

// systemRand delegates to the package-level math/rand source, which is safe
// for concurrent use. Draws can run from both the scheduler and the admin
// endpoint at the same time, so the default source must not race.
type systemRand struct{}

func (systemRand) Intn(n int) int { return rand.Intn(n) }

// pickWeighted selects one entry with probability proportional to its ticket
// count. Uses cumulative weights and binary search rather than materializing
// one candidate per ticket, which preserves the same distribution at
// O(n log n) instead of O(total tickets).
//
// Returns false when no entry holds a ticket.
func pickWeighted(entries []models.Entry, rng Rand) (uuid.UUID, bool) {
	cumulative := make([]int, len(entries))
	total := 0
	for i, e := range entries {
		if e.TicketsEarned > 0 {
			total += e.TicketsEarned
		}
		cumulative[i] = total
	}

	if total <= 0 {
		return uuid.Nil, false
	}

	// target is a ticket index in [0, total); the owning entry is the first
	// whose cumulative count exceeds it.
	target := rng.Intn(total)
	idx := sort.SearchInts(cumulative, target+1)

	return entries[idx].UserID, true
}
