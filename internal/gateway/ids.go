package gateway

import (
	"math/rand/v2"

	"github.com/roach88/eva/internal/domain"
)

// maxCreateAttempts bounds how often a create is retried after drawing an
// identifier that is already taken.
const maxCreateAttempts = 5

// IDSource draws identifiers for new entities.
type IDSource func() domain.ID

// RandomIDs draws uniformly from [1, 2^32). Zero is reserved for the seeded
// default segment.
func RandomIDs() domain.ID {
	return domain.ID(rand.Uint32N(1<<32-1) + 1)
}

// SequentialIDs returns a source yielding start, start+1, ... Not safe for
// concurrent use; meant for tests and reproducible fixtures.
func SequentialIDs(start domain.ID) IDSource {
	next := start
	return func() domain.ID {
		id := next
		next++
		return id
	}
}
