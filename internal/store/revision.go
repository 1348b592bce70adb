package store

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// nextRevision returns the revision following prev.
//
// Revisions have the form "<generation>-<32 hex digits>". The generation
// counts writes; the suffix makes concurrent writers of the same generation
// distinguishable.
func nextRevision(prev string) string {
	gen := revisionGeneration(prev) + 1
	id := uuid.Must(uuid.NewV7())
	return strconv.FormatUint(gen, 10) + "-" + strings.ReplaceAll(id.String(), "-", "")
}

// revisionGeneration parses the generation of rev, or 0 if rev is empty or
// malformed.
func revisionGeneration(rev string) uint64 {
	head, _, ok := strings.Cut(rev, "-")
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
