// Package policy holds the pure assignment rules. Functions here never
// mutate their inputs; the engine decides what to do with the answers.
package policy

import (
	"github.com/Anandtech09/reception-prime-queue/internal/model"
	"github.com/Anandtech09/reception-prime-queue/pkg/errors"
)

// LeastBusy returns the candidate with the fewest waiting tokens assigned to
// it. Candidates must already be filtered to the desired service type and
// active status. Ties go to the earliest candidate in the slice, so roster
// order is the tie-break. Calling with no candidates is a caller bug.
func LeastBusy(candidates []model.Doctor, tokens []model.Token) (string, error) {
	if len(candidates) == 0 {
		return "", errors.EmptyCandidates("no eligible doctors")
	}

	bestID := candidates[0].ID
	bestCount := waitingCount(candidates[0].ID, tokens)
	for _, d := range candidates[1:] {
		if n := waitingCount(d.ID, tokens); n < bestCount {
			bestID = d.ID
			bestCount = n
		}
	}
	return bestID, nil
}

// QueuePosition returns the 1-based rank of tok among unassigned waiting
// tokens of the same service type, ordered by creation time with the ID as
// tie-break so equal timestamps still rank uniquely. Tokens bound to a
// specific doctor have no shared-queue position; for those it returns 0.
func QueuePosition(tok model.Token, tokens []model.Token) int {
	if tok.IsSpecificDoctor {
		return 0
	}

	pos := 1
	for _, t := range tokens {
		if t.ID == tok.ID {
			continue
		}
		if t.Status != model.TokenStatusWaiting || t.ServiceType != tok.ServiceType {
			continue
		}
		if t.AssignedDoctorID != "" {
			continue
		}
		if t.CreatedAt.Before(tok.CreatedAt) || (t.CreatedAt.Equal(tok.CreatedAt) && t.ID < tok.ID) {
			pos++
		}
	}
	return pos
}

func waitingCount(doctorID string, tokens []model.Token) int {
	n := 0
	for _, t := range tokens {
		if t.AssignedDoctorID == doctorID && t.Status == model.TokenStatusWaiting {
			n++
		}
	}
	return n
}
