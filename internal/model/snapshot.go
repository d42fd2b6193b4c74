package model

// Snapshot is the full queue state as persisted to the durable slot and
// broadcast to other consumers. Time fields travel as RFC 3339 strings and
// rehydrate through the standard JSON codec.
type Snapshot struct {
	Doctors       []Doctor            `json:"doctors"`
	Tokens        []Token             `json:"tokens"`
	HaltedTokens  []Token             `json:"halted_tokens"`
	TokenCounters map[ServiceType]int `json:"token_counters"`
}

// Clone returns a deep copy, so callers can hold a snapshot while the
// engine keeps mutating.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Doctors:       make([]Doctor, len(s.Doctors)),
		Tokens:        make([]Token, len(s.Tokens)),
		HaltedTokens:  make([]Token, len(s.HaltedTokens)),
		TokenCounters: make(map[ServiceType]int, len(s.TokenCounters)),
	}
	copy(out.Doctors, s.Doctors)
	copy(out.Tokens, s.Tokens)
	copy(out.HaltedTokens, s.HaltedTokens)
	for k, v := range s.TokenCounters {
		out.TokenCounters[k] = v
	}
	return out
}

// Stats recomputes the waiting-token aggregate for this snapshot.
func (s *Snapshot) Stats() QueueStats {
	var stats QueueStats
	for _, t := range s.Tokens {
		if t.Status != TokenStatusWaiting {
			continue
		}
		stats.TotalWaiting++
		switch t.ServiceType {
		case ServiceTypeGP:
			stats.GPWaiting++
		case ServiceTypeDental:
			stats.DentalWaiting++
		}
	}
	return stats
}
