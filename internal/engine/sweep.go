package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Anandtech09/reception-prime-queue/internal/model"
)

// SweepBreaks restores every doctor whose break has elapsed to active and
// returns one result per doctor restored. Running it again with no elapsed
// time is a no-op.
func (e *Engine) SweepBreaks() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var results []Result
	for i := range e.doctors {
		d := &e.doctors[i]
		if d.Status != model.DoctorStatusBreak || d.BreakEndTime == nil || d.BreakEndTime.After(now) {
			continue
		}
		d.Status = model.DoctorStatusActive
		d.BreakEndTime = nil
		if calling := e.callingTokenIndexLocked(d.ID); calling >= 0 {
			d.CurrentToken = e.tokens[calling].TokenNumber
		}
		doc := *d
		results = append(results, Result{
			Outcome: OutcomeBreakEnded,
			Message: fmt.Sprintf("%s is now active", doc.Name),
			Doctor:  &doc,
		})
	}
	if len(results) > 0 {
		e.emitLocked()
	}
	return results
}

// Run drives the periodic break-expiry sweep until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, res := range e.SweepBreaks() {
				e.logger.Info().Str("doctor_id", res.Doctor.ID).Msg(res.Message)
			}
		}
	}
}
