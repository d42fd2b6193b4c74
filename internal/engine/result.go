package engine

import (
	"github.com/Anandtech09/reception-prime-queue/internal/model"
)

// Outcome classifies what an operation did.
type Outcome string

const (
	OutcomeTokenIssued     Outcome = "token_issued"
	OutcomePatientCalled   Outcome = "patient_called"
	OutcomeNoPatients      Outcome = "no_patients"
	OutcomePatientVisited  Outcome = "patient_visited"
	OutcomePatientHalted   Outcome = "patient_halted"
	OutcomePatientRequeued Outcome = "patient_requeued"
	OutcomeStatusUpdated   Outcome = "status_updated"
	OutcomeBreakEnded      Outcome = "break_ended"
)

// Result is the structured outcome of an engine operation. The presentation
// layer decides how to surface Message; the engine never talks to a UI.
type Result struct {
	Outcome Outcome       `json:"outcome"`
	Message string        `json:"message"`
	Token   *model.Token  `json:"token,omitempty"`
	Doctor  *model.Doctor `json:"doctor,omitempty"`
}
