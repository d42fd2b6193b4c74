// Package engine owns the authoritative queue state: the doctor roster, the
// active and halted token pools and the per-service token counters. All
// mutations go through its methods; reads return copies. One engine is
// constructed per process.
package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Anandtech09/reception-prime-queue/internal/model"
	"github.com/Anandtech09/reception-prime-queue/internal/policy"
	"github.com/Anandtech09/reception-prime-queue/pkg/errors"
	"github.com/Anandtech09/reception-prime-queue/pkg/metrics"
)

const defaultTokenPadding = 3

type Engine struct {
	mu       sync.Mutex
	doctors  []model.Doctor
	tokens   []model.Token
	halted   []model.Token
	counters map[model.ServiceType]int

	padding  int
	now      func() time.Time
	onChange func(*model.Snapshot)
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

type Option func(*Engine)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithTokenPadding(width int) Option {
	return func(e *Engine) {
		if width > 0 {
			e.padding = width
		}
	}
}

// New constructs an engine over the given roster. The roster is fixed for
// the life of the process; only doctor status changes at runtime.
func New(roster []model.Doctor, opts ...Option) *Engine {
	e := &Engine{
		doctors:  append([]model.Doctor(nil), roster...),
		counters: make(map[model.ServiceType]int),
		padding:  defaultTokenPadding,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, st := range model.ServiceTypes() {
		e.counters[st] = 0
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetOnChange registers the hook invoked with a cloned snapshot after every
// mutation. The hook runs under the engine lock, so snapshots reach it in
// mutation order.
func (e *Engine) SetOnChange(fn func(*model.Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// Replace swaps in a remote snapshot wholesale. Last write wins; there is no
// merge. The change hook is deliberately not invoked, otherwise two stations
// would ping-pong each other's snapshots forever.
func (e *Engine) Replace(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	c := snap.Clone()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doctors = c.Doctors
	e.tokens = c.Tokens
	e.halted = c.HaltedTokens
	e.counters = c.TokenCounters
	if e.counters == nil {
		e.counters = make(map[model.ServiceType]int)
	}
	e.updateGaugesLocked()
}

// Doctors returns the roster in fixed order.
func (e *Engine) Doctors() []model.Doctor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Doctor(nil), e.doctors...)
}

func (e *Engine) Doctor(id string) (*model.Doctor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.findDoctorLocked(id)
	if d == nil {
		return nil, errors.NotFound("doctor", nil)
	}
	cp := *d
	return &cp, nil
}

// Tokens returns the active token collection in creation order. Visited
// tokens are retained here for display history; only halted tokens move to
// the separate pool.
func (e *Engine) Tokens() []model.Token {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Token(nil), e.tokens...)
}

func (e *Engine) HaltedTokens() []model.Token {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Token(nil), e.halted...)
}

// Stats recomputes the waiting aggregate on every call. It is never cached,
// so it cannot drift from the token collection.
func (e *Engine) Stats() model.QueueStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked().Stats()
}

func (e *Engine) Snapshot() *model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// LeastBusyDoctor answers "who should I send the next walk-in to" for the
// receptionist. Candidates are the active doctors of the service type; with
// none available the caller falls back to the shared queue.
func (e *Engine) LeastBusyDoctor(st model.ServiceType) (*model.Doctor, error) {
	if !st.Valid() {
		return nil, errors.BadRequest(fmt.Sprintf("unknown service type %q", st), nil)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var candidates []model.Doctor
	for _, d := range e.doctors {
		if d.ServiceType == st && d.Status == model.DoctorStatusActive {
			candidates = append(candidates, d)
		}
	}
	id, err := policy.LeastBusy(candidates, e.tokens)
	if err != nil {
		return nil, err
	}
	d := e.findDoctorLocked(id)
	cp := *d
	return &cp, nil
}

// GenerateToken issues the next sequential token for the service type.
// Without a specific doctor the token stays unassigned in the shared queue
// until a doctor calls it.
func (e *Engine) GenerateToken(req model.CreateTokenRequest) (*Result, error) {
	if strings.TrimSpace(req.PatientName) == "" || strings.TrimSpace(req.PatientID) == "" {
		return nil, errors.BadRequest("patient name and patient id are required", nil)
	}
	if !req.ServiceType.Valid() {
		return nil, errors.BadRequest(fmt.Sprintf("unknown service type %q", req.ServiceType), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if req.SpecificDoctorID != "" {
		d := e.findDoctorLocked(req.SpecificDoctorID)
		if d == nil {
			return nil, errors.NotFound("doctor", nil)
		}
		if d.ServiceType != req.ServiceType {
			return nil, errors.BadRequest(fmt.Sprintf("doctor %s does not serve %s", d.Name, req.ServiceType), nil)
		}
	}

	e.counters[req.ServiceType]++
	number := fmt.Sprintf("%s-%0*d", req.ServiceType, e.padding, e.counters[req.ServiceType])

	tok := model.Token{
		ID:               uuid.NewString(),
		TokenNumber:      number,
		PatientName:      req.PatientName,
		PatientID:        req.PatientID,
		ServiceType:      req.ServiceType,
		Status:           model.TokenStatusWaiting,
		AssignedDoctorID: req.SpecificDoctorID,
		IsSpecificDoctor: req.SpecificDoctorID != "",
		CreatedAt:        e.now(),
	}
	e.tokens = append(e.tokens, tok)

	if e.metrics != nil {
		e.metrics.TokensIssued.WithLabelValues(string(req.ServiceType)).Inc()
	}
	e.emitLocked()

	return &Result{
		Outcome: OutcomeTokenIssued,
		Message: fmt.Sprintf("%s issued for %s", number, req.PatientName),
		Token:   &tok,
	}, nil
}

// CallNextPatient selects the doctor's next token: a waiting token
// explicitly dedicated to the doctor wins over any shared-queue token,
// regardless of age; within each group the oldest token goes first.
func (e *Engine) CallNextPatient(doctorID string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.findDoctorLocked(doctorID)
	if d == nil {
		return nil, errors.NotFound("doctor", nil)
	}
	if d.Status != model.DoctorStatusActive {
		return &Result{
			Outcome: OutcomeNoPatients,
			Message: fmt.Sprintf("%s is not active", d.Name),
		}, nil
	}
	// Check the token pool, not the CurrentToken mirror: a break clears the
	// mirror while the in-flight token stays calling, and the doctor may be
	// back active before it is completed.
	if calling := e.callingTokenIndexLocked(d.ID); calling >= 0 {
		return nil, errors.InvalidTransition(fmt.Sprintf("%s is already calling %s", d.Name, e.tokens[calling].TokenNumber))
	}

	idx := e.nextTokenIndexLocked(d)
	if idx < 0 {
		return &Result{
			Outcome: OutcomeNoPatients,
			Message: "no patients in queue",
		}, nil
	}

	now := e.now()
	e.tokens[idx].Status = model.TokenStatusCalling
	e.tokens[idx].CalledAt = &now
	e.tokens[idx].AssignedDoctorID = d.ID
	d.CurrentToken = e.tokens[idx].TokenNumber
	tok := e.tokens[idx]
	doc := *d

	if e.metrics != nil {
		e.metrics.TokensCalled.WithLabelValues(string(tok.ServiceType)).Inc()
	}
	e.emitLocked()

	return &Result{
		Outcome: OutcomePatientCalled,
		Message: fmt.Sprintf("%s - %s to cabin %s", tok.TokenNumber, tok.PatientName, doc.CabinNumber),
		Token:   &tok,
		Doctor:  &doc,
	}, nil
}

// nextTokenIndexLocked implements the two-pass selection order: dedicated
// tokens first, then the shared queue for the doctor's service type.
func (e *Engine) nextTokenIndexLocked(d *model.Doctor) int {
	best := -1
	for i, t := range e.tokens {
		if t.Status != model.TokenStatusWaiting || !t.IsSpecificDoctor || t.AssignedDoctorID != d.ID {
			continue
		}
		if best < 0 || t.CreatedAt.Before(e.tokens[best].CreatedAt) {
			best = i
		}
	}
	if best >= 0 {
		return best
	}
	for i, t := range e.tokens {
		if t.Status != model.TokenStatusWaiting || t.AssignedDoctorID != "" || t.ServiceType != d.ServiceType {
			continue
		}
		if best < 0 || t.CreatedAt.Before(e.tokens[best].CreatedAt) {
			best = i
		}
	}
	return best
}

// MarkPatientVisited completes a calling token. The token stays in the
// active collection for display history.
func (e *Engine) MarkPatientVisited(tokenID string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.findTokenLocked(tokenID)
	if idx < 0 {
		return nil, errors.NotFound("token", nil)
	}
	if e.tokens[idx].Status != model.TokenStatusCalling {
		return nil, errors.InvalidTransition(fmt.Sprintf("token %s is %s, not calling", e.tokens[idx].TokenNumber, e.tokens[idx].Status))
	}

	now := e.now()
	e.tokens[idx].Status = model.TokenStatusVisited
	e.tokens[idx].VisitedAt = &now
	e.clearCurrentTokenLocked(e.tokens[idx].AssignedDoctorID)
	tok := e.tokens[idx]

	if e.metrics != nil {
		e.metrics.TokensVisited.WithLabelValues(string(tok.ServiceType)).Inc()
	}
	e.emitLocked()

	return &Result{
		Outcome: OutcomePatientVisited,
		Message: fmt.Sprintf("%s marked as visited", tok.TokenNumber),
		Token:   &tok,
	}, nil
}

// MarkPatientHalted moves a calling token to the halted pool, the no-show
// path. Halting is only legal from calling.
func (e *Engine) MarkPatientHalted(tokenID string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.findTokenLocked(tokenID)
	if idx < 0 {
		return nil, errors.NotFound("token", nil)
	}
	if e.tokens[idx].Status != model.TokenStatusCalling {
		return nil, errors.InvalidTransition(fmt.Sprintf("token %s is %s, not calling", e.tokens[idx].TokenNumber, e.tokens[idx].Status))
	}

	tok := e.tokens[idx]
	tok.Status = model.TokenStatusHalted
	e.tokens = append(e.tokens[:idx], e.tokens[idx+1:]...)
	e.halted = append(e.halted, tok)
	e.clearCurrentTokenLocked(tok.AssignedDoctorID)

	if e.metrics != nil {
		e.metrics.TokensHalted.WithLabelValues(string(tok.ServiceType)).Inc()
	}
	e.emitLocked()

	return &Result{
		Outcome: OutcomePatientHalted,
		Message: fmt.Sprintf("%s moved to halted pool", tok.TokenNumber),
		Token:   &tok,
	}, nil
}

// RequeuePatient returns a halted token to the active pool. With a doctor id
// the token becomes dedicated to that doctor; otherwise it rejoins the
// shared queue. PlacementFront backdates CreatedAt to just before the oldest
// waiting token so ordering puts it first.
func (e *Engine) RequeuePatient(tokenID string, doctorID string, pos model.QueuePlacement) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, t := range e.halted {
		if t.ID == tokenID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.NotFound("token", nil)
	}

	tok := e.halted[idx]
	if doctorID != "" {
		d := e.findDoctorLocked(doctorID)
		if d == nil {
			return nil, errors.NotFound("doctor", nil)
		}
		if d.ServiceType != tok.ServiceType {
			return nil, errors.BadRequest(fmt.Sprintf("doctor %s does not serve %s", d.Name, tok.ServiceType), nil)
		}
		tok.AssignedDoctorID = d.ID
		tok.IsSpecificDoctor = true
	} else {
		tok.AssignedDoctorID = ""
		tok.IsSpecificDoctor = false
	}

	tok.Status = model.TokenStatusWaiting
	if pos == model.PlacementFront {
		tok.CreatedAt = e.frontCreatedAtLocked()
	} else {
		tok.CreatedAt = e.now()
	}

	e.halted = append(e.halted[:idx], e.halted[idx+1:]...)
	e.tokens = append(e.tokens, tok)

	if e.metrics != nil {
		e.metrics.TokensRequeued.Inc()
	}
	e.emitLocked()

	return &Result{
		Outcome: OutcomePatientRequeued,
		Message: fmt.Sprintf("%s added back to queue", tok.TokenNumber),
		Token:   &tok,
	}, nil
}

// frontCreatedAtLocked returns a timestamp strictly earlier than every
// waiting token, or now when the queue is empty.
func (e *Engine) frontCreatedAtLocked() time.Time {
	var earliest time.Time
	for _, t := range e.tokens {
		if t.Status != model.TokenStatusWaiting {
			continue
		}
		if earliest.IsZero() || t.CreatedAt.Before(earliest) {
			earliest = t.CreatedAt
		}
	}
	if earliest.IsZero() {
		return e.now()
	}
	return earliest.Add(-time.Millisecond)
}

// UpdateDoctorStatus changes availability. Leaving active releases the
// doctor's dedicated waiting tokens back to the shared pool; a token the
// doctor is mid-calling is left alone.
func (e *Engine) UpdateDoctorStatus(doctorID string, status model.DoctorStatus, breakMinutes int) (*Result, error) {
	if !status.Valid() {
		return nil, errors.BadRequest(fmt.Sprintf("unknown doctor status %q", status), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.findDoctorLocked(doctorID)
	if d == nil {
		return nil, errors.NotFound("doctor", nil)
	}
	if status == model.DoctorStatusBreak && breakMinutes <= 0 {
		return nil, errors.BadRequest("break duration is required", nil)
	}

	wasActive := d.Status == model.DoctorStatusActive
	d.Status = status
	if status == model.DoctorStatusBreak {
		end := e.now().Add(time.Duration(breakMinutes) * time.Minute)
		d.BreakEndTime = &end
	} else {
		d.BreakEndTime = nil
	}
	if status != model.DoctorStatusActive {
		d.CurrentToken = ""
	} else if calling := e.callingTokenIndexLocked(d.ID); calling >= 0 {
		// Coming back with a call still outstanding restores the mirror.
		d.CurrentToken = e.tokens[calling].TokenNumber
	}

	released := 0
	if wasActive && status != model.DoctorStatusActive {
		for i := range e.tokens {
			t := &e.tokens[i]
			if t.Status == model.TokenStatusWaiting && t.IsSpecificDoctor && t.AssignedDoctorID == d.ID {
				t.AssignedDoctorID = ""
				t.IsSpecificDoctor = false
				released++
			}
		}
	}

	doc := *d
	e.emitLocked()

	msg := fmt.Sprintf("%s is now %s", doc.Name, status)
	if released > 0 {
		msg = fmt.Sprintf("%s, %d waiting tokens returned to the shared queue", msg, released)
	}
	return &Result{
		Outcome: OutcomeStatusUpdated,
		Message: msg,
		Doctor:  &doc,
	}, nil
}

func (e *Engine) findDoctorLocked(id string) *model.Doctor {
	for i := range e.doctors {
		if e.doctors[i].ID == id {
			return &e.doctors[i]
		}
	}
	return nil
}

// callingTokenIndexLocked finds the token a doctor is mid-calling, if any.
func (e *Engine) callingTokenIndexLocked(doctorID string) int {
	for i := range e.tokens {
		if e.tokens[i].Status == model.TokenStatusCalling && e.tokens[i].AssignedDoctorID == doctorID {
			return i
		}
	}
	return -1
}

func (e *Engine) findTokenLocked(id string) int {
	for i := range e.tokens {
		if e.tokens[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) clearCurrentTokenLocked(doctorID string) {
	if doctorID == "" {
		return
	}
	if d := e.findDoctorLocked(doctorID); d != nil {
		d.CurrentToken = ""
	}
}

func (e *Engine) snapshotLocked() *model.Snapshot {
	snap := &model.Snapshot{
		Doctors:       e.doctors,
		Tokens:        e.tokens,
		HaltedTokens:  e.halted,
		TokenCounters: e.counters,
	}
	return snap.Clone()
}

func (e *Engine) emitLocked() {
	e.updateGaugesLocked()
	if e.onChange != nil {
		e.onChange(e.snapshotLocked())
	}
}

func (e *Engine) updateGaugesLocked() {
	if e.metrics == nil {
		return
	}
	waiting := make(map[model.ServiceType]int)
	for _, t := range e.tokens {
		if t.Status == model.TokenStatusWaiting {
			waiting[t.ServiceType]++
		}
	}
	for _, st := range model.ServiceTypes() {
		e.metrics.WaitingTokens.WithLabelValues(string(st)).Set(float64(waiting[st]))
	}
	onBreak := 0
	for _, d := range e.doctors {
		if d.Status == model.DoctorStatusBreak {
			onBreak++
		}
	}
	e.metrics.DoctorsOnBreak.Set(float64(onBreak))
}
