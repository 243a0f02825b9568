package scan

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"intake-app/notify"
)

// State of a scan session. A scope is created Empty, moves to Accumulating
// on the first accepted mutation, and enters Submitting only on a
// user-initiated submit: success clears it back to Empty, failure reverts
// to Accumulating with all state preserved.
type State int

const (
	StateEmpty State = iota
	StateAccumulating
	StateSubmitting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateSubmitting:
		return "submitting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config selects the scope behavior for a session.
type Config struct {
	// Policy applies to flat scopes only.
	Policy MergePolicy
	// CodeWidth > 0 enforces fixed-width codes and chunking.
	CodeWidth int
	// Partitioned selects box-based presence-only accumulation.
	Partitioned bool
	// RequireCheck routes every candidate through the remote existence
	// check before acceptance.
	RequireCheck bool
}

// Event is pushed to the session observer after every state change so the
// UI can stay a pure renderer of engine state.
type Event struct {
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	Totals    Totals `json:"totals"`
}

// Observer receives session events. Fire-and-forget, must not call back
// into the session.
type Observer interface {
	SessionEvent(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

func (f ObserverFunc) SessionEvent(ev Event) { f(ev) }

// Rejection reports a candidate that did not make it into the ledger.
type Rejection struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// ScanResult is what one raw input produced after the full accept pipeline
// (normalize, optional remote check, ledger mutation, totals recompute).
type ScanResult struct {
	Accepted []string    `json:"accepted"`
	Rejected []Rejection `json:"rejected"`
	Pending  string      `json:"pending,omitempty"`
	Totals   Totals      `json:"totals"`
}

// SessionView is a rendering snapshot: lines or boxes plus derived totals,
// consistent at a single point in time.
type SessionView struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Header    Header    `json:"header"`
	Lines     []Line    `json:"lines,omitempty"`
	Boxes     []Box     `json:"boxes,omitempty"`
	Totals    Totals    `json:"totals"`
	CreatedAt time.Time `json:"created_at"`
}

// Session owns one scan scope: its ledger, header, per-field in-flight
// guards and the submit guard. All mutations go through the session so the
// ledger and its totals are never observably out of step.
type Session struct {
	mu  sync.Mutex
	id  int64
	cfg Config

	state  State
	header Header
	ledger *Ledger
	parts  *PartitionedLedger

	// pending holds the trailing partial chunk per input field while the
	// scanner is mid-code.
	pending map[string]string
	// busy marks fields with an outstanding validation round-trip. A busy
	// field refuses further scans until its round-trip resolves.
	busy       map[string]bool
	submitting bool

	checker  CodeChecker
	notifier notify.Notifier
	observer Observer

	// ctx is cancelled on Close so an in-flight validation can never
	// mutate a ledger the user has already walked away from.
	ctx    context.Context
	cancel context.CancelFunc

	createdAt time.Time
}

// NewSession creates an empty scope. checker may be nil when the config
// does not require remote corroboration; notifier and observer may be nil.
func NewSession(id int64, cfg Config, header Header, checker CodeChecker, notifier notify.Notifier, observer Observer) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        id,
		cfg:       cfg,
		state:     StateEmpty,
		header:    header,
		pending:   make(map[string]string),
		busy:      make(map[string]bool),
		checker:   checker,
		notifier:  notifier,
		observer:  observer,
		ctx:       ctx,
		cancel:    cancel,
		createdAt: time.Now(),
	}
	if cfg.Partitioned {
		s.parts = NewPartitionedLedger(header.CapacityPcs)
	} else {
		s.ledger = NewLedger(cfg.Policy)
	}
	return s
}

func (s *Session) ID() int64 { return s.id }

func (s *Session) IDString() string { return strconv.FormatInt(s.id, 10) }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// flat-scope input shares a single logical entry field.
const flatField = "code"

// ScanCode runs one flat-scope scan through the accept pipeline. quantity
// is the confirmed dialog value (pieces for stock intake are usually 1).
func (s *Session) ScanCode(ctx context.Context, raw string, quantity int) (ScanResult, error) {
	if s.cfg.Partitioned {
		return ScanResult{}, fmt.Errorf("flat scan on partitioned scope")
	}
	return s.scan(ctx, flatField, raw, func(code string) error {
		return s.ledger.Upsert(code, quantity)
	})
}

// ScanInto runs one partitioned-scope scan into the given box.
func (s *Session) ScanInto(ctx context.Context, boxOrdinal int, raw string) (ScanResult, error) {
	if !s.cfg.Partitioned {
		return ScanResult{}, fmt.Errorf("box scan on flat scope")
	}
	field := "box-" + strconv.Itoa(boxOrdinal)
	return s.scan(ctx, field, raw, func(code string) error {
		return s.parts.AppendRaw(boxOrdinal, code)
	})
}

// scan is the shared pipeline: normalize the raw input (carrying over any
// pending partial chunk for this field), optionally corroborate each
// candidate remotely, then mutate the ledger and recompute totals. The
// field is held busy for the duration so a second scan cannot race an
// outstanding validation on the same field; independent fields proceed
// concurrently.
func (s *Session) scan(ctx context.Context, field, raw string, accept func(code string) error) (ScanResult, error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ScanResult{}, ErrSessionClosed
	}
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return ScanResult{}, ErrSubmitPending
	}
	if s.busy[field] {
		s.mu.Unlock()
		return ScanResult{}, ErrFieldBusy
	}

	ready, pending := Normalize(s.pending[field]+raw, s.cfg.CodeWidth)
	s.pending[field] = pending

	if len(ready) == 0 {
		res := ScanResult{Pending: pending, Totals: s.totalsLocked()}
		s.mu.Unlock()
		return res, nil
	}

	s.busy[field] = true
	s.mu.Unlock()

	var result ScanResult
	result.Pending = pending

	for _, code := range ready {
		outcome, message := s.corroborate(ctx, code)
		if outcome != OutcomeAccepted {
			result.Rejected = append(result.Rejected, Rejection{Code: code, Reason: message})
			s.notify(notify.Notice{Title: "Scan rejected", Description: code + ": " + message, Severity: notify.SeverityError})
			s.emit("scan_rejected", code)
			continue
		}

		s.mu.Lock()
		if s.state == StateClosed {
			// Stale validation: the user already left, drop the result.
			s.mu.Unlock()
			break
		}
		if s.state == StateSubmitting {
			// The payload in flight was assembled without this code, and
			// the post-submit reset would swallow it. Reject it so the
			// client rescans once the submit resolves.
			s.mu.Unlock()
			result.Rejected = append(result.Rejected, Rejection{Code: code, Reason: ErrSubmitPending.Error()})
			s.notify(rejectionNotice(code, ErrSubmitPending))
			s.emit("scan_rejected", code)
			continue
		}
		err := accept(code)
		if err == nil {
			s.syncStateLocked()
		}
		s.mu.Unlock()

		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Code: code, Reason: err.Error()})
			s.notify(rejectionNotice(code, err))
			s.emit("scan_rejected", code)
			continue
		}
		result.Accepted = append(result.Accepted, code)
		s.emit("scan_accepted", code)
	}

	s.mu.Lock()
	delete(s.busy, field)
	result.Totals = s.totalsLocked()
	s.mu.Unlock()
	return result, nil
}

// corroborate applies the fixed-length precondition client-side, then the
// remote existence check when the scope requires one. A transport failure
// maps to a retryable rejection with the ledger untouched.
func (s *Session) corroborate(ctx context.Context, code string) (Outcome, string) {
	if s.cfg.CodeWidth > 0 && len(code) != s.cfg.CodeWidth {
		return OutcomeMalformed, fmt.Sprintf("code must be %d characters", s.cfg.CodeWidth)
	}
	if !s.cfg.RequireCheck || s.checker == nil {
		return OutcomeAccepted, ""
	}

	// Tie the round-trip to both the request and the session so closing
	// either aborts it.
	checkCtx, cancel := mergeContexts(ctx, s.ctx)
	defer cancel()

	outcome, message, err := s.checker.CheckCode(checkCtx, s.header.WorkOrderNo, code)
	if err != nil {
		return OutcomeTransportError, "validation failed: " + err.Error()
	}
	if outcome == OutcomeAccepted {
		return OutcomeAccepted, message
	}
	if message == "" {
		message = outcome.String()
	}
	return outcome, message
}

// SetHeader replaces the session header. The capacity ceiling of a
// partitioned scope is fixed at creation and is not changed here.
func (s *Session) SetHeader(h Header) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.state == StateSubmitting {
		return ErrSubmitPending
	}
	if s.cfg.Partitioned {
		h.CapacityPcs = s.header.CapacityPcs
		h.CapacityBoxes = s.header.CapacityBoxes
	}
	s.header = h
	return nil
}

// AddLine appends a blank manual-entry line (flat scope).
func (s *Session) AddLine() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return 0, err
	}
	if s.cfg.Partitioned {
		return 0, fmt.Errorf("manual lines not supported on partitioned scope")
	}
	ordinal := s.ledger.AddBlank()
	s.syncStateLocked()
	return ordinal, nil
}

// EditLine applies a manual edit (typed code and/or quantity) to an
// existing line.
func (s *Session) EditLine(ordinal int, identity string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	// Validate before touching anything: a bad quantity must not leave a
	// half-applied rename behind.
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	ready, _ := Normalize(identity, 0)
	normalized := ""
	if len(ready) > 0 {
		normalized = ready[0]
	}
	if err := s.ledger.SetIdentity(ordinal, normalized); err != nil {
		return err
	}
	if err := s.ledger.SetQuantity(ordinal, quantity); err != nil {
		return err
	}
	s.syncStateLocked()
	return nil
}

// RemoveLine deletes a flat-scope line by identity.
func (s *Session) RemoveLine(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if err := s.ledger.Remove(identity); err != nil {
		return err
	}
	s.syncStateLocked()
	s.emitLocked("line_removed", identity)
	return nil
}

// RemoveLineOrdinal deletes a flat-scope line by ordinal.
func (s *Session) RemoveLineOrdinal(ordinal int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if err := s.ledger.RemoveOrdinal(ordinal); err != nil {
		return err
	}
	s.syncStateLocked()
	return nil
}

// AddBox opens a new box (partitioned scope). The declared box count is a
// soft expectation, only the piece capacity is enforced.
func (s *Session) AddBox(name string) (Box, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return Box{}, err
	}
	if !s.cfg.Partitioned {
		return Box{}, fmt.Errorf("boxes not supported on flat scope")
	}
	if name == "" {
		name = fmt.Sprintf("BOX-%03d", len(s.parts.Boxes())+1)
	}
	box := s.parts.AddBox(name)
	return *box, nil
}

// RemoveCodeAt deletes one raw code from a box.
func (s *Session) RemoveCodeAt(boxOrdinal, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if !s.cfg.Partitioned {
		return fmt.Errorf("boxes not supported on flat scope")
	}
	if err := s.parts.RemoveAt(boxOrdinal, index); err != nil {
		return err
	}
	s.syncStateLocked()
	s.emitLocked("code_removed", "")
	return nil
}

// RemoveBox deletes an entire box.
func (s *Session) RemoveBox(boxOrdinal int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if !s.cfg.Partitioned {
		return fmt.Errorf("boxes not supported on flat scope")
	}
	if err := s.parts.RemoveBox(boxOrdinal); err != nil {
		return err
	}
	s.syncStateLocked()
	return nil
}

// LedgerLine returns the current flat-scope line for an identity, used to
// pre-fill the quantity dialog on a rescan.
func (s *Session) LedgerLine(identity string) (Line, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Partitioned {
		return Line{}, false
	}
	return s.ledger.Get(identity)
}

// ClearPending drops the partial chunk held for a field (the input lost
// focus before the code completed).
func (s *Session) ClearPending(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, field)
}

// Totals recomputes the derived counters from current ledger state.
func (s *Session) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalsLocked()
}

// View returns a consistent rendering snapshot.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := SessionView{
		ID:        strconv.FormatInt(s.id, 10),
		State:     s.state.String(),
		Header:    s.header,
		Totals:    s.totalsLocked(),
		CreatedAt: s.createdAt,
	}
	if s.cfg.Partitioned {
		view.Boxes = s.parts.Boxes()
	} else {
		view.Lines = s.ledger.Lines()
	}
	return view
}

// Submit assembles the scope and issues the single all-or-nothing call.
// While a submit is in flight further submits are no-ops (ErrSubmitPending)
// and the scope refuses mutation. Success clears the scope back to Empty;
// any failure reverts to Accumulating with ledger and header untouched so
// the user can retry manually.
func (s *Session) Submit(ctx context.Context, submitter Submitter) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmitPending
	}

	var payload Payload
	var err error
	if s.cfg.Partitioned {
		payload, err = assemblePartitioned(s.id, s.header, s.parts)
	} else {
		payload, err = assembleFlat(s.id, s.header, s.ledger)
	}
	if err != nil {
		s.mu.Unlock()
		s.notify(rejectionNotice("submit", err))
		return err
	}

	s.submitting = true
	s.state = StateSubmitting
	s.mu.Unlock()

	submitErr := submitter.Submit(ctx, payload)

	s.mu.Lock()
	s.submitting = false
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if submitErr != nil {
		s.state = StateAccumulating
		s.mu.Unlock()
		s.notify(notify.Notice{Kind: notify.KindSubmission, Title: "Submission failed", Description: submitErr.Error(), Severity: notify.SeverityError})
		s.emit("submit_failed", "")
		return submitErr
	}

	s.resetLocked()
	s.mu.Unlock()
	s.notify(notify.Notice{Kind: notify.KindSubmission, Title: "Submission complete", Description: "Session " + s.IDString() + " submitted", Severity: notify.SeveritySuccess})
	s.emit("submitted", "")
	return nil
}

// Close tears the session down and aborts any in-flight validation.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) mutableLocked() error {
	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateSubmitting:
		return ErrSubmitPending
	}
	return nil
}

func (s *Session) totalsLocked() Totals {
	if s.cfg.Partitioned {
		return s.parts.Totals()
	}
	return s.ledger.Totals()
}

func (s *Session) syncStateLocked() {
	if s.state == StateClosed || s.state == StateSubmitting {
		return
	}
	empty := false
	if s.cfg.Partitioned {
		empty = s.parts.TotalCodes() == 0
	} else {
		empty = s.ledger.Len() == 0
	}
	if empty {
		s.state = StateEmpty
	} else {
		s.state = StateAccumulating
	}
}

// resetLocked clears the scope to a fresh Empty state after a successful
// submission.
func (s *Session) resetLocked() {
	if s.cfg.Partitioned {
		s.parts = NewPartitionedLedger(s.header.CapacityPcs)
	} else {
		s.ledger = NewLedger(s.cfg.Policy)
	}
	s.pending = make(map[string]string)
	s.state = StateEmpty
}

func (s *Session) notify(n notify.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(n)
	}
}

func (s *Session) emit(eventType, code string) {
	if s.observer == nil {
		return
	}
	s.mu.Lock()
	ev := Event{SessionID: strconv.FormatInt(s.id, 10), Type: eventType, Code: code, Totals: s.totalsLocked()}
	s.mu.Unlock()
	s.observer.SessionEvent(ev)
}

func (s *Session) emitLocked(eventType, code string) {
	if s.observer == nil {
		return
	}
	ev := Event{SessionID: strconv.FormatInt(s.id, 10), Type: eventType, Code: code, Totals: s.totalsLocked()}
	s.observer.SessionEvent(ev)
}

func rejectionNotice(subject string, err error) notify.Notice {
	severity := notify.SeverityError
	if err == ErrCapacityExceeded {
		severity = notify.SeverityWarning
	}
	return notify.Notice{Title: "Scan session", Description: subject + ": " + err.Error(), Severity: severity}
}

// mergeContexts derives a context cancelled when either parent is done.
func mergeContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
