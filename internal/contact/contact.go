// Package contact holds the contact form state machine: field edits,
// validation, one relay submission per attempt, and the timed return to
// idle afterwards.
package contact

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/OxMxDev/portfolio/internal/relay"
)

// Field names one input of the contact form.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldSubject Field = "subject"
	FieldMessage Field = "message"
)

// ParseField maps a form input name to a Field.
func ParseField(s string) (Field, bool) {
	switch f := Field(s); f {
	case FieldName, FieldEmail, FieldSubject, FieldMessage:
		return f, true
	}
	return "", false
}

// Form is what the visitor has typed so far.
type Form struct {
	Name    string `json:"name" form:"name" validate:"nonblank"`
	Email   string `json:"email" form:"email" validate:"nonblank,email_shape"`
	Subject string `json:"subject" form:"subject"`
	Message string `json:"message" form:"message" validate:"nonblank"`
}

func (f *Form) set(field Field, value string) {
	switch field {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldSubject:
		f.Subject = value
	case FieldMessage:
		f.Message = value
	}
}

// Status is where the current submission attempt stands.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSending Status = "sending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

var (
	ErrInProgress = errors.New("contact: submission already in progress")
	ErrClosed     = errors.New("contact: workflow closed")
)

// Sender delivers a submission to the relay.
type Sender interface {
	Send(ctx context.Context, s relay.Submission) error
}

// Options tunes the automatic return to idle.
type Options struct {
	SuccessDelay time.Duration
	ErrorDelay   time.Duration
	Logger       *slog.Logger
}

// DefaultOptions returns the reference delays: 5s after success, 4s after
// an error.
func DefaultOptions() Options {
	return Options{
		SuccessDelay: 5 * time.Second,
		ErrorDelay:   4 * time.Second,
	}
}

// State is a snapshot of the workflow for rendering.
type State struct {
	Form   Form   `json:"form"`
	Errors Errors `json:"errors,omitempty"`
	Status Status `json:"status"`
}

// Workflow owns the form, its validation errors and the submission status.
type Workflow struct {
	sender Sender
	opts   Options
	log    *slog.Logger

	mu        sync.Mutex
	form      Form
	errs      Errors
	status    Status
	reset     *time.Timer
	resetGen  uint64
	listeners map[int]func(State)
	nextID    int
	closed    bool
}

// New returns an idle workflow sending through s.
func New(s Sender, opts Options) *Workflow {
	def := DefaultOptions()
	if opts.SuccessDelay <= 0 {
		opts.SuccessDelay = def.SuccessDelay
	}
	if opts.ErrorDelay <= 0 {
		opts.ErrorDelay = def.ErrorDelay
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Workflow{
		sender:    s,
		opts:      opts,
		log:       log,
		errs:      Errors{},
		status:    StatusIdle,
		listeners: make(map[int]func(State)),
	}
}

// Snapshot returns the current state.
func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Status returns the current submission status.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Subscribe registers fn for every state change.
func (w *Workflow) Subscribe(fn func(State)) (cancel func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.listeners, id)
			w.mu.Unlock()
		})
	}
}

// UpdateField stores value and clears any error on that field only.
func (w *Workflow) UpdateField(field Field, value string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.form.set(field, value)
	delete(w.errs, field)
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.notify(snap)
}

// SetForm replaces every field at once, as a full form post does.
func (w *Workflow) SetForm(f Form) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	prev := w.form
	w.form = f
	for _, field := range []Field{FieldName, FieldEmail, FieldSubject, FieldMessage} {
		if prev.get(field) != f.get(field) {
			delete(w.errs, field)
		}
	}
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.notify(snap)
}

func (f Form) get(field Field) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldSubject:
		return f.Subject
	case FieldMessage:
		return f.Message
	}
	return ""
}

// Submit validates the form and, when valid, sends it once. Invalid forms
// return the Errors without touching the status or the network. A call made
// while a send is in flight returns ErrInProgress and does nothing.
func (w *Workflow) Submit(ctx context.Context) (Status, error) {
	w.mu.Lock()
	if w.closed {
		st := w.status
		w.mu.Unlock()
		return st, ErrClosed
	}
	if w.status == StatusSending {
		w.mu.Unlock()
		return StatusSending, ErrInProgress
	}
	form := w.form
	if errs := Validate(form); len(errs) > 0 {
		w.errs = errs
		st := w.status
		snap := w.snapshotLocked()
		w.mu.Unlock()
		w.notify(snap)
		return st, errs.clone()
	}
	w.cancelResetLocked()
	w.status = StatusSending
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.notify(snap)

	sendErr := w.sender.Send(ctx, relay.Submission{
		Name:    form.Name,
		Email:   form.Email,
		Subject: form.Subject,
		Message: form.Message,
	})

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return StatusSending, ErrClosed
	}
	if sendErr != nil {
		w.status = StatusError
		w.scheduleResetLocked(w.opts.ErrorDelay)
	} else {
		w.status = StatusSuccess
		w.form = Form{}
		w.scheduleResetLocked(w.opts.SuccessDelay)
	}
	st := w.status
	snap = w.snapshotLocked()
	w.mu.Unlock()

	if sendErr != nil {
		w.log.Warn("contact submission failed", "error", sendErr)
	}
	w.notify(snap)
	return st, sendErr
}

// Close cancels any pending reset and stops all further state changes.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.cancelResetLocked()
	w.listeners = make(map[int]func(State))
}

func (w *Workflow) cancelResetLocked() {
	w.resetGen++
	if w.reset != nil {
		w.reset.Stop()
		w.reset = nil
	}
}

func (w *Workflow) scheduleResetLocked(delay time.Duration) {
	w.cancelResetLocked()
	gen := w.resetGen
	w.reset = time.AfterFunc(delay, func() {
		w.mu.Lock()
		if w.closed || w.resetGen != gen {
			w.mu.Unlock()
			return
		}
		w.reset = nil
		w.status = StatusIdle
		snap := w.snapshotLocked()
		w.mu.Unlock()
		w.notify(snap)
	})
}

func (w *Workflow) snapshotLocked() State {
	return State{Form: w.form, Errors: w.errs.clone(), Status: w.status}
}

func (w *Workflow) notify(s State) {
	w.mu.Lock()
	fns := make([]func(State), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
