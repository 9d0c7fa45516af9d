package submission

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dxblostfound/lostfound/pkg/backend"
	"github.com/dxblostfound/lostfound/pkg/matching"
)

// Logger abstracts logging so callers can pass logrus or anything else with
// the same methods.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Submitter sends a prepared report. *backend.Client implements it.
type Submitter interface {
	Submit(ctx context.Context, r backend.Report) (*backend.SubmitResponse, error)
}

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is the created item and its classified candidates.
type Result struct {
	Item    matching.ItemRecord        `json:"item"`
	Matches []matching.ClassifiedMatch `json:"matches"`
}

func (r *Result) clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{Item: r.Item, Matches: make([]matching.ClassifiedMatch, len(r.Matches))}
	copy(out.Matches, r.Matches)
	return out
}

// Snapshot is a point-in-time copy of a flow's state.
type Snapshot struct {
	State  State
	Form   Form
	Result *Result
	// Err is the message of the last failure, set only in StateFailed.
	Err string
}

type Options struct {
	Log Logger // optional; nil = no logging
	// NewKey generates idempotency keys. Defaults to random UUIDs.
	NewKey func() string
}

// Flow is one submission view: it sends a single report and holds the
// classified candidates of the created item. It never touches a ledger.
type Flow struct {
	kind       matching.Kind
	submitter  Submitter
	classifier matching.Classifier
	log        Logger
	newKey     func() string

	mu      sync.Mutex
	state   State
	form    Form
	pending *backend.Report
	result  *Result
	errMsg  string
	// gen invalidates the outcome of calls started before a Reset or Close.
	gen    uint64
	closed bool
}

func NewFlow(kind matching.Kind, submitter Submitter, classifier matching.Classifier, opts Options) (*Flow, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", matching.ErrInvalidKind, kind)
	}
	if submitter == nil {
		return nil, fmt.Errorf("submission flow needs a submitter")
	}
	f := &Flow{
		kind:       kind,
		submitter:  submitter,
		classifier: classifier,
		log:        opts.Log,
		newKey:     opts.NewKey,
	}
	if f.log == nil {
		f.log = nopLogger{}
	}
	if f.newKey == nil {
		f.newKey = uuid.NewString
	}
	return f, nil
}

func (f *Flow) Kind() matching.Kind {
	return f.kind
}

// SetForm replaces the form with a copy of form. Editing after a success or a failure starts a
// new attempt: the previous outcome and any prepared report are dropped.
func (f *Flow) SetForm(form Form) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.state == StateSubmitting {
		return ErrInFlight
	}
	f.form = form.clone()
	f.state = StateIdle
	f.pending = nil
	f.result = nil
	f.errMsg = ""
	return nil
}

// Submit validates the form and sends a fresh report with a new
// idempotency key.
func (f *Flow) Submit(ctx context.Context) (*Result, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrInFlight
	}
	if err := f.form.Validate(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	report := f.form.Report(f.kind, f.newKey())
	f.pending = &report
	gen := f.begin()
	f.mu.Unlock()

	return f.run(ctx, gen, report)
}

// Retry resends the report of the last failed attempt unchanged.
func (f *Flow) Retry(ctx context.Context) (*Result, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrInFlight
	}
	if f.state != StateFailed || f.pending == nil {
		f.mu.Unlock()
		return nil, ErrNothingToRetry
	}
	report := *f.pending
	gen := f.begin()
	f.mu.Unlock()

	f.log.Debugf("Retrying %s report %s", f.kind, report.IdempotencyKey)
	return f.run(ctx, gen, report)
}

// Reset returns the flow to an empty idle state. A call still in flight is
// ignored when it completes.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.state = StateIdle
	f.form = Form{}
	f.pending = nil
	f.result = nil
	f.errMsg = ""
}

// Close tears the flow down. Later calls fail with ErrClosed and the outcome
// of a call still in flight is discarded.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.closed = true
	f.state = StateIdle
	f.form = Form{}
	f.pending = nil
	f.result = nil
	f.errMsg = ""
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		State:  f.state,
		Form:   f.form.clone(),
		Result: f.result.clone(),
		Err:    f.errMsg,
	}
}

// begin must be called with mu held.
func (f *Flow) begin() uint64 {
	f.gen++
	f.state = StateSubmitting
	f.result = nil
	f.errMsg = ""
	return f.gen
}

func (f *Flow) run(ctx context.Context, gen uint64, report backend.Report) (*Result, error) {
	res, err := f.submitter.Submit(ctx, report)
	var result *Result
	if err == nil {
		result, err = f.classify(res)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || gen != f.gen {
		f.log.Debugf("Discarding outcome of %s report %s", f.kind, report.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		return result.clone(), nil
	}

	if err != nil {
		f.state = StateFailed
		f.errMsg = err.Error()
		f.log.Warnf("Submitting %s report failed: %v", f.kind, err)
		return nil, err
	}

	f.state = StateSucceeded
	f.result = result
	f.form = Form{}
	f.pending = nil
	f.log.Infof("Submitted %s item %s with %d candidate(s)", f.kind, result.Item.ID, len(result.Matches))
	return result.clone(), nil
}

func (f *Flow) classify(res *backend.SubmitResponse) (*Result, error) {
	item, err := f.classifier.Adapter.ToItemRecord(res.Item, f.kind)
	if err != nil {
		return nil, err
	}
	matches, err := f.classifier.ClassifyAll(res.Matches, f.kind)
	if err != nil {
		return nil, err
	}
	return &Result{Item: item, Matches: matches}, nil
}
