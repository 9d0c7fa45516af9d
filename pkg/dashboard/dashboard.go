package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dxblostfound/lostfound/pkg/matching"
)

var ErrClosed = errors.New("dashboard is closed")

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

// Source fetches the full history. *backend.Client implements it.
type Source interface {
	FetchHistory(ctx context.Context) (*matching.HistoryPayload, error)
}

// State is a point-in-time copy of what the dashboard shows.
type State struct {
	Ledger *matching.ActivityLedger
	// Stale is set when the last load failed and Ledger comes from an
	// earlier one.
	Stale    bool
	Err      string
	Loading  bool
	LoadedAt time.Time
}

// Dashboard holds the ledger of the history view. The ledger is rebuilt in
// full on every load and never updated piecemeal.
type Dashboard struct {
	source     Source
	classifier matching.Classifier
	log        Logger
	now        func() time.Time

	mu       sync.Mutex
	ledger   *matching.ActivityLedger
	stale    bool
	errMsg   string
	loading  bool
	loadedAt time.Time
	gen      uint64
	closed   bool
}

func New(source Source, classifier matching.Classifier, log Logger) *Dashboard {
	if log == nil {
		log = nopLogger{}
	}
	return &Dashboard{source: source, classifier: classifier, log: log, now: time.Now}
}

// Load fetches the history and aggregates it. On success the ledger is
// replaced; on failure the previous ledger is kept and marked stale. When
// loads overlap, only the most recent one is applied.
func (d *Dashboard) Load(ctx context.Context) (*matching.ActivityLedger, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	d.gen++
	gen := d.gen
	d.loading = true
	d.mu.Unlock()

	ledger, err := d.fetch(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || gen != d.gen {
		d.log.Debugf("Discarding superseded history load")
		if d.closed {
			return nil, ErrClosed
		}
		return ledger, err
	}
	d.loading = false
	if err != nil {
		d.errMsg = err.Error()
		d.stale = d.ledger != nil
		d.log.Warnf("Loading history failed: %v", err)
		return nil, err
	}
	d.ledger = ledger
	d.stale = false
	d.errMsg = ""
	d.loadedAt = d.now()
	d.log.Infof("Loaded %d lost and %d found item(s)", len(ledger.LostItems()), len(ledger.FoundItems()))
	return ledger, nil
}

func (d *Dashboard) fetch(ctx context.Context) (*matching.ActivityLedger, error) {
	payload, err := d.source.FetchHistory(ctx)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("history source returned no payload")
	}
	return d.classifier.Aggregate(*payload)
}

// Ledger is the last successfully loaded ledger, or nil.
func (d *Dashboard) Ledger() *matching.ActivityLedger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ledger
}

// Err is the message of the last failed load, or "".
func (d *Dashboard) Err() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errMsg
}

func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		Ledger:   d.ledger,
		Stale:    d.stale,
		Err:      d.errMsg,
		Loading:  d.loading,
		LoadedAt: d.loadedAt,
	}
}

// Close discards the ledger. A load completing afterwards is ignored.
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.gen++
	d.ledger = nil
	d.stale = false
	d.errMsg = ""
	d.loading = false
}
