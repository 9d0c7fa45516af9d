package submission

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dxblostfound/lostfound/pkg/backend"
	"github.com/dxblostfound/lostfound/pkg/locator"
	"github.com/dxblostfound/lostfound/pkg/matching"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func testClassifier(t *testing.T) matching.Classifier {
	t.Helper()
	loc, err := locator.New("http://h")
	if err != nil {
		t.Fatal(err)
	}
	policy, err := matching.NewPolicy(matching.DefaultFloor, 0)
	if err != nil {
		t.Fatal(err)
	}
	return matching.NewClassifier(matching.NewAdapter(loc), policy)
}

func testForm() Form {
	return Form{
		Image: &backend.Image{Filename: "bag.png", Data: pngBytes},
		Where: "Metro",
		When:  "Today",
	}
}

func okResponse() *backend.SubmitResponse {
	return &backend.SubmitResponse{
		Item: matching.RawItem{ID: "7", Title: "Lost item at Metro", LocationType: "Metro", TimeFrame: "Today",
			ImageURL: `media\lost\7.png`, CreatedAt: "2025-03-01T10:00:00"},
		Matches: []matching.RawMatch{
			{Item: matching.RawItem{ID: "a", CreatedAt: "2025-03-01T11:00:00"}, Similarity: 0.9},
			{Item: matching.RawItem{ID: "b", CreatedAt: "2025-03-01T11:00:00"}, Similarity: 0.6},
			{Item: matching.RawItem{ID: "c", CreatedAt: "2025-03-01T11:00:00"}, Similarity: 0.3},
		},
	}
}

type step struct {
	res *backend.SubmitResponse
	err error
}

// scriptedSubmitter answers calls from a script and records every report.
type scriptedSubmitter struct {
	mu      sync.Mutex
	steps   []step
	reports []backend.Report
	// when set, each call signals started and waits for release
	started chan struct{}
	release chan struct{}
}

func (s *scriptedSubmitter) Submit(ctx context.Context, r backend.Report) (*backend.SubmitResponse, error) {
	s.mu.Lock()
	s.reports = append(s.reports, r)
	st := s.steps[0]
	if len(s.steps) > 1 {
		s.steps = s.steps[1:]
	}
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
		<-s.release
	}
	return st.res, st.err
}

func newFlow(t *testing.T, kind matching.Kind, sub Submitter) *Flow {
	t.Helper()
	keys := 0
	f, err := NewFlow(kind, sub, testClassifier(t), Options{NewKey: func() string {
		keys++
		return "key-" + string(rune('0'+keys))
	}})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestSubmitSuccess(t *testing.T) {
	sub := &scriptedSubmitter{steps: []step{{res: okResponse()}}}
	f := newFlow(t, matching.KindLost, sub)
	if err := f.SetForm(testForm()); err != nil {
		t.Fatal(err)
	}

	res, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Item.Kind != matching.KindLost || res.Item.ImageURL != "http://h/media/lost/7.png" {
		t.Fatalf("unexpected item %+v", res.Item)
	}
	if len(res.Matches) != 2 || res.Matches[0].ID != "a" || res.Matches[1].ID != "b" {
		t.Fatalf("unexpected matches %+v", res.Matches)
	}
	if res.Matches[0].Status != matching.StatusHigh || res.Matches[1].Status != matching.StatusPossible {
		t.Fatalf("unexpected statuses %+v", res.Matches)
	}
	if res.Matches[0].Item.Kind != matching.KindFound {
		t.Fatalf("candidate kind = %s, want found", res.Matches[0].Item.Kind)
	}

	snap := f.Snapshot()
	if snap.State != StateSucceeded || !snap.Form.IsZero() || snap.Err != "" || snap.Result == nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	r := sub.reports[0]
	if r.Kind != matching.KindLost || r.Title != "Lost item at Metro" || r.IdempotencyKey != "key-1" {
		t.Fatalf("unexpected report %+v", r)
	}
}

func TestSubmitFailureKeepsFormAndRetryReusesReport(t *testing.T) {
	boom := errors.New("failed to submit found item: 500 - Internal Server Error")
	sub := &scriptedSubmitter{steps: []step{{err: boom}, {res: okResponse()}}}
	f := newFlow(t, matching.KindFound, sub)
	form := testForm()
	form.Description = "Black wallet"
	f.SetForm(form)

	if _, err := f.Submit(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected failure, got %v", err)
	}
	snap := f.Snapshot()
	if snap.State != StateFailed || snap.Err != boom.Error() || snap.Form.Description != "Black wallet" || snap.Form.Image == nil {
		t.Fatalf("unexpected snapshot after failure %+v", snap)
	}

	if _, err := f.Retry(context.Background()); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if len(sub.reports) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(sub.reports))
	}
	first, second := sub.reports[0], sub.reports[1]
	if first.IdempotencyKey != second.IdempotencyKey || first.Title != "Black wallet" {
		t.Fatalf("retry changed the report: %+v vs %+v", first, second)
	}
	b1, _, _ := first.Encode()
	b2, _, _ := second.Encode()
	if !bytes.Equal(b1, b2) {
		t.Fatal("retry body differs from the first attempt")
	}
	if snap := f.Snapshot(); snap.State != StateSucceeded || !snap.Form.IsZero() {
		t.Fatalf("unexpected snapshot after retry %+v", snap)
	}

	if _, err := f.Retry(context.Background()); !errors.Is(err, ErrNothingToRetry) {
		t.Fatalf("expected ErrNothingToRetry, got %v", err)
	}
}

func TestRetryIgnoresPhotoEditsAfterSubmit(t *testing.T) {
	sub := &scriptedSubmitter{steps: []step{{err: errors.New("down")}, {res: okResponse()}}}
	f := newFlow(t, matching.KindLost, sub)
	photo := append([]byte(nil), pngBytes...)
	form := testForm()
	form.Image = &backend.Image{Filename: "bag.png", Data: photo}
	f.SetForm(form)
	photo[len(photo)-1] = 'x'

	if _, err := f.Submit(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	snap := f.Snapshot()
	if !bytes.Equal(snap.Form.Image.Data, pngBytes) {
		t.Fatalf("form picked up a caller edit: %q", snap.Form.Image.Data)
	}
	snap.Form.Image.Data[0] = 'x'
	snap.Form.Image.Filename = "other.png"

	if _, err := f.Retry(context.Background()); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	first, second := sub.reports[0], sub.reports[1]
	if !bytes.Equal(second.Image.Data, pngBytes) || second.Image.Filename != "bag.png" {
		t.Fatalf("retry sent an edited photo %q %q", second.Image.Filename, second.Image.Data)
	}
	b1, _, _ := first.Encode()
	b2, _, _ := second.Encode()
	if !bytes.Equal(b1, b2) {
		t.Fatal("retry body differs from the first attempt")
	}
}

func TestResubmitAfterFailureUsesNewKey(t *testing.T) {
	sub := &scriptedSubmitter{steps: []step{{err: errors.New("down")}, {res: okResponse()}}}
	f := newFlow(t, matching.KindLost, sub)
	f.SetForm(testForm())
	f.Submit(context.Background())
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sub.reports[0].IdempotencyKey == sub.reports[1].IdempotencyKey {
		t.Fatal("a fresh submit reused the previous idempotency key")
	}
}

func TestValidation(t *testing.T) {
	gif := testForm()
	gif.Image = &backend.Image{Filename: "a.gif", Data: pngBytes}
	noWhere := testForm()
	noWhere.Where = "  "
	noWhen := testForm()
	noWhen.When = ""

	tests := []struct {
		name string
		form Form
		want error
	}{
		{"empty", Form{}, ErrMissingImage},
		{"no where", noWhere, ErrMissingWhere},
		{"no when", noWhen, ErrMissingWhen},
		{"bad extension", gif, backend.ErrUnsupportedImage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub := &scriptedSubmitter{steps: []step{{res: okResponse()}}}
			f := newFlow(t, matching.KindLost, sub)
			f.SetForm(tc.form)
			if _, err := f.Submit(context.Background()); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if len(sub.reports) != 0 {
				t.Fatal("invalid form was sent")
			}
			if f.Snapshot().State != StateIdle {
				t.Fatal("validation failure changed state")
			}
		})
	}
}

func TestInFlightRejectsSecondCall(t *testing.T) {
	sub := &scriptedSubmitter{
		steps:   []step{{res: okResponse()}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFlow(t, matching.KindLost, sub)
	f.SetForm(testForm())

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	<-sub.started

	if f.Snapshot().State != StateSubmitting {
		t.Fatal("expected submitting state")
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrInFlight) {
		t.Fatalf("second Submit: got %v", err)
	}
	if _, err := f.Retry(context.Background()); !errors.Is(err, ErrInFlight) {
		t.Fatalf("Retry: got %v", err)
	}
	if err := f.SetForm(Form{}); !errors.Is(err, ErrInFlight) {
		t.Fatalf("SetForm: got %v", err)
	}

	close(sub.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if f.Snapshot().State != StateSucceeded {
		t.Fatal("expected succeeded state")
	}
}

func TestCloseDiscardsLateOutcome(t *testing.T) {
	sub := &scriptedSubmitter{
		steps:   []step{{res: okResponse()}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFlow(t, matching.KindFound, sub)
	f.SetForm(testForm())

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	<-sub.started
	f.Close()
	close(sub.release)
	<-done

	snap := f.Snapshot()
	if snap.State != StateIdle || snap.Result != nil {
		t.Fatalf("late outcome leaked into a closed flow: %+v", snap)
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestResetClearsEverything(t *testing.T) {
	sub := &scriptedSubmitter{steps: []step{{err: errors.New("down")}}}
	f := newFlow(t, matching.KindLost, sub)
	f.SetForm(testForm())
	f.Submit(context.Background())
	f.Reset()
	snap := f.Snapshot()
	if snap.State != StateIdle || !snap.Form.IsZero() || snap.Err != "" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if _, err := f.Retry(context.Background()); !errors.Is(err, ErrNothingToRetry) {
		t.Fatalf("expected ErrNothingToRetry, got %v", err)
	}
}

func TestBadAdaptationFails(t *testing.T) {
	res := okResponse()
	res.Item.CreatedAt = "yesterday-ish"
	sub := &scriptedSubmitter{steps: []step{{res: res}}}
	f := newFlow(t, matching.KindLost, sub)
	f.SetForm(testForm())
	if _, err := f.Submit(context.Background()); !errors.Is(err, matching.ErrMalformedTimestamp) {
		t.Fatalf("expected ErrMalformedTimestamp, got %v", err)
	}
	if snap := f.Snapshot(); snap.State != StateFailed || snap.Form.IsZero() {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestNewFlowRejectsBadKind(t *testing.T) {
	if _, err := NewFlow("stolen", &scriptedSubmitter{}, testClassifier(t), Options{}); !errors.Is(err, matching.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

// The retried request must be byte-identical on the wire.
func TestRetryOverHTTPIsByteIdentical(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies [][]byte
		keys   []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, body)
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `{"item": {"id": 4, "title": "Lost item at Metro", "created_at": "2025-03-01T10:00:00"}, "matches": []}`)
	}))
	defer srv.Close()

	client, err := backend.NewClient(backend.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	f, err := NewFlow(matching.KindLost, client, testClassifier(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	f.SetForm(testForm())

	_, err = f.Submit(context.Background())
	if err == nil || !strings.HasPrefix(err.Error(), "failed to submit lost item: 500") {
		t.Fatalf("unexpected first outcome %v", err)
	}
	res, err := f.Retry(context.Background())
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if res.Item.ID != "4" || len(res.Matches) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(bodies) != 2 || !bytes.Equal(bodies[0], bodies[1]) {
		t.Fatal("retried body differs")
	}
	if keys[0] == "" || keys[0] != keys[1] {
		t.Fatalf("idempotency keys %q", keys)
	}
}
