package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wholetthecowsout/cowwatch/internal/db"
	"github.com/wholetthecowsout/cowwatch/internal/geo"
	"github.com/wholetthecowsout/cowwatch/internal/models"
	"github.com/wholetthecowsout/cowwatch/internal/observability"
	"github.com/wholetthecowsout/cowwatch/internal/vision"
)

// fakeStore is an in-memory ReportStore shared by the guard tests.
type fakeStore struct {
	fingerprintCount int
	ipCount          int
	countErr         error
	active           map[string]*models.Report
	insertErr        error
	inserted         []*models.Report
	findErr          error
}

func (f *fakeStore) CountReportsByFingerprint(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	return f.fingerprintCount, f.countErr
}

func (f *fakeStore) CountReportsByIP(ctx context.Context, ip string, since time.Time) (int, error) {
	return f.ipCount, f.countErr
}

func (f *fakeStore) FindActiveReportByLocation(ctx context.Context, location string) (*models.Report, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.active[location], nil
}

func (f *fakeStore) InsertReport(ctx context.Context, r *models.Report) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	r.ID = "test-report-id"
	r.CreatedAt = time.Now()
	f.inserted = append(f.inserted, r)
	return nil
}

// fakeClassifier returns a canned verdict.
type fakeClassifier struct {
	result vision.Result
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, imageBase64 string) (vision.Result, error) {
	f.calls++
	return f.result, f.err
}

func cowClassifier() *fakeClassifier {
	return &fakeClassifier{result: vision.Result{IsCow: true, Confidence: 0.92, MatchedLabel: "Cattle"}}
}

func newTestPipeline(store *fakeStore, classifier vision.Classifier) *Pipeline {
	logger := zap.NewNop()
	metrics := observability.NewNoOpRegistry()
	limiter := NewRateLimiter(store, nil, RateLimitConfig{}, logger, metrics)
	return NewPipeline(store, limiter, geo.DefaultRegistry(), classifier, nil, logger, metrics, 1.0)
}

func validSubmission() Submission {
	return Submission{
		Description: "Brown cow near the playground",
		Location:    "town-center",
		Photo:       "data:image/jpeg;base64,dGVzdA==",
		Fingerprint: "fp-abc",
		IPAddress:   "203.0.113.7",
	}
}

func TestSubmitSuccess(t *testing.T) {
	store := &fakeStore{}
	classifier := cowClassifier()
	p := newTestPipeline(store, classifier)

	report, err := p.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if report.ID == "" {
		t.Error("Expected report to get an id")
	}
	if report.Status != models.StatusReported {
		t.Errorf("Expected status reported, got %s", report.Status)
	}
	if report.ResolvedAt != nil {
		t.Error("Expected nil resolved_at on a new report")
	}
	if report.Location != "Lake Nona Town Center" {
		t.Errorf("Expected canonical location name, got %q", report.Location)
	}
	if report.PhotoBase64 != "dGVzdA==" {
		t.Errorf("Expected stripped photo payload, got %q", report.PhotoBase64)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("Expected one insert, got %d", len(store.inserted))
	}
}

func TestSubmitFreeTextLocation(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(store, cowClassifier())

	sub := validSubmission()
	sub.Location = "behind the community garden"
	lat, lng := 40.0, -70.0 // nowhere near any zone; free text skips the geofence
	sub.ReporterLat, sub.ReporterLng = &lat, &lng

	report, err := p.Submit(context.Background(), sub)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if report.Location != "behind the community garden" {
		t.Errorf("Expected free text stored verbatim, got %q", report.Location)
	}
}

func TestSubmitMissingFields(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Submission)
		want   string
	}{
		{"missing location", func(s *Submission) { s.Location = "" }, "Location is required."},
		{"missing photo", func(s *Submission) { s.Photo = "" }, "A photo is required."},
		{"missing fingerprint", func(s *Submission) { s.Fingerprint = "" }, "Device identification failed. Please reload and try again."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			classifier := cowClassifier()
			p := newTestPipeline(store, classifier)

			sub := validSubmission()
			tc.mutate(&sub)

			_, err := p.Submit(context.Background(), sub)
			rej, ok := AsRejection(err)
			if !ok {
				t.Fatalf("Expected a rejection, got %v", err)
			}
			if rej.Code != CodeInvalidInput {
				t.Errorf("Expected invalid_input, got %s", rej.Code)
			}
			if rej.Message != tc.want {
				t.Errorf("Message = %q, want %q", rej.Message, tc.want)
			}
			if classifier.calls != 0 {
				t.Error("Classifier should not run for invalid input")
			}
			if len(store.inserted) != 0 {
				t.Error("Nothing should be inserted for invalid input")
			}
		})
	}
}

func TestSubmitRateLimited(t *testing.T) {
	store := &fakeStore{fingerprintCount: 1}
	classifier := cowClassifier()
	p := newTestPipeline(store, classifier)

	_, err := p.Submit(context.Background(), validSubmission())
	rej, ok := AsRejection(err)
	if !ok || rej.Code != CodeRateLimited {
		t.Fatalf("Expected rate_limited rejection, got %v", err)
	}
	if classifier.calls != 0 {
		t.Error("Classifier should not run for a rate-limited submission")
	}
}

func TestSubmitOutOfRange(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(store, cowClassifier())

	sub := validSubmission()
	// Downtown Orlando, roughly 14 miles from Lake Nona Town Center.
	lat, lng := 28.5384, -81.3789
	sub.ReporterLat, sub.ReporterLng = &lat, &lng

	_, err := p.Submit(context.Background(), sub)
	rej, ok := AsRejection(err)
	if !ok || rej.Code != CodeOutOfRange {
		t.Fatalf("Expected out_of_range rejection, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Error("Nothing should be inserted for an out-of-range submission")
	}
}

func TestSubmitNearbyReporterPasses(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(store, cowClassifier())

	sub := validSubmission()
	lat, lng := 28.3895, -81.2670 // a block from Town Center
	sub.ReporterLat, sub.ReporterLng = &lat, &lng

	if _, err := p.Submit(context.Background(), sub); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
}

func TestSubmitContentRejected(t *testing.T) {
	store := &fakeStore{}
	classifier := &fakeClassifier{result: vision.Result{IsCow: false}}
	p := newTestPipeline(store, classifier)

	_, err := p.Submit(context.Background(), validSubmission())
	rej, ok := AsRejection(err)
	if !ok || rej.Code != CodeContentRejected {
		t.Fatalf("Expected content_rejected rejection, got %v", err)
	}
}

func TestSubmitClassifierFailure(t *testing.T) {
	store := &fakeStore{}
	classifier := &fakeClassifier{err: errors.New("vision api returned 500")}
	p := newTestPipeline(store, classifier)

	_, err := p.Submit(context.Background(), validSubmission())
	rej, ok := AsRejection(err)
	if !ok || rej.Code != CodeUpstreamFailure {
		t.Fatalf("Expected upstream_failure rejection, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Error("Nothing should be inserted when the classifier is down")
	}
}

func TestSubmitDuplicateActive(t *testing.T) {
	store := &fakeStore{
		active: map[string]*models.Report{
			"Lake Nona Town Center": {ID: "existing", Status: models.StatusReported},
		},
	}
	p := newTestPipeline(store, cowClassifier())

	_, err := p.Submit(context.Background(), validSubmission())
	rej, ok := AsRejection(err)
	if !ok || rej.Code != CodeConflict {
		t.Fatalf("Expected conflict rejection, got %v", err)
	}
	if rej.Message != "This location already has an active report. Rangers have been notified." {
		t.Errorf("Unexpected conflict message %q", rej.Message)
	}
}

func TestSubmitInsertRace(t *testing.T) {
	// The advisory lookup missed, but the unique index caught a concurrent
	// insert. The reporter sees the same conflict either way.
	store := &fakeStore{insertErr: db.ErrDuplicateActive}
	p := newTestPipeline(store, cowClassifier())

	_, err := p.Submit(context.Background(), validSubmission())
	rej, ok := AsRejection(err)
	if !ok || rej.Code != CodeConflict {
		t.Fatalf("Expected conflict rejection, got %v", err)
	}
}

func TestSubmitInsertFailure(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("connection refused")}
	p := newTestPipeline(store, cowClassifier())

	_, err := p.Submit(context.Background(), validSubmission())
	rej, ok := AsRejection(err)
	if !ok || rej.Code != CodeUpstreamFailure {
		t.Fatalf("Expected upstream_failure rejection, got %v", err)
	}
}

// recordingNotifier captures notifications for assertion.
type recordingNotifier struct {
	got chan *models.Report
}

func (n *recordingNotifier) ReportCreated(ctx context.Context, r *models.Report) {
	n.got <- r
}

func TestSubmitNotifiesRangers(t *testing.T) {
	store := &fakeStore{}
	logger := zap.NewNop()
	metrics := observability.NewNoOpRegistry()
	limiter := NewRateLimiter(store, nil, RateLimitConfig{}, logger, metrics)
	notifier := &recordingNotifier{got: make(chan *models.Report, 1)}
	p := NewPipeline(store, limiter, geo.DefaultRegistry(), cowClassifier(), notifier, logger, metrics, 1.0)

	if _, err := p.Submit(context.Background(), validSubmission()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case r := <-notifier.got:
		if r.ID != "test-report-id" {
			t.Errorf("Notified about unexpected report %q", r.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a notification")
	}
}
