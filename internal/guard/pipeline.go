package guard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wholetthecowsout/cowwatch/internal/db"
	"github.com/wholetthecowsout/cowwatch/internal/geo"
	"github.com/wholetthecowsout/cowwatch/internal/models"
	"github.com/wholetthecowsout/cowwatch/internal/observability"
	"github.com/wholetthecowsout/cowwatch/internal/vision"
)

// Submission is the raw report payload after transport decoding. Location
// may be a registry id, a registry name, or free text.
type Submission struct {
	Description string
	Location    string
	Photo       string
	Fingerprint string
	IPAddress   string
	ReporterLat *float64
	ReporterLng *float64
}

// Notifier alerts rangers about a newly created report. Implementations are
// best-effort; the pipeline never fails a submission over a notification.
type Notifier interface {
	ReportCreated(ctx context.Context, r *models.Report)
}

// notifyTimeout bounds the background notification fan-out.
const notifyTimeout = 30 * time.Second

// Pipeline sequences the submission guards: required fields, rate limit,
// geofence, content validation, duplicate-active gate, then persistence.
// The first failing guard short-circuits and its rejection is surfaced to
// the caller unchanged.
type Pipeline struct {
	store      ReportStore
	limiter    *RateLimiter
	locations  *geo.Registry
	classifier vision.Classifier
	notifier   Notifier
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
	maxMiles   float64
}

// NewPipeline wires a submission pipeline. notifier may be nil.
func NewPipeline(store ReportStore, limiter *RateLimiter, locations *geo.Registry, classifier vision.Classifier, notifier Notifier, logger *zap.Logger, metrics observability.MetricsRegistry, maxMiles float64) *Pipeline {
	if maxMiles <= 0 {
		maxMiles = geo.DefaultMaxDistanceMiles
	}
	return &Pipeline{
		store:      store,
		limiter:    limiter,
		locations:  locations,
		classifier: classifier,
		notifier:   notifier,
		logger:     logger,
		metrics:    metrics,
		maxMiles:   maxMiles,
	}
}

// Submit runs every guard in order and persists the report when all pass.
// Errors are always *Rejection values; the transport layer maps their codes
// onto status classes.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (*models.Report, error) {
	report, err := p.submit(ctx, sub)
	if err != nil {
		if rej, ok := AsRejection(err); ok {
			p.metrics.IncrementSubmissions(string(rej.Code))
		}
		return nil, err
	}
	p.metrics.IncrementSubmissions("accepted")
	return report, nil
}

func (p *Pipeline) submit(ctx context.Context, sub Submission) (*models.Report, error) {
	if sub.Location == "" {
		return nil, reject(CodeInvalidInput, "Location is required.")
	}
	if sub.Photo == "" {
		return nil, reject(CodeInvalidInput, "A photo is required.")
	}
	if sub.Fingerprint == "" {
		return nil, reject(CodeInvalidInput, "Device identification failed. Please reload and try again.")
	}

	verdict, err := p.limiter.Check(ctx, sub.Fingerprint, sub.IPAddress)
	if err != nil {
		return nil, upstream("Something went wrong. Please try again later.", err)
	}
	if !verdict.Allowed {
		return nil, reject(CodeRateLimited, verdict.Reason)
	}

	// Geofencing is opportunistic: it only applies when the location is a
	// known zone and the reporter shared coordinates. Free-text locations
	// and reports without GPS skip it.
	location := sub.Location
	if zone, ok := p.locations.Resolve(sub.Location); ok {
		location = zone.Name
		if sub.ReporterLat != nil && sub.ReporterLng != nil {
			miles := geo.DistanceMiles(*sub.ReporterLat, *sub.ReporterLng, zone.Lat, zone.Lng)
			if miles > p.maxMiles {
				p.logger.Info("submission outside geofence",
					zap.String("location", zone.ID),
					zap.Float64("miles", miles))
				return nil, reject(CodeOutOfRange, "You appear to be too far from the reported location. Please pick the location nearest to you.")
			}
		}
	}

	result, err := p.classifier.Classify(ctx, sub.Photo)
	if err != nil {
		return nil, upstream("We could not verify your photo right now. Please try again later.", err)
	}
	if !result.IsCow {
		return nil, reject(CodeContentRejected, "We couldn't spot a cow in that photo. Please retake it with the cow in view.")
	}

	// Advisory check-then-insert: two concurrent submissions for the same
	// location can both pass this lookup. The store's unique index decides
	// the race; the loser gets the same conflict below.
	existing, err := p.store.FindActiveReportByLocation(ctx, location)
	if err != nil {
		return nil, upstream("Something went wrong. Please try again later.", err)
	}
	if existing != nil {
		return nil, reject(CodeConflict, "This location already has an active report. Rangers have been notified.")
	}

	report := &models.Report{
		Description: sub.Description,
		Location:    location,
		Status:      models.StatusReported,
		PhotoBase64: vision.StripDataURL(sub.Photo),
		Fingerprint: sub.Fingerprint,
		IPAddress:   sub.IPAddress,
		ReporterLat: sub.ReporterLat,
		ReporterLng: sub.ReporterLng,
	}
	if err := p.store.InsertReport(ctx, report); err != nil {
		if errors.Is(err, db.ErrDuplicateActive) {
			return nil, reject(CodeConflict, "This location already has an active report. Rangers have been notified.")
		}
		p.logger.Error("insert report", zap.Error(err))
		return nil, upstream("Failed to create report. Please try again later.", err)
	}

	p.limiter.Record(ctx, sub.Fingerprint, sub.IPAddress)

	if p.notifier != nil {
		// Fire-and-forget: a report must never fail because a downstream
		// notification did.
		go func(r models.Report) {
			nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			p.notifier.ReportCreated(nctx, &r)
		}(*report)
	}

	p.logger.Info("report created",
		zap.String("id", report.ID),
		zap.String("location", report.Location))
	return report, nil
}
