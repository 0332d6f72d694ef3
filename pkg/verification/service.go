// Package verification runs a full delivery check: it loads our message log,
// fetches the provider's records, reconciles the two and reports the result.
package verification

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/4rvnd/ara-whatsapp-verification-checker/internal/repositories/message"
	ctxutil "github.com/4rvnd/ara-whatsapp-verification-checker/pkg/context"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/kafka"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/metrics"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/models"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/provider"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/reconcile"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/report"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/tracing"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/utils"
)

// MessageStore is the internal record source
type MessageStore interface {
	List(ctx context.Context, q message.Query) ([]models.InternalMessageRecord, error)
	DistinctPhoneNumbers(ctx context.Context, start, end time.Time) ([]string, error)
}

// RecordSource is the external record source
type RecordSource interface {
	Fetch(ctx context.Context, identifiers []string, start, end time.Time) *provider.FetchResult
}

// EventPublisher announces finished runs
type EventPublisher interface {
	PublishReconciliationCompleted(ctx context.Context, event *kafka.ReconciliationCompletedEvent) error
}

const (
	ModeNumbers = "numbers"
	ModeWindow  = "window"
)

// Request describes one reconciliation run. Threshold, BatchSize and Scope
// override the service defaults when set.
type Request struct {
	Mode           string    `json:"mode" validate:"required,oneof=numbers window"`
	PhoneNumbers   []string  `json:"phone_numbers" validate:"omitempty,dive,required"`
	Start          time.Time `json:"start" validate:"required"`
	End            time.Time `json:"end" validate:"required,gtefield=Start"`
	IncludeDetails bool      `json:"include_details"`
	Threshold      *float64  `json:"threshold,omitempty"`
	BatchSize      *int      `json:"batch_size,omitempty"`
	Scope          string    `json:"scope,omitempty"`
}

// Service wires the record sources to the reconciliation engine
type Service struct {
	store       MessageStore
	source      RecordSource
	publisher   EventPublisher
	coordinator *reconcile.Coordinator
	defaults    reconcile.Options
	logger      ectologger.Logger
}

// NewService creates a verification service. A nil publisher disables events.
func NewService(store MessageStore, source RecordSource, publisher EventPublisher, coordinator *reconcile.Coordinator, defaults reconcile.Options, logger ectologger.Logger) *Service {
	return &Service{
		store:       store,
		source:      source,
		publisher:   publisher,
		coordinator: coordinator,
		defaults:    defaults,
		logger:      logger,
	}
}

// Options resolves the reconciliation options for a request
func (s *Service) Options(req Request) (reconcile.Options, error) {
	opts := s.defaults
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	if req.BatchSize != nil {
		opts.BatchSize = *req.BatchSize
	}
	if req.Scope != "" {
		scope, err := reconcile.ParseScope(req.Scope)
		if err != nil {
			return opts, err
		}
		opts.Scope = scope
	}
	return opts, opts.Validate()
}

// Run executes a reconciliation and builds its report
func (s *Service) Run(ctx context.Context, req Request) (*report.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "verification.Service.Run")
	defer span.End()

	started := time.Now()
	runID := ctxutil.GetRunID(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = ctxutil.SetRunID(ctx, runID)
	}
	tracing.SetAttributes(ctx, map[string]any{"run_id": runID, "mode": req.Mode})

	rep, err := s.run(ctx, runID, req)
	tracing.RecordError(ctx, err)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailure
	}
	metrics.ReconciliationsTotal.WithLabelValues(req.Mode, status).Inc()
	metrics.ReconciliationDuration.WithLabelValues(req.Mode).Observe(time.Since(started).Seconds())

	return rep, err
}

func (s *Service) run(ctx context.Context, runID string, req Request) (*report.Report, error) {
	req, err := utils.Validate(req)
	if err != nil {
		return nil, httperror.WrapError(http.StatusBadRequest, err)
	}
	if req.Mode == ModeNumbers && len(provider.UniqueIdentifiers(req.PhoneNumbers)) == 0 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "phone_numbers is required in numbers mode")
	}

	opts, err := s.Options(req)
	if err != nil {
		return nil, httperror.WrapError(http.StatusBadRequest, err)
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": runID,
		"mode":   req.Mode,
		"start":  req.Start,
		"end":    req.End,
	})

	identifiers := provider.UniqueIdentifiers(req.PhoneNumbers)
	if req.Mode == ModeWindow {
		identifiers, err = s.store.DistinctPhoneNumbers(ctx, req.Start, req.End)
		if err != nil {
			return nil, err
		}
	}

	internal, err := s.store.List(ctx, message.Query{
		Start:        req.Start,
		End:          req.End,
		PhoneNumbers: identifiers,
	})
	if err != nil {
		return nil, err
	}

	// An empty identifier set in window mode means there is nothing to fetch
	fetched := &provider.FetchResult{Results: map[string]provider.IdentifierResult{}}
	if len(identifiers) > 0 {
		fetched = s.source.Fetch(ctx, identifiers, req.Start, req.End)
	}
	external := fetched.Pool()

	log.WithFields(map[string]any{
		"phone_number_count": len(identifiers),
		"internal_count":     len(internal),
		"external_count":     len(external),
		"fetch_errors":       len(fetched.Errors),
	}).Info("Loaded records for reconciliation")

	result, err := s.coordinator.Reconcile(ctx, internal, external, opts)
	if err != nil {
		if errors.Is(err, reconcile.ErrInvalidOptions) {
			return nil, httperror.WrapError(http.StatusBadRequest, err)
		}
		return nil, err
	}

	rep := report.Build(result, report.Params{
		IncludeDetails:     req.IncludeDetails,
		WindowStart:        req.Start,
		WindowEnd:          req.End,
		SubjectIdentifiers: identifiers,
	})
	rep.RunID = runID
	rep.FetchErrors = ectolinq.Map(fetched.Errors, func(e provider.FetchError) report.FetchError {
		return report.FetchError{PhoneNumber: e.PhoneNumber, Error: e.Error}
	})

	recordOutcomes(result)
	s.publish(ctx, req.Mode, rep)

	return rep, nil
}

// ReconcileRecords reconciles caller supplied records without touching either source
func (s *Service) ReconcileRecords(ctx context.Context, internal []models.InternalMessageRecord, external []models.ExternalMessageRecord, opts reconcile.Options, params report.Params) (*report.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "verification.Service.ReconcileRecords")
	defer span.End()

	result, err := s.coordinator.Reconcile(ctx, internal, external, opts)
	if err != nil {
		return nil, err
	}
	recordOutcomes(result)
	return report.Build(result, params), nil
}

func (s *Service) publish(ctx context.Context, mode string, rep *report.Report) {
	if s.publisher == nil {
		return
	}
	event := &kafka.ReconciliationCompletedEvent{
		RunID:             rep.RunID,
		Mode:              mode,
		WindowStart:       rep.Summary.WindowStart,
		WindowEnd:         rep.Summary.WindowEnd,
		PhoneNumberCount:  rep.Summary.PhoneNumberCount,
		TotalInternal:     rep.Summary.TotalInternal,
		TotalExternal:     rep.Summary.TotalExternal,
		Matched:           rep.Summary.Matched,
		Unmatched:         rep.Summary.Unmatched,
		MatchRate:         rep.Summary.MatchRate,
		AverageConfidence: rep.Summary.AverageConfidence,
		FetchErrors:       len(rep.FetchErrors),
	}
	if err := s.publisher.PublishReconciliationCompleted(ctx, event); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(metrics.StatusFailure).Inc()
		s.logger.WithContext(ctx).WithError(err).WithField("run_id", rep.RunID).Warn("Failed to publish reconciliation event")
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(metrics.StatusSuccess).Inc()
}

func recordOutcomes(result *models.ReconciliationResult) {
	for _, o := range result.Matched {
		metrics.OutcomesTotal.WithLabelValues(string(o.Status), "").Inc()
		metrics.MatchConfidence.Observe(o.Score)
	}
	for _, o := range result.Unmatched {
		metrics.OutcomesTotal.WithLabelValues(string(o.Status), string(o.Reason)).Inc()
	}
}
