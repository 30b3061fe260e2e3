package service

import (
	"context"
	"time"

	"whatsrelay/internal/metrics"
	"whatsrelay/internal/queue"
	"whatsrelay/internal/tracing"
	"whatsrelay/pkg/whatsapp"
	"whatsrelay/pkg/whatsapp/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Metric names recorded by the relay
const (
	MetricRecordsIngested = "relay_records_ingested_total"
	MetricMessagesSkipped = "relay_messages_skipped_total"
	MetricIngestErrors    = "relay_ingest_errors_total"
	MetricRecordsPulled   = "relay_records_pulled_total"
	MetricPulls           = "relay_pulls_total"
	MetricQueueDepth      = "relay_queue_depth"
	MetricIngestDuration  = "relay_ingest_duration"
)

// RelayService moves normalized webhook messages into the queue and hands
// them out to pulling clients
type RelayService interface {
	// Ingest normalizes a webhook body and queues every record it yields.
	// The result is returned for logging; it never needs to be acted on.
	Ingest(ctx context.Context, body []byte) whatsapp.NormalizeResult
	// Pull drains the queue. The result is never nil.
	Pull(ctx context.Context) []types.InboundRecord
	// Pending reports the current queue depth
	Pending() int
}

type relayService struct {
	queue   *queue.Queue
	logger  *logrus.Logger
	metrics *metrics.Registry
}

// NewRelayService creates a relay over q. A nil registry records into the
// global metrics registry.
func NewRelayService(q *queue.Queue, logger *logrus.Logger, registry *metrics.Registry) RelayService {
	if registry == nil {
		registry = metrics.GetRegistry()
	}
	return &relayService{
		queue:   q,
		logger:  logger,
		metrics: registry,
	}
}

func (s *relayService) Ingest(ctx context.Context, body []byte) whatsapp.NormalizeResult {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "relay.ingest", attribute.Int("relay.body_bytes", len(body)))
	defer span.End()

	result := whatsapp.Normalize(body)
	s.queue.Append(result.Records...)

	for _, record := range result.Records {
		s.logger.WithFields(logrus.Fields{
			LogFieldRequestID:   tracing.GetRequestID(ctx),
			LogFieldMessageID:   SanitizeMessageID(ctx, record.ID),
			LogFieldPhone:       SanitizePhoneNumber(ctx, record.Phone),
			LogFieldMessageType: record.Type,
			LogFieldDirection:   "incoming",
		}).Debug("Queued inbound message")
	}

	s.metrics.AddToCounter(MetricRecordsIngested, float64(len(result.Records)), nil, "Inbound records appended to the queue")
	if result.Skipped > 0 {
		s.metrics.AddToCounter(MetricMessagesSkipped, float64(result.Skipped), nil, "Inbound messages dropped for lacking a sender")
	}
	if !result.OK() {
		s.metrics.AddToCounter(MetricIngestErrors, float64(len(result.Errors)), nil, "Unreadable parts of webhook bodies")
		tracing.RecordError(ctx, result.Err())
	}
	s.metrics.RecordTimer(MetricIngestDuration, time.Since(start), map[string]string{
		"outcome": ingestOutcome(result),
	}, "Webhook normalization and queueing time")

	pending := s.queue.Len()
	s.setDepth(pending)

	tracing.AddSpanAttributes(ctx,
		attribute.Int("relay.records", len(result.Records)),
		attribute.Int("relay.skipped", result.Skipped),
		attribute.Int("relay.errors", len(result.Errors)),
		attribute.Int("relay.pending", pending),
	)

	return result
}

func (s *relayService) Pull(ctx context.Context) []types.InboundRecord {
	ctx, span := tracing.StartSpan(ctx, "relay.pull")
	defer span.End()

	records := s.queue.Drain()

	s.metrics.IncrementCounter(MetricPulls, nil, "Successful pulls")
	s.metrics.AddToCounter(MetricRecordsPulled, float64(len(records)), nil, "Inbound records handed to clients")
	s.setDepth(s.queue.Len())

	tracing.AddSpanAttributes(ctx, attribute.Int("relay.records", len(records)))

	if len(records) > 0 {
		s.logger.WithFields(logrus.Fields{
			LogFieldRequestID: tracing.GetRequestID(ctx),
			LogFieldCount:     len(records),
		}).Info("Delivered queued messages")
	}

	return records
}

func (s *relayService) Pending() int {
	return s.queue.Len()
}

func (s *relayService) setDepth(depth int) {
	s.metrics.SetGauge(MetricQueueDepth, float64(depth), nil, "Inbound records waiting for the next pull")
}

func ingestOutcome(result whatsapp.NormalizeResult) string {
	switch {
	case result.OK():
		return "ok"
	case len(result.Records) > 0:
		return "partial"
	default:
		return "failed"
	}
}
