// Package events publishes appointment lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hnms/hnms/internal/platform/metrics"
)

type Type string

const (
	AppointmentCreated     Type = "appointment.created"
	AppointmentRescheduled Type = "appointment.rescheduled"
	AppointmentUpdated     Type = "appointment.updated"
	AppointmentCancelled   Type = "appointment.cancelled"
)

// Event is the envelope written to the broker.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	ResourceID int64           `json:"resource_id"`
	HospitalID *int64          `json:"hospital_id,omitempty"`
	ActorID    int64           `json:"actor_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// New builds an event with a fresh id, stamping it with the current time.
func New(t Type, resourceID int64, hospitalID *int64, actorID int64, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		ResourceID: resourceID,
		HospitalID: hospitalID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the log. It is used when no broker is
// configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info().
		Str("event_id", e.ID).
		Str("event_type", string(e.Type)).
		Int64("resource_id", e.ResourceID).
		Int64("actor_id", e.ActorID).
		Msg("event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                          { return nil }

// DefaultPublishTimeout bounds a single publish.
const DefaultPublishTimeout = 5 * time.Second

// Emitter publishes events on behalf of the services. Delivery failures are
// logged and counted, never returned: a broker outage must not fail a
// request whose write already committed.
type Emitter struct {
	pub     Publisher
	logger  zerolog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewEmitter wraps pub. m may be nil.
func NewEmitter(pub Publisher, logger zerolog.Logger, m *metrics.Metrics) *Emitter {
	if pub == nil {
		pub = Nop{}
	}
	return &Emitter{pub: pub, logger: logger, metrics: m, timeout: DefaultPublishTimeout}
}

// Emit builds and publishes an event. The publish runs under its own
// deadline, detached from ctx cancellation, so a client disconnect after the
// write does not drop the event.
func (em *Emitter) Emit(ctx context.Context, t Type, resourceID int64, hospitalID *int64, actorID int64, payload interface{}) {
	if em == nil {
		return
	}
	e, err := New(t, resourceID, hospitalID, actorID, payload)
	if err != nil {
		em.logger.Error().Err(err).Str("event_type", string(t)).Msg("failed to build event")
		em.metrics.AppointmentEvent(string(t), false)
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), em.timeout)
	defer cancel()

	if err := em.pub.Publish(pctx, e); err != nil {
		em.logger.Error().Err(err).
			Str("event_id", e.ID).
			Str("event_type", string(t)).
			Int64("resource_id", resourceID).
			Msg("failed to publish event")
		em.metrics.AppointmentEvent(string(t), false)
		return
	}
	em.metrics.AppointmentEvent(string(t), true)
}
