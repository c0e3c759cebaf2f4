package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/pennant-sim/pennant/go/internal/draft/events"
	"github.com/pennant-sim/pennant/go/internal/models"
)

const (
	streamName    = "DRAFT_EVENTS"
	subjectFilter = "draft.events.>"
	consumerName  = "draft-orchestrator"

	natsMaxReconnects     = -1
	natsReconnectWait     = 2 * time.Second
	consumerMaxDeliver    = 5
	consumerAckWait       = 30 * time.Second
	consumerMaxAckPending = 1000
)

// DomainEvent is the envelope the outbox relay publishes to JetStream.
type DomainEvent struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	DraftID   string          `json:"draftId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ConnectEvents attaches the orchestrator to JetStream so published draft
// events trigger pick handling immediately instead of waiting for the
// deadline sweep. The orchestrator works without it; events only shorten
// reaction time.
func (o *Orchestrator) ConnectEvents(ctx context.Context, natsURL string) error {
	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			o.logger.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			o.logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			o.logger.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return fmt.Errorf("create JetStream context: %w", err)
	}

	o.nc = nc
	o.js = js

	if err := o.ensureConsumer(ctx); err != nil {
		nc.Close()
		o.nc = nil
		o.js = nil
		return err
	}
	return nil
}

func (o *Orchestrator) ensureConsumer(ctx context.Context) error {
	stream, err := o.js.Stream(ctx, streamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	cfg := jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		Description:   "Draft orchestrator event consumer",
		FilterSubject: subjectFilter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    consumerMaxDeliver,
		AckWait:       consumerAckWait,
		MaxAckPending: consumerMaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, consumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		o.logger.Info().Msg("created JetStream consumer")
	} else {
		o.logger.Info().Msg("using existing JetStream consumer")
	}

	o.consumer = consumer
	return nil
}

// consumeEvents runs the JetStream subscription until ctx is cancelled.
// Called from Run when ConnectEvents was used.
func (o *Orchestrator) consumeEvents(ctx context.Context) error {
	consumeCtx, err := o.consumer.Consume(func(msg jetstream.Msg) {
		if err := o.processEvent(ctx, msg); err != nil {
			o.logger.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process event")
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("start JetStream consumer: %w", err)
	}
	go func() {
		<-ctx.Done()
		consumeCtx.Stop()
	}()
	return nil
}

func (o *Orchestrator) processEvent(ctx context.Context, msg jetstream.Msg) error {
	var event DomainEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	draftID, err := uuid.Parse(event.DraftID)
	if err != nil {
		return fmt.Errorf("parse draft ID: %w", err)
	}

	o.logger.Debug().
		Str("subject", msg.Subject()).
		Str("draft_id", event.DraftID).
		Str("event_type", event.EventType).
		Msg("processing event")

	return o.HandleDomainEvent(ctx, event.EventType, draftID, event.Payload)
}

// HandleDomainEvent routes a published draft event to the scheduling action
// it implies. Every action here is also reachable through the deadline sweep,
// so a dropped event delays a session rather than stranding it.
func (o *Orchestrator) HandleDomainEvent(ctx context.Context, eventType string, draftID uuid.UUID, payload []byte) error {
	switch eventType {
	case events.TypeDraftStarted, events.TypeDraftResumed:
		o.NudgeSession(draftID)
		return nil

	case events.TypePickStarted:
		var p events.PickStartedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", eventType, err)
		}
		return o.handlePickStarted(ctx, draftID, p)

	case events.TypePickCommitted:
		// The commit path emits PickStarted for the next slot; nothing to do.
		return nil

	case events.TypeDraftPaused, events.TypeDraftCompleted:
		return o.sessions.UpdateNextDeadline(ctx, draftID, nil)

	default:
		o.logger.Warn().
			Str("event_type", eventType).
			Str("draft_id", draftID.String()).
			Msg("unknown event type, ignoring")
		return nil
	}
}

// handlePickStarted nudges CPU teams straight away and arms the pick deadline
// for human teams on a clock.
func (o *Orchestrator) handlePickStarted(ctx context.Context, draftID uuid.UUID, p events.PickStartedPayload) error {
	draft, err := o.sessions.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if draft.Status != models.DraftStatusInProgress {
		return nil
	}

	control, err := o.controlOnClock(ctx, draft)
	if err != nil {
		return err
	}
	if control == models.ControlModeCPU {
		o.NudgeSession(draftID)
		return nil
	}
	if p.TimeoutAt == nil {
		return o.sessions.UpdateNextDeadline(ctx, draftID, nil)
	}
	if err := o.sessions.UpdateNextDeadline(ctx, draftID, p.TimeoutAt); err != nil {
		return err
	}
	o.wake()
	return nil
}

// Close releases the NATS connection if one was opened.
func (o *Orchestrator) Close() error {
	if o.nc != nil {
		o.nc.Close()
	}
	return nil
}
