package fanout

import (
	"context"
	"log/slog"
	"time"

	"appointly/internal/events"
	"appointly/internal/payment"
	"appointly/internal/push"

	"github.com/google/uuid"
)

const effectTimeout = 5 * time.Second

type Broadcaster interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// PaymentRecorder stores the provider id of a created intent.
type PaymentRecorder interface {
	MarkCreated(ctx context.Context, appointmentID uuid.UUID, providerID string) error
}

// Dispatcher performs side effects after a transaction has committed.
// Every failure is logged and swallowed; nothing is retried.
type Dispatcher struct {
	log         *slog.Logger
	broadcaster Broadcaster
	pusher      push.Sender
	events      EventPublisher
	payments    payment.Creator
	recorder    PaymentRecorder
}

type Option func(*Dispatcher)

func WithBroadcaster(b Broadcaster) Option       { return func(d *Dispatcher) { d.broadcaster = b } }
func WithPushSender(s push.Sender) Option        { return func(d *Dispatcher) { d.pusher = s } }
func WithEventPublisher(p EventPublisher) Option { return func(d *Dispatcher) { d.events = p } }

// WithPayments enables payment-intent creation; recorder may be nil.
func WithPayments(c payment.Creator, recorder PaymentRecorder) Option {
	return func(d *Dispatcher) {
		d.payments = c
		d.recorder = recorder
	}
}

func NewDispatcher(log *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{log: log}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch attempts every effect independently. It detaches from ctx
// cancellation so a client hanging up does not cut the fan-out short.
func (d *Dispatcher) Dispatch(ctx context.Context, fx Effects) {
	if d == nil || fx.Empty() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := d.log.With("appointment_id", fx.AppointmentID.String())

	if fx.Payment != nil {
		d.createPayment(ctx, log, fx.AppointmentID, *fx.Payment)
	}

	for _, b := range fx.Broadcasts {
		if d.broadcaster == nil {
			break
		}
		err := d.withTimeout(ctx, func(ctx context.Context) error {
			return d.broadcaster.Publish(ctx, b.Channel, b.Event, b.Payload)
		})
		if err != nil {
			log.Warn("realtime broadcast failed", "effect", "broadcast", "channel", b.Channel, "event", b.Event, "error", err)
		}
	}

	for _, m := range fx.Pushes {
		if d.pusher == nil {
			log.Debug("push skipped, no sender configured", "effect", "push")
			break
		}
		err := d.withTimeout(ctx, func(ctx context.Context) error {
			return d.pusher.Send(ctx, m)
		})
		if err != nil {
			log.Warn("push delivery failed", "effect", "push", "provider", d.pusher.ProviderID(), "title", m.Title, "error", err)
		}
	}

	for _, ev := range fx.Events {
		if d.events == nil {
			break
		}
		err := d.withTimeout(ctx, func(ctx context.Context) error {
			return d.events.Publish(ctx, ev)
		})
		if err != nil {
			log.Error("lifecycle event publish failed", "effect", "event", "type", ev.Type, "error", err)
		}
	}
}

func (d *Dispatcher) createPayment(ctx context.Context, log *slog.Logger, appointmentID uuid.UUID, req payment.IntentRequest) {
	if d.payments == nil {
		return
	}
	var providerID string
	err := d.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		providerID, err = d.payments.CreateIntent(ctx, req)
		return err
	})
	if err != nil {
		log.Error("payment intent creation failed", "effect", "payment", "error", err)
		return
	}
	if d.recorder == nil {
		return
	}
	if err := d.recorder.MarkCreated(ctx, appointmentID, providerID); err != nil {
		log.Warn("payment intent id not recorded", "effect", "payment", "provider_intent_id", providerID, "error", err)
	}
}

func (d *Dispatcher) withTimeout(ctx context.Context, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, effectTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("side effect panicked", "panic", r)
			err = nil
		}
	}()
	return fn(ctx)
}
