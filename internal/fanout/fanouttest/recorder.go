// Package fanouttest provides recording sinks for the fan-out dispatcher.
package fanouttest

import (
	"context"
	"sync"

	"appointly/internal/events"
	"appointly/internal/fanout"
	"appointly/internal/payment"
	"appointly/internal/pkg/logger"
	"appointly/internal/push"
)

// Recorder captures everything dispatched to it. Set Fail to make every
// sink return that error.
type Recorder struct {
	mu sync.Mutex

	Fail error

	Broadcasts []fanout.Broadcast
	Pushes     []push.Message
	Events     []events.Event
	Payments   []payment.IntentRequest
}

func (r *Recorder) Publish(_ context.Context, channel, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Broadcasts = append(r.Broadcasts, fanout.Broadcast{Channel: channel, Event: event, Payload: payload})
	return r.Fail
}

func (r *Recorder) Send(_ context.Context, msg push.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Pushes = append(r.Pushes, msg)
	return r.Fail
}

func (r *Recorder) ProviderID() string { return "recorder" }

func (r *Recorder) CreateIntent(_ context.Context, req payment.IntentRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Payments = append(r.Payments, req)
	if r.Fail != nil {
		return "", r.Fail
	}
	return "pi_" + req.AppointmentID, nil
}

// EventSink adapts the recorder to fanout.EventPublisher.
func (r *Recorder) EventSink() fanout.EventPublisher {
	return eventSink{r}
}

type eventSink struct{ r *Recorder }

func (s eventSink) Publish(_ context.Context, ev events.Event) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.Events = append(s.r.Events, ev)
	return s.r.Fail
}

// Dispatcher wires a dispatcher whose every sink is r.
func (r *Recorder) Dispatcher(recorder fanout.PaymentRecorder) *fanout.Dispatcher {
	return fanout.NewDispatcher(logger.Discard(),
		fanout.WithBroadcaster(r),
		fanout.WithPushSender(r),
		fanout.WithEventPublisher(r.EventSink()),
		fanout.WithPayments(r, recorder),
	)
}

func (r *Recorder) BroadcastEvents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Broadcasts))
	for _, b := range r.Broadcasts {
		out = append(out, b.Event)
	}
	return out
}
