package fanout

import (
	"appointly/internal/events"
	"appointly/internal/payment"
	"appointly/internal/push"

	"github.com/google/uuid"
)

// Broadcast is one realtime message for a channel.
type Broadcast struct {
	Channel string
	Event   string
	Payload any
}

// Effects are the post-commit side effects of one appointment operation.
type Effects struct {
	AppointmentID uuid.UUID
	Broadcasts    []Broadcast
	Pushes        []push.Message
	Events        []events.Event
	Payment       *payment.IntentRequest
}

func (e *Effects) Broadcast(channel, event string, payload any) {
	e.Broadcasts = append(e.Broadcasts, Broadcast{Channel: channel, Event: event, Payload: payload})
}

// Push queues msg unless the recipient has no device token.
func (e *Effects) Push(msg push.Message) {
	if msg.Token == "" {
		return
	}
	e.Pushes = append(e.Pushes, msg)
}

func (e *Effects) Emit(ev events.Event) {
	e.Events = append(e.Events, ev)
}

func (e *Effects) Empty() bool {
	return len(e.Broadcasts) == 0 && len(e.Pushes) == 0 && len(e.Events) == 0 && e.Payment == nil
}
