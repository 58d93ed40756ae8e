package fanout_test

import (
	"context"
	"errors"
	"testing"

	"appointly/internal/events"
	"appointly/internal/fanout"
	"appointly/internal/fanout/fanouttest"
	"appointly/internal/payment"
	"appointly/internal/pkg/logger"
	"appointly/internal/push"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedIntent struct {
	appointmentID uuid.UUID
	providerID    string
}

type intentLog struct {
	calls []recordedIntent
	err   error
}

func (l *intentLog) MarkCreated(_ context.Context, appointmentID uuid.UUID, providerID string) error {
	l.calls = append(l.calls, recordedIntent{appointmentID, providerID})
	return l.err
}

func sampleEffects(id uuid.UUID) fanout.Effects {
	fx := fanout.Effects{AppointmentID: id}
	fx.Broadcast("appointments:business_b1", "appointment_created", map[string]string{"appointment_id": id.String()})
	fx.Push(push.Message{Token: "device", Title: "t", Body: "b"})
	fx.Push(push.Message{Token: "", Title: "dropped"})
	fx.Emit(events.Event{Type: events.TypeAppointmentCreated, AppointmentID: id.String()})
	fx.Payment = &payment.IntentRequest{AppointmentID: id.String(), Amount: 200}
	return fx
}

func TestDispatch_DeliversEveryEffect(t *testing.T) {
	rec := &fanouttest.Recorder{}
	intents := &intentLog{}
	id := uuid.New()

	rec.Dispatcher(intents).Dispatch(context.Background(), sampleEffects(id))

	require.Len(t, rec.Broadcasts, 1)
	assert.Equal(t, "appointments:business_b1", rec.Broadcasts[0].Channel)
	require.Len(t, rec.Pushes, 1, "messages without a token are not queued")
	assert.Len(t, rec.Events, 1)
	require.Len(t, rec.Payments, 1)
	require.Len(t, intents.calls, 1)
	assert.Equal(t, "pi_"+id.String(), intents.calls[0].providerID)
}

func TestDispatch_FailuresAreSwallowed(t *testing.T) {
	rec := &fanouttest.Recorder{Fail: errors.New("gateway down")}
	intents := &intentLog{}

	assert.NotPanics(t, func() {
		rec.Dispatcher(intents).Dispatch(context.Background(), sampleEffects(uuid.New()))
	})

	// Every sink is still attempted after the first failure.
	assert.Len(t, rec.Broadcasts, 1)
	assert.Len(t, rec.Pushes, 1)
	assert.Len(t, rec.Events, 1)
	assert.Empty(t, intents.calls, "failed intents are not recorded")
}

func TestDispatch_CancelledContextStillDelivers(t *testing.T) {
	rec := &fanouttest.Recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec.Dispatcher(nil).Dispatch(ctx, sampleEffects(uuid.New()))

	assert.Len(t, rec.Broadcasts, 1)
}

func TestDispatch_NoSinksConfigured(t *testing.T) {
	d := fanout.NewDispatcher(logger.Discard())
	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), sampleEffects(uuid.New()))
	})
}
