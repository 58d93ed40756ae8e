package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

func TestAmountInCents(t *testing.T) {
	assert.Equal(t, int64(20000), AmountInCents(200))
	assert.Equal(t, int64(4550), AmountInCents(45.5))
	assert.Equal(t, int64(1999), AmountInCents(19.99))
}

func TestStripeCreator_CreateIntent(t *testing.T) {
	var idem, amount, currency, apptMeta string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		idem = r.Header.Get("Idempotency-Key")
		amount = r.PostForm.Get("amount")
		currency = r.PostForm.Get("currency")
		apptMeta = r.PostForm.Get("metadata[appointment_id]")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_test_123","object":"payment_intent","amount":20000,"currency":"usd"}`))
	}))
	defer srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	creator := NewStripeCreator("sk_test_x", "USD", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	id, err := creator.CreateIntent(context.Background(), IntentRequest{
		AppointmentID: "appt-1",
		BusinessID:    "biz-1",
		CustomerID:    "cust-1",
		Amount:        200,
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_test_123", id)
	assert.Equal(t, "appointment-appt-1", idem)
	assert.Equal(t, "20000", amount)
	assert.Equal(t, "usd", currency)
	assert.Equal(t, "appt-1", apptMeta)
}

func TestStripeCreator_RejectsZeroAmount(t *testing.T) {
	creator := NewStripeCreator("sk_test_x", "usd", nil)
	_, err := creator.CreateIntent(context.Background(), IntentRequest{AppointmentID: "a", Amount: 0})
	assert.Error(t, err)
}
