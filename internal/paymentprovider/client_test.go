package paymentprovider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("shop-1", "secret-key", "webhook-secret", "https://xnema.example.com/return")
	c.apiURL = srv.URL
	return c
}

func TestCreateCheckout(t *testing.T) {
	var got CreatePaymentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Idempotence-Key"))
		assert.Contains(t, r.Header.Get("Authorization"), "Basic ")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{
			"id": "txn-1",
			"status": "pending",
			"confirmation": {"type": "redirect", "confirmation_url": "https://pay.example.com/txn-1"}
		}`))
	})

	checkout, err := client.CreateCheckout(context.Background(),
		"11111111-2222-3333-4444-555555555555", "monthly")
	require.NoError(t, err)
	assert.Equal(t, "txn-1", checkout.TransactionID)
	assert.Equal(t, "https://pay.example.com/txn-1", checkout.ConfirmationURL)

	assert.Equal(t, "19.90", got.Amount.Value)
	assert.Equal(t, "BRL", got.Amount.Currency)
	assert.True(t, got.Capture)
	assert.Equal(t, "redirect", got.Confirmation.Type)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", got.Metadata.AccountUID)
	assert.Equal(t, "monthly", got.Metadata.PlanType)
}

func TestCreateCheckoutYearlyAmount(t *testing.T) {
	var got CreatePaymentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id": "txn-2", "confirmation": {"confirmation_url": "https://pay.example.com/txn-2"}}`))
	})

	_, err := client.CreateCheckout(context.Background(),
		"11111111-2222-3333-4444-555555555555", "yearly")
	require.NoError(t, err)
	assert.Equal(t, "199.00", got.Amount.Value)
}

func TestCreateCheckoutUnknownPlan(t *testing.T) {
	client := NewClient("shop-1", "secret-key", "webhook-secret", "")

	_, err := client.CreateCheckout(context.Background(),
		"11111111-2222-3333-4444-555555555555", "weekly")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestCreateCheckoutProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.CreateCheckout(context.Background(),
		"11111111-2222-3333-4444-555555555555", "monthly")
	assert.Error(t, err)
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := NewClient("shop-1", "secret-key", "webhook-secret", "")
	body := []byte(`{"event": "payment.succeeded"}`)

	mac := hmac.New(sha256.New, []byte("webhook-secret"))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.VerifyWebhookSignature(body, valid))
	assert.False(t, client.VerifyWebhookSignature(body, "deadbeef"))
	assert.False(t, client.VerifyWebhookSignature([]byte(`tampered`), valid))
	assert.False(t, client.VerifyWebhookSignature(body, ""))
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"type": "notification",
		"event": "payment.succeeded",
		"object": {
			"id": "txn-1",
			"status": "succeeded",
			"amount": {"value": "19.90", "currency": "BRL"},
			"metadata": {"account_uid": "11111111-2222-3333-4444-555555555555", "plan_type": "monthly"}
		}
	}`)

	n, err := ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, n.Event)
	assert.Equal(t, "txn-1", n.Object.ID)
	assert.Equal(t, "monthly", n.Object.Metadata.PlanType)
}

func TestParseWebhookMissingPaymentID(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"event": "payment.succeeded", "object": {}}`))
	assert.Error(t, err)
}

func TestParseWebhookInvalidJSON(t *testing.T) {
	_, err := ParseWebhook([]byte(`not json`))
	assert.Error(t, err)
}
