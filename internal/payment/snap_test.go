package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/holycat-orders/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapClient_CreateSession(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/snap/v1/transactions", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "server-key", user)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"snap-token","redirect_url":"https://pay.example/snap-token"}`))
	}))
	defer srv.Close()

	c := payment.NewSnapClient(srv.URL, "server-key", time.Second)
	s, err := c.CreateSession(context.Background(), payment.SessionRequest{
		Reference:     "HOLYCAT-x-1",
		GrossAmount:   2000,
		Items:         []payment.SessionItem{{ID: "p1", Name: "Whiskas Tuna 1.2kg", Price: 1000, Quantity: 2}},
		CustomerEmail: "cat@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "snap-token", s.Token)
	assert.Equal(t, "https://pay.example/snap-token", s.RedirectURL)

	td := got["transaction_details"].(map[string]any)
	assert.Equal(t, "HOLYCAT-x-1", td["order_id"])
	assert.Equal(t, float64(2000), td["gross_amount"])
	items := got["item_details"].([]any)
	require.Len(t, items, 1)
}

func TestSnapClient_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error_messages":["Access denied"]}`))
	}))
	defer srv.Close()

	c := payment.NewSnapClient(srv.URL, "bad", time.Second)
	_, err := c.CreateSession(context.Background(), payment.SessionRequest{Reference: "r", GrossAmount: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrGateway)
	assert.Contains(t, err.Error(), "401")
}
