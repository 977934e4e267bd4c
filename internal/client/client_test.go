package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL:      srv.URL,
		APIKey:       "secret",
		Timeout:      2 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	})
}

func TestClient_Quote(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pools/"+pool.String()+"/quote", r.URL.Path)
		assert.Equal(t, "1000", r.URL.Query().Get("amountIn"))
		assert.Equal(t, "false", r.URL.Query().Get("aToB"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"pool":"` + pool.String() + `","amount_in":1000,"amount_out":1955,"price_impact":"2.2"}`))
	})

	q, err := c.Quote(context.Background(), pool, 1000, false, 50)
	require.NoError(t, err)
	assert.Equal(t, pool, q.Pool)
	assert.Equal(t, uint64(1955), q.AmountOut)
	assert.Equal(t, "2.2", q.PriceImpact.String())
}

func TestClient_LedgerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "dHg=", body["transaction"])

		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"SlippageExceeded","code":422,"ledger_code":6103,"kind":"business_rule"}`))
	})

	_, err := c.SubmitTransaction(context.Background(), "dHg=")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledgererr.ErrSlippageExceeded)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, h.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RetriesConflicts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"account changed concurrently, resubmit","code":409}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, h.OK)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Config(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Too Many Requests", apiErr.Name)
	assert.Equal(t, int32(4), calls.Load())
}

func TestAccountResponse_Bytes(t *testing.T) {
	a := AccountResponse{Encoding: "base58", Data: "2g"}
	b, err := a.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x61}, b)

	a = AccountResponse{Encoding: "base64", Data: "YQ=="}
	b, err = a.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x61}, b)

	a.Encoding = "hex"
	_, err = a.Bytes()
	assert.Error(t, err)
}
