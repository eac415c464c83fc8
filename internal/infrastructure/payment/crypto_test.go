package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/creatorcommerce/backend/internal/domain/payment"
)

func testIntent(processorID string) *payment.Intent {
	return &payment.Intent{
		Amount:      decimal.RequireFromString("25.00"),
		Currency:    "USD",
		OrderID:     "order-9",
		ProcessorID: processorID,
	}
}

func TestCoinbaseCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cb-key", r.Header.Get("X-CC-Api-Key"))
		assert.Equal(t, coinbaseAPIVersion, r.Header.Get("X-CC-Version"))
		assert.Equal(t, "/charges", r.URL.Path)

		w.Write([]byte(`{"data": {
			"id": "uuid-1", "code": "66BEOV2A",
			"hosted_url": "https://commerce.coinbase.com/charges/66BEOV2A",
			"created_at": "2026-09-01T10:00:00Z",
			"timeline": [{"status": "NEW"}]
		}}`))
	}))
	defer server.Close()

	processor, err := NewCoinbaseProcessor(&CoinbaseConfig{APIKey: "cb-key", APIBaseURL: server.URL})
	require.NoError(t, err)

	charge, err := processor.CreatePayment(context.Background(), testIntent("coinbase"), payment.CryptoOptions{PayCurrency: "BTC"})
	require.NoError(t, err)

	assert.Equal(t, "coinbase", charge.ProcessorID)
	assert.Equal(t, "66BEOV2A", charge.ChargeID)
	assert.Equal(t, payment.ChargeStatusPending, charge.Status)
	assert.Equal(t, "https://commerce.coinbase.com/charges/66BEOV2A", charge.HostedURL)
}

func TestCoinbaseGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges/66BEOV2A", r.URL.Path)
		w.Write([]byte(`{"data": {"code": "66BEOV2A", "timeline": [
			{"status": "NEW"}, {"status": "PENDING"}, {"status": "COMPLETED"}
		]}}`))
	}))
	defer server.Close()

	processor, err := NewCoinbaseProcessor(&CoinbaseConfig{APIKey: "cb-key", APIBaseURL: server.URL})
	require.NoError(t, err)

	status, err := processor.GetStatus(context.Background(), "66BEOV2A")
	require.NoError(t, err)
	assert.Equal(t, payment.ChargeStatusConfirmed, status)
}

func TestCoinbaseAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"type": "invalid_request", "message": "amount too small"}}`))
	}))
	defer server.Close()

	processor, err := NewCoinbaseProcessor(&CoinbaseConfig{APIKey: "cb-key", APIBaseURL: server.URL})
	require.NoError(t, err)

	_, err = processor.CreatePayment(context.Background(), testIntent("coinbase"), payment.CryptoOptions{})
	require.ErrorIs(t, err, payment.ErrProcessorRequestFailed)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestBTCPayCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token btc-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/stores/store-1/invoices", r.URL.Path)

		w.Write([]byte(`{"id": "inv-1", "status": "New",
			"checkoutLink": "https://pay.example.com/i/inv-1", "createdTime": 1756720800}`))
	}))
	defer server.Close()

	processor, err := NewBTCPayProcessor(&BTCPayConfig{
		APIKey: "btc-key", StoreID: "store-1", APIBaseURL: server.URL,
	})
	require.NoError(t, err)

	charge, err := processor.CreatePayment(context.Background(), testIntent("btcpay"), payment.CryptoOptions{})
	require.NoError(t, err)

	assert.Equal(t, "inv-1", charge.ChargeID)
	assert.Equal(t, payment.ChargeStatusPending, charge.Status)
	assert.Equal(t, "https://pay.example.com/i/inv-1", charge.HostedURL)
}

func TestBTCPayStatusMapping(t *testing.T) {
	tests := []struct {
		in   string
		want payment.ChargeStatus
	}{
		{"New", payment.ChargeStatusPending},
		{"Processing", payment.ChargeStatusPending},
		{"Settled", payment.ChargeStatusConfirmed},
		{"Expired", payment.ChargeStatusExpired},
		{"Invalid", payment.ChargeStatusFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapBTCPayStatus(tt.in), tt.in)
	}
}

func TestBTCPayChargeNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	processor, err := NewBTCPayProcessor(&BTCPayConfig{
		APIKey: "btc-key", StoreID: "store-1", APIBaseURL: server.URL,
	})
	require.NoError(t, err)

	_, err = processor.GetStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, payment.ErrChargeNotFound)
}

func TestCoinPaymentsCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		// The HMAC header must sign the exact encoded body.
		mac := hmac.New(sha512.New, []byte("priv"))
		mac.Write(body)
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("HMAC"))

		form, err := url.ParseQuery(string(body))
		require.NoError(t, err)
		assert.Equal(t, "create_transaction", form.Get("cmd"))
		assert.Equal(t, "pub", form.Get("key"))
		assert.Equal(t, "BTC", form.Get("currency2"))

		w.Write([]byte(`{"error": "ok", "result": {
			"txn_id": "CPGE1", "address": "bc1qxyz", "amount": "0.00052000",
			"checkout_url": "https://www.coinpayments.net/index.php?cmd=checkout"
		}}`))
	}))
	defer server.Close()

	processor, err := NewCoinPaymentsProcessor(&CoinPaymentsConfig{
		PublicKey: "pub", PrivateKey: "priv", APIBaseURL: server.URL,
	})
	require.NoError(t, err)

	charge, err := processor.CreatePayment(context.Background(), testIntent("coinpayments"),
		payment.CryptoOptions{PayCurrency: "BTC", BuyerEmail: "buyer@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "CPGE1", charge.ChargeID)
	assert.Equal(t, "bc1qxyz", charge.PayAddress)
	assert.Equal(t, "0.00052", charge.PayAmount.String())
	assert.Equal(t, payment.ChargeStatusPending, charge.Status)
}

func TestCoinPaymentsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Invalid currency2", "result": null}`))
	}))
	defer server.Close()

	processor, err := NewCoinPaymentsProcessor(&CoinPaymentsConfig{
		PublicKey: "pub", PrivateKey: "priv", APIBaseURL: server.URL,
	})
	require.NoError(t, err)

	_, err = processor.CreatePayment(context.Background(), testIntent("coinpayments"), payment.CryptoOptions{})
	require.ErrorIs(t, err, payment.ErrProcessorRequestFailed)
	assert.Contains(t, err.Error(), "Invalid currency2")
}

func TestMapCoinPaymentsStatus(t *testing.T) {
	assert.Equal(t, payment.ChargeStatusPending, mapCoinPaymentsStatus(0))
	assert.Equal(t, payment.ChargeStatusPending, mapCoinPaymentsStatus(1))
	assert.Equal(t, payment.ChargeStatusConfirmed, mapCoinPaymentsStatus(100))
	assert.Equal(t, payment.ChargeStatusFailed, mapCoinPaymentsStatus(-1))
}

func TestPlisioCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoices/new", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "pl-key", query.Get("api_key"))
		assert.Equal(t, "USD", query.Get("source_currency"))
		assert.Equal(t, "order-9", query.Get("order_number"))

		w.Write([]byte(`{"status": "success", "data": {
			"txn_id": "pl-txn-1", "invoice_url": "https://plisio.net/invoice/pl-txn-1",
			"wallet_hash": "0xabc", "invoice_total_sum": "0.0125", "status": "new"
		}}`))
	}))
	defer server.Close()

	processor, err := NewPlisioProcessor(&PlisioConfig{APIKey: "pl-key", APIBaseURL: server.URL})
	require.NoError(t, err)

	charge, err := processor.CreatePayment(context.Background(), testIntent("plisio"),
		payment.CryptoOptions{PayCurrency: "ETH"})
	require.NoError(t, err)

	assert.Equal(t, "pl-txn-1", charge.ChargeID)
	assert.Equal(t, "0xabc", charge.PayAddress)
	assert.Equal(t, payment.ChargeStatusPending, charge.Status)
}

func TestPlisioAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": "error", "data": {"message": "wrong api key"}}`))
	}))
	defer server.Close()

	processor, err := NewPlisioProcessor(&PlisioConfig{APIKey: "pl-key", APIBaseURL: server.URL})
	require.NoError(t, err)

	_, err = processor.CreatePayment(context.Background(), testIntent("plisio"), payment.CryptoOptions{})
	require.ErrorIs(t, err, payment.ErrProcessorRequestFailed)
	assert.Contains(t, err.Error(), "wrong api key")
}

func TestCryptoPaymentManager(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"code": "CB1", "hosted_url": "https://x", "timeline": [{"status": "NEW"}]}}`))
	}))
	defer server.Close()

	coinbase, err := NewCoinbaseProcessor(&CoinbaseConfig{APIKey: "k", APIBaseURL: server.URL})
	require.NoError(t, err)

	manager := NewCryptoPaymentManager(zaptest.NewLogger(t))
	manager.Register(coinbase)

	t.Run("dispatches by processor id", func(t *testing.T) {
		charge, err := manager.CreatePayment(context.Background(), testIntent("coinbase"), payment.CryptoOptions{})
		require.NoError(t, err)
		assert.Equal(t, "CB1", charge.ChargeID)
	})

	t.Run("unknown processor", func(t *testing.T) {
		_, err := manager.CreatePayment(context.Background(), testIntent("nowpayments"), payment.CryptoOptions{})
		assert.ErrorIs(t, err, payment.ErrUnknownProcessor)
	})

	t.Run("unknown processor on status", func(t *testing.T) {
		_, err := manager.GetStatus(context.Background(), "nowpayments", "x")
		assert.ErrorIs(t, err, payment.ErrUnknownProcessor)
	})

	t.Run("lists registered processors", func(t *testing.T) {
		assert.Equal(t, []string{"coinbase"}, manager.Processors())
	})
}
