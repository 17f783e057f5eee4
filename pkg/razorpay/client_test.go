package razorpay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestCreateOrderRequest(t *testing.T) {
	var capturedURL, capturedUser, capturedPass string
	var payload map[string]any

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedUser, capturedPass, _ = req.BasicAuth()
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"id":"order_Rz1","amount":41760,"currency":"INR","receipt":"ORD-1","status":"created"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("rzp_test", "secret", WithBaseURL("http://rzp.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	order, err := client.CreateOrder(context.Background(), OrderRequest{
		Amount:   ToSubunits(decimal.RequireFromString("417.6")),
		Currency: "INR",
		Receipt:  "ORD-1",
		Notes:    map[string]string{"orderId": "abc"},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if capturedURL != "http://rzp.test/v1/orders" {
		t.Fatalf("unexpected url %q", capturedURL)
	}
	if capturedUser != "rzp_test" || capturedPass != "secret" {
		t.Fatalf("basic auth not set")
	}
	if payload["amount"].(float64) != 41760 {
		t.Fatalf("expected amount in paise, got %v", payload["amount"])
	}
	if order.ID != "order_Rz1" {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestCreateOrderGatewayFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader(`{"error":{"description":"bad amount"}}`)),
			Header:     http.Header{},
		}, nil
	})
	client, err := NewClient("rzp_test", "secret", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR", Receipt: "r"})
	if !pkgerrors.IsCode(err, pkgerrors.CodePaymentError) {
		t.Fatalf("expected payment error, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad amount") {
		t.Fatalf("expected gateway body in error, got %v", err)
	}
}

func TestNewClientRequiresKeys(t *testing.T) {
	if _, err := NewClient("", "secret"); err == nil {
		t.Fatal("expected missing key id to fail")
	}
	if _, err := NewClient("key", " "); err == nil {
		t.Fatal("expected missing key secret to fail")
	}
}

func TestVerifyPaymentSignature(t *testing.T) {
	client, err := NewClient("key", "secret")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	sig := Sign("secret", []byte("order_1|pay_1"))

	if !client.VerifyPaymentSignature("order_1", "pay_1", sig) {
		t.Fatal("expected valid signature")
	}
	if !client.VerifyPaymentSignature("order_1", "pay_1", strings.ToUpper(sig)) {
		t.Fatal("hex case should not matter")
	}
	if client.VerifyPaymentSignature("order_1", "pay_2", sig) {
		t.Fatal("expected mismatch for other payment id")
	}
	if client.VerifyPaymentSignature("order_1", "pay_1", "") {
		t.Fatal("expected empty signature to fail")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)

	unconfigured, _ := NewClient("key", "secret")
	if unconfigured.VerifyWebhookSignature(body, Sign("", body)) {
		t.Fatal("webhooks must be rejected without a webhook secret")
	}

	client, _ := NewClient("key", "secret", WithWebhookSecret("whsec"))
	if !client.VerifyWebhookSignature(body, Sign("whsec", body)) {
		t.Fatal("expected valid webhook signature")
	}
	if client.VerifyWebhookSignature(body, Sign("secret", body)) {
		t.Fatal("key secret must not validate webhooks")
	}
}

func TestParseWebhookEvent(t *testing.T) {
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_9","status":"captured","amount":100}}}}`)
	event, err := ParseWebhookEvent(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.RemoteOrderID() != "order_9" || event.PaymentID() != "pay_9" {
		t.Fatalf("unexpected ids %q %q", event.RemoteOrderID(), event.PaymentID())
	}

	orderPaid, err := ParseWebhookEvent([]byte(`{"event":"order.paid","payload":{"order":{"entity":{"id":"order_7"}}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if orderPaid.RemoteOrderID() != "order_7" || orderPaid.PaymentID() != "" {
		t.Fatalf("unexpected ids for order.paid")
	}

	if _, err := ParseWebhookEvent([]byte(`{}`)); err == nil {
		t.Fatal("expected missing event name to fail")
	}
}

func TestToSubunits(t *testing.T) {
	if got := ToSubunits(decimal.RequireFromString("417.605")); got != 41761 {
		t.Fatalf("expected rounding to 41761, got %d", got)
	}
	if got := ToSubunits(decimal.NewFromInt(99)); got != 9900 {
		t.Fatalf("expected 9900, got %d", got)
	}
}
