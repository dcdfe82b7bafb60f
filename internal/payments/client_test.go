package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreatePaymentLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/payments" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body paymentBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.TxRef != "lead-1" || body.Customer.Email != "a@b.co" {
			t.Errorf("unexpected body: %+v", body)
		}
		_, _ = w.Write([]byte(`{"status":"success","message":"Hosted Link","data":{"link":"https://pay.example/abc"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk", time.Second)
	link, err := c.CreatePaymentLink(context.Background(), LinkRequest{Reference: "lead-1", Amount: 5000, Currency: "NGN", Email: "a@b.co"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if link != "https://pay.example/abc" {
		t.Fatalf("unexpected link %q", link)
	}
}

func TestCreatePaymentLink_Errors(t *testing.T) {
	if _, err := NewClient("http://x", "", time.Second).CreatePaymentLink(context.Background(), LinkRequest{}); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"invalid currency"}`))
	}))
	defer srv.Close()
	_, err := NewClient(srv.URL, "sk", time.Second).CreatePaymentLink(context.Background(), LinkRequest{Reference: "r", Amount: 1, Currency: "XXX", Email: "a@b.co"})
	if err == nil {
		t.Fatalf("expected provider error")
	}
}
