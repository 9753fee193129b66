package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/you/rentalsvc/domain"
)

func newGatewayForTest(t *testing.T, handler http.Handler) domain.ProviderGateway {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPGateway(server.URL, "test-key", 2*time.Second, 2)
}

func TestHTTPGateway_Reserve(t *testing.T) {
	gateway := newGatewayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/activations" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing api key header, got %q", r.Header.Get("Authorization"))
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["service"] != "phone_rental_v1" {
			t.Errorf("expected service phone_rental_v1, got %q", req["service"])
		}

		json.NewEncoder(w).Encode(map[string]string{
			"activation_id": "act_42",
			"phone_number":  "+15550001111",
			"status":        "WAITING",
		})
	}))

	reservation, err := gateway.Reserve(context.Background(), domain.ServicePhoneRentalV1, "any")
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if reservation.Handle != "act_42" || reservation.PhoneNumber != "+15550001111" {
		t.Errorf("unexpected reservation: %+v", reservation)
	}
}

func TestHTTPGateway_ReserveErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"rate limited", http.StatusTooManyRequests, domain.ErrProviderRateLimited},
		{"no stock conflict", http.StatusConflict, domain.ErrNoNumbersAvailable},
		{"no stock gone", http.StatusGone, domain.ErrNoNumbersAvailable},
		{"upstream broken", http.StatusInternalServerError, domain.ErrUpstreamTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := newGatewayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))

			_, err := gateway.Reserve(context.Background(), domain.ServicePhoneRentalV1, "any")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHTTPGateway_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	gateway := newGatewayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"activation_id": "act_1",
			"phone_number":  "+15550001111",
		})
	}))

	reservation, err := gateway.Reserve(context.Background(), domain.ServicePhoneRentalV1, "")
	if err != nil {
		t.Fatalf("Reserve failed after retries: %v", err)
	}
	if reservation.Handle != "act_1" {
		t.Errorf("unexpected reservation: %+v", reservation)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestHTTPGateway_DoesNotRetryTerminalFailures(t *testing.T) {
	var calls atomic.Int32
	gateway := newGatewayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := gateway.Reserve(context.Background(), domain.ServicePhoneRentalV1, "")
	if !errors.Is(err, domain.ErrNoNumbersAvailable) {
		t.Fatalf("expected ErrNoNumbersAvailable, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("no-stock answer must not be retried, got %d attempts", got)
	}
}

func TestHTTPGateway_PollOTP(t *testing.T) {
	tests := []struct {
		name       string
		upstream   map[string]string
		wantStatus domain.OTPDeliveryStatus
		wantCode   string
	}{
		{"delivered", map[string]string{"status": "RECEIVED", "code": "123456"}, domain.OTPDelivered, "123456"},
		{"cancelled", map[string]string{"status": "CANCELLED"}, domain.OTPCancelled, ""},
		{"still waiting", map[string]string{"status": "WAITING"}, domain.OTPPending, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := newGatewayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/activations/act_1" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				json.NewEncoder(w).Encode(tt.upstream)
			}))

			outcome, err := gateway.PollOTP(context.Background(), "act_1")
			if err != nil {
				t.Fatalf("PollOTP failed: %v", err)
			}
			if outcome.Status != tt.wantStatus || outcome.Code != tt.wantCode {
				t.Errorf("expected %s/%q, got %s/%q", tt.wantStatus, tt.wantCode, outcome.Status, outcome.Code)
			}
		})
	}
}

func TestHTTPGateway_Release(t *testing.T) {
	var gotMethod, gotPath string
	gateway := newGatewayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))

	if err := gateway.Release(context.Background(), "act_1"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/activations/act_1" {
		t.Errorf("unexpected release call: %s %s", gotMethod, gotPath)
	}
}
