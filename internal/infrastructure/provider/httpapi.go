package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/you/rentalsvc/domain"
)

// HTTPGateway implements domain.ProviderGateway against a JSON HTTP
// SMS-activation upstream. The upstream is treated as unreliable: every call
// carries a bounded timeout and transient failures are retried with backoff
// before an error is surfaced.
type HTTPGateway struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries int
}

// NewHTTPGateway creates a gateway for the configured upstream API.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration, maxRetries int) domain.ProviderGateway {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPGateway{
		baseURL:    baseURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

type reserveRequest struct {
	Service string `json:"service"`
	Carrier string `json:"carrier,omitempty"`
}

type reserveResponse struct {
	ActivationID string `json:"activation_id"`
	PhoneNumber  string `json:"phone_number"`
	Status       string `json:"status"`
}

type pollResponse struct {
	Status string `json:"status"` // WAITING | RECEIVED | CANCELLED
	Code   string `json:"code"`
}

// Reserve implements domain.ProviderGateway
func (g *HTTPGateway) Reserve(ctx context.Context, serviceType domain.ServiceType, carrier string) (*domain.Reservation, error) {
	body, _ := json.Marshal(reserveRequest{Service: string(serviceType), Carrier: carrier})

	var out reserveResponse
	err := g.doWithRetry(ctx, http.MethodPost, "/activations", bytes.NewReader(body), &out)
	if err != nil {
		return nil, err
	}
	if out.ActivationID == "" || out.PhoneNumber == "" {
		return nil, fmt.Errorf("provider returned incomplete reservation: %w", domain.ErrNoNumbersAvailable)
	}

	return &domain.Reservation{
		PhoneNumber: out.PhoneNumber,
		Handle:      out.ActivationID,
	}, nil
}

// PollOTP implements domain.ProviderGateway. The upstream status read has no
// side effect on the reservation, so repeated calls are safe.
func (g *HTTPGateway) PollOTP(ctx context.Context, handle string) (*domain.OTPOutcome, error) {
	var out pollResponse
	path := "/activations/" + url.PathEscape(handle)
	if err := g.doWithRetry(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	switch out.Status {
	case "RECEIVED":
		return &domain.OTPOutcome{Status: domain.OTPDelivered, Code: out.Code}, nil
	case "CANCELLED":
		return &domain.OTPOutcome{Status: domain.OTPCancelled}, nil
	default:
		return &domain.OTPOutcome{Status: domain.OTPPending}, nil
	}
}

// Release implements domain.ProviderGateway
func (g *HTTPGateway) Release(ctx context.Context, handle string) error {
	path := "/activations/" + url.PathEscape(handle)
	return g.doWithRetry(ctx, http.MethodDelete, path, nil, nil)
}

// doWithRetry issues one HTTP call, retrying timeouts and 5xx responses with
// a short linear backoff. Rate limits and no-stock answers are terminal.
func (g *HTTPGateway) doWithRetry(ctx context.Context, method, path string, body *bytes.Reader, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("provider call cancelled: %w", domain.ErrUpstreamTimeout)
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}

		err := g.do(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		// Only transient failures are worth another attempt.
		if !errors.Is(err, domain.ErrUpstreamTimeout) {
			return err
		}
		if body != nil {
			body.Seek(0, 0)
		}
	}
	return lastErr
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body *bytes.Reader, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		reader = body
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", domain.ErrUpstreamTimeout)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ErrProviderRateLimited
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusGone:
		return domain.ErrNoNumbersAvailable
	case resp.StatusCode >= 500:
		return fmt.Errorf("provider returned %s: %w", resp.Status, domain.ErrUpstreamTimeout)
	case resp.StatusCode >= 300:
		return fmt.Errorf("provider returned unexpected status %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}
