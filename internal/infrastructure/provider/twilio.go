package provider

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/you/rentalsvc/domain"
)

// otpCodePattern extracts the verification code from an inbound SMS body.
var otpCodePattern = regexp.MustCompile(`\b\d{4,8}\b`)

// TwilioGateway implements domain.ProviderGateway on Twilio's number
// provisioning API: Reserve buys an incoming number, PollOTP reads inbound
// messages to it, Release returns the number.
type TwilioGateway struct {
	client *twilio.RestClient
}

// NewTwilioGateway creates a Twilio-backed provider gateway.
func NewTwilioGateway(accountSID, authToken string) domain.ProviderGateway {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioGateway{client: client}
}

// Reserve implements domain.ProviderGateway. The handle packs the number SID
// (needed for release) and the number itself (needed for message polling).
func (t *TwilioGateway) Reserve(ctx context.Context, serviceType domain.ServiceType, carrier string) (*domain.Reservation, error) {
	params := &twilioApi.CreateIncomingPhoneNumberParams{}
	if carrier != "" {
		params.SetAreaCode(carrier)
	}

	number, err := t.client.Api.CreateIncomingPhoneNumber(params)
	if err != nil {
		if strings.Contains(err.Error(), "21452") || strings.Contains(strings.ToLower(err.Error()), "no phone numbers") {
			return nil, domain.ErrNoNumbersAvailable
		}
		return nil, fmt.Errorf("twilio number provisioning failed: %w", domain.ErrUpstreamTimeout)
	}
	if number.Sid == nil || number.PhoneNumber == nil {
		return nil, domain.ErrNoNumbersAvailable
	}

	return &domain.Reservation{
		PhoneNumber: *number.PhoneNumber,
		Handle:      *number.Sid + "|" + *number.PhoneNumber,
	}, nil
}

// PollOTP implements domain.ProviderGateway. Listing messages never mutates
// the reservation, so the read is idempotent.
func (t *TwilioGateway) PollOTP(ctx context.Context, handle string) (*domain.OTPOutcome, error) {
	_, phoneNumber, err := splitHandle(handle)
	if err != nil {
		return nil, err
	}

	params := &twilioApi.ListMessageParams{}
	params.SetTo(phoneNumber)
	params.SetLimit(5)

	messages, err := t.client.Api.ListMessage(params)
	if err != nil {
		return nil, fmt.Errorf("twilio message poll failed: %w", domain.ErrUpstreamTimeout)
	}

	for _, msg := range messages {
		if msg.Body == nil {
			continue
		}
		if code := otpCodePattern.FindString(*msg.Body); code != "" {
			return &domain.OTPOutcome{Status: domain.OTPDelivered, Code: code}, nil
		}
	}
	return &domain.OTPOutcome{Status: domain.OTPPending}, nil
}

// Release implements domain.ProviderGateway
func (t *TwilioGateway) Release(ctx context.Context, handle string) error {
	sid, _, err := splitHandle(handle)
	if err != nil {
		return err
	}
	if err := t.client.Api.DeleteIncomingPhoneNumber(sid, &twilioApi.DeleteIncomingPhoneNumberParams{}); err != nil {
		return fmt.Errorf("twilio number release failed: %w", err)
	}
	return nil
}

func splitHandle(handle string) (sid, phoneNumber string, err error) {
	parts := strings.SplitN(handle, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed provider handle %q", handle)
	}
	return parts[0], parts[1], nil
}
