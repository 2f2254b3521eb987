// Package otp wraps the Twilio Verify API for identity confirmation during
// account linking.
//
// It shares the phone validators with the intake flow but is decoupled from
// the product-intake slot, which only requires syntactic validity.
package otp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/TrackWise/TrackTalk/internal/validation"
	"github.com/twilio/twilio-go"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

// Sender sends and checks one-time passcodes.
type Sender interface {
	Send(ctx context.Context, phoneE164 string) error
	Verify(ctx context.Context, phoneE164, code string) (bool, error)
}

// Opts holds configuration options for the OTP client.
// This focuses solely on Twilio Verify requirements.
type Opts struct {
	AccountSID string
	AuthToken  string
	ServiceSID string
	Channel    string
}

// Option defines a configuration option for the OTP client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithServiceSID sets the Verify service SID.
func WithServiceSID(sid string) Option {
	return func(o *Opts) { o.ServiceSID = sid }
}

// WithChannel sets the delivery channel (sms or whatsapp).
func WithChannel(channel string) Option {
	return func(o *Opts) { o.Channel = channel }
}

// Client wraps the Twilio Verify REST API.
type Client struct {
	client     *twilio.RestClient
	serviceSID string
	channel    string
}

// NewClient creates an OTP client. Falls back to TWILIO_ACCOUNT_SID,
// TWILIO_AUTH_TOKEN and TWILIO_VERIFY_SERVICE_SID environment variables for
// unset options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.ServiceSID == "" {
		cfg.ServiceSID = os.Getenv("TWILIO_VERIFY_SERVICE_SID")
	}
	if cfg.Channel == "" {
		cfg.Channel = "sms"
	}
	slog.Debug("otp.NewClient: config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"ServiceSID_set", cfg.ServiceSID != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.ServiceSID == "" {
		return nil, fmt.Errorf("verify service SID must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{client: client, serviceSID: cfg.ServiceSID, channel: cfg.Channel}, nil
}

// Send starts a verification for the given phone number.
func (c *Client) Send(ctx context.Context, phoneE164 string) error {
	canonical, errs := validation.Phone(phoneE164)
	if len(errs) > 0 {
		return fmt.Errorf("invalid phone number for OTP send")
	}

	params := &verify.CreateVerificationParams{}
	params.SetTo(canonical)
	params.SetChannel(c.channel)

	if _, err := c.client.VerifyV2.CreateVerification(c.serviceSID, params); err != nil {
		slog.Error("otp.Send: verification start failed", "error", err)
		return fmt.Errorf("failed to send OTP: %w", err)
	}
	slog.Info("otp.Send: verification started", "channel", c.channel)
	return nil
}

// Verify checks a submitted code. Returns true only when Twilio reports the
// verification as approved.
func (c *Client) Verify(ctx context.Context, phoneE164, code string) (bool, error) {
	canonical, errs := validation.Phone(phoneE164)
	if len(errs) > 0 {
		return false, fmt.Errorf("invalid phone number for OTP verify")
	}
	if code == "" {
		return false, fmt.Errorf("verification code is required")
	}

	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(canonical)
	params.SetCode(code)

	resp, err := c.client.VerifyV2.CreateVerificationCheck(c.serviceSID, params)
	if err != nil {
		slog.Error("otp.Verify: verification check failed", "error", err)
		return false, fmt.Errorf("failed to verify OTP: %w", err)
	}
	approved := resp.Status != nil && *resp.Status == "approved"
	slog.Info("otp.Verify: verification checked", "approved", approved)
	return approved, nil
}
