// Package twilio provides a MessageSink delivering messages over WhatsApp
// through the Twilio REST API.
package twilio

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Opts holds Twilio credentials and the sending number.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string // WhatsApp number, e.g. "whatsapp:+14155238886"
}

// Option configures the sink.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFrom sets the sending WhatsApp number.
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// payload is the shape of the sink-specific options a handler may attach to
// a send. Unknown keys are ignored.
type payload struct {
	MediaURL       []string `mapstructure:"media_url"`
	StatusCallback string   `mapstructure:"status_callback"`
}

// Sink implements ports.MessageSink over Twilio WhatsApp.
type Sink struct {
	client *twilio.RestClient
	from   string
}

// New creates a Twilio WhatsApp sink. Credentials fall back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_FROM_NUMBER environment
// variables when not provided via options.
func New(opts ...Option) (*Sink, error) {
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
	if cfg.From == "" {
		cfg.From = os.Getenv("TWILIO_FROM_NUMBER")
	}

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &Sink{client: client, from: cfg.From}, nil
}

// Send delivers a WhatsApp message.
func (s *Sink) Send(ctx context.Context, chatID string, text string, options map[string]any) error {
	params, err := buildParams(s.from, chatID, text, options)
	if err != nil {
		return err
	}

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		slog.Error("Twilio send failed", "to", chatID, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", chatID, err)
	}

	slog.Debug("Twilio message sent", "to", chatID)
	return nil
}

func buildParams(from, chatID, text string, options map[string]any) (*twilioApi.CreateMessageParams, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + chatID)
	params.SetFrom(from)
	params.SetBody(text)

	if len(options) == 0 {
		return params, nil
	}

	var p payload
	if err := mapstructure.Decode(options, &p); err != nil {
		return nil, fmt.Errorf("invalid send options: %w", err)
	}
	if len(p.MediaURL) > 0 {
		params.SetMediaUrl(p.MediaURL)
	}
	if p.StatusCallback != "" {
		params.SetStatusCallback(p.StatusCallback)
	}
	return params, nil
}
