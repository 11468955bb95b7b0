package mailer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/resend/resend-go/v2"
)

type ResendConfig struct {
	APIKey string
	From   string
	// BaseURL overrides the API endpoint; empty means api.resend.com.
	BaseURL string
}

type ResendSender struct {
	from   string
	client *resend.Client
}

func NewResendSender(cfg ResendConfig) (*ResendSender, error) {
	client := resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("resend: invalid base url: %w", err)
		}
		client.BaseURL = u
	}

	return &ResendSender{from: cfg.From, client: client}, nil
}

func (r *ResendSender) Send(ctx context.Context, to, subject, textBody string) error {
	params := &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{to},
		Subject: subject,
		Text:    textBody,
	}

	if _, err := r.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: send failed: %w", err)
	}
	return nil
}
