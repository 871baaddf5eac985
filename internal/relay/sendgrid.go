package relay

import (
	"context"
	"net/http"
	"strings"

	"github.com/ignite/optin-mailer/internal/domain"
)

const defaultSendGridBaseURL = "https://api.sendgrid.com/v3"

// SendGridTransport sends through the SendGrid v3 Mail Send API.
// Settings: key.
type SendGridTransport struct {
	client  HTTPDoer
	baseURL string
}

func NewSendGridTransport(client HTTPDoer, baseURL string) *SendGridTransport {
	if baseURL == "" {
		baseURL = defaultSendGridBaseURL
	}
	return &SendGridTransport{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (t *SendGridTransport) Send(ctx context.Context, content string, opts domain.MessageOptions, svc *domain.EmailService) (string, error) {
	if err := requireSettings(svc, "key"); err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": opts.To}}},
		},
		"from":    map[string]string{"email": opts.FromEmail, "name": opts.FromName},
		"subject": opts.Subject,
		"content": []map[string]string{{"type": "text/html", "value": content}},
		"tracking_settings": map[string]interface{}{
			"click_tracking": map[string]bool{"enable": opts.Tracking.Click},
			"open_tracking":  map[string]bool{"enable": opts.Tracking.Open},
		},
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+svc.Setting("key"))
	resp, _, err := postJSON(ctx, t.client, domain.EmailServiceSendGrid, t.baseURL+"/mail/send", payload, header)
	if err != nil {
		return "", err
	}
	// SendGrid answers 202 with no body; the id is only in the header.
	return resp.Header.Get("X-Message-Id"), nil
}
