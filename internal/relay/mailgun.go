package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ignite/optin-mailer/internal/domain"
)

const (
	defaultMailgunBaseURL = "https://api.mailgun.net/v3"
	mailgunEUBaseURL      = "https://api.eu.mailgun.net/v3"
)

// MailgunTransport sends through the Mailgun Messages API.
// Settings: key, domain, zone (optional, "EU" selects the EU region).
type MailgunTransport struct {
	client  HTTPDoer
	baseURL string
}

// NewMailgunTransport creates the transport. A non-empty baseURL overrides
// the zone-derived endpoint.
func NewMailgunTransport(client HTTPDoer, baseURL string) *MailgunTransport {
	return &MailgunTransport{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (t *MailgunTransport) endpoint(svc *domain.EmailService) string {
	base := t.baseURL
	if base == "" {
		base = defaultMailgunBaseURL
		if strings.EqualFold(svc.Setting("zone"), "EU") {
			base = mailgunEUBaseURL
		}
	}
	return fmt.Sprintf("%s/%s/messages", base, svc.Setting("domain"))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (t *MailgunTransport) Send(ctx context.Context, content string, opts domain.MessageOptions, svc *domain.EmailService) (string, error) {
	if err := requireSettings(svc, "key", "domain"); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Add("from", formatFrom(opts))
	form.Add("to", opts.To)
	form.Add("subject", opts.Subject)
	form.Add("html", content)
	form.Add("o:tracking-opens", yesNo(opts.Tracking.Open))
	form.Add("o:tracking-clicks", yesNo(opts.Tracking.Click))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint(svc), strings.NewReader(form.Encode()))
	if err != nil {
		return "", &RelayError{Transport: domain.EmailServiceMailgun, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", svc.Setting("key"))

	_, body, err := do(t.client, domain.EmailServiceMailgun, req)
	if err != nil {
		return "", err
	}

	var result struct {
		ID string `json:"id"`
	}
	json.Unmarshal(body, &result)
	return strings.Trim(result.ID, "<>"), nil
}
