package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ignite/optin-mailer/internal/domain"
)

const defaultSparkPostBaseURL = "https://api.sparkpost.com/api/v1"

// SparkPostTransport sends through the SparkPost Transmissions API.
// Settings: key.
type SparkPostTransport struct {
	client  HTTPDoer
	baseURL string
}

func NewSparkPostTransport(client HTTPDoer, baseURL string) *SparkPostTransport {
	if baseURL == "" {
		baseURL = defaultSparkPostBaseURL
	}
	return &SparkPostTransport{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (t *SparkPostTransport) Send(ctx context.Context, content string, opts domain.MessageOptions, svc *domain.EmailService) (string, error) {
	if err := requireSettings(svc, "key"); err != nil {
		return "", err
	}

	transmission := map[string]interface{}{
		"options": map[string]bool{
			"open_tracking":  opts.Tracking.Open,
			"click_tracking": opts.Tracking.Click,
			"transactional":  true,
		},
		"recipients": []map[string]interface{}{
			{"address": map[string]string{"email": opts.To}},
		},
		"content": map[string]interface{}{
			"from":    map[string]string{"email": opts.FromEmail, "name": opts.FromName},
			"subject": opts.Subject,
			"html":    content,
		},
	}

	header := http.Header{}
	header.Set("Authorization", svc.Setting("key"))
	_, body, err := postJSON(ctx, t.client, domain.EmailServiceSparkPost, t.baseURL+"/transmissions", transmission, header)
	if err != nil {
		return "", err
	}

	var result struct {
		Results struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	json.Unmarshal(body, &result)
	return result.Results.ID, nil
}
