package domain

import "time"

// EmailServiceType identifies the outbound provider behind an email service.
type EmailServiceType string

const (
	EmailServiceSES       EmailServiceType = "ses"
	EmailServiceSparkPost EmailServiceType = "sparkpost"
	EmailServiceMailgun   EmailServiceType = "mailgun"
	EmailServiceSendGrid  EmailServiceType = "sendgrid"
	EmailServiceSMTP      EmailServiceType = "smtp"
)

// EmailService is a named outbound-provider configuration owned by a
// workspace. Settings hold the provider credentials (api keys, region,
// smtp host...) and are never serialized to API clients.
type EmailService struct {
	ID          int64             `json:"id" db:"id"`
	WorkspaceID int64             `json:"workspace_id" db:"workspace_id"`
	Name        string            `json:"name" db:"name"`
	Type        EmailServiceType  `json:"type" db:"type"`
	Settings    map[string]string `json:"-" db:"settings"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// Setting returns a single credential value, or "" when unset.
func (e *EmailService) Setting(key string) string {
	if e.Settings == nil {
		return ""
	}
	return e.Settings[key]
}
