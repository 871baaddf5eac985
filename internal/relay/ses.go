package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/optin-mailer/internal/domain"
)

// SESAPI is the part of *sesv2.Client the transport needs.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESClientFactory builds a client from a service's static credentials.
type SESClientFactory func(ctx context.Context, key, secret, region string) (SESAPI, error)

// SESTransport sends through AWS SES v2.
// Settings: key, secret, region (optional), configuration_set_name
// (optional, needed for open/click tracking).
type SESTransport struct {
	region    string
	newClient SESClientFactory

	mu      sync.Mutex
	clients map[string]SESAPI
}

// NewSESTransport creates the transport. defaultRegion is used when a
// service has no region setting.
func NewSESTransport(defaultRegion string) *SESTransport {
	if defaultRegion == "" {
		defaultRegion = "us-east-1"
	}
	return &SESTransport{
		region:    defaultRegion,
		newClient: newSESClient,
		clients:   make(map[string]SESAPI),
	}
}

// WithClientFactory replaces how SES clients are built.
func (t *SESTransport) WithClientFactory(f SESClientFactory) *SESTransport {
	t.newClient = f
	return t
}

func newSESClient(ctx context.Context, key, secret, region string) (SESAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sesv2.NewFromConfig(cfg), nil
}

func (t *SESTransport) client(ctx context.Context, svc *domain.EmailService) (SESAPI, error) {
	region := svc.Setting("region")
	if region == "" {
		region = t.region
	}
	cacheKey := svc.Setting("key") + "|" + region

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[cacheKey]; ok {
		return c, nil
	}
	c, err := t.newClient(ctx, svc.Setting("key"), svc.Setting("secret"), region)
	if err != nil {
		return nil, err
	}
	t.clients[cacheKey] = c
	return c, nil
}

func (t *SESTransport) Send(ctx context.Context, content string, opts domain.MessageOptions, svc *domain.EmailService) (string, error) {
	if err := requireSettings(svc, "key", "secret"); err != nil {
		return "", err
	}

	client, err := t.client(ctx, svc)
	if err != nil {
		return "", &RelayError{Transport: domain.EmailServiceSES, Err: err}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(formatFrom(opts)),
		Destination:      &types.Destination{ToAddresses: []string{opts.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(opts.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(content), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	// SES tracks opens and clicks through the configuration set's event
	// destination, so it only applies when tracking is wanted.
	if cs := svc.Setting("configuration_set_name"); cs != "" && (opts.Tracking.Open || opts.Tracking.Click) {
		input.ConfigurationSetName = aws.String(cs)
	}

	result, err := client.SendEmail(ctx, input)
	if err != nil {
		return "", &RelayError{Transport: domain.EmailServiceSES, Err: err}
	}
	return aws.ToString(result.MessageId), nil
}
