package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/optin-mailer/internal/domain"
)

func confirmationMessage() *domain.Message {
	msg := domain.NewConfirmationMessage(1, "alice@example.com")
	msg.Hash = "confirmation-abc"
	msg.Subscriber = &domain.Subscriber{
		ID: 3, WorkspaceID: 1, Email: "alice@example.com",
		FirstName: "alice", Hash: "sub-hash",
	}
	return msg
}

func TestRenderConfirmation(t *testing.T) {
	ms := NewMergeService("https://example.com/confirm")
	require.NoError(t, ms.Register(domain.OriginConfirmation,
		`Hi {{ first_name | capitalize }}, <a href="{{ confirmation_url }}">confirm</a> {{ message_hash }}`))

	out, err := ms.Render(context.Background(), confirmationMessage())
	require.NoError(t, err)
	assert.Equal(t,
		`Hi Alice, <a href="https://example.com/confirm?email=alice%40example.com&hash=sub-hash&workspace_id=1">confirm</a> confirmation-abc`,
		out)
}

func TestCapitalizeMultibyteFirstName(t *testing.T) {
	ms := NewMergeService("")
	require.NoError(t, ms.Register(domain.OriginConfirmation, `Hi {{ first_name | capitalize }}`))

	for name, want := range map[string]string{
		"élodie": "Hi Élodie",
		"ÑANDÚ":  "Hi Ñandú",
		"x":      "Hi X",
	} {
		msg := confirmationMessage()
		msg.Subscriber.FirstName = name
		out, err := ms.Render(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, want, out, name)
	}
}

func TestRenderEmptyFirstName(t *testing.T) {
	ms := NewMergeService("")
	require.NoError(t, ms.Register(domain.OriginConfirmation, `Hi{% if first_name != "" %} {{ first_name }}{% endif %}!`))

	msg := confirmationMessage()
	msg.Subscriber.FirstName = ""
	out, err := ms.Render(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "Hi!", out)
}

func TestRenderMissingTemplate(t *testing.T) {
	ms := NewMergeService("")
	_, err := ms.Render(context.Background(), domain.NewCampaignMessage(1, 2, "a@example.com"))

	var tplErr *TemplateError
	require.ErrorAs(t, err, &tplErr)
	assert.Equal(t, domain.OriginCampaign, tplErr.Origin)
	assert.ErrorIs(t, err, ErrNoTemplate)
}

func TestRenderUndefinedVariableIsStrict(t *testing.T) {
	ms := NewMergeService("")
	require.NoError(t, ms.Register(domain.OriginConfirmation, `{{ coupon_code }}`))

	_, err := ms.Render(context.Background(), confirmationMessage())
	var tplErr *TemplateError
	require.ErrorAs(t, err, &tplErr)
	assert.Equal(t, domain.OriginConfirmation, tplErr.Origin)
}

func TestRegisterSyntaxError(t *testing.T) {
	ms := NewMergeService("")
	err := ms.Register(domain.OriginConfirmation, `{% if first_name %}unterminated`)
	var tplErr *TemplateError
	assert.True(t, errors.As(err, &tplErr))
}

func TestConfirmationURLExistingQuery(t *testing.T) {
	ms := NewMergeService("https://example.com/confirm?lang=it")
	u := ms.ConfirmationURL(&domain.Subscriber{WorkspaceID: 7, Email: "b@example.com", Hash: "h"})
	assert.Equal(t, "https://example.com/confirm?lang=it&email=b%40example.com&hash=h&workspace_id=7", u)
}

func TestRenderCancelledContext(t *testing.T) {
	ms := NewMergeService("")
	require.NoError(t, ms.Register(domain.OriginConfirmation, `x`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ms.Render(ctx, confirmationMessage())
	assert.ErrorIs(t, err, context.Canceled)
}
