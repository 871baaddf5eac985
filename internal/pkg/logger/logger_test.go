package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "confirma***", RedactToken("confirmation-1b4e28ba-2fa1-11d2-883f-0016d3cca427"))
	assert.Equal(t, "***", RedactToken("short"))
}

func TestLogRedactsAndFilters(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(INFO)
	defer SetOutput(os.Stderr)

	Debug("hidden", "k", "v")
	assert.Zero(t, buf.Len())

	Info("Message has been dispatched.", "recipient_email", "alice@example.com", "note", "sent to bob@example.org", "message_id", "abc", "email_service_id", 4, "message_hash", "confirmation-1b4e28ba")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "al***@example.com", entry["recipient_email"])
	assert.Equal(t, "sent to bo***@example.org", entry["note"])
	assert.Equal(t, "abc", entry["message_id"])
	assert.Equal(t, "4", entry["email_service_id"])
	assert.Equal(t, "confirma***", entry["message_hash"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" WARNING "))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}
