package inbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mailpilot/backend/internal/models"
)

func TestConnectionRequiresIMAPServer(t *testing.T) {
	c := NewClient()
	result := c.TestConnection(context.Background(), &models.EmailAccount{
		EmailAddress: "probe@example.com",
		Username:     "probe@example.com",
	}, "secret")

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "imap server not configured")
}

func TestExtractTextBodyPrefersPlain(t *testing.T) {
	raw := []byte("MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=b1\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"plain body\r\n" +
		"--b1\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>html body</p>\r\n" +
		"--b1--\r\n")

	assert.Equal(t, "plain body", extractTextBody(raw))
}

func TestExtractTextBodyFallsBackToRaw(t *testing.T) {
	raw := []byte("just some bytes, not a MIME message")
	assert.Equal(t, string(raw), extractTextBody(raw))
}
