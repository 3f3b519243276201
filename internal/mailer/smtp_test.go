package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mailpilot/backend/internal/models"
)

func TestConnectionRequiresSMTPServer(t *testing.T) {
	result := NewSMTPTransport().TestConnection(context.Background(), &models.EmailAccount{
		AccountName:  "Probe",
		EmailAddress: "probe@example.com",
		Username:     "probe@example.com",
	}, "secret")

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "smtp server not configured")
}

func TestHTMLToTextStripsTags(t *testing.T) {
	assert.Equal(t, "HelloWorld", htmlToText("<html><body><h1>Hello</h1><p>World</p></body></html>"))
}

func TestIsHTML(t *testing.T) {
	assert.True(t, isHTML("<HTML><body>x</body></HTML>"))
	assert.False(t, isHTML("plain text with <b>markup</b> only"))
}
