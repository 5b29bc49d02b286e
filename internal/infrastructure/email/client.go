// Package email wraps the Resend API for outbound notification mail.
package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/resendlabs/resend-go"

	"github.com/hintermann/visitforge/pkg/config"
)

// Sender delivers contact-form notifications. The interface exists so the
// contact service can be tested without a live Resend account.
type Sender interface {
	SendContactNotification(name, fromEmail, message string) error
}

type Client struct {
	resend    *resend.Client
	fromEmail string
	toEmail   string
}

// NewClient builds a Resend-backed sender from the process configuration.
func NewClient() (*Client, error) {
	if config.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}
	if config.EmailTo == "" {
		return nil, fmt.Errorf("EMAIL_TO environment variable is required")
	}

	return &Client{
		resend:    resend.NewClient(config.ResendAPIKey),
		fromEmail: config.EmailFrom,
		toEmail:   config.EmailTo,
	}, nil
}

// SendContactNotification forwards a submitted contact message to the site
// owner. All visitor-supplied fields are HTML-escaped before templating.
func (c *Client) SendContactNotification(name, fromEmail, message string) error {
	safeName := html.EscapeString(name)
	safeEmail := html.EscapeString(fromEmail)
	safeMessage := strings.ReplaceAll(html.EscapeString(message), "\n", "<br>")

	htmlContent := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
  <h2>New contact message</h2>
  <p><strong>From:</strong> %s &lt;%s&gt;</p>
  <hr>
  <p>%s</p>
</div>`, safeName, safeEmail, safeMessage)

	request := &resend.SendEmailRequest{
		From:    fmt.Sprintf("VisitForge <%s>", c.fromEmail),
		To:      []string{c.toEmail},
		ReplyTo: fromEmail,
		Subject: fmt.Sprintf("Contact form: %s", safeName),
		Html:    htmlContent,
	}

	if _, err := c.resend.Emails.Send(request); err != nil {
		return fmt.Errorf("failed to send contact notification: %w", err)
	}
	return nil
}
