package services

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/hintermann/visitforge/internal/infrastructure/email"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
)

const maxContactMessageLen = 5000

// ContactService validates contact-form submissions and forwards them to the
// site owner via the configured mail sender.
type ContactService struct {
	sender email.Sender
	logger *logging.ChanneledLogger
}

// NewContactService creates a new contact service. A nil sender disables
// delivery; submissions are still validated and logged.
func NewContactService(sender email.Sender, logger *logging.ChanneledLogger) *ContactService {
	return &ContactService{sender: sender, logger: logger}
}

// Submit validates and delivers one contact message.
func (s *ContactService) Submit(name, fromEmail, message string) error {
	name = strings.TrimSpace(name)
	fromEmail = strings.TrimSpace(fromEmail)
	message = strings.TrimSpace(message)

	if name == "" || message == "" {
		return fmt.Errorf("%w: name and message are required", ErrInvalidRequest)
	}
	if _, err := mail.ParseAddress(fromEmail); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidRequest)
	}
	if len(message) > maxContactMessageLen {
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidRequest, maxContactMessageLen)
	}

	if s.sender == nil {
		s.logger.Email().Warn("Contact message accepted but delivery is disabled", "from", fromEmail)
		return nil
	}

	if err := s.sender.SendContactNotification(name, fromEmail, message); err != nil {
		s.logger.Email().Error("Contact notification delivery failed", "error", err.Error())
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.logger.Email().Info("Contact notification sent", "from", fromEmail)
	return nil
}
