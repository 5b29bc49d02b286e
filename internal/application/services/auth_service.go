package services

import (
	"fmt"
	"time"

	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/security"
)

// AuthService issues admin session tokens for the operator surface.
type AuthService struct {
	adminPassword string
	jwtSecret     string
	tokenTTL      time.Duration
	logger        *logging.ChanneledLogger
}

// NewAuthService creates a new auth service.
func NewAuthService(adminPassword, jwtSecret string, tokenTTL time.Duration, logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{
		adminPassword: adminPassword,
		jwtSecret:     jwtSecret,
		tokenTTL:      tokenTTL,
		logger:        logger,
	}
}

// Login exchanges the admin password for a signed session token.
func (s *AuthService) Login(password string) (string, error) {
	if s.adminPassword == "" || s.jwtSecret == "" {
		s.logger.Auth().Error("Admin login attempted without ADMIN_PASSWORD/JWT_SECRET configured")
		return "", fmt.Errorf("%w: admin authentication not configured", ErrUnavailable)
	}

	if !security.CheckAdminPassword(s.adminPassword, password) {
		s.logger.Auth().Warn("Admin login rejected: bad password")
		return "", fmt.Errorf("%w: invalid credentials", ErrInvalidRequest)
	}

	token, err := security.GenerateAdminToken(s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.logger.Auth().Info("Admin login succeeded")
	return token, nil
}

// ValidateToken checks an admin session token and reports whether it carries
// the admin role.
func (s *AuthService) ValidateToken(token string) bool {
	claims, err := security.ValidateJWT(token, s.jwtSecret)
	if err != nil {
		return false
	}
	role, _ := claims["role"].(string)
	return role == "admin"
}
