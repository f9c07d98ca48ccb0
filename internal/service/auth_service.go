package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/Jamarblack/Degen-Arena/config"
	"github.com/Jamarblack/Degen-Arena/internal/core/domain"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"
	"github.com/Jamarblack/Degen-Arena/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService for the single operator account.
type AuthServiceImpl struct {
	username     string
	passwordHash string
	hashSvc      ports.HashService
	tokenSvc     ports.TokenService
	auditSvc     ports.AuditService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	operator config.OperatorConfig,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	auditSvc ports.AuditService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		username:     operator.Username,
		passwordHash: operator.PasswordHash,
		hashSvc:      hashSvc,
		tokenSvc:     tokenSvc,
		auditSvc:     auditSvc,
	}
}

// Login validates the operator credentials and returns a JWT token.
// Login is refused outright when no password hash is configured.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password, clientIP string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	valid, err := s.hashSvc.Verify(password, s.passwordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !userOK || !valid {
		s.record(ctx, domain.AuditActionLoginFailed, username, clientIP)
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(s.username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.record(ctx, domain.AuditActionOperatorLogin, s.username, clientIP)
	return token, expiry, nil
}

func (s *AuthServiceImpl) record(ctx context.Context, action domain.AuditAction, username, clientIP string) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: "operator",
		ResourceID:   username,
		IPAddress:    clientIP,
		CreatedAt:    time.Now().UTC(),
	})
}
